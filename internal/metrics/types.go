// internal/metrics/types.go
package metrics

import "time"

// FileName is the metrics document written into the storage directory.
const FileName = "metrics.json"

// Operation names recorded by the provider decorator.
const (
	OpGenerate = "generate"
	OpEmbed    = "embed"
)

// ModelMetrics is the top-level document for a single model's aggregated data.
type ModelMetrics struct {
	ModelName          string                 `json:"model_name"`
	LastUpdatedUTC     time.Time              `json:"last_updated_utc"`
	OverallStats       RunningAggregatedStats `json:"overall_stats"`
	PerformanceBuckets []PerformanceBucket    `json:"performance_buckets"`
}

// PerformanceBucket holds aggregated stats for one operation and input size range.
type PerformanceBucket struct {
	Operation string                 `json:"operation"`
	Bucket    string                 `json:"bucket"`
	Stats     RunningAggregatedStats `json:"stats"`
}

// RunningAggregatedStats stores the running statistical values for a set of metrics.
// It uses Welford's online algorithm for calculating mean and standard deviation.
type RunningAggregatedStats struct {
	TotalRequests int64 `json:"total_requests"`
	Failures      int64 `json:"failures"`
	Images        int64 `json:"images"`

	LatencyMillis RunningStat `json:"latency_ms"`
	InputChars    RunningStat `json:"input_chars"`
	OutputChars   RunningStat `json:"output_chars"`
}

// RunningStat holds the necessary values for online calculation of mean, variance, and stddev.
type RunningStat struct {
	Count  int64   `json:"count"`
	Mean   float64 `json:"mean"`
	M2     float64 `json:"m2"` // Sum of squares of differences from the current mean
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
}

// Call describes one completed model call.
type Call struct {
	Model      string
	Operation  string
	Latency    time.Duration
	InputChars int
	// OutputChars is the answer length for generate and the vector width for embed.
	OutputChars int
	Images      int
	Err         error
}
