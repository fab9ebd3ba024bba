// internal/metrics/aggregator.go
package metrics

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/mwiater/mmrag/internal/logging"
	"github.com/mwiater/mmrag/internal/util"
)

// Aggregator collects and manages performance metrics for models.
type Aggregator struct {
	mutex    sync.Mutex
	metrics  map[string]*ModelMetrics
	filePath string
	ticker   *time.Ticker
	done     chan struct{}
	closed   bool
}

// NewAggregator creates an Aggregator backed by filePath, merging any metrics
// already saved there. A positive flushEvery saves periodically until Close.
func NewAggregator(filePath string, flushEvery time.Duration) *Aggregator {
	agg := &Aggregator{
		metrics:  make(map[string]*ModelMetrics),
		filePath: filePath,
		done:     make(chan struct{}),
	}

	agg.load()

	if flushEvery > 0 {
		agg.ticker = time.NewTicker(flushEvery)
		go func() {
			for {
				select {
				case <-agg.ticker.C:
					if err := agg.Save(); err != nil {
						logging.LogEvent("[METRICS] periodic save failed: %v", err)
					}
				case <-agg.done:
					return
				}
			}
		}()
	}

	return agg
}

// load reads metrics from the JSON file into memory.
func (a *Aggregator) load() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	data, err := os.ReadFile(a.filePath)
	if err != nil {
		return
	}

	var metricsSlice []*ModelMetrics
	if err := json.Unmarshal(data, &metricsSlice); err != nil {
		logging.LogEvent("[METRICS] ignoring unreadable %s: %v", a.filePath, err)
		return
	}

	for _, m := range metricsSlice {
		a.metrics[m.ModelName] = m
	}
}

// Save writes the current metrics from memory to the JSON file.
func (a *Aggregator) Save() error {
	logging.LogEvent("[METRICS] Saving metrics to %s", a.filePath)
	data, err := json.MarshalIndent(a.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	if err := util.WriteFileAtomic(a.filePath, data); err != nil {
		return fmt.Errorf("save metrics: %w", err)
	}
	return nil
}

// Snapshot returns a copy of every model's metrics ordered by model name.
func (a *Aggregator) Snapshot() []ModelMetrics {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	out := make([]ModelMetrics, 0, len(a.metrics))
	for _, m := range a.metrics {
		cp := *m
		cp.PerformanceBuckets = append([]PerformanceBucket(nil), m.PerformanceBuckets...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelName < out[j].ModelName })
	return out
}

// Record updates the metrics for a given model with new data.
func (a *Aggregator) Record(call Call) {
	logging.LogEvent("[METRICS] Record %s for model %s", call.Operation, call.Model)
	a.mutex.Lock()
	defer a.mutex.Unlock()

	modelMetrics, exists := a.metrics[call.Model]
	if !exists {
		modelMetrics = &ModelMetrics{
			ModelName: call.Model,
		}
		a.metrics[call.Model] = modelMetrics
	}

	modelMetrics.LastUpdatedUTC = time.Now().UTC()

	updateStats(&modelMetrics.OverallStats, call)

	bucket := getBucket(call.InputChars)
	for i := range modelMetrics.PerformanceBuckets {
		b := &modelMetrics.PerformanceBuckets[i]
		if b.Operation == call.Operation && b.Bucket == bucket {
			updateStats(&b.Stats, call)
			return
		}
	}
	newBucket := PerformanceBucket{
		Operation: call.Operation,
		Bucket:    bucket,
	}
	updateStats(&newBucket.Stats, call)
	modelMetrics.PerformanceBuckets = append(modelMetrics.PerformanceBuckets, newBucket)
}

// updateStats updates the running statistics with one call. Failed calls only
// count toward TotalRequests, Failures and latency.
func updateStats(stats *RunningAggregatedStats, call Call) {
	stats.TotalRequests++
	updateRunningStat(&stats.LatencyMillis, float64(call.Latency.Milliseconds()))
	if call.Err != nil {
		stats.Failures++
		return
	}
	stats.Images += int64(call.Images)
	updateRunningStat(&stats.InputChars, float64(call.InputChars))
	updateRunningStat(&stats.OutputChars, float64(call.OutputChars))
}

// updateRunningStat updates a single running statistic using Welford's online algorithm.
func updateRunningStat(rs *RunningStat, value float64) {
	rs.Count++
	if rs.Count == 1 {
		rs.Min = value
		rs.Max = value
	} else {
		if value < rs.Min {
			rs.Min = value
		}
		if value > rs.Max {
			rs.Max = value
		}
	}

	delta := value - rs.Mean
	rs.Mean += delta / float64(rs.Count)
	delta2 := value - rs.Mean
	rs.M2 += delta * delta2
	if rs.Count > 1 {
		rs.StdDev = math.Sqrt(rs.M2 / float64(rs.Count-1))
	}
}

// getBucket determines the performance bucket for an input of n characters.
func getBucket(n int) string {
	switch {
	case n <= 1024:
		return "0-1k"
	case n <= 4096:
		return "1k-4k"
	case n <= 16384:
		return "4k-16k"
	case n <= 65536:
		return "16k-64k"
	default:
		return "64k+"
	}
}

// Close stops periodic flushing and saves the metrics. It is safe to call more than once.
func (a *Aggregator) Close() error {
	a.mutex.Lock()
	if a.closed {
		a.mutex.Unlock()
		return nil
	}
	a.closed = true
	a.mutex.Unlock()

	if a.ticker != nil {
		a.ticker.Stop()
		close(a.done)
	}
	return a.Save()
}
