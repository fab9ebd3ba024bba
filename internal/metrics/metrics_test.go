// internal/metrics/metrics_test.go
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mwiater/mmrag/internal/providers"
)

type fakeProvider struct {
	answer string
	vec    []float64
	err    error
	closed bool
}

func (f *fakeProvider) Generate(context.Context, providers.GenerateRequest) (string, error) {
	return f.answer, f.err
}

func (f *fakeProvider) Embed(context.Context, providers.EmbedRequest) ([]float64, error) {
	return f.vec, f.err
}

func (f *fakeProvider) Close() error {
	f.closed = true
	return nil
}

func steppingClock(step time.Duration) func() time.Time {
	t := time.Unix(0, 0)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestUpdateRunningStatWelford(t *testing.T) {
	var rs RunningStat
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		updateRunningStat(&rs, v)
	}
	if rs.Count != 8 || rs.Min != 2 || rs.Max != 9 {
		t.Fatalf("unexpected stat: %+v", rs)
	}
	if math.Abs(rs.Mean-5) > 1e-9 || math.Abs(rs.M2-32) > 1e-9 {
		t.Fatalf("expected mean 5 and M2 32, got %v and %v", rs.Mean, rs.M2)
	}
	if rs.StdDev < 2.13 || rs.StdDev > 2.14 {
		t.Fatalf("expected stddev ~2.138, got %v", rs.StdDev)
	}
}

func TestGetBucket(t *testing.T) {
	cases := map[int]string{0: "0-1k", 1024: "0-1k", 1025: "1k-4k", 5000: "4k-16k", 20000: "16k-64k", 70000: "64k+"}
	for n, want := range cases {
		if got := getBucket(n); got != want {
			t.Errorf("getBucket(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestProviderRecordsGenerateAndEmbed(t *testing.T) {
	agg := NewAggregator(filepath.Join(t.TempDir(), FileName), 0)
	wrapped := &fakeProvider{answer: "a chart", vec: []float64{1, 2, 3}}
	p := NewProvider(wrapped, agg)
	p.now = steppingClock(10 * time.Millisecond)

	msg := providers.Message{Role: "user", Parts: []providers.Part{
		{Type: providers.PartText, Text: "what"},
		{Type: providers.PartImageURL, ImageURL: "data:image/png;base64,AAAA"},
	}}
	if _, err := p.Generate(context.Background(), providers.GenerateRequest{Model: "llava", Messages: []providers.Message{msg}}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := p.Embed(context.Background(), providers.EmbedRequest{Model: "llava", Text: "hello"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}

	snap := agg.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected one model, got %d", len(snap))
	}
	overall := snap[0].OverallStats
	if overall.TotalRequests != 2 || overall.Failures != 0 || overall.Images != 1 {
		t.Fatalf("unexpected overall stats: %+v", overall)
	}
	if overall.LatencyMillis.Mean != 10 {
		t.Fatalf("expected 10ms mean latency, got %v", overall.LatencyMillis.Mean)
	}
	if len(snap[0].PerformanceBuckets) != 2 {
		t.Fatalf("expected a bucket per operation, got %+v", snap[0].PerformanceBuckets)
	}

	if err := p.Close(); err != nil || !wrapped.closed {
		t.Fatalf("expected Close to pass through")
	}
}

func TestProviderRecordsFailures(t *testing.T) {
	agg := NewAggregator(filepath.Join(t.TempDir(), FileName), 0)
	boom := errors.New("boom")
	p := NewProvider(&fakeProvider{err: boom}, agg)

	if _, err := p.Generate(context.Background(), providers.GenerateRequest{Model: "m"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	stats := agg.Snapshot()[0].OverallStats
	if stats.TotalRequests != 1 || stats.Failures != 1 || stats.OutputChars.Count != 0 {
		t.Fatalf("unexpected stats after failure: %+v", stats)
	}
}

func TestAggregatorSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	agg := NewAggregator(path, 0)
	agg.Record(Call{Model: "b", Operation: OpEmbed, InputChars: 5, OutputChars: 3})
	agg.Record(Call{Model: "a", Operation: OpGenerate, InputChars: 2000})
	if err := agg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := agg.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	var saved []ModelMetrics
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if len(saved) != 2 || saved[0].ModelName != "a" || saved[1].ModelName != "b" {
		t.Fatalf("expected models sorted by name, got %+v", saved)
	}

	reloaded := NewAggregator(path, 0)
	reloaded.Record(Call{Model: "a", Operation: OpGenerate, InputChars: 2000})
	snap := reloaded.Snapshot()
	if snap[0].OverallStats.TotalRequests != 2 {
		t.Fatalf("expected reloaded stats to accumulate, got %+v", snap[0].OverallStats)
	}
	if snap[0].OverallStats.InputChars.Mean != 2000 {
		t.Fatalf("expected mean to survive reload, got %v", snap[0].OverallStats.InputChars.Mean)
	}
}
