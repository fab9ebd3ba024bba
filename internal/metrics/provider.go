// internal/metrics/provider.go
package metrics

import (
	"context"
	"time"

	"github.com/mwiater/mmrag/internal/logging"
	"github.com/mwiater/mmrag/internal/providers"
)

// Provider is a decorator that wraps a ModelProvider to record metrics.
type Provider struct {
	wrapped    providers.ModelProvider
	aggregator *Aggregator
	now        func() time.Time
}

// NewProvider creates a new metrics-enabled provider that wraps an existing ModelProvider.
func NewProvider(wrapped providers.ModelProvider, aggregator *Aggregator) *Provider {
	logging.LogEvent("[METRICS] Wrapping provider with metrics provider")
	return &Provider{wrapped: wrapped, aggregator: aggregator, now: time.Now}
}

// Generate times the wrapped Generate call and records its outcome.
func (p *Provider) Generate(ctx context.Context, req providers.GenerateRequest) (string, error) {
	start := p.now()
	answer, err := p.wrapped.Generate(ctx, req)

	call := Call{
		Model:       req.Model,
		Operation:   OpGenerate,
		Latency:     p.now().Sub(start),
		OutputChars: len(answer),
		Err:         err,
	}
	for _, m := range req.Messages {
		call.InputChars += len(m.Text())
		call.Images += len(m.ImageURLs())
	}
	p.record(call)
	return answer, err
}

// Embed times the wrapped Embed call and records its outcome.
func (p *Provider) Embed(ctx context.Context, req providers.EmbedRequest) ([]float64, error) {
	start := p.now()
	vec, err := p.wrapped.Embed(ctx, req)
	p.record(Call{
		Model:       req.Model,
		Operation:   OpEmbed,
		Latency:     p.now().Sub(start),
		InputChars:  len(req.Text),
		OutputChars: len(vec),
		Err:         err,
	})
	return vec, err
}

func (p *Provider) record(call Call) {
	if p.aggregator != nil {
		p.aggregator.Record(call)
	}
}

// Close passes the call through to the wrapped provider.
func (p *Provider) Close() error {
	return p.wrapped.Close()
}
