// internal/providerfactory/factory.go
package providerfactory

import (
	"fmt"

	"github.com/mwiater/mmrag/internal/appconfig"
	"github.com/mwiater/mmrag/internal/logging"
	"github.com/mwiater/mmrag/internal/metrics"
	"github.com/mwiater/mmrag/internal/providers"
	"github.com/mwiater/mmrag/internal/providers/ollama"
	"github.com/mwiater/mmrag/internal/providers/openai"
)

// NewModelProvider selects and configures the appropriate model provider based on
// the application configuration. It chooses between the Ollama and OpenAI-compatible
// providers and wraps the selected provider with metrics collection when
// cfg.Metrics is set and an aggregator is supplied.
func NewModelProvider(cfg *appconfig.Config, aggregator *metrics.Aggregator) (providers.ModelProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}

	var provider providers.ModelProvider
	switch cfg.ProviderType() {
	case appconfig.ProviderOllama:
		provider = ollama.New(cfg)
	case appconfig.ProviderOpenAI:
		provider = openai.New(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
	logging.LogEvent("provider ready: %s at %s", cfg.ProviderType(), cfg.Host.URL)

	if cfg.Metrics && aggregator != nil {
		provider = metrics.NewProvider(provider, aggregator)
	}

	return provider, nil
}
