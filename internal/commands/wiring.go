// internal/commands/wiring.go
package mmrag

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mwiater/mmrag/internal/appconfig"
	"github.com/mwiater/mmrag/internal/logging"
	"github.com/mwiater/mmrag/internal/metrics"
	"github.com/mwiater/mmrag/internal/providerfactory"
	"github.com/mwiater/mmrag/internal/providers"
	"github.com/mwiater/mmrag/internal/rag"
	"github.com/mwiater/mmrag/internal/vectorstore"
	"github.com/mwiater/mmrag/internal/vectorstore/memory"
	"github.com/mwiater/mmrag/internal/vectorstore/qdrant"
)

// session bundles the collaborators a command needs for one run.
type session struct {
	cfg        *appconfig.Config
	provider   providers.ModelProvider
	embedder   *providers.BoundEmbedder
	aggregator *metrics.Aggregator
}

// openSession builds the provider, embedder and optional metrics aggregator.
// A positive flushEvery saves metrics periodically for long-running commands.
func openSession(cfg *appconfig.Config, flushEvery time.Duration) (*session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	if err := cfg.RequireModels(); err != nil {
		return nil, err
	}

	var agg *metrics.Aggregator
	if cfg.Metrics {
		agg = metrics.NewAggregator(filepath.Join(cfg.StorageDir, metrics.FileName), flushEvery)
	}
	provider, err := providerfactory.NewModelProvider(cfg, agg)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:        cfg,
		provider:   provider,
		embedder:   providers.BindEmbedder(provider, cfg.Host, cfg.EmbeddingModelName()),
		aggregator: agg,
	}, nil
}

// Close releases the provider and saves metrics.
func (s *session) Close() error {
	err := s.provider.Close()
	if s.aggregator != nil {
		if aerr := s.aggregator.Close(); aerr != nil {
			logging.LogEvent("[METRICS] %v", aerr)
		}
	}
	return err
}

// newStore returns an empty vector store of the configured backend.
func (s *session) newStore() (vectorstore.Store, error) {
	switch s.cfg.StoreType() {
	case appconfig.StoreMemory:
		return memory.New(s.embedder), nil
	case appconfig.StoreQdrant:
		q := s.cfg.VectorStore.Qdrant
		return qdrant.New(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Timeout:    s.cfg.RequestTimeout(),
		}, s.embedder), nil
	default:
		return nil, fmt.Errorf("unsupported vector store %q", s.cfg.VectorStore.Type)
	}
}

// opener reopens persisted stores with this session's embedder.
func (s *session) opener() rag.StoreOpener {
	return func(storeType, dir string) (vectorstore.Store, error) {
		switch storeType {
		case memory.Type:
			return memory.Open(dir, s.embedder)
		case qdrant.Type:
			return qdrant.Open(dir, s.embedder, s.cfg.VectorStore.Qdrant.APIKey, s.cfg.RequestTimeout())
		default:
			return nil, fmt.Errorf("unsupported vector store %q", storeType)
		}
	}
}

// models records the configured model names.
func (s *session) models() rag.Models {
	return rag.Models{LLM: s.cfg.LLM, MMLLM: s.cfg.MMLLM, Embedding: s.cfg.EmbeddingModelName()}
}

// loadIndex reopens the index saved in the storage directory.
func (s *session) loadIndex(ctx context.Context) (*rag.Index, error) {
	ix, err := rag.Load(ctx, s.cfg.StorageDir, s.opener(), rag.WithTopK(s.cfg.TopK))
	if err != nil {
		return nil, err
	}
	built := ix.Models()
	if built.Embedding != "" && built.Embedding != s.cfg.EmbeddingModelName() {
		logging.LogWarn(fmt.Sprintf("index was built with embedding model %q but %q is configured", built.Embedding, s.cfg.EmbeddingModelName()))
	}
	return ix, nil
}
