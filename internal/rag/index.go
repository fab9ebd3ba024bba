// internal/rag/index.go
// Package rag implements the multi-vector index: summaries are searched, raw
// contents are returned, and the two are linked by opaque ids.
package rag

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mwiater/mmrag/internal/content"
	"github.com/mwiater/mmrag/internal/docstore"
	"github.com/mwiater/mmrag/internal/logging"
	"github.com/mwiater/mmrag/internal/vectorstore"
)

// DefaultTopK is the number of summaries retrieved per query when unset.
const DefaultTopK = 4

// Pair aligns summaries with the raw contents they describe, element for element.
type Pair struct {
	Kind      content.Kind
	Summaries []string
	Raws      []string
}

// Models records which models built the index.
type Models struct {
	LLM       string `yaml:"llm,omitempty" json:"llm,omitempty"`
	MMLLM     string `yaml:"mm_llm,omitempty" json:"mm_llm,omitempty"`
	Embedding string `yaml:"embedding,omitempty" json:"embedding,omitempty"`
}

// Stats summarizes index contents.
type Stats struct {
	Entries int            `json:"entries"`
	Kinds   map[string]int `json:"kinds"`
	Store   string         `json:"store"`
	TopK    int            `json:"top_k"`
}

// Index owns a summary vector store and a raw-content docstore. Build is not
// safe for concurrent use; Retrieve is.
type Index struct {
	vectors vectorstore.Store
	docs    *docstore.Store
	topK    int
	models  Models

	mu    sync.RWMutex
	kinds map[content.Kind]int
}

// Option configures an Index.
type Option func(*Index)

// WithTopK sets how many summaries a query retrieves.
func WithTopK(k int) Option {
	return func(ix *Index) {
		if k > 0 {
			ix.topK = k
		}
	}
}

// WithModels records the models used to build the index.
func WithModels(m Models) Option {
	return func(ix *Index) { ix.models = m }
}

// New returns an empty index over vs.
func New(vs vectorstore.Store, opts ...Option) *Index {
	return newIndex(vs, docstore.New(), opts...)
}

func newIndex(vs vectorstore.Store, docs *docstore.Store, opts ...Option) *Index {
	ix := &Index{
		vectors: vs,
		docs:    docs,
		topK:    DefaultTopK,
		kinds:   make(map[content.Kind]int),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Build links every summary to its raw content under a fresh id. All pairs are
// checked for alignment before anything is written. Within a pair, summaries
// reach the vector store before raws reach the docstore, and a vector store
// failure leaves that pair unwritten.
func (ix *Index) Build(ctx context.Context, pairs ...Pair) error {
	for _, p := range pairs {
		if len(p.Summaries) != len(p.Raws) {
			return fmt.Errorf("%w: %s has %d summaries and %d contents", ErrMisaligned, p.Kind, len(p.Summaries), len(p.Raws))
		}
	}

	for _, p := range pairs {
		if len(p.Summaries) == 0 {
			continue
		}
		ids := make([]string, len(p.Summaries))
		records := make([]vectorstore.Record, len(p.Summaries))
		for i, summary := range p.Summaries {
			ids[i] = uuid.NewString()
			records[i] = vectorstore.Record{
				ID:   ids[i],
				Text: summary,
				Metadata: map[string]string{
					vectorstore.MetaDocID: ids[i],
					vectorstore.MetaKind:  p.Kind.String(),
				},
			}
		}
		if err := ix.vectors.Add(ctx, records); err != nil {
			return fmt.Errorf("index %s summaries: %w", p.Kind, err)
		}

		kvs := make([]docstore.KV, len(ids))
		for i, id := range ids {
			kvs[i] = docstore.KV{Key: id, Value: p.Raws[i]}
		}
		ix.docs.MSet(kvs)

		ix.mu.Lock()
		ix.kinds[p.Kind] += len(ids)
		ix.mu.Unlock()
		logging.LogEvent("indexed %d %s entries", len(ids), p.Kind)
	}
	return nil
}

// Retrieve returns the raw contents whose summaries rank highest for query, in
// rank order. A ranked id missing from the docstore is an IntegrityError.
func (ix *Index) Retrieve(ctx context.Context, query string) ([]string, error) {
	hits, err := ix.vectors.Search(ctx, query, ix.topK)
	if err != nil {
		return nil, fmt.Errorf("search summaries: %w", err)
	}
	if len(hits) == 0 {
		return []string{}, nil
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	raws, found := ix.docs.MGet(ids)
	for i, ok := range found {
		if !ok {
			return nil, &IntegrityError{ID: ids[i]}
		}
	}
	return raws, nil
}

// SummaryIDs lists the ids in the vector store, sorted.
func (ix *Index) SummaryIDs(ctx context.Context) ([]string, error) {
	ids, err := ix.vectors.IDs(ctx)
	if err != nil {
		return nil, err
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return sorted, nil
}

// ContentIDs lists the ids in the docstore, sorted.
func (ix *Index) ContentIDs() []string {
	return ix.docs.Keys()
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int {
	return ix.docs.Len()
}

// TopK returns the configured retrieval depth.
func (ix *Index) TopK() int {
	return ix.topK
}

// Models returns the models recorded for the index.
func (ix *Index) Models() Models {
	return ix.models
}

// Stats reports entry counts per kind.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	kinds := make(map[string]int, len(ix.kinds))
	for k, n := range ix.kinds {
		kinds[k.String()] = n
	}
	return Stats{Entries: ix.docs.Len(), Kinds: kinds, Store: ix.vectors.Type(), TopK: ix.topK}
}

// CheckIntegrity compares the vector store and docstore key sets.
func (ix *Index) CheckIntegrity(ctx context.Context) error {
	summaryIDs, err := ix.SummaryIDs(ctx)
	if err != nil {
		return err
	}
	contentIDs := ix.ContentIDs()
	if len(summaryIDs) != len(contentIDs) {
		return fmt.Errorf("%w: %d summaries but %d contents", ErrIntegrity, len(summaryIDs), len(contentIDs))
	}
	for i := range summaryIDs {
		if summaryIDs[i] != contentIDs[i] {
			return &IntegrityError{ID: summaryIDs[i]}
		}
	}
	return nil
}
