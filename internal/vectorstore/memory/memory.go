// internal/vectorstore/memory/memory.go
// Package memory implements an in-process vector store with brute-force cosine
// ranking and JSONL persistence.
package memory

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mwiater/mmrag/internal/util"
	"github.com/mwiater/mmrag/internal/vectorstore"
)

// FileName is the JSONL file written by Persist.
const FileName = "summaries.jsonl"

// Type is the backend name recorded in the index manifest.
const Type = "memory"

// Entry is one persisted summary with its embedding.
type Entry struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Embedding []float64         `json:"embedding"`
}

// Store keeps entries in insertion order behind a read/write lock.
type Store struct {
	embedder vectorstore.Embedder

	mu      sync.RWMutex
	entries []Entry
	byID    map[string]struct{}
}

// New returns an empty store that embeds with e.
func New(e vectorstore.Embedder) *Store {
	return &Store{embedder: e, byID: make(map[string]struct{})}
}

// Open loads a store persisted in dir.
func Open(dir string, e vectorstore.Embedder) (*Store, error) {
	path := filepath.Join(dir, FileName)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open summaries: %w", err)
	}
	defer file.Close()

	s := New(e)
	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 8*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("parse summaries line %d: %w", lineNo, err)
		}
		if _, dup := s.byID[entry.ID]; dup {
			return nil, fmt.Errorf("summaries line %d: %w", lineNo, &vectorstore.DuplicateError{ID: entry.ID})
		}
		s.entries = append(s.entries, entry)
		s.byID[entry.ID] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read summaries: %w", err)
	}
	return s, nil
}

// Add embeds every record before storing any, so a failed embedding leaves the store unchanged.
func (s *Store) Add(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.RLock()
	err := vectorstore.CheckIDs(records, func(id string) bool {
		_, ok := s.byID[id]
		return ok
	})
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	pending := make([]Entry, len(records))
	for i, r := range records {
		vec, err := s.embedder.Embed(ctx, r.Text)
		if err != nil {
			return fmt.Errorf("embed record %s: %w", r.ID, err)
		}
		pending[i] = Entry{ID: r.ID, Text: r.Text, Metadata: r.Metadata, Embedding: vec}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range pending {
		if _, ok := s.byID[e.ID]; ok {
			return &vectorstore.DuplicateError{ID: e.ID}
		}
	}
	for _, e := range pending {
		s.entries = append(s.entries, e)
		s.byID[e.ID] = struct{}{}
	}
	return nil
}

// Search ranks entries by cosine similarity to the embedded query. Ties keep
// insertion order. An empty store returns no hits without embedding the query.
func (s *Store) Search(ctx context.Context, query string, k int) ([]vectorstore.Hit, error) {
	s.mu.RLock()
	empty := len(s.entries) == 0
	s.mu.RUnlock()
	if empty || k <= 0 {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	hits := make([]vectorstore.Hit, 0, len(s.entries))
	for _, e := range s.entries {
		if len(e.Embedding) != len(queryVec) {
			continue
		}
		hits = append(hits, vectorstore.Hit{
			ID:       e.ID,
			Score:    vectorstore.CosineSimilarity(queryVec, e.Embedding),
			Text:     e.Text,
			Metadata: e.Metadata,
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// IDs lists stored ids in insertion order.
func (s *Store) IDs(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.entries))
	for i, e := range s.entries {
		ids[i] = e.ID
	}
	return ids, nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Persist writes every entry to dir/summaries.jsonl atomically.
func (s *Store) Persist(dir string) error {
	s.mu.RLock()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range s.entries {
		if err := enc.Encode(e); err != nil {
			s.mu.RUnlock()
			return fmt.Errorf("encode summary %s: %w", e.ID, err)
		}
	}
	s.mu.RUnlock()
	return util.WriteFileAtomic(filepath.Join(dir, FileName), buf.Bytes())
}

// Type returns the backend name.
func (s *Store) Type() string { return Type }
