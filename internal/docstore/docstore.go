// internal/docstore/docstore.go
// Package docstore holds raw content keyed by the ids linking it to summaries.
package docstore

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/mwiater/mmrag/internal/util"
)

// FileName is the gob blob written by Save.
const FileName = "docstore.gob"

// Store maps ids to raw content. Reads may run concurrently.
type Store struct {
	mu   sync.RWMutex
	docs map[string]string
}

// New returns an empty store.
func New() *Store {
	return &Store{docs: make(map[string]string)}
}

// KV is one id and raw content pair for MSet.
type KV struct {
	Key   string
	Value string
}

// MSet stores all pairs under a single lock.
func (s *Store) MSet(pairs []KV) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pairs {
		s.docs[p.Key] = p.Value
	}
}

// Get returns the raw content for id.
func (s *Store) Get(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.docs[id]
	return v, ok
}

// MGet resolves ids in order; missing ids report ok=false at their position.
func (s *Store) MGet(ids []string) ([]string, []bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	values := make([]string, len(ids))
	found := make([]bool, len(ids))
	for i, id := range ids {
		values[i], found[i] = s.docs[id]
	}
	return values, found
}

// Keys returns every id in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.docs))
	for k := range s.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Save writes the map as a gob blob to path via temp file and rename.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(s.docs)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode docstore: %w", err)
	}
	return util.WriteFileAtomic(path, buf.Bytes())
}

// Load reads a store written by Save.
func Load(path string) (*Store, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open docstore: %w", err)
	}
	defer file.Close()

	docs := make(map[string]string)
	if err := gob.NewDecoder(file).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode docstore %s: %w", path, err)
	}
	return &Store{docs: docs}, nil
}
