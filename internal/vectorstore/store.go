// internal/vectorstore/store.go
// Package vectorstore defines the similarity-searchable summary space used by
// the multi-vector index. Backends live in subpackages.
package vectorstore

import (
	"context"
	"errors"
	"math"
)

const (
	// MetaDocID is the metadata key holding the record's linkage id.
	MetaDocID = "doc_id"
	// MetaKind is the metadata key holding the content kind name.
	MetaKind = "kind"
)

var (
	// ErrNotInitialized is returned by backends whose search space does not exist yet.
	ErrNotInitialized = errors.New("vector store not initialized")
	// ErrDuplicateID is returned when a record id is already present.
	ErrDuplicateID = errors.New("duplicate record id")
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Record is a summary to index under ID.
type Record struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Hit is a ranked search result.
type Hit struct {
	ID       string
	Score    float64
	Text     string
	Metadata map[string]string
}

// Store is a similarity-searchable collection of summaries.
type Store interface {
	// Add embeds and stores every record, or none of them.
	Add(ctx context.Context, records []Record) error
	// Search returns up to k records ranked by similarity to query.
	Search(ctx context.Context, query string, k int) ([]Hit, error)
	// IDs lists every stored record id.
	IDs(ctx context.Context) ([]string, error)
	// Persist writes whatever the backend needs to reopen itself from dir.
	Persist(dir string) error
	// Type names the backend for the index manifest.
	Type() string
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either is a zero vector or their lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	normA := Norm(a)
	normB := Norm(b)
	if normA == 0 || normB == 0 {
		return 0
	}
	dot := 0.0
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (normA * normB)
}

// Norm returns the Euclidean length of v.
func Norm(v []float64) float64 {
	sum := 0.0
	for _, val := range v {
		sum += val * val
	}
	return math.Sqrt(sum)
}

// CheckIDs reports ErrDuplicateID when records repeat an id or reuse one in existing.
func CheckIDs(records []Record, existing func(id string) bool) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.ID == "" {
			return errors.New("record id is empty")
		}
		if _, ok := seen[r.ID]; ok {
			return &DuplicateError{ID: r.ID}
		}
		if existing != nil && existing(r.ID) {
			return &DuplicateError{ID: r.ID}
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

// DuplicateError names the id that collided.
type DuplicateError struct {
	ID string
}

func (e *DuplicateError) Error() string {
	return "duplicate record id " + e.ID
}

// Unwrap lets errors.Is match ErrDuplicateID.
func (e *DuplicateError) Unwrap() error {
	return ErrDuplicateID
}
