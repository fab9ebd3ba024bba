// internal/vectorstore/qdrant/qdrant.go
// Package qdrant implements the vector store on a Qdrant collection through its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwiater/mmrag/internal/util"
	"github.com/mwiater/mmrag/internal/vectorstore"
)

// FileName is the connection pointer written by Persist.
const FileName = "qdrant.json"

// Type is the backend name recorded in the index manifest.
const Type = "qdrant"

const (
	payloadText = "text"
	scrollPage  = 256
)

// Config locates a collection. APIKey is never persisted.
type Config struct {
	URL        string        `json:"url"`
	APIKey     string        `json:"-"`
	Collection string        `json:"collection"`
	Timeout    time.Duration `json:"-"`
}

// Store is a minimal REST client to one Qdrant collection using cosine distance.
type Store struct {
	cfg      Config
	embedder vectorstore.Embedder
	client   *http.Client
}

// errNotFound marks a 404 from Qdrant, which means the collection does not exist.
var errNotFound = errors.New("qdrant: not found")

// New returns a store for cfg; the collection is created on first Add.
func New(cfg Config, e vectorstore.Embedder) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &Store{
		cfg:      cfg,
		embedder: e,
		client:   &http.Client{Timeout: timeout},
	}
}

// Open reads the connection pointer from dir and connects with apiKey.
func Open(dir string, e vectorstore.Embedder, apiKey string, timeout time.Duration) (*Store, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("open qdrant pointer: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse qdrant pointer: %w", err)
	}
	if cfg.URL == "" || cfg.Collection == "" {
		return nil, errors.New("qdrant pointer is missing url or collection")
	}
	cfg.APIKey = apiKey
	cfg.Timeout = timeout
	return New(cfg, e), nil
}

// Add embeds every record, creates the collection when missing, and upserts
// all points in one waited request.
func (s *Store) Add(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := vectorstore.CheckIDs(records, nil); err != nil {
		return err
	}

	vectors := make([][]float64, len(records))
	for i, r := range records {
		vec, err := s.embedder.Embed(ctx, r.Text)
		if err != nil {
			return fmt.Errorf("embed record %s: %w", r.ID, err)
		}
		vectors[i] = vec
	}

	if err := s.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	points := make([]map[string]any, len(records))
	for i, r := range records {
		payload := map[string]any{payloadText: r.Text}
		for k, v := range r.Metadata {
			payload[k] = v
		}
		points[i] = map[string]any{
			"id":      r.ID,
			"vector":  vectors[i],
			"payload": payload,
		}
	}
	return s.do(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", map[string]any{"points": points}, nil)
}

// Search embeds the query and asks Qdrant for the k nearest summaries. A
// missing collection yields vectorstore.ErrNotInitialized.
func (s *Store) Search(ctx context.Context, query string, k int) ([]vectorstore.Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	req := map[string]any{
		"vector":       vec,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", req, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("collection %q: %w", s.cfg.Collection, vectorstore.ErrNotInitialized)
		}
		return nil, err
	}

	hits := make([]vectorstore.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := vectorstore.Hit{ID: fmt.Sprint(r.ID), Score: r.Score, Metadata: map[string]string{}}
		for key, v := range r.Payload {
			str, ok := v.(string)
			if !ok {
				continue
			}
			if key == payloadText {
				hit.Text = str
				continue
			}
			hit.Metadata[key] = str
		}
		if id := hit.Metadata[vectorstore.MetaDocID]; id != "" {
			hit.ID = id
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// IDs scrolls the whole collection. A missing collection has no ids.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	var offset any
	for {
		req := map[string]any{
			"limit":        scrollPage,
			"with_payload": false,
			"with_vector":  false,
		}
		if offset != nil {
			req["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points []struct {
					ID any `json:"id"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/scroll", req, &resp); err != nil {
			if errors.Is(err, errNotFound) {
				return nil, nil
			}
			return nil, err
		}
		for _, p := range resp.Result.Points {
			ids = append(ids, fmt.Sprint(p.ID))
		}
		if resp.Result.NextPageOffset == nil {
			return ids, nil
		}
		offset = resp.Result.NextPageOffset
	}
}

// Persist writes the connection pointer, without the API key, to dir.
func (s *Store) Persist(dir string) error {
	data, err := json.MarshalIndent(s.cfg, "", "  ")
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(filepath.Join(dir, FileName), data)
}

// Type returns the backend name.
func (s *Store) Type() string { return Type }

func (s *Store) ensureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("qdrant: invalid vector dimension")
	}
	err := s.do(ctx, http.MethodGet, s.collectionURL(), nil, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errNotFound) {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.do(ctx, http.MethodPut, s.collectionURL(), body, nil)
}

func (s *Store) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.cfg.URL, s.cfg.Collection)
}

func (s *Store) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("qdrant %s %s: %w", method, url, errNotFound)
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
