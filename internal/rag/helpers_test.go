// internal/rag/helpers_test.go
package rag

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/mwiater/mmrag/internal/vectorstore"
)

// stubStore keeps records in memory and ranks them with a caller-supplied score.
type stubStore struct {
	mu      sync.Mutex
	records []vectorstore.Record
	score   func(query string, r vectorstore.Record) float64
	addErr  error
	search  error
}

func (s *stubStore) Add(_ context.Context, records []vectorstore.Record) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

func (s *stubStore) Search(_ context.Context, query string, k int) ([]vectorstore.Hit, error) {
	if s.search != nil {
		return nil, s.search
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	hits := make([]vectorstore.Hit, 0, len(s.records))
	for _, r := range s.records {
		score := 0.0
		if s.score != nil {
			score = s.score(query, r)
		}
		hits = append(hits, vectorstore.Hit{ID: r.ID, Score: score, Text: r.Text, Metadata: r.Metadata})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *stubStore) IDs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.records))
	for i, r := range s.records {
		ids[i] = r.ID
	}
	return ids, nil
}

func (s *stubStore) Persist(string) error { return nil }
func (s *stubStore) Type() string         { return "stub" }

// imagesFirst ranks image summaries above everything else.
func imagesFirst(_ string, r vectorstore.Record) float64 {
	if r.Metadata[vectorstore.MetaKind] == "image" {
		return 1
	}
	return 0.5
}

// keywordEmbedder places text on fixed axes by keyword.
type keywordEmbedder struct{}

func (keywordEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := []float64{0.01, 0.01}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "chart") {
		vec[0] = 1
	}
	if strings.Contains(lower, "revenue") {
		vec[1] = 1
	}
	return vec, nil
}

func solidImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: 80, B: 160, A: 255})
		}
	}
	return img
}

func jpegBase64(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solidImage(w, h), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func pngBase64(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solidImage(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func decodeConfig(t *testing.T, b64 string) (image.Config, string) {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	return cfg, format
}
