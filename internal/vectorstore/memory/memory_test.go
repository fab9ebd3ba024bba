// internal/vectorstore/memory/memory_test.go
package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/mmrag/internal/vectorstore"
)

// keywordEmbedder maps text onto fixed axes by keyword so rankings are predictable.
type keywordEmbedder struct {
	calls atomic.Int32
	fail  string
}

func (k *keywordEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	k.calls.Add(1)
	if k.fail != "" && strings.Contains(text, k.fail) {
		return nil, errors.New("embedding backend down")
	}
	vec := []float64{0.01, 0.01, 0.01}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "chart") {
		vec[0] = 1
	}
	if strings.Contains(lower, "revenue") {
		vec[1] = 1
	}
	if strings.Contains(lower, "table") {
		vec[2] = 1
	}
	return vec, nil
}

func TestSearchRanksByCosine(t *testing.T) {
	emb := &keywordEmbedder{}
	s := New(emb)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []vectorstore.Record{
		{ID: "t1", Text: "Revenue grew 10%"},
		{ID: "i1", Text: "A bar chart."},
		{ID: "tb", Text: "A table of costs"},
	}))

	hits, err := s.Search(ctx, "what does the chart show", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "i1", hits[0].ID)
	assert.Equal(t, "A bar chart.", hits[0].Text)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestSearchEmptyStoreSkipsEmbedding(t *testing.T) {
	emb := &keywordEmbedder{}
	s := New(emb)

	hits, err := s.Search(context.Background(), "anything", 4)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, int32(0), emb.calls.Load())
}

func TestAddIsAllOrNothing(t *testing.T) {
	emb := &keywordEmbedder{fail: "poison"}
	s := New(emb)
	ctx := context.Background()

	err := s.Add(ctx, []vectorstore.Record{
		{ID: "a", Text: "fine"},
		{ID: "b", Text: "poison pill"},
	})
	require.Error(t, err)
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Add(ctx, []vectorstore.Record{{ID: "a", Text: "fine"}}))
	err = s.Add(ctx, []vectorstore.Record{{ID: "a", Text: "again"}})
	assert.True(t, errors.Is(err, vectorstore.ErrDuplicateID))
	assert.Equal(t, 1, s.Len())
}

func TestTiesKeepInsertionOrder(t *testing.T) {
	s := New(&keywordEmbedder{})
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []vectorstore.Record{
		{ID: "first", Text: "same"},
		{ID: "second", Text: "same"},
		{ID: "third", Text: "same"},
	}))

	hits, err := s.Search(ctx, "same", 3)
	require.NoError(t, err)
	got := []string{hits[0].ID, hits[1].ID, hits[2].ID}
	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestPersistAndOpen(t *testing.T) {
	dir := t.TempDir()
	emb := &keywordEmbedder{}
	s := New(emb)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []vectorstore.Record{
		{ID: "t1", Text: "Revenue grew 10%", Metadata: map[string]string{vectorstore.MetaKind: "text"}},
		{ID: "i1", Text: "A bar chart."},
	}))
	require.NoError(t, s.Persist(dir))

	reopened, err := Open(dir, emb)
	require.NoError(t, err)
	ids, err := reopened.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "i1"}, ids)

	before := emb.calls.Load()
	hits, err := reopened.Search(ctx, "revenue", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "t1", hits[0].ID)
	assert.Equal(t, "text", hits[0].Metadata[vectorstore.MetaKind])
	assert.Equal(t, before+1, emb.calls.Load(), "only the query should be embedded after reopening")
	assert.Equal(t, Type, reopened.Type())
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(t.TempDir(), &keywordEmbedder{})
	assert.True(t, errors.Is(err, os.ErrNotExist))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json}\n"), 0o644))
	_, err = Open(dir, &keywordEmbedder{})
	assert.ErrorContains(t, err, "line 1")
}
