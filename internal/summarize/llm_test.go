// internal/summarize/llm_test.go
package summarize

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/mmrag/internal/appconfig"
	"github.com/mwiater/mmrag/internal/content"
	"github.com/mwiater/mmrag/internal/providers"
)

type captureGenerator struct {
	reqs  []providers.GenerateRequest
	reply string
	err   error
}

func (c *captureGenerator) Generate(_ context.Context, req providers.GenerateRequest) (string, error) {
	c.reqs = append(c.reqs, req)
	return c.reply, c.err
}

func newTestLLM(gen providers.Generator) *LLM {
	cfg := appconfig.Default()
	cfg.LLM = "llama3"
	cfg.MMLLM = "llava"
	return NewLLM(gen, &cfg)
}

// TestLLMSummarizeText checks tables and texts go to the text model with the retrieval prompt.
func TestLLMSummarizeText(t *testing.T) {
	gen := &captureGenerator{reply: "  Revenue up.  "}
	out, err := newTestLLM(gen).Summarize(context.Background(), content.KindTable, "| q1 | 10 |")
	require.NoError(t, err)
	assert.Equal(t, "Revenue up.", out)

	require.Len(t, gen.reqs, 1)
	req := gen.reqs[0]
	assert.Equal(t, "llama3", req.Model)
	text := req.Messages[0].Text()
	assert.True(t, strings.HasPrefix(text, "You are an assistant tasked with summarizing tables and text for retrieval."))
	assert.Contains(t, text, "Table or text: | q1 | 10 |")
	require.NotNil(t, req.Parameters.NumPredict)
	assert.Equal(t, 1024, *req.Parameters.NumPredict)
}

// TestLLMSummarizeImageAttachesDataURI checks images go to the multimodal model as a data URI.
func TestLLMSummarizeImageAttachesDataURI(t *testing.T) {
	gen := &captureGenerator{reply: "A bar chart."}
	png := base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0})

	out, err := newTestLLM(gen).Summarize(context.Background(), content.KindImage, png)
	require.NoError(t, err)
	assert.Equal(t, "A bar chart.", out)

	req := gen.reqs[0]
	assert.Equal(t, "llava", req.Model)
	assert.Contains(t, req.Messages[0].Text(), "summarizing images for retrieval")
	assert.Equal(t, []string{"data:image/png;base64," + png}, req.Messages[0].ImageURLs())
}

// TestLLMSummarizeEmptyReplyPassesThrough checks a blank reply is kept as an
// empty summary rather than replaced with the sentinel.
func TestLLMSummarizeEmptyReplyPassesThrough(t *testing.T) {
	out, err := newTestLLM(&captureGenerator{reply: "   "}).Summarize(context.Background(), content.KindText, "x")
	require.NoError(t, err)
	assert.Equal(t, "", out)

	batch, err := Batch(context.Background(), newTestLLM(&captureGenerator{reply: ""}), content.KindText, []string{"a", "b"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"", ""}, batch)
}

// TestLLMSummarizeErrors covers model failures and unsupported kinds.
func TestLLMSummarizeErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := newTestLLM(&captureGenerator{err: boom}).Summarize(context.Background(), content.KindText, "x")
	assert.ErrorIs(t, err, boom)

	_, err = newTestLLM(&captureGenerator{}).Summarize(context.Background(), content.Kind(7), "x")
	assert.Error(t, err)
}

// TestLLMFailureFallsBackInBatch checks the model error surfaces as the sentinel.
func TestLLMFailureFallsBackInBatch(t *testing.T) {
	llm := newTestLLM(&captureGenerator{err: errors.New("connection refused")})
	out, err := Batch(context.Background(), llm, content.KindTable, []string{"t1", "t2"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{Sentinel, Sentinel}, out)
}
