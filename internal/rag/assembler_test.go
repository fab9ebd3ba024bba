// internal/rag/assembler_test.go
package rag

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/mmrag/internal/providers"
)

// TestSplitWithImagesKeepsOnlyFirstImage checks any image in the hits reduces the context to the first image, resized.
func TestSplitWithImagesKeepsOnlyFirstImage(t *testing.T) {
	first := jpegBase64(t, 40, 20)
	second := pngBase64(t, 30, 30)
	docs := []string{"text one", first, "text two", second, "text three"}

	mc := NewAssembler(64, 32).Split(docs)
	require.Len(t, mc.Images, 1)
	assert.Empty(t, mc.Texts)

	cfg, format := decodeConfig(t, mc.Images[0])
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 32, cfg.Height)
}

// TestSplitWithoutImagesKeepsAllTexts checks text-only hits keep every text in rank order.
func TestSplitWithoutImagesKeepsAllTexts(t *testing.T) {
	docs := []string{"Revenue grew 10%", "QUJD", "| q1 | 10 |"}
	mc := NewAssembler(0, 0).Split(docs)
	assert.Equal(t, docs, mc.Texts)
	assert.Empty(t, mc.Images)
}

// TestSplitEmpty checks no hits yield an empty context.
func TestSplitEmpty(t *testing.T) {
	mc := Assembler{}.Split(nil)
	assert.Empty(t, mc.Texts)
	assert.Empty(t, mc.Images)
}

// TestSplitPreservesPNGFormat checks a resized PNG stays a PNG.
func TestSplitPreservesPNGFormat(t *testing.T) {
	mc := NewAssembler(10, 5).Split([]string{pngBase64(t, 50, 50)})
	require.Len(t, mc.Images, 1)
	cfg, format := decodeConfig(t, mc.Images[0])
	assert.Equal(t, "png", format)
	assert.Equal(t, 10, cfg.Width)
	assert.Equal(t, 5, cfg.Height)
}

// TestSplitKeepsOriginalWhenResizeFails checks an image that cannot be resized is passed through unchanged.
func TestSplitKeepsOriginalWhenResizeFails(t *testing.T) {
	riff := base64.StdEncoding.EncodeToString([]byte("RIFF\x10\x00\x00\x00WAVEfmt "))
	mc := NewAssembler(0, 0).Split([]string{"caption", riff})
	require.Len(t, mc.Images, 1)
	assert.Equal(t, riff, mc.Images[0])
	assert.Empty(t, mc.Texts)
}

// TestResizeBase64ImageErrors covers invalid base64 and undecodable payloads.
func TestResizeBase64ImageErrors(t *testing.T) {
	_, err := ResizeBase64Image("!!", 10, 10)
	assert.Error(t, err)
	_, err = ResizeBase64Image(base64.StdEncoding.EncodeToString([]byte("text")), 10, 10)
	assert.Error(t, err)
}

// TestBuildMessage checks the prompt text and image parts of the answer request.
func TestBuildMessage(t *testing.T) {
	msg := BuildMessage("What grew?", MultimodalContext{Texts: []string{"a", "b"}})
	assert.Equal(t, "user", msg.Role)
	require.Len(t, msg.Parts, 1)
	text := msg.Parts[0].Text
	assert.True(t, strings.HasPrefix(text, "You are an AI scientist tasking with providing factual answers.\n"))
	assert.Contains(t, text, "User-provided question: What grew?\n\n")
	assert.True(t, strings.HasSuffix(text, "Text and / or tables:\na\nb"))

	img := jpegBase64(t, 4, 4)
	msg = BuildMessage("q", MultimodalContext{Images: []string{img}})
	require.Len(t, msg.Parts, 2)
	assert.Equal(t, providers.PartImageURL, msg.Parts[1].Type)
	assert.Equal(t, "data:image/jpeg;base64,"+img, msg.Parts[1].ImageURL)
	assert.True(t, strings.HasSuffix(msg.Parts[0].Text, "Text and / or tables:\n"))
}
