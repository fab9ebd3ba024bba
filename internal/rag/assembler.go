// internal/rag/assembler.go
package rag

import (
	"go.uber.org/zap"

	"github.com/mwiater/mmrag/internal/content"
	"github.com/mwiater/mmrag/internal/logging"
)

const (
	// DefaultImageWidth is the width images are resized to before prompting.
	DefaultImageWidth = 1300
	// DefaultImageHeight is the height images are resized to before prompting.
	DefaultImageHeight = 600
)

// MultimodalContext is the per-query prompt material.
type MultimodalContext struct {
	Texts  []string `json:"texts"`
	Images []string `json:"images"`
}

// LooksLikeBase64 reports whether s is plausibly a base64 payload.
func LooksLikeBase64(s string) bool { return content.LooksLikeBase64(s) }

// IsImageData reports whether s decodes to a known image signature.
func IsImageData(s string) bool { return content.IsImageData(s) }

// Assembler splits retrieved raw contents into a multimodal context.
type Assembler struct {
	Width  int
	Height int
}

// NewAssembler returns an assembler with the given bound, falling back to the
// defaults for non-positive sizes.
func NewAssembler(width, height int) Assembler {
	if width <= 0 {
		width = DefaultImageWidth
	}
	if height <= 0 {
		height = DefaultImageHeight
	}
	return Assembler{Width: width, Height: height}
}

// Split classifies docs in order. When any image is present the context holds
// only the first image, resized, and no texts. Otherwise it holds every text.
func (a Assembler) Split(docs []string) MultimodalContext {
	var texts []string
	first := ""
	for _, doc := range docs {
		if content.Classify(doc) == content.KindImage {
			if first == "" {
				first = doc
			}
			continue
		}
		texts = append(texts, doc)
	}

	if first != "" {
		return MultimodalContext{Images: []string{a.resize(first)}, Texts: []string{}}
	}
	if texts == nil {
		texts = []string{}
	}
	return MultimodalContext{Texts: texts, Images: []string{}}
}

func (a Assembler) resize(b64 string) string {
	w, h := a.Width, a.Height
	if w <= 0 {
		w = DefaultImageWidth
	}
	if h <= 0 {
		h = DefaultImageHeight
	}
	resized, err := ResizeBase64Image(b64, w, h)
	if err != nil {
		logging.LogWarn("image resize failed, keeping original payload", zap.Error(err))
		return b64
	}
	return resized
}
