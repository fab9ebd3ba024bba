// internal/summarize/llm.go
package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwiater/mmrag/internal/appconfig"
	"github.com/mwiater/mmrag/internal/content"
	"github.com/mwiater/mmrag/internal/providers"
)

const (
	textPrompt = "You are an assistant tasked with summarizing tables and text for retrieval. " +
		"These summaries will be embedded and used to retrieve the raw text or table elements. " +
		"Give a concise summary of the table or text that is well-optimized for retrieval. Table " +
		"or text: %s "

	imagePrompt = "You are an assistant tasked with summarizing images for retrieval. " +
		"These summaries will be embedded and used to retrieve the raw image. " +
		"Give a concise summary of the image that is well optimized for retrieval."
)

// LLM summarizes texts and tables with the text model and images with the
// multimodal model.
type LLM struct {
	Generator  providers.Generator
	Host       appconfig.Host
	TextModel  string
	ImageModel string
	Parameters appconfig.Parameters
}

// NewLLM builds an LLM summarizer from the application configuration.
func NewLLM(gen providers.Generator, cfg *appconfig.Config) *LLM {
	return &LLM{
		Generator:  gen,
		Host:       cfg.Host,
		TextModel:  cfg.LLM,
		ImageModel: cfg.MMLLM,
		Parameters: cfg.Parameters,
	}
}

// Summarize sends one summarization request for raw.
func (l *LLM) Summarize(ctx context.Context, kind content.Kind, raw string) (string, error) {
	req := providers.GenerateRequest{
		Host:       l.Host,
		Parameters: l.Parameters,
	}
	switch kind {
	case content.KindText, content.KindTable:
		req.Model = l.TextModel
		req.Messages = []providers.Message{providers.TextMessage("user", fmt.Sprintf(textPrompt, raw))}
	case content.KindImage:
		req.Model = l.ImageModel
		req.Messages = []providers.Message{{
			Role: "user",
			Parts: []providers.Part{
				{Type: providers.PartText, Text: imagePrompt},
				{Type: providers.PartImageURL, ImageURL: providers.DataURI(content.ImageMIME(raw), raw)},
			},
		}}
	default:
		return "", fmt.Errorf("summarize: unsupported kind %s", kind)
	}

	out, err := l.Generator.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	// An empty reply is a valid summary; only model errors fall back to the sentinel.
	return strings.TrimSpace(out), nil
}
