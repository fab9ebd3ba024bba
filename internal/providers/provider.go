// internal/providers/provider.go

// Package providers defines the interfaces for interacting with model providers.
// It gives the index and the answer chain one abstraction over generation and
// embedding, regardless of the underlying provider implementation (e.g., Ollama, OpenAI).
package providers

import (
	"context"
	"strings"

	"github.com/mwiater/mmrag/internal/appconfig"
)

const (
	// PartText marks a plain text message part.
	PartText = "text"
	// PartImageURL marks an image part carrying a data URI.
	PartImageURL = "image_url"
)

// Part is one piece of a multimodal message.
type Part struct {
	Type     string
	Text     string
	ImageURL string
}

// Message is a chat message made of ordered parts.
type Message struct {
	Role  string
	Parts []Part
}

// TextMessage builds a single-part text message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Parts: []Part{{Type: PartText, Text: text}}}
}

// Text joins the text parts of the message with newlines.
func (m Message) Text() string {
	var texts []string
	for _, p := range m.Parts {
		if p.Type == PartText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// ImageURLs returns the image parts of the message in order.
func (m Message) ImageURLs() []string {
	var urls []string
	for _, p := range m.Parts {
		if p.Type == PartImageURL {
			urls = append(urls, p.ImageURL)
		}
	}
	return urls
}

// GenerateRequest encapsulates a single non-streaming generation call.
type GenerateRequest struct {
	Host       appconfig.Host
	Model      string
	Messages   []Message
	Parameters appconfig.Parameters
}

// EmbedRequest encapsulates a single embedding call.
type EmbedRequest struct {
	Host  appconfig.Host
	Model string
	Text  string
}

// Generator produces a completion for a set of messages.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Embedder produces an embedding vector for a text.
type Embedder interface {
	Embed(ctx context.Context, req EmbedRequest) ([]float64, error)
}

// ModelProvider is the interface that all model providers must implement.
type ModelProvider interface {
	Generator
	Embedder
	// Close cleans up any resources used by the provider.
	Close() error
}

// BoundEmbedder fixes the host and model of an Embedder so it can serve as a
// text-only embedding function.
type BoundEmbedder struct {
	embedder Embedder
	host     appconfig.Host
	model    string
}

// BindEmbedder returns an embedder that always targets host and model.
func BindEmbedder(e Embedder, host appconfig.Host, model string) *BoundEmbedder {
	return &BoundEmbedder{embedder: e, host: host, model: model}
}

// Embed embeds text with the bound host and model.
func (b *BoundEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return b.embedder.Embed(ctx, EmbedRequest{Host: b.host, Model: b.model, Text: text})
}

// Model returns the bound embedding model name.
func (b *BoundEmbedder) Model() string {
	return b.model
}

// SplitDataURI separates a "data:<mime>;base64,<payload>" URI into its mime
// type and payload. ok is false when uri is not a base64 data URI.
func SplitDataURI(uri string) (mime, payload string, ok bool) {
	rest, found := strings.CutPrefix(uri, "data:")
	if !found {
		return "", "", false
	}
	header, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}
	mime, found = strings.CutSuffix(header, ";base64")
	if !found {
		return "", "", false
	}
	return mime, payload, true
}

// DataURI formats a base64 payload as a data URI.
func DataURI(mime, payload string) string {
	return "data:" + mime + ";base64," + payload
}
