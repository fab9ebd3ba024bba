// internal/providers/openai/provider.go
// Package openai provides a ModelProvider for OpenAI-compatible chat and
// embedding endpoints (OpenAI, vLLM, LM Studio, llama.cpp server).
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/mwiater/mmrag/internal/appconfig"
	"github.com/mwiater/mmrag/internal/logging"
	"github.com/mwiater/mmrag/internal/providers"
)

// Provider implements providers.ModelProvider on top of go-openai clients,
// one per host URL.
type Provider struct {
	apiKey  string
	timeout time.Duration

	mu      sync.Mutex
	clients map[string]*goopenai.Client
}

// New constructs a Provider using the configured API key environment variable.
func New(cfg *appconfig.Config) *Provider {
	return &Provider{
		apiKey:  cfg.APIKey(),
		timeout: cfg.RequestTimeout(),
		clients: make(map[string]*goopenai.Client),
	}
}

func (p *Provider) client(host appconfig.Host) *goopenai.Client {
	base := strings.TrimRight(host.URL, "/")
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[base]; ok {
		return c
	}
	cfg := goopenai.DefaultConfig(p.apiKey)
	if base != "" {
		cfg.BaseURL = base
	}
	cfg.HTTPClient = &http.Client{Timeout: p.timeout}
	c := goopenai.NewClientWithConfig(cfg)
	p.clients[base] = c
	return c
}

// Generate sends a chat completion and returns the first choice's content.
func (p *Provider) Generate(ctx context.Context, req providers.GenerateRequest) (string, error) {
	chatReq := goopenai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: toChatMessages(req.Messages),
	}
	if t := req.Parameters.Temperature; t != nil {
		chatReq.Temperature = float32(*t)
		if chatReq.Temperature == 0 {
			// omitempty drops an exact zero
			chatReq.Temperature = math.SmallestNonzeroFloat32
		}
	}
	if n := req.Parameters.NumPredict; n != nil {
		chatReq.MaxTokens = *n
	}

	hostID := hostIdentifier(req.Host)
	logging.LogRequest("MMRAG->LLM", hostID, req.Model, "/chat/completions", fmt.Sprintf("messages=%d", len(req.Messages)))

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client(req.Host).CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: chat completion returned no choices")
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	logging.LogRequest("LLM->MMRAG", hostID, req.Model, "/chat/completions", out)
	return out, nil
}

// Embed requests an embedding for one text and widens it to float64.
func (p *Provider) Embed(ctx context.Context, req providers.EmbedRequest) ([]float64, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("openai: cannot embed empty text")
	}
	logging.LogRequest("MMRAG->LLM", hostIdentifier(req.Host), req.Model, "/embeddings", req.Text)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client(req.Host).CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(req.Model),
		Input: []string{req.Text},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: embeddings: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("openai: no embedding data returned")
	}
	v32 := resp.Data[0].Embedding
	vec := make([]float64, len(v32))
	for i, v := range v32 {
		vec[i] = float64(v)
	}
	return vec, nil
}

// toChatMessages maps parts onto go-openai messages. Single-text messages use
// Content; anything with an image uses MultiContent.
func toChatMessages(msgs []providers.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		if len(m.ImageURLs()) == 0 {
			out = append(out, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Text()})
			continue
		}
		parts := make([]goopenai.ChatMessagePart, 0, len(m.Parts))
		for _, part := range m.Parts {
			switch part.Type {
			case providers.PartText:
				parts = append(parts, goopenai.ChatMessagePart{Type: goopenai.ChatMessagePartTypeText, Text: part.Text})
			case providers.PartImageURL:
				parts = append(parts, goopenai.ChatMessagePart{
					Type:     goopenai.ChatMessagePartTypeImageURL,
					ImageURL: &goopenai.ChatMessageImageURL{URL: part.ImageURL, Detail: goopenai.ImageURLDetailAuto},
				})
			}
		}
		out = append(out, goopenai.ChatCompletionMessage{Role: m.Role, MultiContent: parts})
	}
	return out
}

func hostIdentifier(host appconfig.Host) string {
	if name := strings.TrimSpace(host.Name); name != "" {
		return name
	}
	return host.URL
}

// Close drops cached clients.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients = make(map[string]*goopenai.Client)
	return nil
}
