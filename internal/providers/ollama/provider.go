// internal/providers/ollama/provider.go
// Package ollama provides a ModelProvider backed by Ollama-compatible HTTP endpoints.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/mmrag/internal/appconfig"
	"github.com/mwiater/mmrag/internal/logging"
	"github.com/mwiater/mmrag/internal/providers"
)

// Provider implements the providers.ModelProvider interface using Ollama HTTP APIs.
type Provider struct {
	client  *http.Client
	timeout time.Duration
}

// New constructs a Provider configured with the application's request timeout.
func New(cfg *appconfig.Config) *Provider {
	timeout := cfg.RequestTimeout()
	return &Provider{
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		timeout: timeout,
	}
}

// chatMessage is the Ollama wire form of a message; images carry bare base64.
type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done               bool  `json:"done"`
	TotalDuration      int64 `json:"total_duration"`
	LoadDuration       int64 `json:"load_duration"`
	PromptEvalCount    int   `json:"prompt_eval_count"`
	PromptEvalDuration int64 `json:"prompt_eval_duration"`
	EvalCount          int   `json:"eval_count"`
	EvalDuration       int64 `json:"eval_duration"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Generate issues a non-streaming chat request and returns the assistant content.
func (p *Provider) Generate(ctx context.Context, req providers.GenerateRequest) (string, error) {
	messages, err := toChatMessages(req.Messages)
	if err != nil {
		return "", err
	}
	payload := map[string]any{
		"model":    req.Model,
		"messages": messages,
		"options":  buildOptions(req.Parameters),
		"stream":   false,
	}

	respBody, err := p.post(ctx, req.Host, req.Model, "/api/chat", payload)
	if err != nil {
		return "", err
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("ollama: decode /api/chat response: %w", err)
	}
	return strings.TrimSpace(result.Message.Content), nil
}

// Embed requests an embedding vector for a single text.
func (p *Provider) Embed(ctx context.Context, req providers.EmbedRequest) ([]float64, error) {
	payload := map[string]any{
		"model":  req.Model,
		"prompt": req.Text,
	}

	respBody, err := p.post(ctx, req.Host, req.Model, "/api/embeddings", payload)
	if err != nil {
		return nil, err
	}

	var result embeddingResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("ollama: decode /api/embeddings response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, errors.New("ollama: /api/embeddings returned an empty vector")
	}
	return result.Embedding, nil
}

func (p *Provider) post(ctx context.Context, host appconfig.Host, model, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	hostID := hostIdentifier(host)
	logging.LogRequest("MMRAG->LLM", hostID, model, path, body)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(host.URL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	logging.LogRequest("LLM->MMRAG", hostID, model, path, respBody)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama: %s returned %s: %s", path, resp.Status, strings.TrimSpace(string(respBody)))
	}
	return respBody, nil
}

// toChatMessages flattens multimodal parts into Ollama's content plus images form.
func toChatMessages(msgs []providers.Message) ([]chatMessage, error) {
	out := make([]chatMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := chatMessage{Role: m.Role, Content: m.Text()}
		for _, url := range m.ImageURLs() {
			_, payload, ok := providers.SplitDataURI(url)
			if !ok {
				return nil, fmt.Errorf("ollama: image part is not a base64 data URI")
			}
			cm.Images = append(cm.Images, payload)
		}
		out = append(out, cm)
	}
	return out, nil
}

func buildOptions(params appconfig.Parameters) map[string]any {
	options := map[string]any{}
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	}
	if params.NumPredict != nil {
		options["num_predict"] = *params.NumPredict
	}
	return options
}

func hostIdentifier(host appconfig.Host) string {
	if name := strings.TrimSpace(host.Name); name != "" {
		return name
	}
	return host.URL
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
