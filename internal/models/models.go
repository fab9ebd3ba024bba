// internal/models/models.go
// Package models checks and pulls the models an index needs on an Ollama host.
package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/mmrag/internal/appconfig"
	"github.com/mwiater/mmrag/internal/logging"
)

// Requirement names a model and the roles it serves.
type Requirement struct {
	Model string
	Roles []string
}

// Status reports whether a required model is present on the host.
type Status struct {
	Requirement
	Available bool
}

// Required lists the distinct models cfg needs, in first-use order.
func Required(cfg *appconfig.Config) []Requirement {
	var out []Requirement
	index := map[string]int{}
	add := func(model, role string) {
		model = strings.TrimSpace(model)
		if model == "" {
			return
		}
		if i, ok := index[model]; ok {
			out[i].Roles = append(out[i].Roles, role)
			return
		}
		index[model] = len(out)
		out = append(out, Requirement{Model: model, Roles: []string{role}})
	}
	add(cfg.LLM, "llm")
	add(cfg.MMLLM, "mm-llm")
	add(cfg.EmbeddingModelName(), "embedding")
	return out
}

// OllamaHost talks to the model management endpoints of an Ollama server.
type OllamaHost struct {
	Name           string
	URL            string
	client         *http.Client
	requestTimeout time.Duration
}

// NewOllamaHost builds a host from the configuration.
func NewOllamaHost(cfg *appconfig.Config) *OllamaHost {
	name := cfg.Host.Name
	if strings.TrimSpace(name) == "" {
		name = cfg.Host.URL
	}
	return &OllamaHost{
		Name:           name,
		URL:            strings.TrimRight(cfg.Host.URL, "/"),
		client:         &http.Client{Transport: &http.Transport{ForceAttemptHTTP2: false}},
		requestTimeout: cfg.RequestTimeout(),
	}
}

// doRequest executes an HTTP request against the Ollama API with context cancellation support.
func (h *OllamaHost) doRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, h.requestTimeout)
	req, err := http.NewRequestWithContext(ctx, method, h.URL+path, body)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return resp, cancel, nil
}

// ListRawModels returns the models available on an Ollama host without styling markup.
func (h *OllamaHost) ListRawModels(ctx context.Context) ([]string, error) {
	resp, cancel, err := h.doRequest(ctx, http.MethodGet, "/api/tags", nil, "")
	if err != nil {
		return nil, fmt.Errorf("could not list models: Ollama is not accessible on %s: %w", h.Name, err)
	}
	defer cancel()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body from %s: %w", h.Name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not list models: %s", strings.TrimSpace(string(body)))
	}

	var tagsResp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &tagsResp); err != nil {
		return nil, fmt.Errorf("error parsing models from %s: %w", h.Name, err)
	}

	models := make([]string, 0, len(tagsResp.Models))
	for _, model := range tagsResp.Models {
		models = append(models, model.Name)
	}
	sort.Strings(models)
	return models, nil
}

// PullModel pulls the provided model to the Ollama host via the /api/pull endpoint.
func (h *OllamaHost) PullModel(ctx context.Context, model string) error {
	body, err := json.Marshal(map[string]any{"name": model, "stream": false})
	if err != nil {
		return err
	}
	logging.LogRequest("Request", h.Name, model, "/api/pull", body)

	resp, cancel, err := h.doRequest(ctx, http.MethodPost, "/api/pull", bytes.NewReader(body), "application/json")
	if err != nil {
		return fmt.Errorf("pull %s on %s: %w", model, h.Name, err)
	}
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pull %s on %s: %s", model, h.Name, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// Check reports the availability of every required model.
func (h *OllamaHost) Check(ctx context.Context, reqs []Requirement) ([]Status, error) {
	available, err := h.ListRawModels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Status, len(reqs))
	for i, r := range reqs {
		out[i] = Status{Requirement: r, Available: hasModel(available, r.Model)}
	}
	return out, nil
}

// hasModel matches model against names reported by /api/tags, where an
// untagged name means ":latest".
func hasModel(available []string, model string) bool {
	want := model
	if !strings.Contains(want, ":") {
		want += ":latest"
	}
	for _, name := range available {
		if name == model || name == want {
			return true
		}
	}
	return false
}

// Missing filters statuses down to unavailable models.
func Missing(statuses []Status) []string {
	var out []string
	for _, s := range statuses {
		if !s.Available {
			out = append(out, s.Model)
		}
	}
	return out
}

// Render formats statuses as a styled list.
func Render(host string, statuses []Status) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	modelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	missingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	roleStyle := lipgloss.NewStyle().Faint(true)

	var b strings.Builder
	b.WriteString(headerStyle.Render(host))
	b.WriteString("\n")
	for _, s := range statuses {
		state := okStyle.Render("available")
		if !s.Available {
			state = missingStyle.Render("missing")
		}
		fmt.Fprintf(&b, "  %s %s %s\n", modelStyle.Render(s.Model), state, roleStyle.Render("("+strings.Join(s.Roles, ", ")+")"))
	}
	return b.String()
}
