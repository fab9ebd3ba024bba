// internal/providers/openai/provider_test.go
package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mwiater/mmrag/internal/appconfig"
	"github.com/mwiater/mmrag/internal/providers"
)

// TestProviderGenerateSendsImageParts verifies multimodal messages are sent as
// content parts with the data URI intact.
func TestProviderGenerateSendsImageParts(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"chart shows growth"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	p := New(&appconfig.Config{TimeoutSeconds: 5})
	temp := 0.0
	out, err := p.Generate(context.Background(), providers.GenerateRequest{
		Host:  appconfig.Host{URL: server.URL},
		Model: "gpt-4o-mini",
		Messages: []providers.Message{{Role: "user", Parts: []providers.Part{
			{Type: providers.PartText, Text: "what grew?"},
			{Type: providers.PartImageURL, ImageURL: "data:image/jpeg;base64,/9j/AAA="},
		}}},
		Parameters: appconfig.Parameters{Temperature: &temp},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if out != "chart shows growth" {
		t.Fatalf("unexpected output %q", out)
	}

	msgs, ok := captured["messages"].([]any)
	if !ok || len(msgs) != 1 {
		t.Fatalf("unexpected messages: %v", captured["messages"])
	}
	content, ok := msgs[0].(map[string]any)["content"].([]any)
	if !ok || len(content) != 2 {
		t.Fatalf("expected two content parts, got %v", msgs[0])
	}
	img := content[1].(map[string]any)
	if img["type"] != "image_url" {
		t.Fatalf("expected image_url part, got %v", img)
	}
	if url := img["image_url"].(map[string]any)["url"]; url != "data:image/jpeg;base64,/9j/AAA=" {
		t.Fatalf("unexpected image url %v", url)
	}
	if temp, ok := captured["temperature"].(float64); !ok || temp <= 0 || temp > 1e-30 {
		t.Fatalf("expected near-zero temperature to be sent, got %v", captured["temperature"])
	}
}

func TestProviderEmbed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],"model":"text-embedding-3-small"}`))
	}))
	defer server.Close()

	p := New(&appconfig.Config{TimeoutSeconds: 5})
	vec, err := p.Embed(context.Background(), providers.EmbedRequest{
		Host:  appconfig.Host{URL: server.URL},
		Model: "text-embedding-3-small",
		Text:  "revenue",
	})
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.5 || vec[1] != 0.25 {
		t.Fatalf("unexpected vector %v", vec)
	}

	if _, err := p.Embed(context.Background(), providers.EmbedRequest{Host: appconfig.Host{URL: server.URL}, Text: " "}); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestProviderGenerateServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer server.Close()

	p := New(&appconfig.Config{TimeoutSeconds: 5})
	_, err := p.Generate(context.Background(), providers.GenerateRequest{
		Host:     appconfig.Host{URL: server.URL},
		Model:    "m",
		Messages: []providers.Message{providers.TextMessage("user", "hi")},
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
