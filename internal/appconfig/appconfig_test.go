// internal/appconfig/appconfig_test.go
package appconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoad verifies that a partial file is decoded over the defaults and that
// omitted fields keep their default values.
func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
        "host": {"name": "gpu", "url": "http://gpu:11434/"},
        "llm": "llama3",
        "mmLlm": "llava",
        "summarizeTexts": true
    }`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() with valid config failed: %v", err)
	}
	if cfg.Host.URL != "http://gpu:11434" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Host.URL)
	}
	if !cfg.SummarizeTexts || !cfg.SummarizeTables {
		t.Fatalf("unexpected summarize toggles: texts=%v tables=%v", cfg.SummarizeTexts, cfg.SummarizeTables)
	}
	if cfg.TopK != 4 || cfg.Concurrency != 1 {
		t.Fatalf("expected defaults topK=4 concurrency=1, got %d %d", cfg.TopK, cfg.Concurrency)
	}
	if cfg.RequestTimeout() != 600*time.Second {
		t.Fatalf("expected default request timeout of 600s, got %v", cfg.RequestTimeout())
	}
	if cfg.EmbeddingModelName() != "llama3" {
		t.Fatalf("expected embedding model to default to llm, got %q", cfg.EmbeddingModelName())
	}
	if cfg.Parameters.Temperature == nil || *cfg.Parameters.Temperature != 0 {
		t.Fatalf("expected temperature 0")
	}
	if cfg.Parameters.NumPredict == nil || *cfg.Parameters.NumPredict != 1024 {
		t.Fatalf("expected num_predict 1024")
	}
	if cfg.ConfigPath != path {
		t.Fatalf("expected ConfigPath %q, got %q", path, cfg.ConfigPath)
	}
}

// TestLoadErrors covers missing files, malformed JSON, and tag validation failures.
func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}

	if _, err := Load(writeConfig(t, `{"llm": `)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}

	_, err := Load(writeConfig(t, `{"vectorStore": {"type": "faiss"}}`))
	if err == nil || !strings.Contains(err.Error(), "oneof") {
		t.Fatalf("expected oneof validation error, got %v", err)
	}

	_, err = Load(writeConfig(t, `{"vectorStore": {"type": "qdrant"}}`))
	if err == nil || !strings.Contains(err.Error(), "qdrant.url") {
		t.Fatalf("expected qdrant url error, got %v", err)
	}
}

func TestProviderTypeAndStoreType(t *testing.T) {
	cfg := Config{Host: Host{Type: "OpenAI"}}
	if got := cfg.ProviderType(); got != ProviderOpenAI {
		t.Fatalf("expected host type fallback, got %q", got)
	}
	cfg.Provider = "ollama"
	if got := cfg.ProviderType(); got != ProviderOllama {
		t.Fatalf("expected explicit provider, got %q", got)
	}
	if got := (Config{}).StoreType(); got != StoreMemory {
		t.Fatalf("expected memory store default, got %q", got)
	}
}

func TestRequireModels(t *testing.T) {
	err := (Config{LLM: "llama3"}).RequireModels()
	if err == nil || !strings.Contains(err.Error(), "mmLlm") {
		t.Fatalf("expected missing mmLlm, got %v", err)
	}
	if err := (Config{LLM: "a", MMLLM: "b"}).RequireModels(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestShowConfig(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.LLM = "llama3"
	ShowConfig(&buf, "", &cfg, Config{})

	out := buf.String()
	for _, want := range []string{"No config file loaded", "LLM:              llama3", "Vector Store:     memory", "Image Bound:      1300x600"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	buf.Reset()
	DumpConfig(&buf, cfg)
	if !strings.Contains(buf.String(), "llama3") {
		t.Fatalf("expected dump to include model name, got %s", buf.String())
	}
}
