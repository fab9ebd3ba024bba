// internal/appconfig/show.go
package appconfig

import (
	"fmt"
	"io"

	"github.com/k0kubun/pp"
)

// ShowConfig prints the current configuration summary.
func ShowConfig(out io.Writer, file string, cfg *Config, fallback Config) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	if cfg == nil {
		cfg = &fallback
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Host:             %s (%s)\n", cfg.Host.URL, cfg.ProviderType())
	fmt.Fprintf(out, "  LLM:              %s\n", cfg.LLM)
	fmt.Fprintf(out, "  Multimodal LLM:   %s\n", cfg.MMLLM)
	fmt.Fprintf(out, "  Embedding Model:  %s\n", cfg.EmbeddingModelName())
	fmt.Fprintf(out, "  Summarize Texts:  %v\n", cfg.SummarizeTexts)
	fmt.Fprintf(out, "  Summarize Tables: %v\n", cfg.SummarizeTables)
	fmt.Fprintf(out, "  Concurrency:      %d\n", cfg.Concurrency)
	fmt.Fprintf(out, "  Top K:            %d\n", cfg.TopK)
	fmt.Fprintf(out, "  Image Bound:      %dx%d\n", cfg.ImageWidth, cfg.ImageHeight)
	fmt.Fprintf(out, "  Files Dir:        %s\n", cfg.FilesDir)
	fmt.Fprintf(out, "  Images Dir:       %s\n", cfg.ImagesDir)
	fmt.Fprintf(out, "  Storage Dir:      %s\n", cfg.StorageDir)
	fmt.Fprintf(out, "  Vector Store:     %s\n", cfg.StoreType())
	if cfg.StoreType() == StoreQdrant {
		fmt.Fprintf(out, "  Qdrant URL:       %s\n", cfg.VectorStore.Qdrant.URL)
		fmt.Fprintf(out, "  Qdrant Collection: %s\n", cfg.VectorStore.Qdrant.Collection)
	}
	fmt.Fprintf(out, "  Request Timeout:  %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Debug:            %v\n", cfg.Debug)
	fmt.Fprintf(out, "  Metrics:          %v\n", cfg.Metrics)
}

// DumpConfig pretty-prints the full configuration struct without colors.
func DumpConfig(out io.Writer, cfg Config) {
	pp.ColoringEnabled = false
	pp.Fprintln(out, cfg)
}
