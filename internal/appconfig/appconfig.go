// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// defaultRequestTimeout is the default timeout for model requests.
	defaultRequestTimeout = 600 * time.Second
	// defaultHostURL is the local Ollama endpoint.
	defaultHostURL = "http://localhost:11434"

	// ProviderOllama selects the Ollama HTTP adapter.
	ProviderOllama = "ollama"
	// ProviderOpenAI selects the OpenAI-compatible adapter.
	ProviderOpenAI = "openai"

	// StoreMemory keeps summary vectors in process and persists them as JSONL.
	StoreMemory = "memory"
	// StoreQdrant keeps summary vectors in a Qdrant collection.
	StoreQdrant = "qdrant"
)

// Config represents the top-level application configuration.
type Config struct {
	Host            Host        `json:"host" mapstructure:"host"`
	Provider        string      `json:"provider,omitempty" mapstructure:"provider" validate:"omitempty,oneof=ollama openai"`
	LLM             string      `json:"llm" mapstructure:"llm"`
	MMLLM           string      `json:"mmLlm" mapstructure:"mmLlm"`
	EmbeddingModel  string      `json:"embeddingModel,omitempty" mapstructure:"embeddingModel"`
	SummarizeTexts  bool        `json:"summarizeTexts" mapstructure:"summarizeTexts"`
	SummarizeTables bool        `json:"summarizeTables" mapstructure:"summarizeTables"`
	Concurrency     int         `json:"concurrency" mapstructure:"concurrency" validate:"gte=0,lte=64"`
	TopK            int         `json:"topK" mapstructure:"topK" validate:"gte=0"`
	ImageWidth      int         `json:"imageWidth" mapstructure:"imageWidth" validate:"gte=0"`
	ImageHeight     int         `json:"imageHeight" mapstructure:"imageHeight" validate:"gte=0"`
	FilesDir        string      `json:"filesDir,omitempty" mapstructure:"filesDir"`
	ImagesDir       string      `json:"imagesDir,omitempty" mapstructure:"imagesDir"`
	StorageDir      string      `json:"storageDir,omitempty" mapstructure:"storageDir"`
	VectorStore     VectorStore `json:"vectorStore" mapstructure:"vectorStore"`
	Parameters      Parameters  `json:"parameters" mapstructure:"parameters"`
	TimeoutSeconds  int         `json:"timeout,omitempty" mapstructure:"timeout" validate:"gte=0"`
	LogFile         string      `json:"logFile,omitempty" mapstructure:"logFile"`
	Debug           bool        `json:"debug" mapstructure:"debug"`
	Metrics         bool        `json:"metrics" mapstructure:"metrics"`
	APIKeyEnv       string      `json:"apiKeyEnv,omitempty" mapstructure:"apiKeyEnv"`
	ConfigPath      string      `json:"-" mapstructure:"-"`
}

// Host represents the endpoint serving the language and embedding models.
type Host struct {
	Name string `json:"name" mapstructure:"name"`
	URL  string `json:"url" mapstructure:"url" validate:"omitempty,url"`
	Type string `json:"type,omitempty" mapstructure:"type" validate:"omitempty,oneof=ollama openai"`
}

// VectorStore selects and configures the summary search backend.
type VectorStore struct {
	Type   string `json:"type" mapstructure:"type" validate:"omitempty,oneof=memory qdrant"`
	Qdrant Qdrant `json:"qdrant" mapstructure:"qdrant"`
}

// Qdrant holds the connection settings for a Qdrant collection.
type Qdrant struct {
	URL        string `json:"url,omitempty" mapstructure:"url" validate:"omitempty,url"`
	APIKey     string `json:"apiKey,omitempty" mapstructure:"apiKey"`
	Collection string `json:"collection,omitempty" mapstructure:"collection"`
}

// Parameters defines the generation options sent with every model call.
type Parameters struct {
	Temperature *float64 `json:"temperature,omitempty" mapstructure:"temperature"`
	NumPredict  *int     `json:"num_predict,omitempty" mapstructure:"num_predict"`
}

// Default returns the configuration used when no file or flag overrides a value.
func Default() Config {
	temperature := 0.0
	numPredict := 1024
	return Config{
		Host:            Host{Name: "local", URL: defaultHostURL, Type: ProviderOllama},
		Provider:        ProviderOllama,
		SummarizeTexts:  false,
		SummarizeTables: true,
		Concurrency:     1,
		TopK:            4,
		ImageWidth:      1300,
		ImageHeight:     600,
		FilesDir:        "files",
		ImagesDir:       "images",
		StorageDir:      "storage",
		VectorStore:     VectorStore{Type: StoreMemory, Qdrant: Qdrant{Collection: "mmrag"}},
		Parameters:      Parameters{Temperature: &temperature, NumPredict: &numPredict},
		TimeoutSeconds:  int(defaultRequestTimeout.Seconds()),
	}
}

// RequestTimeout returns the timeout duration for model requests, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "mmrag.log"
}

// ProviderType resolves the provider adapter name, preferring the explicit
// provider over the host type.
func (c Config) ProviderType() string {
	if p := strings.ToLower(strings.TrimSpace(c.Provider)); p != "" {
		return p
	}
	if t := strings.ToLower(strings.TrimSpace(c.Host.Type)); t != "" {
		return t
	}
	return ProviderOllama
}

// EmbeddingModelName returns the embedding model, defaulting to the text model.
func (c Config) EmbeddingModelName() string {
	if m := strings.TrimSpace(c.EmbeddingModel); m != "" {
		return m
	}
	return c.LLM
}

// StoreType returns the configured vector store backend.
func (c Config) StoreType() string {
	if t := strings.ToLower(strings.TrimSpace(c.VectorStore.Type)); t != "" {
		return t
	}
	return StoreMemory
}

// APIKey reads the provider API key from the configured environment variable.
func (c Config) APIKey() string {
	name := strings.TrimSpace(c.APIKeyEnv)
	if name == "" {
		name = "OPENAI_API_KEY"
	}
	return os.Getenv(name)
}

// Normalize fills zero values that have a meaningful default.
func (c *Config) Normalize() {
	def := Default()
	if strings.TrimSpace(c.Host.URL) == "" {
		c.Host.URL = def.Host.URL
	}
	c.Host.URL = strings.TrimRight(c.Host.URL, "/")
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	if c.ImageWidth <= 0 {
		c.ImageWidth = def.ImageWidth
	}
	if c.ImageHeight <= 0 {
		c.ImageHeight = def.ImageHeight
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = def.TimeoutSeconds
	}
	if c.Parameters.Temperature == nil {
		c.Parameters.Temperature = def.Parameters.Temperature
	}
	if c.Parameters.NumPredict == nil {
		c.Parameters.NumPredict = def.Parameters.NumPredict
	}
	if strings.TrimSpace(c.VectorStore.Qdrant.Collection) == "" {
		c.VectorStore.Qdrant.Collection = def.VectorStore.Qdrant.Collection
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tag constraints and the cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.StoreType() == StoreQdrant && strings.TrimSpace(c.VectorStore.Qdrant.URL) == "" {
		return errors.New("invalid configuration: vectorStore.qdrant.url is required for the qdrant store")
	}
	return nil
}

// RequireModels reports an error when either the text or multimodal model is unset.
func (c Config) RequireModels() error {
	var missing []string
	if strings.TrimSpace(c.LLM) == "" {
		missing = append(missing, "llm")
	}
	if strings.TrimSpace(c.MMLLM) == "" {
		missing = append(missing, "mmLlm")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing model configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Load reads the application configuration from a JSON file on top of the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	config, err := loadFromPath(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("no configuration file found at %q", path)
		}
		return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
	}
	config.Normalize()
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	config.ConfigPath = path
	return config, nil
}

// loadFromPath is a helper function that decodes the file over the defaults.
func loadFromPath(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	config := Default()
	if err := json.NewDecoder(file).Decode(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}
