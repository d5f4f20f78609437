package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Seif-aber/pdf-chat-assistant/textsplitter"
)

var (
	ErrUnknownProvider = errors.New("unknown embedding provider")
	ErrUnknownBackend  = errors.New("unknown storage backend")
)

// Config holds the full runtime configuration, populated from an optional
// YAML file with environment variable overrides on top.
type Config struct {
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Storage    StorageConfig    `yaml:"storage"`
}

type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type EmbeddingConfig struct {
	// Provider selects the embedding backend: "gemini" or "ollama".
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

type GenerationConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	// TimeoutSeconds bounds a single generation or embedding call.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns TimeoutSeconds as a duration.
func (g GenerationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

type StorageConfig struct {
	// Backend selects the vector store: "local" or "qdrant".
	Backend string       `yaml:"backend"`
	Dir     string       `yaml:"dir"`
	Qdrant  QdrantConfig `yaml:"qdrant"`
}

type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
}

// Default returns the configuration used when no file or overrides are
// present.
func Default() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			Size:    textsplitter.DefaultChunkSize,
			Overlap: textsplitter.DefaultChunkOverlap,
		},
		Embedding: EmbeddingConfig{
			Provider:  "gemini",
			Model:     "text-embedding-004",
			BatchSize: 32,
		},
		Generation: GenerationConfig{
			Model:          "gemini-2.5-flash",
			Temperature:    0.2,
			TimeoutSeconds: 60,
		},
		Retrieval: RetrievalConfig{
			TopK: 4,
		},
		Storage: StorageConfig{
			Backend: "local",
			Dir:     ".pdf-chat",
			Qdrant: QdrantConfig{
				Host: "localhost",
				Port: 6334,
			},
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty the file must exist), then environment overrides. A
// .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	// Missing .env is the common case and not an error.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	overrideString("PDFCHAT_EMBEDDING_PROVIDER", &c.Embedding.Provider)
	overrideString("PDFCHAT_EMBEDDING_MODEL", &c.Embedding.Model)
	overrideString("PDFCHAT_GENERATION_MODEL", &c.Generation.Model)
	overrideString("PDFCHAT_STORAGE_BACKEND", &c.Storage.Backend)
	overrideString("PDFCHAT_STORAGE_DIR", &c.Storage.Dir)
	overrideString("PDFCHAT_QDRANT_HOST", &c.Storage.Qdrant.Host)
	overrideString("QDRANT_API_KEY", &c.Storage.Qdrant.APIKey)

	overrideInt("PDFCHAT_CHUNK_SIZE", &c.Chunking.Size)
	overrideInt("PDFCHAT_CHUNK_OVERLAP", &c.Chunking.Overlap)
	overrideInt("PDFCHAT_TOP_K", &c.Retrieval.TopK)
	overrideInt("PDFCHAT_QDRANT_PORT", &c.Storage.Qdrant.Port)
}

// Validate fails fast on configurations that would only surface as errors
// deep inside the pipeline.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunk size %d", textsplitter.ErrInvalidChunkSize, c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: overlap %d with size %d",
			textsplitter.ErrInvalidChunkSize, c.Chunking.Overlap, c.Chunking.Size)
	}

	switch c.Embedding.Provider {
	case "gemini", "ollama":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Embedding.Provider)
	}

	switch c.Storage.Backend {
	case "local", "qdrant":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend)
	}

	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Generation.TimeoutSeconds <= 0 {
		return fmt.Errorf("generation timeout_seconds must be positive, got %d", c.Generation.TimeoutSeconds)
	}
	return nil
}

func overrideString(key string, target *string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func overrideInt(key string, target *int) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}
