package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seif-aber/pdf-chat-assistant/textsplitter"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, textsplitter.DefaultChunkSize, cfg.Chunking.Size)
	assert.Equal(t, textsplitter.DefaultChunkOverlap, cfg.Chunking.Overlap)
	assert.Equal(t, "gemini", cfg.Embedding.Provider)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfigFile(t, `
chunking:
  size: 500
  overlap: 50
embedding:
  provider: ollama
  model: nomic-embed-text
retrieval:
  top_k: 6
storage:
  backend: qdrant
  qdrant:
    host: qdrant.internal
    port: 7443
    collection: docs
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 6, cfg.Retrieval.TopK)
	assert.Equal(t, "qdrant", cfg.Storage.Backend)
	assert.Equal(t, "qdrant.internal", cfg.Storage.Qdrant.Host)
	assert.Equal(t, 7443, cfg.Storage.Qdrant.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PDFCHAT_CHUNK_SIZE", "800")
	t.Setenv("PDFCHAT_EMBEDDING_PROVIDER", "ollama")
	t.Setenv("PDFCHAT_TOP_K", "2")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Chunking.Size)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, 2, cfg.Retrieval.TopK)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	t.Run("zero chunk size rejected", func(t *testing.T) {
		cfg := Default()
		cfg.Chunking.Size = 0
		assert.ErrorIs(t, cfg.Validate(), textsplitter.ErrInvalidChunkSize)
	})

	t.Run("overlap not smaller than size rejected", func(t *testing.T) {
		cfg := Default()
		cfg.Chunking.Size = 100
		cfg.Chunking.Overlap = 100
		assert.ErrorIs(t, cfg.Validate(), textsplitter.ErrInvalidChunkSize)
	})

	t.Run("negative overlap rejected", func(t *testing.T) {
		cfg := Default()
		cfg.Chunking.Overlap = -1
		assert.ErrorIs(t, cfg.Validate(), textsplitter.ErrInvalidChunkSize)
	})

	t.Run("unknown provider rejected", func(t *testing.T) {
		cfg := Default()
		cfg.Embedding.Provider = "openai"
		assert.ErrorIs(t, cfg.Validate(), ErrUnknownProvider)
	})

	t.Run("unknown backend rejected", func(t *testing.T) {
		cfg := Default()
		cfg.Storage.Backend = "redis"
		assert.ErrorIs(t, cfg.Validate(), ErrUnknownBackend)
	})

	t.Run("non-positive top_k rejected", func(t *testing.T) {
		cfg := Default()
		cfg.Retrieval.TopK = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive timeout rejected", func(t *testing.T) {
		cfg := Default()
		cfg.Generation.TimeoutSeconds = 0
		assert.Error(t, cfg.Validate())
	})
}
