package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "jina", cfg.EmbeddingProvider)
	assert.Equal(t, "jina-embeddings-v3", cfg.EmbeddingModel)
	assert.Equal(t, 1024, cfg.EmbeddingDim)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 20, cfg.TopKMax)
	assert.Equal(t, 1.5, cfg.ScoreThreshold)
	assert.Equal(t, "localhost", cfg.QdrantHost)
	assert.Equal(t, 6333, cfg.QdrantPort)
	assert.Equal(t, "pdf_chunks", cfg.CollectionName)
	assert.Equal(t, int64(50*1024*1024), cfg.MaxUploadSize)
	assert.Equal(t, 10, cfg.MaxFilesPerUpload)
	assert.Equal(t, "/data", cfg.IngestDataPath)
	assert.Equal(t, 4, cfg.IngestConcurrency)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JINA_API_KEY", "jina_secret")
	t.Setenv("CHUNK_SIZE", "1000")
	t.Setenv("SEARCH_SCORE_THRESHOLD", "0.8")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "jina_secret", cfg.JinaAPIKey)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 0.8, cfg.ScoreThreshold)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadInvalidNumberFallsBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("SEARCH_SCORE_THRESHOLD", "high")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 1.5, cfg.ScoreThreshold)
}

func TestLoadClampsValues(t *testing.T) {
	t.Setenv("TOP_K", "99")
	t.Setenv("CHUNK_OVERLAP", "800")
	t.Setenv("INGEST_CONCURRENCY", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.TopK, "top_k clamped to the ceiling")
	assert.Equal(t, cfg.ChunkSize-1, cfg.ChunkOverlap, "overlap must stay below chunk size")
	assert.Equal(t, 4, cfg.IngestConcurrency)
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docsearch.yaml")
	content := []byte("server_port: 3000\ncollection_name: articles\nlog_level: error\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("QDRANT_HOST", "qdrant.internal")
	t.Setenv("DOCSEARCH_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.ServerPort, "file value wins over env")
	assert.Equal(t, "articles", cfg.CollectionName)
	assert.Equal(t, slog.LevelError, cfg.LogLevel)
	assert.Equal(t, "qdrant.internal", cfg.QdrantHost, "keys absent from the file keep env values")
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("DOCSEARCH_CONFIG", "/nonexistent/docsearch.yaml")

	_, err := Load()
	require.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"Warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"garbage", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.input), tt.input)
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("hello", "key", "value")

	assert.Contains(t, stderr.String(), "hello")
	assert.Contains(t, file.String(), `"msg":"hello"`)
	assert.Contains(t, file.String(), `"key":"value"`)
}
