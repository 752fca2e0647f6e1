package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// HTTP server
	ServerPort int

	// Jina embedding API
	JinaAPIKey string
	JinaAPIURL string

	// Embedding
	EmbeddingProvider string
	EmbeddingModel    string
	EmbeddingDim      int

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Search
	TopK           int
	TopKMax        int
	ScoreThreshold float64

	// Qdrant connection
	QdrantHost     string
	QdrantPort     int
	CollectionName string

	// Ingestion limits
	MaxUploadSize     int64
	MaxFilesPerUpload int
	IngestDataPath    string
	IngestConcurrency int

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig is the optional YAML overlay. Every field is a pointer so
// that absent keys leave the env-derived value untouched.
type fileConfig struct {
	ServerPort        *int     `yaml:"server_port"`
	JinaAPIKey        *string  `yaml:"jina_api_key"`
	JinaAPIURL        *string  `yaml:"jina_api_url"`
	EmbeddingProvider *string  `yaml:"embedding_provider"`
	EmbeddingModel    *string  `yaml:"embedding_model"`
	EmbeddingDim      *int     `yaml:"embedding_dim"`
	ChunkSize         *int     `yaml:"chunk_size"`
	ChunkOverlap      *int     `yaml:"chunk_overlap"`
	TopK              *int     `yaml:"top_k"`
	TopKMax           *int     `yaml:"top_k_max"`
	ScoreThreshold    *float64 `yaml:"search_score_threshold"`
	QdrantHost        *string  `yaml:"qdrant_host"`
	QdrantPort        *int     `yaml:"qdrant_port"`
	CollectionName    *string  `yaml:"collection_name"`
	MaxUploadSize     *int64   `yaml:"max_upload_size"`
	MaxFilesPerUpload *int     `yaml:"max_files_per_upload"`
	IngestDataPath    *string  `yaml:"ingest_data_path"`
	IngestConcurrency *int     `yaml:"ingest_concurrency"`
	LogFile           *string  `yaml:"log_file"`
	LogLevel          *string  `yaml:"log_level"`
}

// Load reads configuration from environment variables, then applies the
// optional YAML file named by DOCSEARCH_CONFIG on top. Out-of-range
// values are clamped rather than rejected.
func Load() (Config, error) {
	cfg := Config{
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		JinaAPIKey: getEnv("JINA_API_KEY", ""),
		JinaAPIURL: getEnv("JINA_API_URL", "https://api.jina.ai/v1/embeddings"),

		EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "jina"),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", "jina-embeddings-v3"),
		EmbeddingDim:      getEnvInt("EMBEDDING_DIM", 1024),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 50),

		TopK:           getEnvInt("TOP_K", 5),
		TopKMax:        getEnvInt("TOP_K_MAX", 20),
		ScoreThreshold: getEnvFloat("SEARCH_SCORE_THRESHOLD", 1.5),

		QdrantHost:     getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:     getEnvInt("QDRANT_PORT", 6333),
		CollectionName: getEnv("COLLECTION_NAME", "pdf_chunks"),

		MaxUploadSize:     int64(getEnvInt("MAX_UPLOAD_SIZE", 50*1024*1024)),
		MaxFilesPerUpload: getEnvInt("MAX_FILES_PER_UPLOAD", 10),
		IngestDataPath:    getEnv("INGEST_DATA_PATH", "/data"),
		IngestConcurrency: getEnvInt("INGEST_CONCURRENCY", 4),

		LogFile:  getEnv("LOG_FILE", "/tmp/docsearch.log"),
		LogLevel: parseLogLevel(getEnv("LOG_LEVEL", "INFO")),
	}

	if path := os.Getenv("DOCSEARCH_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	cfg.clamp()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var overlay fileConfig
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return err
	}

	setIf(&c.ServerPort, overlay.ServerPort)
	setIf(&c.JinaAPIKey, overlay.JinaAPIKey)
	setIf(&c.JinaAPIURL, overlay.JinaAPIURL)
	setIf(&c.EmbeddingProvider, overlay.EmbeddingProvider)
	setIf(&c.EmbeddingModel, overlay.EmbeddingModel)
	setIf(&c.EmbeddingDim, overlay.EmbeddingDim)
	setIf(&c.ChunkSize, overlay.ChunkSize)
	setIf(&c.ChunkOverlap, overlay.ChunkOverlap)
	setIf(&c.TopK, overlay.TopK)
	setIf(&c.TopKMax, overlay.TopKMax)
	setIf(&c.ScoreThreshold, overlay.ScoreThreshold)
	setIf(&c.QdrantHost, overlay.QdrantHost)
	setIf(&c.QdrantPort, overlay.QdrantPort)
	setIf(&c.CollectionName, overlay.CollectionName)
	setIf(&c.MaxUploadSize, overlay.MaxUploadSize)
	setIf(&c.MaxFilesPerUpload, overlay.MaxFilesPerUpload)
	setIf(&c.IngestDataPath, overlay.IngestDataPath)
	setIf(&c.IngestConcurrency, overlay.IngestConcurrency)
	setIf(&c.LogFile, overlay.LogFile)
	if overlay.LogLevel != nil {
		c.LogLevel = parseLogLevel(*overlay.LogLevel)
	}
	return nil
}

func (c *Config) clamp() {
	if c.TopKMax < 1 {
		c.TopKMax = 20
	}
	if c.TopK < 1 {
		c.TopK = 1
	}
	if c.TopK > c.TopKMax {
		c.TopK = c.TopKMax
	}
	if c.ChunkSize < 1 {
		c.ChunkSize = 500
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = 0
	}
	if c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = c.ChunkSize - 1
	}
	if c.IngestConcurrency < 1 {
		c.IngestConcurrency = 4
	}
	if c.MaxFilesPerUpload < 1 {
		c.MaxFilesPerUpload = 10
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
		slog.Warn("invalid integer in environment, using default", "key", key, "value", val, "default", defaultVal)
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		slog.Warn("invalid float in environment, using default", "key", key, "value", val, "default", defaultVal)
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
