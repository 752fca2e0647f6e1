// Package embedding provides text embedding generation with multiple backend support.
package embedding

import (
	"context"
	"fmt"
)

// Embedder defines the interface for text embedding providers.
// Implementations include Jina AI (API) and Ollama (local).
type Embedder interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// More efficient than multiple Embed calls for bulk operations.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the name of the embedding model being used.
	Model() string

	// Dimension returns the embedding vector dimension.
	// Must match the vector size of the Qdrant collection.
	Dimension() int
}

// ProviderType identifies the embedding provider.
type ProviderType string

const (
	// ProviderJina uses the Jina AI embeddings API.
	ProviderJina ProviderType = "jina"

	// ProviderOllama uses a local Ollama server for embeddings.
	ProviderOllama ProviderType = "ollama"
)

// Config holds configuration for creating an Embedder.
type Config struct {
	// Provider specifies which embedding backend to use.
	Provider ProviderType

	// Model is the embedding model name (provider-specific).
	// Jina: "jina-embeddings-v3" (1024-dim)
	// Ollama: "all-minilm:l6-v2" (384-dim), "nomic-embed-text" (768-dim)
	Model string

	// ExpectedDimension is the required output dimension.
	// Set to 0 to use the provider's default.
	ExpectedDimension int

	// Jina-specific
	JinaAPIKey string
	JinaAPIURL string
}

// New creates an Embedder based on the provided configuration.
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case ProviderJina, "":
		if cfg.JinaAPIKey == "" {
			return nil, fmt.Errorf("jina provider requires API key")
		}
		return NewJinaClient(cfg.JinaAPIKey, cfg.JinaAPIURL, cfg.Model, cfg.ExpectedDimension)

	case ProviderOllama:
		return NewOllamaClient(cfg.Model, cfg.ExpectedDimension)

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
