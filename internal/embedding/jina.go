package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	// DefaultJinaModel is the default Jina embedding model.
	DefaultJinaModel = "jina-embeddings-v3"

	// DefaultJinaDimension is the dimension for jina-embeddings-v3.
	DefaultJinaDimension = 1024

	// JinaAPIEndpoint is the Jina AI embeddings API endpoint.
	JinaAPIEndpoint = "https://api.jina.ai/v1/embeddings"
)

// JinaClient implements Embedder using the Jina AI embeddings API.
type JinaClient struct {
	apiKey    string
	endpoint  string
	model     string
	dimension int
	client    *http.Client
}

// Compile-time check that JinaClient implements Embedder.
var _ Embedder = (*JinaClient)(nil)

// NewJinaClient creates a new Jina embedding client.
// If endpoint is empty, uses JinaAPIEndpoint.
// If model is empty, uses DefaultJinaModel (jina-embeddings-v3).
// If expectedDimension is 0, uses DefaultJinaDimension (1024).
func NewJinaClient(apiKey, endpoint, model string, expectedDimension int) (*JinaClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key required for Jina embeddings")
	}
	if endpoint == "" {
		endpoint = JinaAPIEndpoint
	}
	if model == "" {
		model = DefaultJinaModel
	}
	if expectedDimension == 0 {
		expectedDimension = DefaultJinaDimension
	}

	return &JinaClient{
		apiKey:    apiKey,
		endpoint:  endpoint,
		model:     model,
		dimension: expectedDimension,
		client:    &http.Client{},
	}, nil
}

// Model returns the configured embedding model name.
func (c *JinaClient) Model() string {
	return c.model
}

// Dimension returns the expected embedding dimension.
func (c *JinaClient) Dimension() int {
	return c.dimension
}

// jinaRequest is the request format for the Jina embeddings API.
type jinaRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// jinaResponse is the response format from the Jina embeddings API.
type jinaResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed generates an embedding vector for the given text.
func (c *JinaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts.
func (c *JinaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	jsonBody, err := json.Marshal(jinaRequest{
		Input: texts,
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var jinaResp jinaResponse
	if err := json.NewDecoder(resp.Body).Decode(&jinaResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(jinaResp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d",
			len(jinaResp.Data), len(texts))
	}

	// The API may return items out of order; place each by index.
	embeddings := make([][]float32, len(texts))
	for _, d := range jinaResp.Data {
		if d.Index >= len(embeddings) {
			return nil, fmt.Errorf("invalid embedding index: %d", d.Index)
		}
		if len(d.Embedding) != c.dimension {
			return nil, fmt.Errorf("embedding %d dimension mismatch: got %d, want %d",
				d.Index, len(d.Embedding), c.dimension)
		}
		embeddings[d.Index] = d.Embedding
	}

	return embeddings, nil
}
