// Package vectorstore provides the Qdrant-backed vector index used for
// chunk storage and nearest-neighbor search.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/docsearch/internal/embedding"
	"github.com/raphaelgruber/docsearch/internal/models"
)

const (
	connectAttempts = 10
	connectBackoff  = 2 * time.Second
)

// pointNamespace seeds deterministic point IDs so re-ingesting the same
// chunk overwrites instead of duplicating.
var pointNamespace = uuid.MustParse("9fd339a4-7dcc-4cc5-a1b5-2a4eb4a5e0cd")

// Client is a REST client to a Qdrant collection. Vectorization is done
// through the configured Embedder; callers never see raw vectors.
// Qdrant reports cosine similarity (higher is better); Client converts it
// to cosine distance in [0, 2] (lower is better) so every consumer sees a
// single score scale.
type Client struct {
	baseURL    string
	collection string
	embedder   embedding.Embedder
	client     *http.Client
}

// Config holds connection details for the Qdrant store.
type Config struct {
	Host       string
	Port       int
	Collection string
	Timeout    time.Duration
}

// New creates a Qdrant client. It does not touch the network; call
// Connect to verify reachability and ensure the collection exists.
func New(cfg Config, embedder embedding.Embedder) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port),
		collection: cfg.Collection,
		embedder:   embedder,
		client:     &http.Client{Timeout: timeout},
	}
}

// Connect waits for Qdrant to become reachable and creates the collection
// if it does not exist. Retries up to 10 times, 2s apart.
func (c *Client) Connect(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt < connectAttempts; attempt++ {
		if err := c.ping(ctx); err != nil {
			lastErr = err
			slog.Warn("qdrant not ready, retrying", "attempt", attempt+1, "error", err)
			select {
			case <-time.After(connectBackoff):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return c.EnsureCollection(ctx)
	}
	return fmt.Errorf("connect to qdrant at %s: %w", c.baseURL, lastErr)
}

func (c *Client) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/collections", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant ping failed: %s", resp.Status)
	}
	return nil
}

// EnsureCollection creates the collection with a cosine-distance vector
// schema sized to the embedder's dimension. Qdrant answers 200 when the
// collection already exists with the same schema, 409 when it exists.
func (c *Client) EnsureCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     c.embedder.Dimension(),
			"distance": "Cosine",
		},
	}
	err := c.putJSON(ctx, fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection), body)
	if err != nil && !isConflict(err) {
		return fmt.Errorf("ensure collection %s: %w", c.collection, err)
	}
	return nil
}

// Upsert embeds the chunk documents and writes them as points. The point
// ID is derived from source filename and chunk text, so identical chunks
// are overwritten on re-ingest.
func (c *Client) Upsert(ctx context.Context, docs []models.ChunkDocument) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vectors, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	points := make([]map[string]any, len(docs))
	for i, d := range docs {
		points[i] = map[string]any{
			"id":     uuid.NewSHA1(pointNamespace, []byte(d.Source+"\x00"+d.Text)).String(),
			"vector": vectors[i],
			"payload": map[string]any{
				"source": d.Source,
				"text":   d.Text,
			},
		}
	}

	body := map[string]any{"points": points}
	if err := c.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection), body); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// QueryNearest embeds the query and returns up to k nearest chunks, best
// match first, with scores converted to cosine distance (lower is better).
func (c *Client) QueryNearest(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	vector, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	reqBody := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := c.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection), reqBody, &resp); err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	results := make([]models.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		res := models.SearchResult{
			// Cosine similarity in [-1, 1] becomes distance in [0, 2].
			Score: 1 - r.Score,
		}
		if v, ok := r.Payload["source"].(string); ok {
			res.Document = v
		}
		if v, ok := r.Payload["text"].(string); ok {
			res.Content = v
		}
		results = append(results, res)
	}
	return results, nil
}

type statusError struct {
	code   int
	status string
	method string
	url    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %s", e.method, e.url, e.status)
}

func isConflict(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code == http.StatusConflict
}

func (c *Client) putJSON(ctx context.Context, url string, body any) error {
	return c.doJSON(ctx, http.MethodPut, url, body, nil)
}

func (c *Client) postJSON(ctx context.Context, url string, body any, out any) error {
	return c.doJSON(ctx, http.MethodPost, url, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &statusError{code: resp.StatusCode, status: resp.Status, method: method, url: url}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
