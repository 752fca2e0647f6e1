// Package client provides a REST client for the docsearch server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raphaelgruber/docsearch/internal/models"
)

// Client talks to the docsearch HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new client.
// If baseURL is empty, uses DOCSEARCH_SERVER_URL env var or defaults to localhost:8080.
// Timeout can be configured via DOCSEARCH_CLIENT_TIMEOUT env var (default 5m for large uploads).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("DOCSEARCH_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	timeout := 5 * time.Minute
	if t := os.Getenv("DOCSEARCH_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// IngestAccepted summarizes a queued ingestion job.
type IngestAccepted struct {
	JobID   string   `json:"job_id"`
	Message string   `json:"message"`
	Files   []string `json:"files"`
}

// SearchResponse is the result of a search query.
type SearchResponse struct {
	Query   string                `json:"query"`
	Results []models.SearchResult `json:"results"`
	Message string                `json:"message,omitempty"`
}

// apiError is the server's uniform error body.
type apiError struct {
	Detail string `json:"detail"`
}

// Ingest uploads the named PDF files and returns the accepted job.
func (c *Client) Ingest(ctx context.Context, paths []string) (*IngestAccepted, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		part, err := writer.CreateFormFile("input", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("write upload %s: %w", path, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finish form: %w", err)
	}

	return c.postIngest(ctx, &body, writer.FormDataContentType())
}

// IngestDir asks the server to ingest every PDF under a directory of its
// configured data path.
func (c *Client) IngestDir(ctx context.Context, dir string) (*IngestAccepted, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("input", dir); err != nil {
		return nil, fmt.Errorf("write directory field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finish form: %w", err)
	}

	return c.postIngest(ctx, &body, writer.FormDataContentType())
}

func (c *Client) postIngest(ctx context.Context, body io.Reader, contentType string) (*IngestAccepted, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ingest/", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var accepted IngestAccepted
	if err := c.do(req, http.StatusAccepted, &accepted); err != nil {
		return nil, err
	}
	return &accepted, nil
}

// Status returns the current record for a job id.
func (c *Client) Status(ctx context.Context, jobID string) (*models.JobRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ingest/status/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var record models.JobRecord
	if err := c.do(req, http.StatusOK, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Search runs a semantic query. topK <= 0 uses the server default.
func (c *Client) Search(ctx context.Context, query string, topK int) (*SearchResponse, error) {
	payload, err := json.Marshal(map[string]any{"query": query, "top_k": topK})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search/", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp SearchResponse
	if err := c.do(req, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do executes the request and decodes the body into result, translating
// non-matching statuses into errors using the server's detail message.
func (c *Client) do(req *http.Request, wantStatus int, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Detail != "" {
			return fmt.Errorf("server error: %s - %s", resp.Status, apiErr.Detail)
		}
		return fmt.Errorf("server error: %s - %s", resp.Status, string(body))
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
