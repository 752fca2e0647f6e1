package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raphaelgruber/docsearch/internal/config"
	"github.com/raphaelgruber/docsearch/internal/metrics"
	"github.com/raphaelgruber/docsearch/internal/models"
	"github.com/raphaelgruber/docsearch/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type passthroughExtractor struct{}

func (passthroughExtractor) Extract(content []byte, filename string) (string, error) {
	return string(content), nil
}

type memIndexer struct {
	mu      sync.Mutex
	sources []string
}

func (m *memIndexer) Upsert(ctx context.Context, docs []models.ChunkDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		m.sources = append(m.sources, d.Source)
	}
	return nil
}

type stubQuerier struct {
	results []models.SearchResult
	err     error
	called  bool
	lastK   int
}

func (s *stubQuerier) QueryNearest(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	s.called = true
	s.lastK = k
	return s.results, s.err
}

type testEnv struct {
	server  *Server
	indexer *memIndexer
	querier *stubQuerier
	dataDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Config{
		TopK:              5,
		TopKMax:           20,
		ScoreThreshold:    1.5,
		MaxUploadSize:     1 << 20,
		MaxFilesPerUpload: 3,
		IngestDataPath:    t.TempDir(),
		IngestConcurrency: 4,
		ChunkSize:         100,
		ChunkOverlap:      10,
	}

	indexer := &memIndexer{}
	coordinator := service.NewIngestCoordinator(
		service.NewJobStore(),
		passthroughExtractor{},
		indexer,
		service.CoordinatorConfig{
			Concurrency:  cfg.IngestConcurrency,
			ChunkSize:    cfg.ChunkSize,
			ChunkOverlap: cfg.ChunkOverlap,
		},
	)
	querier := &stubQuerier{}
	engine := service.NewSearchEngine(querier, cfg.TopKMax, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testEnv{
		server:  New(coordinator, engine, cfg, metrics.NewCollector(), logger),
		indexer: indexer,
		querier: querier,
		dataDir: cfg.IngestDataPath,
	}
}

func multipartUpload(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := writer.CreateFormFile("input", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func multipartDir(t *testing.T, dir string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("input", dir))
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func do(env *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestIngestUploads(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := multipartUpload(t, map[string]string{
		"report.pdf": "quarterly numbers and analysis",
	})

	req := httptest.NewRequest(http.MethodPost, "/ingest/", body)
	req.Header.Set("Content-Type", contentType)
	rec := do(env, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	resp := decode[ingestAccepted](t, rec)
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, "Ingestion started. 1 PDF document(s) queued for processing.", resp.Message)
	assert.Equal(t, []string{"report.pdf"}, resp.Files)

	require.Eventually(t, func() bool {
		record, ok := env.server.coordinator.Jobs().Get(resp.JobID)
		return ok && record.Status == models.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestIngestRejectsNonPDF(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := multipartUpload(t, map[string]string{"notes.txt": "plain text"})

	req := httptest.NewRequest(http.MethodPost, "/ingest/", body)
	req.Header.Set("Content-Type", contentType)
	rec := do(env, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Contains(t, resp.Detail, "Only PDF files are supported")
}

func TestIngestRejectsTooManyFiles(t *testing.T) {
	env := newTestEnv(t)
	files := map[string]string{}
	for i := 0; i < 4; i++ {
		files[fmt.Sprintf("f%d.pdf", i)] = "text"
	}
	body, contentType := multipartUpload(t, files)

	req := httptest.NewRequest(http.MethodPost, "/ingest/", body)
	req.Header.Set("Content-Type", contentType)
	rec := do(env, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Contains(t, resp.Detail, "Too many files")
}

func TestIngestRejectsEmptyForm(t *testing.T) {
	env := newTestEnv(t)
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/ingest/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := do(env, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestDirectory(t *testing.T) {
	env := newTestEnv(t)
	sub := filepath.Join(env.dataDir, "reports")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "one.pdf"), []byte("first document"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "two.pdf"), []byte("second document"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "skip.txt"), []byte("not a pdf"), 0644))

	body, contentType := multipartDir(t, "reports")
	req := httptest.NewRequest(http.MethodPost, "/ingest/", body)
	req.Header.Set("Content-Type", contentType)
	rec := do(env, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	resp := decode[ingestAccepted](t, rec)
	assert.NotEmpty(t, resp.JobID)
	assert.ElementsMatch(t, []string{"one.pdf", "two.pdf"}, resp.Files)
}

func TestIngestDirectoryNoPDFs(t *testing.T) {
	env := newTestEnv(t)
	sub := filepath.Join(env.dataDir, "empty")
	require.NoError(t, os.MkdirAll(sub, 0755))

	body, contentType := multipartDir(t, "empty")
	req := httptest.NewRequest(http.MethodPost, "/ingest/", body)
	req.Header.Set("Content-Type", contentType)
	rec := do(env, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	resp := decode[ingestAccepted](t, rec)
	assert.Empty(t, resp.JobID, "no job is started when nothing matches")
	assert.Equal(t, "No PDF files found in directory.", resp.Message)
}

func TestIngestDirectoryTraversalRejected(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := multipartDir(t, "../../etc")

	req := httptest.NewRequest(http.MethodPost, "/ingest/", body)
	req.Header.Set("Content-Type", contentType)
	rec := do(env, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Contains(t, resp.Detail, "escapes")
}

func TestIngestStatusLifecycle(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := multipartUpload(t, map[string]string{"a.pdf": "content"})

	req := httptest.NewRequest(http.MethodPost, "/ingest/", body)
	req.Header.Set("Content-Type", contentType)
	accepted := decode[ingestAccepted](t, do(env, req))

	require.Eventually(t, func() bool {
		statusReq := httptest.NewRequest(http.MethodGet, "/ingest/status/"+accepted.JobID, nil)
		rec := do(env, statusReq)
		if rec.Code != http.StatusOK {
			return false
		}
		record := decode[models.JobRecord](t, rec)
		return record.Status == models.JobStatusCompleted && len(record.Files) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestIngestStatusNotFound(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/ingest/status/no-such-job", nil)
	rec := do(env, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "Job not found", resp.Detail)
}

func searchReq(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/search/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSearchReturnsResults(t *testing.T) {
	env := newTestEnv(t)
	env.querier.results = []models.SearchResult{
		{Document: "a.pdf", Score: 0.3, Content: "matching text"},
	}

	rec := do(env, searchReq(t, `{"query": "what is in the report?"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[searchResponse](t, rec)
	assert.Equal(t, "what is in the report?", resp.Query)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a.pdf", resp.Results[0].Document)
	assert.Empty(t, resp.Message)
	assert.Equal(t, 5, env.querier.lastK, "default top_k comes from config")
}

func TestSearchNoMatches(t *testing.T) {
	env := newTestEnv(t)

	rec := do(env, searchReq(t, `{"query": "anything"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[searchResponse](t, rec)
	assert.Empty(t, resp.Results)
	assert.Equal(t, "No relevant documents found.", resp.Message)
}

func TestSearchEmptyQuery(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{"query": ""}`, `{"query": "   "}`, `{}`} {
		rec := do(env, searchReq(t, body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		resp := decode[errorResponse](t, rec)
		assert.Equal(t, "Query cannot be empty.", resp.Detail)
	}
	assert.False(t, env.querier.called, "the index is never queried for an empty query")
}

func TestSearchInvalidJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := do(env, searchReq(t, `{"query": `))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchIndexError(t *testing.T) {
	env := newTestEnv(t)
	env.querier.err = fmt.Errorf("index down")

	rec := do(env, searchReq(t, `{"query": "anything"}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "Search processing failed.", resp.Detail)
}

func TestSearchCustomTopK(t *testing.T) {
	env := newTestEnv(t)

	rec := do(env, searchReq(t, `{"query": "anything", "top_k": 12}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 12, env.querier.lastK)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := do(env, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]string](t, rec)
	assert.Equal(t, "ok", resp["status"])
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)

	rec := do(env, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode[metrics.Snapshot](t, rec)
	assert.NotNil(t, resp.Operations)
}
