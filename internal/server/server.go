// Package server exposes the ingestion and search pipelines over HTTP.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/raphaelgruber/docsearch/internal/config"
	"github.com/raphaelgruber/docsearch/internal/metrics"
	"github.com/raphaelgruber/docsearch/internal/service"
)

// Server wires the HTTP handlers to the ingestion coordinator and the
// search engine.
type Server struct {
	coordinator *service.IngestCoordinator
	search      *service.SearchEngine
	cfg         config.Config
	metrics     *metrics.Collector
	logger      *slog.Logger
}

// New creates a server around the given pipelines.
func New(coordinator *service.IngestCoordinator, search *service.SearchEngine, cfg config.Config, collector *metrics.Collector, logger *slog.Logger) *Server {
	return &Server{
		coordinator: coordinator,
		search:      search,
		cfg:         cfg,
		metrics:     collector,
		logger:      logger,
	}
}

// Handler returns the routed HTTP handler with request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ingest/", s.handleIngest)
	mux.HandleFunc("GET /ingest/status/{id}", s.handleIngestStatus)
	mux.HandleFunc("POST /search/", s.handleSearch)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	return LoggingMiddleware(s.logger)(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// errorResponse is the uniform error body for client and server failures.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
