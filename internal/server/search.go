package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/raphaelgruber/docsearch/internal/models"
)

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResponse struct {
	Query   string                `json:"query"`
	Results []models.SearchResult `json:"results"`
	Message string                `json:"message,omitempty"`
}

// handleSearch runs a semantic query over the indexed documents. An empty
// query is rejected before touching the index.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be valid JSON.")
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query cannot be empty.")
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	results, err := s.search.Search(r.Context(), query, topK, s.cfg.ScoreThreshold)
	if err != nil {
		s.logger.Error("search failed", "query", query, "error", err)
		writeError(w, http.StatusInternalServerError, "Search processing failed.")
		return
	}

	resp := searchResponse{Query: query, Results: results}
	if len(results) == 0 {
		resp.Results = []models.SearchResult{}
		resp.Message = "No relevant documents found."
	}
	writeJSON(w, http.StatusOK, resp)
}
