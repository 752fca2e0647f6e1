// Package service implements the ingestion pipeline and search logic.
package service

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/raphaelgruber/docsearch/internal/models"
)

// JobStore tracks ingestion job state in memory. It is safe for concurrent
// use by the background pipelines and status-query callers. Records are
// stored and returned by value, so a reader can never observe a partially
// applied update. State does not survive a process restart.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]models.JobRecord
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]models.JobRecord),
	}
}

// Create inserts a new pending record. A duplicate id is a caller bug and
// is rejected.
func (s *JobStore) Create(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return fmt.Errorf("job %s already exists", id)
	}
	s.jobs[id] = models.JobRecord{
		ID:     id,
		Status: models.JobStatusPending,
		Files:  []string{},
	}
	return nil
}

// Update atomically replaces the record's status, processed files, and
// error. Terminal records are never overwritten: once a job is completed
// or failed its state is final.
func (s *JobStore) Update(id string, status models.JobStatus, files []string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.jobs[id]
	if !exists {
		slog.Warn("update for unknown job ignored", "job_id", id, "status", status)
		return
	}
	if current.Status.Terminal() {
		slog.Warn("update for terminal job ignored", "job_id", id, "current", current.Status, "requested", status)
		return
	}

	if files == nil {
		files = []string{}
	}
	s.jobs[id] = models.JobRecord{
		ID:     id,
		Status: status,
		Files:  slices.Clone(files),
		Error:  errMsg,
	}
}

// Get returns a copy of the record for id, or ok=false if unknown.
func (s *JobStore) Get(id string) (models.JobRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.jobs[id]
	return record, ok
}
