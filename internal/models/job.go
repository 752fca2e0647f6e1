// Package models defines the data structures shared across the docsearch pipeline.
package models

// JobStatus represents the state of an ingestion job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is final. A terminal record never
// changes again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobRecord is the externally visible state of one ingestion job.
// Files lists the filenames successfully processed so far, in input order.
type JobRecord struct {
	ID     string    `json:"job_id"`
	Status JobStatus `json:"status"`
	Files  []string  `json:"files"`
	Error  string    `json:"error,omitempty"`
}
