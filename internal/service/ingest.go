package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/docsearch/internal/metrics"
	"github.com/raphaelgruber/docsearch/internal/models"
	"github.com/raphaelgruber/docsearch/internal/parser"
	"golang.org/x/sync/semaphore"
)

// DefaultIngestConcurrency bounds simultaneously active ingestion jobs
// system-wide, protecting the embedding API and the index from overload.
const DefaultIngestConcurrency = 4

// TextExtractor converts raw document bytes into plain text.
type TextExtractor interface {
	Extract(content []byte, filename string) (string, error)
}

// Indexer persists chunk documents into the vector index, embedding them
// along the way.
type Indexer interface {
	Upsert(ctx context.Context, docs []models.ChunkDocument) error
}

// CoordinatorConfig configures the ingestion pipeline.
type CoordinatorConfig struct {
	// Concurrency is the global job gate capacity (default 4).
	Concurrency int
	// ChunkSize and ChunkOverlap are passed to the chunker, in runes.
	ChunkSize    int
	ChunkOverlap int
	// Metrics is optional; nil disables timing collection.
	Metrics *metrics.Collector
}

// IngestCoordinator owns the per-job background pipeline: it tracks job
// state, bounds total in-flight jobs with a global semaphore, and
// processes each job's files strictly in input order.
type IngestCoordinator struct {
	jobs         *JobStore
	extractor    TextExtractor
	index        Indexer
	gate         *semaphore.Weighted
	chunkSize    int
	chunkOverlap int
	metrics      *metrics.Collector
}

// NewIngestCoordinator creates a coordinator around the given job store
// and collaborators.
func NewIngestCoordinator(jobs *JobStore, extractor TextExtractor, index Indexer, cfg CoordinatorConfig) *IngestCoordinator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultIngestConcurrency
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = parser.DefaultChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = parser.DefaultChunkOverlap
	}
	return &IngestCoordinator{
		jobs:         jobs,
		extractor:    extractor,
		index:        index,
		gate:         semaphore.NewWeighted(int64(cfg.Concurrency)),
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		metrics:      cfg.Metrics,
	}
}

// Jobs returns the coordinator's job store for status queries.
func (c *IngestCoordinator) Jobs() *JobStore {
	return c.jobs
}

// Submit registers a new pending job and starts processing it in the
// background. It returns the job id immediately; callers poll the job
// store for progress.
func (c *IngestCoordinator) Submit(files []models.PendingFile) (string, error) {
	jobID := uuid.New().String()
	if err := c.jobs.Create(jobID); err != nil {
		return "", err
	}

	slog.Info("ingest job accepted", "job_id", jobID, "files", len(files))
	go c.Run(jobID, files)

	return jobID, nil
}

// Run executes one job to completion. It is the sole writer to the job's
// record. The gate permit is released on every exit path, and a panic in
// the pipeline fails the job instead of killing the process.
func (c *IngestCoordinator) Run(jobID string, files []models.PendingFile) {
	ctx := context.Background()
	processed := []string{}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("ingest job panicked", "job_id", jobID, "panic", r)
			c.jobs.Update(jobID, models.JobStatusFailed, processed, fmt.Sprintf("internal error: %v", r))
		}
	}()

	c.jobs.Update(jobID, models.JobStatusProcessing, nil, "")

	if err := c.gate.Acquire(ctx, 1); err != nil {
		// Unreachable with a background context, but never leave a job
		// stuck in processing.
		c.jobs.Update(jobID, models.JobStatusFailed, processed, fmt.Sprintf("acquire ingest slot: %v", err))
		return
	}
	defer c.gate.Release(1)

	for _, file := range files {
		if err := c.processFile(ctx, file); err != nil {
			slog.Error("ingest failed", "job_id", jobID, "file", file.Name, "error", err)
			c.jobs.Update(jobID, models.JobStatusFailed, processed, fmt.Sprintf("%s: %v", file.Name, err))
			return
		}
		processed = append(processed, file.Name)
		slog.Info("file ingested", "job_id", jobID, "file", file.Name, "progress", fmt.Sprintf("%d/%d", len(processed), len(files)))
	}

	c.jobs.Update(jobID, models.JobStatusCompleted, processed, "")
	slog.Info("ingest job completed", "job_id", jobID, "files", len(processed))
}

// processFile extracts, chunks, and indexes one file. A file whose text is
// empty produces no chunks and still counts as processed.
func (c *IngestCoordinator) processFile(ctx context.Context, file models.PendingFile) error {
	start := time.Now()
	text, err := c.extractor.Extract(file.Content, file.Name)
	c.metrics.RecordTiming(metrics.OpExtract, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}

	start = time.Now()
	spans := parser.Split(text, c.chunkSize, c.chunkOverlap)
	c.metrics.RecordTiming(metrics.OpChunk, time.Since(start), nil)

	if len(spans) == 0 {
		slog.Info("no text to index", "file", file.Name)
		return nil
	}

	docs := make([]models.ChunkDocument, len(spans))
	for i, span := range spans {
		docs[i] = models.ChunkDocument{Text: span, Source: file.Name}
	}

	start = time.Now()
	err = c.index.Upsert(ctx, docs)
	c.metrics.RecordTiming(metrics.OpIndexUpsert, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("index %d chunks: %w", len(docs), err)
	}
	return nil
}
