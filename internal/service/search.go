package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/raphaelgruber/docsearch/internal/metrics"
	"github.com/raphaelgruber/docsearch/internal/models"
)

// DefaultTopKCeiling is the hard cap on candidates requested from the
// index per query, bounding embedding and search cost.
const DefaultTopKCeiling = 20

// NearestQuerier runs a nearest-neighbor query against the vector index.
// Scores are cosine distance: lower is better, 0 means identical.
type NearestQuerier interface {
	QueryNearest(ctx context.Context, query string, k int) ([]models.SearchResult, error)
}

// SearchEngine queries the vector index and applies score filtering and
// result shaping. It holds no state and is safe for concurrent use.
type SearchEngine struct {
	index   NearestQuerier
	maxK    int
	metrics *metrics.Collector
}

// NewSearchEngine creates a search engine over the given index. maxK caps
// per-query candidate counts; zero or negative selects the default (20).
func NewSearchEngine(index NearestQuerier, maxK int, collector *metrics.Collector) *SearchEngine {
	if maxK <= 0 {
		maxK = DefaultTopKCeiling
	}
	return &SearchEngine{
		index:   index,
		maxK:    maxK,
		metrics: collector,
	}
}

// Search returns up to k candidates whose cosine distance does not exceed
// scoreThreshold (inclusive), in the index's ranking order (best first),
// with scores rounded to four decimals. The caller validates that query is
// non-empty. An empty result is a normal outcome.
func (e *SearchEngine) Search(ctx context.Context, query string, k int, scoreThreshold float64) ([]models.SearchResult, error) {
	if k <= 0 || k > e.maxK {
		k = e.maxK
	}

	start := time.Now()
	candidates, err := e.index.QueryNearest(ctx, query, k)
	e.metrics.RecordTiming(metrics.OpIndexSearch, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	results := make([]models.SearchResult, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Score > scoreThreshold {
			continue
		}
		candidate.Score = math.Round(candidate.Score*10000) / 10000
		results = append(results, candidate)
	}
	return results, nil
}
