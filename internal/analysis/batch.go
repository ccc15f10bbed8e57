package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/fpang/ai-gallery/internal/styles"
	"github.com/rs/zerolog/log"
)

// DefaultBatchLimit caps a batch when no limit is given.
const DefaultBatchLimit = 10

// BatchOptions configures AnalyzeBatch.
type BatchOptions struct {
	Limit int
	Style styles.Style

	// OnItem is called after each item with its 1-based position.
	OnItem func(n, total int, out *Outcome)
}

// BatchFailure names one item that failed in a batch.
type BatchFailure struct {
	MediaID string `json:"mediaId"`
	Path    string `json:"path"`
	Error   string `json:"error"`
}

// BatchSummary tallies a batch run.
type BatchSummary struct {
	Total    int            `json:"total"`
	Analyzed int            `json:"analyzed"`
	Renamed  int            `json:"renamed"`
	Failed   int            `json:"failed"`
	Failures []BatchFailure `json:"failures,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// AnalyzeBatch analyzes unanalyzed media one at a time, oldest first. The
// backend is health-checked once up front. Item failures are counted and the
// batch goes on; cancelling ctx stops it between items and returns the
// partial summary with the context error.
func (o *Orchestrator) AnalyzeBatch(ctx context.Context, opts BatchOptions) (*BatchSummary, error) {
	start := time.Now()

	if ok, msg := o.client.CheckHealth(ctx); !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, msg)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	items, err := o.store.ListUnanalyzed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unanalyzed media: %w", err)
	}

	summary := &BatchSummary{Total: len(items)}
	log.Info().Int("count", len(items)).Int("limit", limit).Msg("Starting batch analysis")

	for i, m := range items {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			log.Warn().Int("processed", i).Int("total", len(items)).Msg("Batch analysis cancelled")
			return summary, err
		}

		out, err := o.Analyze(ctx, Request{MediaID: m.ID, Style: opts.Style})
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, BatchFailure{
				MediaID: m.ID,
				Path:    m.Path,
				Error:   err.Error(),
			})
		} else {
			summary.Analyzed++
			if out.Rename != nil && out.Rename.Performed {
				summary.Renamed++
			}
		}
		if opts.OnItem != nil {
			opts.OnItem(i+1, len(items), out)
		}
	}

	summary.Duration = time.Since(start)
	log.Info().
		Int("total", summary.Total).
		Int("analyzed", summary.Analyzed).
		Int("renamed", summary.Renamed).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("Batch analysis complete")
	return summary, nil
}
