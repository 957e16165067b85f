package status

import (
	"context"
	"fmt"
	"time"

	"kaitiaki/internal/queue"
	"kaitiaki/internal/scanner"
)

// Summary is the aggregated system view served by the status endpoint and
// the CLI. Counts are zero on an empty system, never an error.
type Summary struct {
	Pending        int        `json:"pending"`
	Processing     int        `json:"processing"`
	Completed      int        `json:"completed"`
	Failed         int        `json:"failed"`
	DocumentsFound int        `json:"documents_found"`
	LastScanAt     *time.Time `json:"last_scan_at,omitempty"`
	LastScan       *Scan      `json:"last_scan,omitempty"`
}

// Scan mirrors the most recent scanner cycle in the summary.
type Scan struct {
	Seen     int    `json:"seen"`
	Enqueued int    `json:"enqueued"`
	Skipped  int    `json:"skipped"`
	Errored  int    `json:"errored"`
	Duration string `json:"duration"`
}

// ScanSource exposes the scanner state the aggregator needs.
type ScanSource interface {
	LastScan() (scanner.Summary, bool)
}

// Aggregator combines queue statistics with scanner state.
type Aggregator struct {
	store *queue.Store
	scans ScanSource
}

// NewAggregator constructs an Aggregator. scans may be nil when no scanner
// is running, for example under the CLI.
func NewAggregator(store *queue.Store, scans ScanSource) *Aggregator {
	return &Aggregator{store: store, scans: scans}
}

// Summarize builds the current system summary.
func (a *Aggregator) Summarize(ctx context.Context) (Summary, error) {
	stats, err := a.store.TaskStats(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("task stats: %w", err)
	}
	documents, err := a.store.CountDocuments(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("count documents: %w", err)
	}

	summary := Summary{
		Pending:        stats.Pending,
		Processing:     stats.Processing,
		Completed:      stats.Completed,
		Failed:         stats.Failed,
		DocumentsFound: documents,
	}

	if a.scans != nil {
		if last, ok := a.scans.LastScan(); ok {
			startedAt := last.StartedAt
			summary.LastScanAt = &startedAt
			summary.LastScan = &Scan{
				Seen:     last.Seen,
				Enqueued: last.Enqueued,
				Skipped:  last.Skipped,
				Errored:  last.Errored,
				Duration: last.Duration,
			}
		}
	}
	return summary, nil
}
