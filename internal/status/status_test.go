package status_test

import (
	"context"
	"testing"

	"kaitiaki/internal/logging"
	"kaitiaki/internal/scanner"
	"kaitiaki/internal/status"
	"kaitiaki/internal/testsupport"
)

func TestSummarizeEmptySystem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	aggregator := status.NewAggregator(store, nil)
	summary, err := aggregator.Summarize(context.Background())
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.Pending != 0 || summary.Processing != 0 || summary.Completed != 0 || summary.Failed != 0 {
		t.Fatalf("expected zeroed counts, got %+v", summary)
	}
	if summary.DocumentsFound != 0 || summary.LastScanAt != nil {
		t.Fatalf("expected empty system summary, got %+v", summary)
	}
}

func TestSummarizeReflectsQueueAndScanner(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	docs := testsupport.NewMemoryDocs()
	docs.Add("intake/a.md", []byte("# one"))
	docs.Add("intake/b.txt", []byte("two"))

	scan := scanner.New(docs, store, cfg, logging.NewNop())
	if _, err := scan.ScanNow(ctx); err != nil {
		t.Fatalf("ScanNow failed: %v", err)
	}

	// Claim one task so the processing count is visible too.
	if _, err := store.ClaimNext(ctx, "worker-1"); err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}

	aggregator := status.NewAggregator(store, scan)
	summary, err := aggregator.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	// Two documents, each with process + audit tasks; one claimed.
	if summary.DocumentsFound != 2 {
		t.Fatalf("expected 2 documents, got %d", summary.DocumentsFound)
	}
	if summary.Pending != 3 || summary.Processing != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.LastScanAt == nil || summary.LastScan == nil || summary.LastScan.Seen != 2 {
		t.Fatalf("expected last scan details, got %+v", summary)
	}
}

var _ status.ScanSource = (*scanner.Scanner)(nil)
