package scanner_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"kaitiaki/internal/logging"
	"kaitiaki/internal/queue"
	"kaitiaki/internal/scanner"
	"kaitiaki/internal/testsupport"
)

func TestScanIngestsDocumentEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	docs := testsupport.NewMemoryDocs()
	docs.Add("intake/notes.md", []byte("# Hui notes\n\nkia ora"))

	scan := scanner.New(docs, store, cfg, logging.NewNop())
	summary, err := scan.ScanNow(context.Background())
	if err != nil {
		t.Fatalf("ScanNow failed: %v", err)
	}
	if summary.Seen != 1 || summary.Enqueued != 1 || summary.Errored != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	// Document persisted, both tasks enqueued, source archived.
	docsCount, err := store.CountDocuments(context.Background())
	if err != nil || docsCount != 1 {
		t.Fatalf("expected one stored document, got %d (err=%v)", docsCount, err)
	}
	tasks, err := store.ListTasks(context.Background(), queue.StatusPending)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected process + audit tasks, got %d", len(tasks))
	}
	if !docs.Archived("intake/notes.md") {
		t.Fatal("source file should be archived after ingest")
	}
}

func TestScanAuditDisabledEnqueuesProcessOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAuditDisabled())
	store := testsupport.MustOpenStore(t, cfg)
	docs := testsupport.NewMemoryDocs()
	docs.Add("intake/notes.txt", []byte("plain text"))

	scan := scanner.New(docs, store, cfg, logging.NewNop())
	if _, err := scan.ScanNow(context.Background()); err != nil {
		t.Fatalf("ScanNow failed: %v", err)
	}

	tasks, err := store.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Type != queue.TaskDocumentProcess {
		t.Fatalf("expected a single process task, got %+v", tasks)
	}
}

func TestScanIsolatesPerFileFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	docs := testsupport.NewMemoryDocs()
	for i := 0; i < 5; i++ {
		docs.Add(fmt.Sprintf("intake/doc%d.txt", i), []byte(fmt.Sprintf("content %d", i)))
	}
	docs.FailRead("intake/doc2.txt", errors.New("permission denied"))

	scan := scanner.New(docs, store, cfg, logging.NewNop())
	summary, err := scan.ScanNow(context.Background())
	if err != nil {
		t.Fatalf("ScanNow failed: %v", err)
	}
	if summary.Seen != 5 || summary.Enqueued != 4 || summary.Errored != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	// The unreadable file stays put for the next cycle.
	if docs.Archived("intake/doc2.txt") {
		t.Fatal("failed file must not be archived")
	}
	count, err := store.CountDocuments(context.Background())
	if err != nil || count != 4 {
		t.Fatalf("expected four stored documents, got %d (err=%v)", count, err)
	}
}

func TestScanInvalidDocumentIsRejectedNotArchived(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	docs := testsupport.NewMemoryDocs()
	docs.Add("intake/bad.json", []byte(`{"unterminated":`))

	scan := scanner.New(docs, store, cfg, logging.NewNop())
	summary, err := scan.ScanNow(context.Background())
	if err != nil {
		t.Fatalf("ScanNow failed: %v", err)
	}
	if summary.Errored != 1 || summary.Enqueued != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if docs.Archived("intake/bad.json") {
		t.Fatal("invalid document must not be archived")
	}
}

func TestRescanOfSameContentIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	docs := testsupport.NewMemoryDocs()
	docs.Add("intake/doc.txt", []byte("stable content"))

	scan := scanner.New(docs, store, cfg, logging.NewNop())
	if _, err := scan.ScanNow(ctx); err != nil {
		t.Fatalf("first scan failed: %v", err)
	}

	// The same file reappears before its tasks are processed.
	docs.Add("intake/doc.txt", []byte("stable content"))
	summary, err := scan.ScanNow(ctx)
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if summary.Enqueued != 0 || summary.Skipped != 1 {
		t.Fatalf("duplicate should be skipped, got %+v", summary)
	}

	count, err := store.CountDocuments(ctx)
	if err != nil || count != 1 {
		t.Fatalf("expected one document, got %d (err=%v)", count, err)
	}
	tasks, err := store.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected no duplicate tasks, got %d", len(tasks))
	}
	if !docs.Archived("intake/doc.txt") {
		t.Fatal("duplicate drop should still be archived")
	}
}

func TestLastScanTracksMostRecentSummary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	docs := testsupport.NewMemoryDocs()

	scan := scanner.New(docs, store, cfg, logging.NewNop())
	if _, ok := scan.LastScan(); ok {
		t.Fatal("no summary expected before the first cycle")
	}

	docs.Add("intake/doc.txt", []byte("content"))
	if _, err := scan.ScanNow(context.Background()); err != nil {
		t.Fatalf("ScanNow failed: %v", err)
	}

	summary, ok := scan.LastScan()
	if !ok || summary.Seen != 1 {
		t.Fatalf("unexpected last scan: ok=%v summary=%+v", ok, summary)
	}
}

func TestTriggerCoalesces(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	docs := testsupport.NewMemoryDocs()

	scan := scanner.New(docs, store, cfg, logging.NewNop())
	// Multiple triggers before the loop drains them must not block.
	scan.Trigger()
	scan.Trigger()
	scan.Trigger()
}
