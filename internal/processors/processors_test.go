package processors_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"kaitiaki/internal/logging"
	"kaitiaki/internal/processors"
	"kaitiaki/internal/queue"
	"kaitiaki/internal/testsupport"
)

func saveDocument(t *testing.T, store *queue.Store, id, content string) {
	t.Helper()
	if _, err := store.SaveDocument(context.Background(), queue.Document{
		ID:           id,
		SourcePath:   "/intake/" + id + ".txt",
		FileName:     id + ".txt",
		ContentType:  "text",
		Content:      content,
		SizeBytes:    int64(len(content)),
		DiscoveredAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("save document: %v", err)
	}
}

func claimTask(t *testing.T, store *queue.Store, taskType queue.TaskType) *queue.Task {
	t.Helper()
	task, err := store.ClaimNext(context.Background(), "worker-test", taskType)
	if err != nil || task == nil {
		t.Fatalf("claim %s: task=%v err=%v", taskType, task, err)
	}
	return task
}

func TestDocumentProcessorChainsIndexTask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	saveDocument(t, store, "doc_proc", "he taonga te reo\nsecond line here")
	if _, err := store.Enqueue(ctx, queue.NewTask{
		Type:       queue.TaskDocumentProcess,
		DocumentID: "doc_proc",
		Priority:   cfg.ProcessPriority,
		Payload: queue.ProcessPayload{
			DocumentID: "doc_proc", SourcePath: "/intake/doc_proc.txt",
			ContentType: "text", SizeBytes: 33,
		},
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task := claimTask(t, store, queue.TaskDocumentProcess)
	processor := processors.NewDocumentProcessor(store, cfg, logging.NewNop())
	result, err := processor.Process(ctx, task)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	var stats map[string]any
	if err := json.Unmarshal([]byte(result), &stats); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if stats["word_count"].(float64) != 7 {
		t.Fatalf("unexpected word count: %v", stats["word_count"])
	}

	// A follow-up index task must now be pending.
	indexTask := claimTask(t, store, queue.TaskIndexDocument)
	if indexTask.DocumentID != "doc_proc" {
		t.Fatalf("unexpected index task document: %s", indexTask.DocumentID)
	}
}

func TestDocumentProcessorMissingDocumentIsPermanent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := store.Enqueue(ctx, queue.NewTask{
		Type:       queue.TaskDocumentProcess,
		DocumentID: "doc_ghost",
		Priority:   5,
		Payload:    queue.ProcessPayload{DocumentID: "doc_ghost"},
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	task := claimTask(t, store, queue.TaskDocumentProcess)

	processor := processors.NewDocumentProcessor(store, cfg, logging.NewNop())
	_, err := processor.Process(ctx, task)
	if err == nil {
		t.Fatal("expected error for missing document")
	}
	if !processors.Permanent(err) {
		t.Fatalf("missing document must be permanent, got %v", err)
	}
}

func TestAuditProcessorVerdicts(t *testing.T) {
	cases := []struct {
		name    string
		content string
		verdict string
	}{
		{"clear", "ordinary meeting notes", processors.ComplianceClear},
		{"flagged marker", "this material is tapu and held in trust", processors.ComplianceFlagged},
		{"blocked control chars", "payload\x00with nul", processors.ComplianceBlocked},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			store := testsupport.MustOpenStore(t, cfg)
			ctx := context.Background()

			saveDocument(t, store, "doc_audit", tc.content)
			if _, err := store.Enqueue(ctx, queue.NewTask{
				Type:       queue.TaskAuditDocument,
				DocumentID: "doc_audit",
				Priority:   cfg.AuditPriority,
				Payload:    queue.AuditPayload{DocumentID: "doc_audit", AuditType: "cultural_compliance"},
			}); err != nil {
				t.Fatalf("enqueue: %v", err)
			}
			task := claimTask(t, store, queue.TaskAuditDocument)

			processor := processors.NewAuditProcessor(store, logging.NewNop())
			if _, err := processor.Process(ctx, task); err != nil {
				t.Fatalf("Process failed: %v", err)
			}

			audits, err := store.AuditsForDocument(ctx, "doc_audit")
			if err != nil || len(audits) != 1 {
				t.Fatalf("expected one audit entry: %v err=%v", audits, err)
			}
			if audits[0].ComplianceStatus != tc.verdict {
				t.Fatalf("expected verdict %s, got %s", tc.verdict, audits[0].ComplianceStatus)
			}
		})
	}
}

func TestIndexProcessorExtractsTerms(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	saveDocument(t, store, "doc_idx", "reo reo reo taonga taonga kupu")
	if _, err := store.Enqueue(ctx, queue.NewTask{
		Type:       queue.TaskIndexDocument,
		DocumentID: "doc_idx",
		Priority:   cfg.IndexPriority,
		Payload:    queue.IndexPayload{DocumentID: "doc_idx", ContentType: "text"},
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	task := claimTask(t, store, queue.TaskIndexDocument)

	processor := processors.NewIndexProcessor(store, logging.NewNop())
	result, err := processor.Process(ctx, task)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	var summary struct {
		TermCount   int      `json:"term_count"`
		UniqueTerms int      `json:"unique_terms"`
		TopTerms    []string `json:"top_terms"`
	}
	if err := json.Unmarshal([]byte(result), &summary); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if summary.TermCount != 6 || summary.UniqueTerms != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.TopTerms) == 0 || summary.TopTerms[0] != "reo" {
		t.Fatalf("expected reo as top term, got %v", summary.TopTerms)
	}
}

func TestAnalyzeProcessorStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	saveDocument(t, store, "doc_ana", "one two three")
	if _, err := store.Enqueue(ctx, queue.NewTask{
		Type:       queue.TaskAnalyzeDocument,
		DocumentID: "doc_ana",
		Priority:   cfg.AnalyzePriority,
		Payload:    queue.AnalyzePayload{DocumentID: "doc_ana", Kind: "full"},
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	task := claimTask(t, store, queue.TaskAnalyzeDocument)

	processor := processors.NewAnalyzeProcessor(store, logging.NewNop())
	result, err := processor.Process(ctx, task)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	var stats map[string]any
	if err := json.Unmarshal([]byte(result), &stats); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if stats["word_count"].(float64) != 3 || stats["kind"] != "full" {
		t.Fatalf("unexpected stats: %v", stats)
	}
}
