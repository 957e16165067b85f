package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kaitiaki/internal/dispatch"
	"kaitiaki/internal/logging"
	"kaitiaki/internal/processors"
	"kaitiaki/internal/queue"
	"kaitiaki/internal/testsupport"
)

// stubProcessor records the tasks it sees and replays scripted outcomes.
type stubProcessor struct {
	mu      sync.Mutex
	calls   []string
	outcome func(task *queue.Task) (string, error)
}

func (s *stubProcessor) Process(_ context.Context, task *queue.Task) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, task.ID)
	s.mu.Unlock()
	if s.outcome != nil {
		return s.outcome(task)
	}
	return `{"ok":true}`, nil
}

func (s *stubProcessor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func enqueue(t *testing.T, store *queue.Store, documentID string) *queue.Task {
	t.Helper()
	task, err := store.Enqueue(context.Background(), queue.NewTask{
		Type:       queue.TaskDocumentProcess,
		DocumentID: documentID,
		Priority:   5,
		Payload:    queue.ProcessPayload{DocumentID: documentID},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return task
}

func runUntil(t *testing.T, dispatcher *dispatch.Dispatcher, condition func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dispatcher.Run(ctx) }()

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("dispatcher returned error: %v", err)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	<-done
	t.Fatal("condition never reached")
}

func TestDispatcherCompletesTask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := enqueue(t, store, "doc_ok")

	stub := &stubProcessor{}
	dispatcher := dispatch.New(store, cfg, logging.NewNop())
	dispatcher.Register(queue.TaskDocumentProcess, stub)

	runUntil(t, dispatcher, func() bool {
		current, err := store.GetTask(ctx, task.ID)
		return err == nil && current != nil && current.Status == queue.StatusCompleted
	})

	final, err := store.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if final.ResultJSON != `{"ok":true}` {
		t.Fatalf("expected result persisted, got %q", final.ResultJSON)
	}
	if stub.callCount() != 1 {
		t.Fatalf("expected one processor call, got %d", stub.callCount())
	}
}

func TestDispatcherRetriesTransientFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxAttempts(3))
	cfg.RetryBackoffSeconds = 0
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := enqueue(t, store, "doc_flaky")

	var attempts int
	var mu sync.Mutex
	stub := &stubProcessor{outcome: func(*queue.Task) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return "", processors.Wrap(processors.ErrTransient, "document_process", "test", "scripted failure", nil)
		}
		return `{"recovered":true}`, nil
	}}

	dispatcher := dispatch.New(store, cfg, logging.NewNop())
	dispatcher.Register(queue.TaskDocumentProcess, stub)

	runUntil(t, dispatcher, func() bool {
		current, err := store.GetTask(ctx, task.ID)
		return err == nil && current != nil && current.Status == queue.StatusCompleted
	})

	final, _ := store.GetTask(ctx, task.ID)
	if final.Attempts != 2 {
		t.Fatalf("expected 2 recorded failed attempts, got %d", final.Attempts)
	}
}

func TestDispatcherPermanentFailureSkipsRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := enqueue(t, store, "doc_bad")

	stub := &stubProcessor{outcome: func(*queue.Task) (string, error) {
		return "", processors.Wrap(processors.ErrMalformed, "document_process", "test", "scripted rejection", nil)
	}}
	dispatcher := dispatch.New(store, cfg, logging.NewNop())
	dispatcher.Register(queue.TaskDocumentProcess, stub)

	runUntil(t, dispatcher, func() bool {
		current, err := store.GetTask(ctx, task.ID)
		return err == nil && current != nil && current.Status == queue.StatusFailed
	})

	if stub.callCount() != 1 {
		t.Fatalf("permanent failure must not be retried, got %d calls", stub.callCount())
	}
	final, _ := store.GetTask(ctx, task.ID)
	if final.Attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", final.Attempts)
	}
}

func TestDispatcherIgnoresUnregisteredTypes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	processTask := enqueue(t, store, "doc_claimable")
	auditTask, err := store.Enqueue(ctx, queue.NewTask{
		Type:       queue.TaskAuditDocument,
		DocumentID: "doc_claimable",
		Priority:   3,
		Payload:    queue.AuditPayload{DocumentID: "doc_claimable", AuditType: "cultural_compliance"},
	})
	if err != nil {
		t.Fatalf("enqueue audit: %v", err)
	}

	stub := &stubProcessor{}
	dispatcher := dispatch.New(store, cfg, logging.NewNop())
	dispatcher.Register(queue.TaskDocumentProcess, stub)

	runUntil(t, dispatcher, func() bool {
		current, err := store.GetTask(ctx, processTask.ID)
		return err == nil && current != nil && current.Status == queue.StatusCompleted
	})

	// The audit task has no registered processor and stays untouched.
	audit, err := store.GetTask(ctx, auditTask.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if audit.Status != queue.StatusPending {
		t.Fatalf("unregistered task type should remain pending, got %s", audit.Status)
	}
}

func TestDispatcherRequiresProcessors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	dispatcher := dispatch.New(store, cfg, logging.NewNop())
	if err := dispatcher.Run(context.Background()); err == nil {
		t.Fatal("expected error when no processors are registered")
	}
}

func TestDispatcherStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	stub := &stubProcessor{}
	dispatcher := dispatch.New(store, cfg, logging.NewNop())
	dispatcher.Register(queue.TaskDocumentProcess, stub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dispatcher.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
}
