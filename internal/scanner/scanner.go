package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kaitiaki/internal/config"
	"kaitiaki/internal/docstore"
	"kaitiaki/internal/logging"
	"kaitiaki/internal/queue"
	"kaitiaki/internal/records"
)

// ErrScanInProgress is returned when a scan is requested while another
// cycle is still running. Callers treat it as "already being handled".
var ErrScanInProgress = errors.New("scan already in progress")

// Summary reports the outcome of one scan cycle.
type Summary struct {
	Seen      int       `json:"seen"`
	Enqueued  int       `json:"enqueued"`
	Skipped   int       `json:"skipped"`
	Errored   int       `json:"errored"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
}

// Scanner walks the intake folder, persists discovered documents, enqueues
// their tasks, and archives the source files. Cycles are single-flight: a
// timer tick, a folder event, and an operator trigger never overlap.
type Scanner struct {
	docs    docstore.Store
	store   *queue.Store
	builder *records.Builder
	cfg     *config.Config
	logger  *slog.Logger

	mu       sync.Mutex
	scanning bool
	lastScan *Summary

	trigger chan struct{}
	now     func() time.Time
}

// New constructs a Scanner over the given document source and queue store.
func New(docs docstore.Store, store *queue.Store, cfg *config.Config, logger *slog.Logger) *Scanner {
	return &Scanner{
		docs:    docs,
		store:   store,
		builder: records.NewBuilder(cfg.MaxFileSizeBytes()),
		cfg:     cfg,
		logger:  logging.WithComponent(logger, "scanner"),
		trigger: make(chan struct{}, 1),
		now:     time.Now,
	}
}

// Run executes scan cycles on the configured interval, plus whenever
// Trigger fires, until ctx is canceled. The first cycle runs immediately.
func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.ScanIntervalDuration())
	defer ticker.Stop()

	s.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.runCycle(ctx)
		case <-s.trigger:
			s.runCycle(ctx)
		}
	}
}

// Trigger requests an extra cycle from the Run loop. Requests arriving
// while one is already queued coalesce.
func (s *Scanner) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// ScanNow runs one cycle synchronously. It fails with ErrScanInProgress
// when another cycle is already running.
func (s *Scanner) ScanNow(ctx context.Context) (Summary, error) {
	if !s.begin() {
		return Summary{}, ErrScanInProgress
	}
	defer s.end()
	return s.cycle(ctx)
}

// LastScan returns the most recent cycle summary, if any cycle has run.
func (s *Scanner) LastScan() (Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastScan == nil {
		return Summary{}, false
	}
	return *s.lastScan, true
}

func (s *Scanner) runCycle(ctx context.Context) {
	if _, err := s.ScanNow(ctx); err != nil && !errors.Is(err, ErrScanInProgress) {
		s.logger.Error("scan cycle failed", logging.Error(err))
	}
}

func (s *Scanner) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanning {
		return false
	}
	s.scanning = true
	return true
}

func (s *Scanner) end() {
	s.mu.Lock()
	s.scanning = false
	s.mu.Unlock()
}

// cycle performs one pass over the intake folder. Failures are isolated
// per file: one unreadable or invalid document never blocks the rest of
// the batch.
func (s *Scanner) cycle(ctx context.Context) (Summary, error) {
	started := s.now().UTC()
	summary := Summary{StartedAt: started}

	files, err := s.docs.ListCandidates()
	if err != nil {
		return summary, fmt.Errorf("list candidates: %w", err)
	}
	summary.Seen = len(files)

	for _, fd := range files {
		if ctx.Err() != nil {
			break
		}
		switch s.ingest(ctx, fd) {
		case ingestEnqueued:
			summary.Enqueued++
		case ingestSkipped:
			summary.Skipped++
		case ingestErrored:
			summary.Errored++
		}
	}

	summary.Duration = s.now().UTC().Sub(started).String()
	s.mu.Lock()
	s.lastScan = &summary
	s.mu.Unlock()

	if summary.Seen > 0 {
		s.logger.Info("scan cycle finished",
			logging.Int("seen", summary.Seen),
			logging.Int("enqueued", summary.Enqueued),
			logging.Int("skipped", summary.Skipped),
			logging.Int("errored", summary.Errored))
	}
	return summary, nil
}

type ingestOutcome int

const (
	ingestEnqueued ingestOutcome = iota
	ingestSkipped
	ingestErrored
)

// ingest moves one file through read, validate, persist, enqueue, and
// archive. The file is archived only after its document row and tasks are
// durable, so a crash mid-ingest leaves the file in place for the next
// cycle and the deterministic id makes the replay idempotent.
func (s *Scanner) ingest(ctx context.Context, fd docstore.FileDescriptor) ingestOutcome {
	fileLogger := s.logger.With(logging.String(logging.FieldSourcePath, fd.Path))

	content, err := s.docs.Read(fd.Path)
	if err != nil {
		fileLogger.Error("read failed", logging.Error(err))
		return ingestErrored
	}

	record, err := s.builder.Build(fd, content)
	if err != nil {
		fileLogger.Warn("rejected document", logging.Error(err))
		return ingestErrored
	}

	inserted, err := s.store.SaveDocument(ctx, queue.Document{
		ID:           record.ID,
		SourcePath:   record.SourcePath,
		FileName:     record.FileName,
		ContentType:  string(record.ContentType),
		Content:      record.Content,
		SizeBytes:    record.SizeBytes,
		DiscoveredAt: record.DiscoveredAt,
	})
	if err != nil {
		fileLogger.Error("persist document failed", logging.Error(err))
		return ingestErrored
	}

	enqueued, err := s.enqueueTasks(ctx, record)
	if err != nil {
		fileLogger.Error("enqueue failed", logging.Error(err))
		return ingestErrored
	}

	if inserted {
		if err := s.store.AppendLifecycle(ctx, queue.LifecycleEntry{
			EventType:  "document_discovered",
			DocumentID: record.ID,
			Message:    fmt.Sprintf("discovered %s (%s, %d bytes)", record.FileName, record.ContentType, record.SizeBytes),
		}); err != nil {
			fileLogger.Warn("lifecycle append failed", logging.Error(err))
		}
	}

	// Archive last: the document and its tasks are durable by now.
	if err := s.docs.Archive(fd.Path); err != nil {
		fileLogger.Error("archive failed", logging.Error(err))
		return ingestErrored
	}

	if enqueued {
		fileLogger.Info("document ingested",
			logging.String(logging.FieldDocumentID, record.ID))
		return ingestEnqueued
	}
	fileLogger.Debug("duplicate document, already queued",
		logging.String(logging.FieldDocumentID, record.ID))
	return ingestSkipped
}

// enqueueTasks enqueues the processing task, plus an audit task when audit
// is enabled. An existing active task for the pair counts as success so
// re-dropped duplicates archive cleanly.
func (s *Scanner) enqueueTasks(ctx context.Context, record *records.IntakeRecord) (bool, error) {
	enqueued := false

	_, err := s.store.Enqueue(ctx, queue.NewTask{
		Type:       queue.TaskDocumentProcess,
		DocumentID: record.ID,
		Priority:   s.cfg.ProcessPriority,
		Payload: queue.ProcessPayload{
			DocumentID:  record.ID,
			SourcePath:  record.SourcePath,
			ContentType: string(record.ContentType),
			SizeBytes:   record.SizeBytes,
		},
	})
	switch {
	case err == nil:
		enqueued = true
	case errors.Is(err, queue.ErrConflict):
	default:
		return false, fmt.Errorf("enqueue process task: %w", err)
	}

	if !s.cfg.AuditEnabled {
		return enqueued, nil
	}

	_, err = s.store.Enqueue(ctx, queue.NewTask{
		Type:       queue.TaskAuditDocument,
		DocumentID: record.ID,
		Priority:   s.cfg.AuditPriority,
		Payload: queue.AuditPayload{
			DocumentID: record.ID,
			Excerpt:    excerpt(record.Content),
			AuditType:  "cultural_compliance",
		},
	})
	switch {
	case err == nil:
		enqueued = true
	case errors.Is(err, queue.ErrConflict):
	default:
		return false, fmt.Errorf("enqueue audit task: %w", err)
	}
	return enqueued, nil
}

const excerptLimit = 200

func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptLimit {
		return content
	}
	return string(runes[:excerptLimit])
}
