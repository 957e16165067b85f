package processors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"kaitiaki/internal/config"
	"kaitiaki/internal/logging"
	"kaitiaki/internal/queue"
)

// DocumentProcessor handles document_process tasks. It derives basic
// content statistics from the stored document and chains an index task so
// every processed document ends up searchable.
type DocumentProcessor struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewDocumentProcessor constructs the document_process handler.
func NewDocumentProcessor(store *queue.Store, cfg *config.Config, logger *slog.Logger) *DocumentProcessor {
	return &DocumentProcessor{
		store:  store,
		cfg:    cfg,
		logger: logging.WithComponent(logger, "processor.document"),
	}
}

func (p *DocumentProcessor) Process(ctx context.Context, task *queue.Task) (string, error) {
	decoded, err := queue.DecodePayload(task)
	if err != nil {
		return "", Wrap(ErrMalformed, string(task.Type), "decode", "", err)
	}
	payload := decoded.(queue.ProcessPayload)

	doc, err := fetchDocument(ctx, p.store, task)
	if err != nil {
		return "", err
	}

	words := strings.Fields(doc.Content)
	lines := strings.Count(doc.Content, "\n") + 1
	result := map[string]any{
		"document_id":  doc.ID,
		"content_type": doc.ContentType,
		"size_bytes":   payload.SizeBytes,
		"word_count":   len(words),
		"line_count":   lines,
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return "", Wrap(ErrTransient, string(task.Type), "encode result", "", err)
	}

	// Chain an index task; a pending one from an earlier cycle is fine.
	_, err = p.store.Enqueue(ctx, queue.NewTask{
		Type:       queue.TaskIndexDocument,
		DocumentID: doc.ID,
		Priority:   p.cfg.IndexPriority,
		Payload:    queue.IndexPayload{DocumentID: doc.ID, ContentType: doc.ContentType},
	})
	if err != nil && !errors.Is(err, queue.ErrConflict) {
		return "", Wrap(ErrTransient, string(task.Type), "enqueue index task", "", err)
	}

	if err := p.store.AppendLifecycle(ctx, queue.LifecycleEntry{
		EventType:  "document_processed",
		DocumentID: doc.ID,
		TaskID:     task.ID,
		Message:    fmt.Sprintf("processed %s (%d words)", doc.FileName, len(words)),
	}); err != nil {
		p.logger.Warn("lifecycle append failed",
			logging.String(logging.FieldDocumentID, doc.ID),
			logging.Error(err))
	}

	return string(encoded), nil
}

// fetchDocument loads the task's document. A missing row is a malformed
// task, not a transient condition: documents are persisted before their
// tasks are enqueued.
func fetchDocument(ctx context.Context, store *queue.Store, task *queue.Task) (*queue.Document, error) {
	doc, err := store.GetDocument(ctx, task.DocumentID)
	if err != nil {
		return nil, Wrap(ErrTransient, string(task.Type), "load document", "", err)
	}
	if doc == nil {
		return nil, Wrap(ErrMalformed, string(task.Type), "load document", fmt.Sprintf("document %s not found", task.DocumentID), nil)
	}
	return doc, nil
}
