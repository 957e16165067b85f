package processors

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"unicode/utf8"

	"kaitiaki/internal/logging"
	"kaitiaki/internal/queue"
)

// AnalyzeProcessor handles analyze_document tasks with simple content
// statistics. Operators enqueue these manually for documents that warrant a
// closer look.
type AnalyzeProcessor struct {
	store  *queue.Store
	logger *slog.Logger
}

// NewAnalyzeProcessor constructs the analyze_document handler.
func NewAnalyzeProcessor(store *queue.Store, logger *slog.Logger) *AnalyzeProcessor {
	return &AnalyzeProcessor{
		store:  store,
		logger: logging.WithComponent(logger, "processor.analyze"),
	}
}

func (p *AnalyzeProcessor) Process(ctx context.Context, task *queue.Task) (string, error) {
	decoded, err := queue.DecodePayload(task)
	if err != nil {
		return "", Wrap(ErrMalformed, string(task.Type), "decode", "", err)
	}
	payload := decoded.(queue.AnalyzePayload)

	doc, err := fetchDocument(ctx, p.store, task)
	if err != nil {
		return "", err
	}

	words := strings.Fields(doc.Content)
	totalWordLen := 0
	for _, word := range words {
		totalWordLen += utf8.RuneCountInString(word)
	}
	avgWordLen := 0.0
	if len(words) > 0 {
		avgWordLen = float64(totalWordLen) / float64(len(words))
	}

	result := map[string]any{
		"document_id":     doc.ID,
		"kind":            payload.Kind,
		"content_type":    doc.ContentType,
		"char_count":      utf8.RuneCountInString(doc.Content),
		"word_count":      len(words),
		"line_count":      strings.Count(doc.Content, "\n") + 1,
		"avg_word_length": avgWordLen,
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return "", Wrap(ErrTransient, string(task.Type), "encode result", "", err)
	}

	p.logger.Debug("document analyzed",
		logging.String(logging.FieldDocumentID, doc.ID))
	return string(encoded), nil
}
