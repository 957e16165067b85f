package processors

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"kaitiaki/internal/logging"
	"kaitiaki/internal/queue"
)

const topTermLimit = 10

// IndexProcessor handles index_document tasks by extracting a term summary
// from the stored content. The summary lands in the task result so status
// tooling can surface what a document is about without re-reading it.
type IndexProcessor struct {
	store  *queue.Store
	logger *slog.Logger
}

// NewIndexProcessor constructs the index_document handler.
func NewIndexProcessor(store *queue.Store, logger *slog.Logger) *IndexProcessor {
	return &IndexProcessor{
		store:  store,
		logger: logging.WithComponent(logger, "processor.index"),
	}
}

func (p *IndexProcessor) Process(ctx context.Context, task *queue.Task) (string, error) {
	if _, err := queue.DecodePayload(task); err != nil {
		return "", Wrap(ErrMalformed, string(task.Type), "decode", "", err)
	}

	doc, err := fetchDocument(ctx, p.store, task)
	if err != nil {
		return "", err
	}

	terms := tokenize(doc.Content)
	result := map[string]any{
		"document_id":  doc.ID,
		"term_count":   termTotal(terms),
		"unique_terms": len(terms),
		"top_terms":    topTerms(terms, topTermLimit),
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return "", Wrap(ErrTransient, string(task.Type), "encode result", "", err)
	}

	p.logger.Debug("document indexed",
		logging.String(logging.FieldDocumentID, doc.ID),
		logging.Int("unique_terms", len(terms)))
	return string(encoded), nil
}

func tokenize(content string) map[string]int {
	terms := make(map[string]int)
	for _, field := range strings.FieldsFunc(content, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		term := strings.ToLower(field)
		if len(term) < 2 {
			continue
		}
		terms[term]++
	}
	return terms
}

func termTotal(terms map[string]int) int {
	total := 0
	for _, count := range terms {
		total += count
	}
	return total
}

func topTerms(terms map[string]int, limit int) []string {
	ordered := make([]string, 0, len(terms))
	for term := range terms {
		ordered = append(ordered, term)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if terms[ordered[i]] != terms[ordered[j]] {
			return terms[ordered[i]] > terms[ordered[j]]
		}
		return ordered[i] < ordered[j]
	})
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered
}
