package processors

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"unicode"

	"kaitiaki/internal/logging"
	"kaitiaki/internal/queue"
)

// Compliance verdicts recorded by the audit processor.
const (
	ComplianceClear   = "clear"
	ComplianceFlagged = "flagged"
	ComplianceBlocked = "blocked"
)

// restrictedMarkers are content markers that require human review before a
// document moves further downstream.
var restrictedMarkers = []string{
	"tapu",
	"restricted",
	"confidential",
	"do not distribute",
}

// AuditProcessor handles audit_document tasks. It scans stored content for
// restricted markers and control characters, records an immutable verdict
// in the audit log, and returns the findings as the task result.
type AuditProcessor struct {
	store  *queue.Store
	logger *slog.Logger
}

// NewAuditProcessor constructs the audit_document handler.
func NewAuditProcessor(store *queue.Store, logger *slog.Logger) *AuditProcessor {
	return &AuditProcessor{
		store:  store,
		logger: logging.WithComponent(logger, "processor.audit"),
	}
}

func (p *AuditProcessor) Process(ctx context.Context, task *queue.Task) (string, error) {
	if _, err := queue.DecodePayload(task); err != nil {
		return "", Wrap(ErrMalformed, string(task.Type), "decode", "", err)
	}

	doc, err := fetchDocument(ctx, p.store, task)
	if err != nil {
		return "", err
	}

	verdict, findings := auditContent(doc.Content)

	findingsJSON, err := json.Marshal(findings)
	if err != nil {
		return "", Wrap(ErrTransient, string(task.Type), "encode findings", "", err)
	}
	entry := queue.AuditEntry{
		DocumentID:        doc.ID,
		TaskID:            task.ID,
		ComplianceStatus:  verdict,
		RecommendedAction: recommendedAction(verdict),
		FindingsJSON:      string(findingsJSON),
	}
	if err := p.store.AppendAudit(ctx, entry); err != nil {
		return "", Wrap(ErrTransient, string(task.Type), "append audit", "", err)
	}

	p.logger.Info("audit verdict recorded",
		logging.String(logging.FieldDocumentID, doc.ID),
		logging.String("compliance_status", verdict))

	result := map[string]any{
		"document_id":        doc.ID,
		"compliance_status":  verdict,
		"recommended_action": entry.RecommendedAction,
		"findings":           findings,
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return "", Wrap(ErrTransient, string(task.Type), "encode result", "", err)
	}
	return string(encoded), nil
}

type auditFindings struct {
	Markers      []string `json:"markers"`
	ControlChars int      `json:"control_chars"`
}

func auditContent(content string) (string, auditFindings) {
	var findings auditFindings

	lowered := strings.ToLower(content)
	for _, marker := range restrictedMarkers {
		if strings.Contains(lowered, marker) {
			findings.Markers = append(findings.Markers, marker)
		}
	}
	for _, r := range content {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			findings.ControlChars++
		}
	}

	switch {
	case findings.ControlChars > 0:
		return ComplianceBlocked, findings
	case len(findings.Markers) > 0:
		return ComplianceFlagged, findings
	default:
		return ComplianceClear, findings
	}
}

func recommendedAction(verdict string) string {
	switch verdict {
	case ComplianceBlocked:
		return "quarantine document and notify an operator"
	case ComplianceFlagged:
		return "hold for human review"
	default:
		return "none"
	}
}
