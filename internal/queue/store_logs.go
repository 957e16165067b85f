package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// AppendLifecycle appends one event to the lifecycle log. The log is
// append-only; entries are never mutated or deleted by the pipeline.
// Write errors are returned to the caller, never swallowed.
func (s *Store) AppendLifecycle(ctx context.Context, entry LifecycleEntry) error {
	if strings.TrimSpace(entry.EventType) == "" {
		return errors.New("append lifecycle: event type is required")
	}
	if strings.TrimSpace(entry.Message) == "" {
		return errors.New("append lifecycle: message is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO lifecycle_logs (event_type, document_id, task_id, message, meta, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		entry.EventType,
		nullableString(entry.DocumentID),
		nullableString(entry.TaskID),
		entry.Message,
		nullableString(entry.MetaJSON),
		s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("append lifecycle entry: %w", err)
	}
	return nil
}

// RecentLifecycle returns the newest limit lifecycle entries, newest first.
func (s *Store) RecentLifecycle(ctx context.Context, limit int) ([]*LifecycleEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, event_type, document_id, task_id, message, meta, created_at
         FROM lifecycle_logs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent lifecycle entries: %w", err)
	}
	defer rows.Close()

	var entries []*LifecycleEntry
	for rows.Next() {
		entry, err := scanLifecycle(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// AppendAudit appends one immutable audit verdict for a document.
func (s *Store) AppendAudit(ctx context.Context, entry AuditEntry) error {
	if strings.TrimSpace(entry.DocumentID) == "" {
		return errors.New("append audit: document id is required")
	}
	if strings.TrimSpace(entry.ComplianceStatus) == "" {
		return errors.New("append audit: compliance status is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO audit_logs (document_id, task_id, compliance_status, recommended_action, findings, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		entry.DocumentID,
		nullableString(entry.TaskID),
		entry.ComplianceStatus,
		entry.RecommendedAction,
		nullableString(entry.FindingsJSON),
		s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// AuditsForDocument returns the audit trail for one document, oldest first.
func (s *Store) AuditsForDocument(ctx context.Context, documentID string) ([]*AuditEntry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, document_id, task_id, compliance_status, recommended_action, findings, created_at
         FROM audit_logs WHERE document_id = ? ORDER BY id`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("audits for document: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		entry, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanLifecycle(scanner interface{ Scan(dest ...any) error }) (*LifecycleEntry, error) {
	var (
		entry      LifecycleEntry
		documentID sql.NullString
		taskID     sql.NullString
		meta       sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.EventType,
		&documentID,
		&taskID,
		&entry.Message,
		&meta,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	entry.DocumentID = documentID.String
	entry.TaskID = taskID.String
	entry.MetaJSON = meta.String
	if created, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	return &entry, nil
}

func scanAudit(scanner interface{ Scan(dest ...any) error }) (*AuditEntry, error) {
	var (
		entry      AuditEntry
		taskID     sql.NullString
		findings   sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.DocumentID,
		&taskID,
		&entry.ComplianceStatus,
		&entry.RecommendedAction,
		&findings,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	entry.TaskID = taskID.String
	entry.FindingsJSON = findings.String
	if created, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	return &entry, nil
}
