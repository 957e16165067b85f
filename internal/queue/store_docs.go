package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveDocument persists an intake record's metadata and content. Saving a
// document whose deterministic id already exists is a no-op; the bool
// reports whether a new row was written.
func (s *Store) SaveDocument(ctx context.Context, doc Document) (bool, error) {
	if doc.ID == "" {
		return false, errors.New("save document: id is required")
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO documents (
            id, source_path, file_name, content_type, content, size_bytes, discovered_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID,
		doc.SourcePath,
		doc.FileName,
		doc.ContentType,
		doc.Content,
		doc.SizeBytes,
		doc.DiscoveredAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return false, fmt.Errorf("save document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save document rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetDocument fetches a document by identifier.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`,
		id,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns all known documents ordered by discovery time.
func (s *Store) ListDocuments(ctx context.Context) ([]*Document, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY discovered_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CountDocuments returns the number of persisted documents.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM documents`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

const documentColumns = "id, source_path, file_name, content_type, content, size_bytes, discovered_at"

func scanDocument(scanner interface{ Scan(dest ...any) error }) (*Document, error) {
	var (
		doc           Document
		discoveredRaw string
	)
	if err := scanner.Scan(
		&doc.ID,
		&doc.SourcePath,
		&doc.FileName,
		&doc.ContentType,
		&doc.Content,
		&doc.SizeBytes,
		&discoveredRaw,
	); err != nil {
		return nil, err
	}
	if discovered, err := parseTimeString(discoveredRaw); err == nil {
		doc.DiscoveredAt = discovered
	}
	return &doc, nil
}
