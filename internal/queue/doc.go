// Package queue persists intake tasks, document metadata, and append-only
// logs in SQLite, and exposes the lifecycle operations the scanner and
// dispatcher coordinate through.
//
// The store is the single shared mutable resource in the system: claim
// atomicity is enforced with conditional updates against the tasks table,
// so concurrent workers need no in-process locking. Enqueue is idempotent
// per (document_id, task_type) while a matching task is pending or
// processing; duplicates surface as ErrConflict.
//
// Treat this package as the single source of truth for queue semantics;
// when you add task types or columns, update schema.sql and bump
// schemaVersion.
package queue
