package queue

import "errors"

var (
	// ErrConflict indicates an equivalent pending or processing task already
	// exists for the same (document_id, task_type) pair. Enqueue callers
	// treat it as an idempotent no-op, not a failure.
	ErrConflict = errors.New("equivalent task already queued")

	// ErrNotFound indicates the referenced task does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrInvalidTransition indicates the task is not in the state the
	// requested operation requires (e.g. completing a task nobody claimed).
	ErrInvalidTransition = errors.New("invalid status transition")
)
