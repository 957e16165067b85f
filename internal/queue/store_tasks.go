package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewTask describes a task to enqueue.
type NewTask struct {
	Type       TaskType
	DocumentID string
	Priority   int
	Payload    any
}

// Enqueue inserts a pending task. It fails with ErrConflict when an
// equivalent pending or processing task already exists for the same
// (document_id, task_type) pair, making re-scans idempotent.
func (s *Store) Enqueue(ctx context.Context, req NewTask) (*Task, error) {
	if strings.TrimSpace(req.DocumentID) == "" {
		return nil, errors.New("enqueue: document id is required")
	}
	payload, err := EncodePayload(req.Type, req.Payload)
	if err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}

	id := uuid.NewString()
	timestamp := s.timestamp()
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO tasks (
            task_id, task_type, status, priority, document_id, payload,
            attempts, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id,
		req.Type,
		StatusPending,
		req.Priority,
		req.DocumentID,
		string(payload),
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: document %s, type %s", ErrConflict, req.DocumentID, req.Type)
		}
		return nil, fmt.Errorf("insert task: %w", err)
	}

	return s.GetTask(ctx, id)
}

// GetTask fetches a task by identifier.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ClaimNext atomically transitions one eligible pending task to processing
// on behalf of workerID and returns it, or returns nil when no task is
// eligible. Eligibility honors retry backoff (not_before); ordering is
// lowest priority value first, then oldest created_at. The conditional
// update guarantees at most one concurrent claimant per task.
func (s *Store) ClaimNext(ctx context.Context, workerID string, types ...TaskType) (*Task, error) {
	if strings.TrimSpace(workerID) == "" {
		return nil, errors.New("claim: worker id is required")
	}
	if len(types) == 0 {
		types = AllTaskTypes()
	}

	placeholders := makePlaceholders(len(types))
	args := make([]any, 0, len(types)+1)
	args = append(args, s.timestamp())
	for _, t := range types {
		args = append(args, t)
	}
	query := `SELECT ` + taskColumns + ` FROM tasks
        WHERE status = 'pending'
          AND (not_before IS NULL OR not_before <= ?)
          AND task_type IN (` + placeholders + `)
        ORDER BY priority, created_at
        LIMIT 1`

	// Another worker can win the conditional update between the select and
	// the claim; re-select until the queue is drained or a claim sticks.
	for {
		row := s.db.QueryRowContext(ctx, query, args...)
		candidate, err := scanTask(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("select claim candidate: %w", err)
		}

		res, err := s.db.ExecContext(
			ctx,
			`UPDATE tasks SET status = ?, worker_id = ?, updated_at = ?
             WHERE task_id = ? AND status = 'pending'`,
			StatusProcessing,
			workerID,
			s.timestamp(),
			candidate.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("claim task: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("claim rows affected: %w", err)
		}
		if affected == 1 {
			return s.GetTask(ctx, candidate.ID)
		}
	}
}

// Complete marks a processing task completed and stores its result JSON.
func (s *Store) Complete(ctx context.Context, taskID, resultJSON string) error {
	timestamp := s.timestamp()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE tasks SET status = ?, result = ?, error_message = NULL,
            updated_at = ?, completed_at = ?
         WHERE task_id = ? AND status = 'processing'`,
		StatusCompleted,
		nullableString(resultJSON),
		timestamp,
		timestamp,
		taskID,
	)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return s.requireTransition(ctx, res, taskID, "complete")
}

// Fail resolves a processing task after a processor error. With retry true
// and attempts still under the configured ceiling the task returns to
// pending with an incremented attempt counter and an exponential backoff
// eligibility timestamp; otherwise it lands in terminal failed and the
// cause is appended to the lifecycle log.
func (s *Store) Fail(ctx context.Context, taskID string, cause error, retry bool) error {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	if task.Status != StatusProcessing {
		return fmt.Errorf("%w: fail requires processing, task %s is %s", ErrInvalidTransition, taskID, task.Status)
	}

	message := "unknown failure"
	if cause != nil {
		message = cause.Error()
	}
	attempts := task.Attempts + 1
	timestamp := s.timestamp()

	if retry && attempts < s.maxAttempts {
		notBefore := s.now().UTC().Add(s.backoff(attempts))
		_, err := s.db.ExecContext(
			ctx,
			`UPDATE tasks SET status = ?, attempts = ?, not_before = ?,
                worker_id = NULL, error_message = ?, updated_at = ?
             WHERE task_id = ?`,
			StatusPending,
			attempts,
			notBefore.Format(timeLayout),
			message,
			timestamp,
			taskID,
		)
		if err != nil {
			return fmt.Errorf("requeue task: %w", err)
		}
		return nil
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE tasks SET status = ?, attempts = ?, not_before = NULL,
            error_message = ?, updated_at = ?, completed_at = ?
         WHERE task_id = ?`,
		StatusFailed,
		attempts,
		message,
		timestamp,
		timestamp,
		taskID,
	)
	if err != nil {
		return fmt.Errorf("fail task: %w", err)
	}

	return s.AppendLifecycle(ctx, LifecycleEntry{
		EventType:  "task_failed",
		DocumentID: task.DocumentID,
		TaskID:     taskID,
		Message:    fmt.Sprintf("%s failed after %d attempt(s): %s", task.Type, attempts, message),
	})
}

// RetryFailed moves failed tasks back to pending. With no ids, all failed
// tasks are retried. Attempt counters reset so the retry budget restarts.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	timestamp := s.timestamp()
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE tasks SET status = ?, attempts = 0, not_before = NULL,
                worker_id = NULL, error_message = NULL, completed_at = NULL, updated_at = ?
             WHERE status = ?`,
			StatusPending, timestamp, StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed tasks: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, timestamp)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE tasks SET status = ?, attempts = 0, not_before = NULL,
            worker_id = NULL, error_message = NULL, completed_at = NULL, updated_at = ?
         WHERE task_id IN (`+placeholders+`) AND status = '`+string(StatusFailed)+`'`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("retry selected tasks: %w", err)
	}
	return res.RowsAffected()
}

// ClearTerminal deletes completed and failed tasks, returning the number
// removed. Pending and processing tasks are never touched.
func (s *Store) ClearTerminal(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM tasks WHERE status IN (?, ?)`,
		StatusCompleted,
		StatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("clear terminal tasks: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckProcessing returns processing tasks to pending. Used at daemon
// startup to recover tasks orphaned by a crash.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE tasks SET status = ?, worker_id = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		s.timestamp(),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck tasks: %w", err)
	}
	return res.RowsAffected()
}

// ListTasks returns tasks filtered by status set (or all tasks when no
// status is provided), ordered by creation time.
func (s *Store) ListTasks(ctx context.Context, statuses ...Status) ([]*Task, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + taskColumns + ` FROM tasks`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// TaskStats returns per-status task counts. An empty database yields zeroed
// counts, not an error.
func (s *Store) TaskStats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM tasks GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		switch status {
		case StatusPending:
			stats.Pending = count
		case StatusProcessing:
			stats.Processing = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

func (s *Store) requireTransition(ctx context.Context, res sql.Result, taskID, operation string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 1 {
		return nil
	}
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	return fmt.Errorf("%w: %s requires processing, task %s is %s", ErrInvalidTransition, operation, taskID, task.Status)
}

func (s *Store) backoff(attempts int) time.Duration {
	backoff := s.backoffBase
	for i := 1; i < attempts; i++ {
		backoff *= 2
	}
	return backoff
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const taskColumns = "task_id, task_type, status, priority, document_id, payload, worker_id, attempts, not_before, error_message, result, created_at, updated_at, completed_at"

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		id           string
		taskType     string
		statusStr    string
		priority     int
		documentID   string
		payload      string
		workerID     sql.NullString
		attempts     int
		notBeforeRaw sql.NullString
		errorMessage sql.NullString
		result       sql.NullString
		createdRaw   string
		updatedRaw   string
		completedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&taskType,
		&statusStr,
		&priority,
		&documentID,
		&payload,
		&workerID,
		&attempts,
		&notBeforeRaw,
		&errorMessage,
		&result,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	task := &Task{
		ID:           id,
		Type:         TaskType(taskType),
		Status:       Status(statusStr),
		Priority:     priority,
		DocumentID:   documentID,
		Payload:      []byte(payload),
		WorkerID:     workerID.String,
		Attempts:     attempts,
		ErrorMessage: errorMessage.String,
		ResultJSON:   result.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		task.UpdatedAt = updated
	}
	if notBeforeRaw.Valid {
		if notBefore, err := parseTimeString(notBeforeRaw.String); err == nil {
			task.NotBefore = &notBefore
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			task.CompletedAt = &completed
		}
	}
	return task, nil
}
