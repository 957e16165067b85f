package queue

import (
	"encoding/json"
	"strings"
	"time"
)

// Status represents the lifecycle of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// TaskType identifies the processor a task is dispatched to.
type TaskType string

const (
	TaskDocumentProcess TaskType = "document_process"
	TaskAuditDocument   TaskType = "audit_document"
	TaskIndexDocument   TaskType = "index_document"
	TaskAnalyzeDocument TaskType = "analyze_document"
)

var allTaskTypes = []TaskType{
	TaskDocumentProcess,
	TaskAuditDocument,
	TaskIndexDocument,
	TaskAnalyzeDocument,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// AllTaskTypes returns the ordered list of known task types.
func AllTaskTypes() []TaskType {
	cp := make([]TaskType, len(allTaskTypes))
	copy(cp, allTaskTypes)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status permits no further transitions
// except controlled retry re-entry to pending.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is a unit of enqueued work persisted in SQLite.
type Task struct {
	ID           string
	Type         TaskType
	Status       Status
	Priority     int
	DocumentID   string
	Payload      json.RawMessage
	WorkerID     string
	Attempts     int
	NotBefore    *time.Time
	ErrorMessage string
	ResultJSON   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// Document is the persisted form of an intake record.
type Document struct {
	ID           string
	SourcePath   string
	FileName     string
	ContentType  string
	Content      string
	SizeBytes    int64
	DiscoveredAt time.Time
}

// LifecycleEntry is one append-only event in the observability trail.
type LifecycleEntry struct {
	ID         int64
	EventType  string
	DocumentID string
	TaskID     string
	Message    string
	MetaJSON   string
	CreatedAt  time.Time
}

// AuditEntry is an immutable audit verdict for a document.
type AuditEntry struct {
	ID                int64
	DocumentID        string
	TaskID            string
	ComplianceStatus  string
	RecommendedAction string
	FindingsJSON      string
	CreatedAt         time.Time
}

// Stats aggregates task counts per status.
type Stats struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// Total returns the number of tasks across all states.
func (s Stats) Total() int {
	return s.Pending + s.Processing + s.Completed + s.Failed
}
