package logging

// Standardized structured-log field names.
const (
	FieldComponent  = "component"
	FieldEventType  = "event_type"
	FieldErrorHint  = "error_hint"
	FieldDocumentID = "document_id"
	FieldTaskID     = "task_id"
	FieldTaskType   = "task_type"
	FieldWorkerID   = "worker_id"
	FieldAttempt    = "attempt"
	FieldSourcePath = "source_path"
)
