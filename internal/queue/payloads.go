package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProcessPayload carries a document_process task.
type ProcessPayload struct {
	DocumentID  string `json:"document_id"`
	SourcePath  string `json:"source_path"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// AuditPayload carries an audit_document task.
type AuditPayload struct {
	DocumentID string `json:"document_id"`
	Excerpt    string `json:"excerpt"`
	AuditType  string `json:"audit_type"`
}

// IndexPayload carries an index_document task.
type IndexPayload struct {
	DocumentID  string `json:"document_id"`
	ContentType string `json:"content_type"`
}

// AnalyzePayload carries an analyze_document task.
type AnalyzePayload struct {
	DocumentID string `json:"document_id"`
	Kind       string `json:"kind"`
}

// EncodePayload validates a typed payload against its task type and returns
// its canonical JSON encoding. The payload schema is a tagged union keyed by
// task type; mismatched variants are rejected at enqueue time.
func EncodePayload(taskType TaskType, payload any) (json.RawMessage, error) {
	switch taskType {
	case TaskDocumentProcess:
		if _, ok := payload.(ProcessPayload); !ok {
			return nil, fmt.Errorf("task type %s requires ProcessPayload, got %T", taskType, payload)
		}
	case TaskAuditDocument:
		if _, ok := payload.(AuditPayload); !ok {
			return nil, fmt.Errorf("task type %s requires AuditPayload, got %T", taskType, payload)
		}
	case TaskIndexDocument:
		if _, ok := payload.(IndexPayload); !ok {
			return nil, fmt.Errorf("task type %s requires IndexPayload, got %T", taskType, payload)
		}
	case TaskAnalyzeDocument:
		if _, ok := payload.(AnalyzePayload); !ok {
			return nil, fmt.Errorf("task type %s requires AnalyzePayload, got %T", taskType, payload)
		}
	default:
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return encoded, nil
}

// DecodePayload parses a task's raw payload into its typed variant.
// Unknown fields and a missing document_id are rejected so malformed rows
// fail fast in the dispatcher instead of deep inside a processor.
func DecodePayload(task *Task) (any, error) {
	if task == nil {
		return nil, fmt.Errorf("task is nil")
	}

	var (
		decoded    any
		documentID string
	)
	switch task.Type {
	case TaskDocumentProcess:
		var p ProcessPayload
		if err := strictUnmarshal(task.Payload, &p); err != nil {
			return nil, err
		}
		decoded, documentID = p, p.DocumentID
	case TaskAuditDocument:
		var p AuditPayload
		if err := strictUnmarshal(task.Payload, &p); err != nil {
			return nil, err
		}
		decoded, documentID = p, p.DocumentID
	case TaskIndexDocument:
		var p IndexPayload
		if err := strictUnmarshal(task.Payload, &p); err != nil {
			return nil, err
		}
		decoded, documentID = p, p.DocumentID
	case TaskAnalyzeDocument:
		var p AnalyzePayload
		if err := strictUnmarshal(task.Payload, &p); err != nil {
			return nil, err
		}
		decoded, documentID = p, p.DocumentID
	default:
		return nil, fmt.Errorf("unknown task type %q", task.Type)
	}

	if documentID == "" {
		return nil, fmt.Errorf("payload for task %s is missing document_id", task.ID)
	}
	if documentID != task.DocumentID {
		return nil, fmt.Errorf("payload document_id %s does not match task document_id %s", documentID, task.DocumentID)
	}
	return decoded, nil
}

func strictUnmarshal(raw json.RawMessage, target any) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
