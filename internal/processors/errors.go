package processors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers used to classify processor failures. Transient and
// timeout failures are retried by the dispatcher; malformed and
// unsupported failures are terminal.
var (
	ErrTransient   = errors.New("transient failure")
	ErrTimeout     = errors.New("timeout")
	ErrMalformed   = errors.New("malformed task")
	ErrUnsupported = errors.New("unsupported task")
)

// Wrap builds an error message that includes task context while tagging it
// with the provided marker for later retry classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, taskType, operation, message string, err error) error {
	detail := buildDetail(taskType, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Permanent reports whether an error must not be retried.
func Permanent(err error) bool {
	return errors.Is(err, ErrMalformed) || errors.Is(err, ErrUnsupported)
}

func buildDetail(taskType, operation, message string) string {
	parts := make([]string, 0, 3)
	if taskType = strings.TrimSpace(taskType); taskType != "" {
		parts = append(parts, taskType)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "processor failure"
	}
	return strings.Join(parts, ": ")
}
