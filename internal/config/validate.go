package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run with.
// All problems are reported together so users fix the file in one pass.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.IntakeDir) == "" {
		problems = append(problems, "paths.intake_dir is required")
	}
	if strings.TrimSpace(c.ArchiveDir) == "" {
		problems = append(problems, "paths.archive_dir is required")
	}
	if c.IntakeDir != "" && c.IntakeDir == c.ArchiveDir {
		problems = append(problems, "paths.archive_dir must differ from paths.intake_dir")
	}
	if strings.TrimSpace(c.LogDir) == "" {
		problems = append(problems, "paths.log_dir is required")
	}

	if c.ScanInterval <= 0 {
		problems = append(problems, "intake.scan_interval must be positive")
	}
	if c.MaxFileSizeMB <= 0 {
		problems = append(problems, "intake.max_file_size_mb must be positive")
	}
	if len(c.Extensions) == 0 {
		problems = append(problems, "intake.extensions must list at least one extension")
	}

	if c.MaxAttempts < 1 {
		problems = append(problems, "queue.max_attempts must be at least 1")
	}
	if c.RetryBackoffSeconds <= 0 {
		problems = append(problems, "queue.retry_backoff_seconds must be positive")
	}
	for name, priority := range map[string]int{
		"queue.process_priority": c.ProcessPriority,
		"queue.audit_priority":   c.AuditPriority,
		"queue.index_priority":   c.IndexPriority,
		"queue.analyze_priority": c.AnalyzePriority,
	} {
		if priority < 0 {
			problems = append(problems, fmt.Sprintf("%s must not be negative", name))
		}
	}

	if c.Workers.Count < 1 {
		problems = append(problems, "workers.count must be at least 1")
	}
	if c.PollIntervalSeconds <= 0 {
		problems = append(problems, "workers.poll_interval_seconds must be positive")
	}
	if c.TaskTimeoutSeconds <= 0 {
		problems = append(problems, "workers.task_timeout_seconds must be positive")
	}

	switch c.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (console, json)", c.Format))
	}
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not supported (debug, info, warn, error)", c.Level))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration:\n  - " + strings.Join(problems, "\n  - "))
}
