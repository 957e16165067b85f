package testsupport

import (
	"path/filepath"
	"testing"

	"kaitiaki/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.IntakeDir = filepath.Join(base, "intake")
	cfg.ArchiveDir = filepath.Join(base, "archive")
	cfg.LogDir = filepath.Join(base, "logs")
	cfg.APIBind = "127.0.0.1:0"
	cfg.ScanInterval = 1
	cfg.PollIntervalSeconds = 1
	cfg.WatchIntake = false

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithMaxAttempts overrides the retry ceiling on the test config.
func WithMaxAttempts(attempts int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.MaxAttempts = attempts
	}
}

// WithAuditDisabled turns off audit task enqueueing.
func WithAuditDisabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.AuditEnabled = false
	}
}

// WithWorkerCount overrides the dispatcher pool size.
func WithWorkerCount(count int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workers.Count = count
	}
}
