package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kaitiaki/internal/config"
)

func TestLoadMissingDefaultUsesDefaults(t *testing.T) {
	cfg, _, err := config.Load(filepath.Join(t.TempDir(), "nope", "config.toml"))
	if err == nil {
		t.Fatalf("expected error for missing explicit config, got %#v", cfg)
	}
}

func TestLoadParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`intake_dir = "` + filepath.Join(dir, "intake") + `"`,
		`archive_dir = "` + filepath.Join(dir, "archive") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		"",
		"[intake]",
		"scan_interval = 10",
		`extensions = ["md", ".TXT"]`,
		"",
		"[workers]",
		"count = 4",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected resolved path %s, got %s", path, resolved)
	}
	if cfg.ScanInterval != 10 {
		t.Fatalf("expected scan_interval 10, got %d", cfg.ScanInterval)
	}
	if cfg.Workers.Count != 4 {
		t.Fatalf("expected worker count 4, got %d", cfg.Workers.Count)
	}
	// Extensions are normalized to lowercase dotted form.
	if len(cfg.Extensions) != 2 || cfg.Extensions[0] != ".md" || cfg.Extensions[1] != ".txt" {
		t.Fatalf("unexpected extensions: %v", cfg.Extensions)
	}
	// Untouched sections keep defaults.
	if cfg.MaxAttempts != 3 {
		t.Fatalf("expected default max_attempts 3, got %d", cfg.MaxAttempts)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KAITIAKI_INTAKE_DIR", filepath.Join(dir, "env-intake"))
	t.Setenv("KAITIAKI_WORKER_COUNT", "7")

	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`intake_dir = "` + filepath.Join(dir, "intake") + `"`,
		`archive_dir = "` + filepath.Join(dir, "archive") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.IntakeDir != filepath.Join(dir, "env-intake") {
		t.Fatalf("env override not applied: %s", cfg.IntakeDir)
	}
	if cfg.Workers.Count != 7 {
		t.Fatalf("expected worker count 7, got %d", cfg.Workers.Count)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := config.Default()
	cfg.IntakeDir = "/tmp/kaitiaki-intake"
	cfg.ArchiveDir = cfg.IntakeDir
	cfg.LogDir = "/tmp/kaitiaki-logs"
	cfg.ScanInterval = 0
	cfg.Workers.Count = 0
	cfg.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"archive_dir", "scan_interval", "workers.count", "logging.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected validation error to mention %s, got: %v", want, err)
		}
	}
}

func TestDefaultValidatesAfterNormalize(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.MaxFileSizeBytes() != 10*1024*1024 {
		t.Fatalf("unexpected max file size: %d", cfg.MaxFileSizeBytes())
	}
}
