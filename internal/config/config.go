package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	IntakeDir  string `toml:"intake_dir"`
	ArchiveDir string `toml:"archive_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Intake contains scanner behavior configuration.
type Intake struct {
	ScanInterval  int      `toml:"scan_interval"`
	MaxFileSizeMB int      `toml:"max_file_size_mb"`
	Extensions    []string `toml:"extensions"`
	WatchIntake   bool     `toml:"watch_intake"`
	AuditEnabled  bool     `toml:"audit_enabled"`
}

// Queue contains durability and retry configuration for the task queue.
type Queue struct {
	MaxAttempts         int `toml:"max_attempts"`
	RetryBackoffSeconds int `toml:"retry_backoff_seconds"`
	ProcessPriority     int `toml:"process_priority"`
	AuditPriority       int `toml:"audit_priority"`
	IndexPriority       int `toml:"index_priority"`
	AnalyzePriority     int `toml:"analyze_priority"`
}

// Workers contains dispatcher pool configuration.
type Workers struct {
	Count               int `toml:"count"`
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	TaskTimeoutSeconds  int `toml:"task_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the merged application configuration.
type Config struct {
	Paths   `toml:"paths"`
	Intake  `toml:"intake"`
	Queue   `toml:"queue"`
	Workers `toml:"workers"`
	Logging `toml:"logging"`
}

// DefaultConfigPath returns the standard location of the config file.
func DefaultConfigPath() string {
	return expandPath("~/.config/kaitiaki/config.toml")
}

// Load reads configuration from path (or the default location when path is
// empty), applies environment overrides, normalizes paths, and validates the
// result. The resolved config file path is returned alongside the config; a
// missing file at the default location is not an error.
func Load(path string) (*Config, string, error) {
	// A .env next to the working directory can seed KAITIAKI_* overrides.
	_ = godotenv.Load()

	cfg := Default()

	resolved := strings.TrimSpace(path)
	explicit := resolved != ""
	if !explicit {
		resolved = DefaultConfigPath()
	} else {
		resolved = expandPath(resolved)
	}

	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, resolved, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if explicit {
			return nil, resolved, fmt.Errorf("config file %s not found", resolved)
		}
	default:
		return nil, resolved, fmt.Errorf("read config %s: %w", resolved, err)
	}

	applyEnvOverrides(&cfg)
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, resolved, err
	}
	return &cfg, resolved, nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	target := expandPath(path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("config file %s already exists", target)
	}
	return os.WriteFile(target, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the daemon writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.IntakeDir, c.ArchiveDir, c.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ScanIntervalDuration returns the scan interval as a duration.
func (c *Config) ScanIntervalDuration() time.Duration {
	return time.Duration(c.ScanInterval) * time.Second
}

// MaxFileSizeBytes returns the configured per-file size limit in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

func (c *Config) normalize() {
	c.IntakeDir = expandPath(c.IntakeDir)
	c.ArchiveDir = expandPath(c.ArchiveDir)
	c.LogDir = expandPath(c.LogDir)

	exts := make([]string, 0, len(c.Extensions))
	for _, ext := range c.Extensions {
		trimmed := strings.ToLower(strings.TrimSpace(ext))
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		exts = append(exts, trimmed)
	}
	c.Extensions = exts

	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Level = strings.ToLower(strings.TrimSpace(c.Level))
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KAITIAKI_INTAKE_DIR"); v != "" {
		cfg.IntakeDir = v
	}
	if v := os.Getenv("KAITIAKI_ARCHIVE_DIR"); v != "" {
		cfg.ArchiveDir = v
	}
	if v := os.Getenv("KAITIAKI_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv("KAITIAKI_API_BIND"); v != "" {
		cfg.APIBind = v
	}
	if v := os.Getenv("KAITIAKI_API_TOKEN"); v != "" {
		cfg.APIToken = v
	}
	if v := os.Getenv("KAITIAKI_LOG_LEVEL"); v != "" {
		cfg.Level = v
	}
	if v := os.Getenv("KAITIAKI_SCAN_INTERVAL"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.ScanInterval = parsed
		}
	}
	if v := os.Getenv("KAITIAKI_WORKER_COUNT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Workers.Count = parsed
		}
	}
}

func expandPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if trimmed == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return trimmed
	}
	if strings.HasPrefix(trimmed, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, trimmed[2:])
		}
	}
	return trimmed
}
