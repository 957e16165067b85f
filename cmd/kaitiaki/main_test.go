package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
intake_dir = %q
archive_dir = %q
log_dir = %q
api_bind = "127.0.0.1:0"
`, filepath.Join(base, "intake"), filepath.Join(base, "archive"), filepath.Join(base, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootHelpListsCommands(t *testing.T) {
	output, err := runCommand(t)
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, name := range []string{"status", "scan", "documents", "queue", "logs", "config"} {
		if !strings.Contains(output, name) {
			t.Errorf("help output missing %q", name)
		}
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	output, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v\n%s", err, output)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("sample not written: %v", err)
	}
	if !strings.Contains(string(data), "intake_dir") {
		t.Fatalf("sample config missing expected keys:\n%s", data)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected failure without --overwrite")
	}
}

func TestQueueListEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	output, err := runCommand(t, "--config", configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Queue is empty.") {
		t.Fatalf("unexpected output: %s", output)
	}
}

func TestQueueListRejectsUnknownStatus(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, err := runCommand(t, "--config", configPath, "queue", "list", "--status", "bogus"); err == nil {
		t.Fatal("expected unknown status error")
	}
}

func TestStatusFailsWithoutDaemon(t *testing.T) {
	configPath := writeTestConfig(t)

	// Port 0 is never dialable, so the client must surface a clear error.
	if _, err := runCommand(t, "--config", configPath, "status"); err == nil {
		t.Fatal("expected connection error without a running daemon")
	}
}
