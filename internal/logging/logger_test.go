package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(level string) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(level))
	return slog.New(newConsoleHandler(&buf, levelVar)), &buf
}

func TestConsoleHandlerFormatsLine(t *testing.T) {
	logger, buf := newBufferLogger("info")
	logger = WithComponent(logger, "scanner")

	logger.Info("cycle complete", Int("seen", 3), String("note", "two words"))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, " INFO scanner: cycle complete") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "seen=3") {
		t.Fatalf("missing seen attr: %q", line)
	}
	if !strings.Contains(line, `note="two words"`) {
		t.Fatalf("expected quoted value: %q", line)
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	logger, buf := newBufferLogger("warn")
	logger.Info("hidden")
	logger.Warn("visible", Error(errors.New("boom")))

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Fatalf("info line should be suppressed: %q", output)
	}
	if !strings.Contains(output, "visible") || !strings.Contains(output, "error=boom") {
		t.Fatalf("warn line malformed: %q", output)
	}
}

func TestNoopHandlerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("noop logger should report disabled")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
