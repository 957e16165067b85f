package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"kaitiaki/internal/config"
)

// WriteIntakeFile drops a document into the test config's intake directory
// and returns its path.
func WriteIntakeFile(t testing.TB, cfg *config.Config, name, content string) string {
	t.Helper()

	path := filepath.Join(cfg.IntakeDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write intake file %s: %v", name, err)
	}
	return path
}
