package docstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore implements Store over a local intake directory with a sibling
// archive directory.
type FSStore struct {
	intakeDir  string
	archiveDir string
	extensions map[string]struct{}
}

// NewFSStore constructs a filesystem-backed Store. Only files whose
// lowercase extension appears in extensions are listed.
func NewFSStore(intakeDir, archiveDir string, extensions []string) *FSStore {
	extSet := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = struct{}{}
	}
	return &FSStore{
		intakeDir:  intakeDir,
		archiveDir: archiveDir,
		extensions: extSet,
	}
}

// IntakeDir returns the watched directory path.
func (s *FSStore) IntakeDir() string { return s.intakeDir }

// ListCandidates returns the intake files matching the configured
// extensions, ordered by name for deterministic cycles.
func (s *FSStore) ListCandidates() ([]FileDescriptor, error) {
	entries, err := os.ReadDir(s.intakeDir)
	if err != nil {
		return nil, fmt.Errorf("list intake directory: %w", err)
	}

	var files []FileDescriptor
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := s.extensions[ext]; !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// File vanished between ReadDir and Info; the next cycle
			// picks it up if it reappears.
			continue
		}
		files = append(files, FileDescriptor{
			Path:      filepath.Join(s.intakeDir, entry.Name()),
			Name:      entry.Name(),
			SizeBytes: info.Size(),
			Modified:  info.ModTime().UTC(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Read returns the content of an intake file.
func (s *FSStore) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read intake file: %w", err)
	}
	return data, nil
}

// Archive moves a file from the intake directory to the archive directory.
// A source that is already gone while the archived copy exists counts as
// done, so a crashed cycle can repeat the call without error.
func (s *FSStore) Archive(path string) error {
	if err := os.MkdirAll(s.archiveDir, 0o755); err != nil {
		return fmt.Errorf("ensure archive directory: %w", err)
	}
	target := filepath.Join(s.archiveDir, filepath.Base(path))

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if _, archErr := os.Stat(target); archErr == nil {
			return nil
		}
		return fmt.Errorf("archive %s: source missing and no archived copy", path)
	}

	if err := os.Rename(path, target); err != nil {
		// Rename fails across filesystems; fall back to copy + remove.
		if copyErr := copyFile(path, target); copyErr != nil {
			return fmt.Errorf("archive %s: %w", path, copyErr)
		}
		if rmErr := os.Remove(path); rmErr != nil {
			return fmt.Errorf("remove archived source %s: %w", path, rmErr)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
