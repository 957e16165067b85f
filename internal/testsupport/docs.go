package testsupport

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"kaitiaki/internal/docstore"
)

// MemoryDocs is an in-memory docstore.Store fake for scanner tests.
// Read failures can be injected per path to exercise partial-failure
// isolation without touching the filesystem.
type MemoryDocs struct {
	mu       sync.Mutex
	files    map[string][]byte
	readErrs map[string]error
	archived map[string][]byte
}

// NewMemoryDocs constructs an empty fake document store.
func NewMemoryDocs() *MemoryDocs {
	return &MemoryDocs{
		files:    make(map[string][]byte),
		readErrs: make(map[string]error),
		archived: make(map[string][]byte),
	}
}

// Add places a file in the watched set.
func (m *MemoryDocs) Add(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = content
}

// FailRead makes Read return err for the given path.
func (m *MemoryDocs) FailRead(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErrs[path] = err
}

// Archived reports whether a path has been archived.
func (m *MemoryDocs) Archived(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.archived[path]
	return ok
}

func (m *MemoryDocs) ListCandidates() ([]docstore.FileDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths := make([]string, 0, len(m.files))
	for path := range m.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	descriptors := make([]docstore.FileDescriptor, 0, len(paths))
	for _, path := range paths {
		descriptors = append(descriptors, docstore.FileDescriptor{
			Path:      path,
			Name:      path,
			SizeBytes: int64(len(m.files[path])),
			Modified:  time.Now().UTC(),
		})
	}
	return descriptors, nil
}

func (m *MemoryDocs) Read(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.readErrs[path]; ok {
		return nil, err
	}
	content, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("read %s: not found", path)
	}
	return content, nil
}

func (m *MemoryDocs) Archive(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	content, ok := m.files[path]
	if !ok {
		if _, archived := m.archived[path]; archived {
			return nil
		}
		return fmt.Errorf("archive %s: not found", path)
	}
	m.archived[path] = content
	delete(m.files, path)
	return nil
}
