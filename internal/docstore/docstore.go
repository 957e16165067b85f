package docstore

import "time"

// FileDescriptor identifies one candidate file in the watched directory.
type FileDescriptor struct {
	Path      string
	Name      string
	SizeBytes int64
	Modified  time.Time
}

// Store is the scanner's view of the watched directory.
//
// ListCandidates returns the current candidate files. Read returns a file's
// bytes. Archive moves a file out of the watched set after its tasks have
// been durably enqueued; archiving an already-archived file is a no-op so
// the operation is safe to retry after a crash.
type Store interface {
	ListCandidates() ([]FileDescriptor, error)
	Read(path string) ([]byte, error)
	Archive(path string) error
}
