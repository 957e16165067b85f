package records

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"kaitiaki/internal/docstore"
)

// ContentType classifies document content by format.
type ContentType string

const (
	ContentMarkdown ContentType = "markdown"
	ContentJSON     ContentType = "json"
	ContentText     ContentType = "text"
)

// IntakeRecord represents one discovered document.
type IntakeRecord struct {
	ID           string
	SourcePath   string
	FileName     string
	ContentType  ContentType
	Content      string
	SizeBytes    int64
	DiscoveredAt time.Time
}

// BuildError describes why a file could not become a record. Build errors
// are permanent: retrying the same bytes cannot succeed.
type BuildError struct {
	Path   string
	Reason string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build record for %s: %s", e.Path, e.Reason)
}

// Builder validates intake files and derives canonical records from them.
type Builder struct {
	maxSizeBytes int64
	now          func() time.Time
}

// NewBuilder constructs a Builder enforcing the given per-file size limit.
func NewBuilder(maxSizeBytes int64) *Builder {
	return &Builder{maxSizeBytes: maxSizeBytes, now: time.Now}
}

// Build converts a file descriptor plus its content into an IntakeRecord.
// Empty files, oversized files, unparseable JSON, and invalid UTF-8 text are
// rejected with a descriptive error rather than silently skipped.
func (b *Builder) Build(fd docstore.FileDescriptor, content []byte) (*IntakeRecord, error) {
	if len(content) == 0 {
		return nil, &BuildError{Path: fd.Path, Reason: "file is empty"}
	}
	if b.maxSizeBytes > 0 && int64(len(content)) > b.maxSizeBytes {
		return nil, &BuildError{
			Path:   fd.Path,
			Reason: fmt.Sprintf("file size %d exceeds limit %d bytes", len(content), b.maxSizeBytes),
		}
	}

	contentType := TypeForPath(fd.Path)
	text := string(content)
	switch contentType {
	case ContentJSON:
		if !json.Valid(content) {
			return nil, &BuildError{Path: fd.Path, Reason: "content is not valid JSON"}
		}
	default:
		if !utf8.ValidString(text) {
			return nil, &BuildError{Path: fd.Path, Reason: "content is not valid UTF-8"}
		}
		// NFC keeps hashes stable across encoder variants of the same text.
		text = norm.NFC.String(text)
	}

	return &IntakeRecord{
		ID:           DeriveID(fd.Path, []byte(text)),
		SourcePath:   fd.Path,
		FileName:     filepath.Base(fd.Path),
		ContentType:  contentType,
		Content:      text,
		SizeBytes:    int64(len(content)),
		DiscoveredAt: b.now().UTC(),
	}, nil
}

// DeriveID computes the stable record identifier for a (path, content) pair.
// Distinct paths holding identical bytes produce distinct ids.
func DeriveID(path string, content []byte) string {
	hasher := sha256.New()
	hasher.Write([]byte(path))
	hasher.Write([]byte{0})
	hasher.Write(content)
	return "doc_" + hex.EncodeToString(hasher.Sum(nil))[:16]
}

// TypeForPath maps a file extension to its content type.
func TypeForPath(path string) ContentType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md":
		return ContentMarkdown
	case ".json":
		return ContentJSON
	default:
		return ContentText
	}
}
