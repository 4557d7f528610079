// Package enum discovers the blobs a scan runs over: files on disk, blobs in
// git repositories, and caller-supplied streams.
package enum

import (
	"bytes"
	"context"
	"strings"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// BlobFunc receives one enumerated blob. Returning an error stops the
// enumeration. It may be called from several goroutines at once.
type BlobFunc func(content []byte, blobID types.BlobID, prov types.Provenance) error

// Enumerator discovers content to scan from a source.
type Enumerator interface {
	Enumerate(ctx context.Context, fn BlobFunc) error
}

// Config for enumeration.
type Config struct {
	// Root is the starting path: a directory, a single file, or a repository.
	Root string

	// IncludeHidden includes hidden files and directories (starting with .).
	IncludeHidden bool

	// IncludeBinary scans files that look binary instead of skipping them.
	IncludeBinary bool

	// MaxFileSize is the maximum file size to process (0 = no limit).
	MaxFileSize int64

	// FollowSymlinks follows symbolic links to regular files.
	FollowSymlinks bool

	// Workers bounds the number of files read concurrently (0 = GOMAXPROCS).
	Workers int
}

// isHidden checks if a filename is hidden (starts with .).
// The special entries "." and ".." are not hidden.
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}

// isBinary reports whether the first 8KB of content hold a NUL byte.
func isBinary(content []byte) bool {
	return bytes.IndexByte(content[:min(len(content), 8192)], 0) != -1
}
