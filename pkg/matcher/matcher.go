// Package matcher runs a set of machines over blobs and turns the runs they
// report into located, de-duplicated matches.
package matcher

import "github.com/praetorian-inc/dfamatch/pkg/types"

// Matcher scans content for machine matches.
type Matcher interface {
	// Match scans content against all loaded machines.
	Match(content []byte) ([]*types.Match, error)

	// MatchWithBlobID scans content with a known BlobID.
	MatchWithBlobID(content []byte, blobID types.BlobID) ([]*types.Match, error)

	// Close releases resources.
	Close() error
}

// MachineMatcher is the only Matcher implementation.
var _ Matcher = (*MachineMatcher)(nil)
