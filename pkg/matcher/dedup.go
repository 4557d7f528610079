package matcher

import "github.com/praetorian-inc/dfamatch/pkg/types"

// DedupeMode controls how matches are deduplicated.
type DedupeMode int

const (
	// DedupeByLocation keeps every distinct (machine, blob, offset) match.
	DedupeByLocation DedupeMode = iota

	// DedupeByContent keeps one match per (machine, tags, matched bytes)
	// within a blob.
	DedupeByContent
)

// Deduplicator removes duplicate matches within one scan. It is not safe
// for concurrent use.
type Deduplicator struct {
	seen map[string]struct{}
	mode DedupeMode
}

// NewDeduplicator creates a deduplicator for mode.
func NewDeduplicator(mode DedupeMode) *Deduplicator {
	return &Deduplicator{
		seen: make(map[string]struct{}),
		mode: mode,
	}
}

// Mode returns the deduplication mode.
func (d *Deduplicator) Mode() DedupeMode {
	return d.mode
}

// Keep reports whether m has not been seen before and marks it seen.
func (d *Deduplicator) Keep(m *types.Match) bool {
	key := d.key(m)
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

func (d *Deduplicator) key(m *types.Match) string {
	if d.mode == DedupeByContent {
		return m.FindingID
	}
	return m.StructuralID
}
