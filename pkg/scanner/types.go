package scanner

import "github.com/praetorian-inc/dfamatch/pkg/types"

// ContentItem is one piece of content to scan.
type ContentItem struct {
	Source   string            `json:"source"`   // e.g., "stdin", "file:src/main.c"
	Content  string            `json:"content"`  // the content to scan
	Metadata map[string]string `json:"metadata"` // optional, kept in the provenance
}

// ScanResult holds the matches of a single item. Error is set, and Matches
// empty, when the item could not be scanned.
type ScanResult struct {
	Source  string         `json:"source"`
	BlobID  types.BlobID   `json:"blob_id"`
	Matches []*types.Match `json:"matches"`
	Error   string         `json:"error,omitempty"`
}

// BatchScanResult holds the results of a batch in item order.
type BatchScanResult struct {
	Results []ScanResult `json:"results"`
	Total   int          `json:"total"`
	Failed  int          `json:"failed"`
}
