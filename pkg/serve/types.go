package serve

import (
	"encoding/json"

	"github.com/praetorian-inc/dfamatch/pkg/scanner"
)

// Request types.
const (
	RequestScan      = "scan"
	RequestScanBatch = "scan_batch"
	RequestMachines  = "machines"
	RequestClose     = "close"
)

// Request is one NDJSON request line.
type Request struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ScanPayload is the payload of "scan" requests.
type ScanPayload struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// ScanBatchPayload is the payload of "scan_batch" requests.
type ScanBatchPayload struct {
	Items []scanner.ContentItem `json:"items"`
}

// Response is one NDJSON response line. Type echoes the request type, or is
// "ready" for the handshake and "decode" for unreadable input.
type Response struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ReadyData is the data of the "ready" response.
type ReadyData struct {
	Version  string `json:"version"`
	Machines int    `json:"machines"`
}

// MachineInfo describes one machine in a "machines" response.
type MachineInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	StructuralID string   `json:"structural_id"`
	States       int      `json:"states"`
	Tags         []string `json:"tags"`
}
