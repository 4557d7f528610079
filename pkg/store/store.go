package store

import (
	"fmt"
	"strings"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// MemoryPath selects the in-memory backend.
const MemoryPath = ":memory:"

// Store provides persistence for scan results.
// The backend is chosen from Config.Path by New.
type Store interface {
	// AddBlob stores a blob record. Adding a blob twice is a no-op.
	AddBlob(id types.BlobID, size int64) error

	// AddMachine records the metadata of a machine used in a scan.
	AddMachine(m *types.Machine) error

	// AddMatch stores a match record, deduplicated on its structural ID.
	AddMatch(m *types.Match) error

	// AddFinding stores a finding, deduplicated on its ID.
	AddFinding(f *types.Finding) error

	// AddProvenance associates provenance with a blob.
	AddProvenance(blobID types.BlobID, prov types.Provenance) error

	// GetMatches retrieves matches for a blob ordered by offset.
	GetMatches(blobID types.BlobID) ([]*types.Match, error)

	// GetAllMatches retrieves every stored match.
	GetAllMatches() ([]*types.Match, error)

	// GetFindings retrieves all findings.
	GetFindings() ([]*types.Finding, error)

	// GetMachines retrieves the recorded machine metadata. The returned
	// machines carry no transition table.
	GetMachines() ([]*types.Machine, error)

	// GetProvenance retrieves every provenance record of a blob.
	GetProvenance(blobID types.BlobID) ([]types.Provenance, error)

	// FindingExists checks if a finding with this ID exists.
	FindingExists(id string) (bool, error)

	// BlobExists checks if a blob has already been scanned.
	BlobExists(id types.BlobID) (bool, error)

	// Close releases the backend.
	Close() error
}

// Config for store initialization.
type Config struct {
	// Path is a SQLite file path, a postgres:// DSN, or ":memory:".
	Path string
}

// New creates a Store for cfg.Path.
func New(cfg Config) (Store, error) {
	switch {
	case cfg.Path == "":
		return nil, fmt.Errorf("path is required")
	case cfg.Path == MemoryPath:
		return NewMemory(), nil
	case IsPostgresDSN(cfg.Path):
		return NewPostgres(cfg.Path)
	default:
		return NewSQLite(cfg.Path)
	}
}

// IsPostgresDSN reports whether path is a PostgreSQL connection URL.
func IsPostgresDSN(path string) bool {
	return strings.HasPrefix(path, "postgres://") || strings.HasPrefix(path, "postgresql://")
}
