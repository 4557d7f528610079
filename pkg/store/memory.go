package store

import (
	"cmp"
	"slices"
	"sync"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// MemoryStore implements Store using in-memory data structures.
type MemoryStore struct {
	mu         sync.RWMutex
	blobs      map[types.BlobID]int64
	machines   map[string]*types.Machine
	matches    []*types.Match
	matchIDs   map[string]struct{} // structural IDs of stored matches
	findings   map[string]*types.Finding
	provenance map[types.BlobID][]types.Provenance
}

// NewMemory creates a new in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		blobs:      make(map[types.BlobID]int64),
		machines:   make(map[string]*types.Machine),
		matchIDs:   make(map[string]struct{}),
		findings:   make(map[string]*types.Finding),
		provenance: make(map[types.BlobID][]types.Provenance),
	}
}

// AddBlob stores a blob record.
func (m *MemoryStore) AddBlob(id types.BlobID, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.blobs[id]; !exists {
		m.blobs[id] = size
	}
	return nil
}

// AddMachine records machine metadata. A later call for the same ID replaces
// the earlier record.
func (m *MemoryStore) AddMachine(machine *types.Machine) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.machines[machine.ID] = machineMetadata(machine)
	return nil
}

// AddMatch stores a match record.
func (m *MemoryStore) AddMatch(match *types.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if match.StructuralID != "" {
		if _, exists := m.matchIDs[match.StructuralID]; exists {
			return nil
		}
		m.matchIDs[match.StructuralID] = struct{}{}
	}
	m.matches = append(m.matches, match)
	return nil
}

// AddFinding stores a finding (deduplicated).
func (m *MemoryStore) AddFinding(f *types.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.findings[f.ID]; !exists {
		m.findings[f.ID] = f
	}
	return nil
}

// AddProvenance associates provenance with a blob.
func (m *MemoryStore) AddProvenance(blobID types.BlobID, prov types.Provenance) error {
	row, err := provenanceRowOf(blobID, prov)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.provenance[blobID] {
		other, _ := provenanceRowOf(blobID, existing)
		if other.key() == row.key() {
			return nil
		}
	}
	m.provenance[blobID] = append(m.provenance[blobID], prov)
	return nil
}

// GetMatches retrieves matches for a blob.
func (m *MemoryStore) GetMatches(blobID types.BlobID) ([]*types.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*types.Match{}
	for _, match := range m.matches {
		if match.BlobID == blobID {
			result = append(result, match)
		}
	}
	sortMatches(result)
	return result, nil
}

// GetAllMatches retrieves all matches.
func (m *MemoryStore) GetAllMatches() ([]*types.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := slices.Clone(m.matches)
	if result == nil {
		result = []*types.Match{}
	}
	sortMatches(result)
	return result, nil
}

// GetFindings retrieves all findings ordered by machine and ID.
func (m *MemoryStore) GetFindings() ([]*types.Finding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*types.Finding, 0, len(m.findings))
	for _, finding := range m.findings {
		result = append(result, finding)
	}
	slices.SortFunc(result, func(a, b *types.Finding) int {
		return cmp.Or(cmp.Compare(a.MachineID, b.MachineID), cmp.Compare(a.ID, b.ID))
	})
	return result, nil
}

// GetMachines retrieves recorded machines ordered by ID.
func (m *MemoryStore) GetMachines() ([]*types.Machine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*types.Machine, 0, len(m.machines))
	for _, machine := range m.machines {
		result = append(result, machine)
	}
	slices.SortFunc(result, func(a, b *types.Machine) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

// GetProvenance retrieves all provenance records for a blob.
func (m *MemoryStore) GetProvenance(blobID types.BlobID) ([]types.Provenance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := slices.Clone(m.provenance[blobID])
	if result == nil {
		result = []types.Provenance{}
	}
	return result, nil
}

// FindingExists checks if a finding with this ID exists.
func (m *MemoryStore) FindingExists(id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.findings[id]
	return exists, nil
}

// BlobExists checks if a blob has already been scanned.
func (m *MemoryStore) BlobExists(id types.BlobID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.blobs[id]
	return exists, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

// machineMetadata copies the descriptor fields of a machine without its table.
func machineMetadata(m *types.Machine) *types.Machine {
	return &types.Machine{
		ID:           m.ID,
		Name:         m.Name,
		Description:  m.Description,
		Pattern:      m.Pattern,
		StructuralID: m.StructuralID,
		Keywords:     slices.Clone(m.Keywords),
		Categories:   slices.Clone(m.Categories),
		References:   slices.Clone(m.References),
	}
}

func sortMatches(matches []*types.Match) {
	slices.SortStableFunc(matches, func(a, b *types.Match) int {
		return cmp.Or(
			cmp.Compare(a.BlobID.Hex(), b.BlobID.Hex()),
			cmp.Compare(a.Location.Offset.Start, b.Location.Offset.Start),
			cmp.Compare(a.Location.Offset.End, b.Location.Offset.End),
			cmp.Compare(a.MachineID, b.MachineID),
		)
	})
}
