package explore

import (
	"fmt"
	"os"

	"github.com/praetorian-inc/dfamatch/pkg/store"
	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// findingRow is the view model of one finding: a distinct tagged content
// produced by one machine.
type findingRow struct {
	FindingID   string
	MachineID   string
	MachineName string
	Categories  []string
	Tags        []string
	Content     []byte
	Matches     []*matchRow
}

// matchRow is the view model of one located match.
type matchRow struct {
	StructuralID string
	BlobID       types.BlobID
	Tags         []string
	Location     types.Location
	Snippet      types.Snippet
	Provenance   []types.Provenance
}

// exploreData holds everything the TUI shows.
type exploreData struct {
	store    store.Store
	findings []*findingRow
}

// loadData opens the datastore at path (a SQLite file or postgres DSN) and
// builds the finding rows.
func loadData(path string) (*exploreData, error) {
	if path == store.MemoryPath {
		return nil, fmt.Errorf("cannot explore an in-memory store")
	}
	if !store.IsPostgresDSN(path) {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("datastore not found: %s", path)
		}
	}

	s, err := store.New(store.Config{Path: path})
	if err != nil {
		return nil, fmt.Errorf("opening datastore: %w", err)
	}

	rows, err := buildRows(s)
	if err != nil {
		s.Close()
		return nil, err
	}
	return &exploreData{store: s, findings: rows}, nil
}

// buildRows joins findings with their machines, matches and provenance.
func buildRows(s store.Store) ([]*findingRow, error) {
	findings, err := s.GetFindings()
	if err != nil {
		return nil, fmt.Errorf("retrieving findings: %w", err)
	}
	matches, err := s.GetAllMatches()
	if err != nil {
		return nil, fmt.Errorf("retrieving matches: %w", err)
	}
	machines, err := s.GetMachines()
	if err != nil {
		return nil, fmt.Errorf("retrieving machines: %w", err)
	}

	byID := make(map[string]*types.Machine, len(machines))
	for _, m := range machines {
		byID[m.ID] = m
	}

	byFinding := make(map[string][]*types.Match)
	for _, m := range matches {
		byFinding[m.FindingID] = append(byFinding[m.FindingID], m)
	}

	provenance := make(map[types.BlobID][]types.Provenance)
	rows := make([]*findingRow, 0, len(findings))
	for _, f := range findings {
		row := buildFindingRow(f, byID[f.MachineID])
		for _, m := range byFinding[f.ID] {
			provs, ok := provenance[m.BlobID]
			if !ok {
				if provs, err = s.GetProvenance(m.BlobID); err != nil {
					return nil, fmt.Errorf("retrieving provenance of %s: %w", m.BlobID, err)
				}
				provenance[m.BlobID] = provs
			}
			row.Matches = append(row.Matches, buildMatchRow(m, provs))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func buildFindingRow(f *types.Finding, m *types.Machine) *findingRow {
	row := &findingRow{
		FindingID:   f.ID,
		MachineID:   f.MachineID,
		MachineName: f.MachineID,
		Tags:        f.Tags,
		Content:     f.Content,
	}
	if m != nil {
		if m.Name != "" {
			row.MachineName = m.Name
		}
		row.Categories = m.Categories
	}
	return row
}

func buildMatchRow(m *types.Match, provs []types.Provenance) *matchRow {
	return &matchRow{
		StructuralID: m.StructuralID,
		BlobID:       m.BlobID,
		Tags:         m.Tags,
		Location:     m.Location,
		Snippet:      m.Snippet,
		Provenance:   provs,
	}
}

func (d *exploreData) close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
