package scanner

import (
	"fmt"

	"github.com/praetorian-inc/dfamatch/pkg/store"
	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// Persist records a scanned blob in s: the blob, its provenance, every match
// and the finding each match belongs to. prov may be nil.
func Persist(s store.Store, content []byte, blobID types.BlobID, prov types.Provenance, matches []*types.Match) error {
	if err := s.AddBlob(blobID, int64(len(content))); err != nil {
		return err
	}
	if prov != nil {
		if err := s.AddProvenance(blobID, prov); err != nil {
			return err
		}
	}

	for _, m := range matches {
		if err := s.AddMatch(m); err != nil {
			return fmt.Errorf("storing match of %s: %w", m.MachineID, err)
		}
		if m.FindingID == "" {
			continue
		}
		err := s.AddFinding(&types.Finding{
			ID:        m.FindingID,
			MachineID: m.MachineID,
			Tags:      m.Tags,
			Content:   m.Snippet.Matching,
		})
		if err != nil {
			return fmt.Errorf("storing finding of %s: %w", m.MachineID, err)
		}
	}
	return nil
}
