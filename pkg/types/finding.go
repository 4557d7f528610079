package types

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
)

// Finding groups matches of the same machine with the same tags and the
// same matched content.
type Finding struct {
	ID        string // SHA-1(machine_structural_id + '\0' + json(tags) + '\0' + content)
	MachineID string
	Tags      []string
	Content   []byte
	Matches   []*Match
}

// ComputeFindingID computes the content-based finding ID.
func ComputeFindingID(machineStructuralID string, tags []string, content []byte) string {
	h := sha1.New()

	h.Write([]byte(machineStructuralID))
	h.Write([]byte{0})

	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)
	h.Write(tagsJSON)
	h.Write([]byte{0})

	h.Write(content)

	return hex.EncodeToString(h.Sum(nil))
}
