package types

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
)

// Match is a single tagged run found in a blob.
type Match struct {
	BlobID       BlobID
	StructuralID string // SHA-1(machine_structural_id + '\0' + blob_id + '\0' + start + '\0' + end)
	FindingID    string // SHA-1(machine_structural_id + '\0' + json(tags) + '\0' + content)
	MachineID    string // e.g., "dfa.number.1"
	MachineName  string
	Tags         []string // tags of the state that closed the run
	Location     Location
	Snippet      Snippet
}

// ComputeStructuralID computes the location-based unique ID.
func (m *Match) ComputeStructuralID(machineStructuralID string) string {
	h := sha1.New()

	h.Write([]byte(machineStructuralID))
	h.Write([]byte{0})

	h.Write(m.BlobID[:])
	h.Write([]byte{0})

	h.Write(strconv.AppendInt(nil, m.Location.Offset.Start, 10))
	h.Write([]byte{0})

	h.Write(strconv.AppendInt(nil, m.Location.Offset.End, 10))

	return hex.EncodeToString(h.Sum(nil))
}

// HasTag reports whether tag is among the match tags.
func (m *Match) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
