package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

func TestDeduplicator_ByLocation(t *testing.T) {
	d := NewDeduplicator(DedupeByLocation)
	assert.Equal(t, DedupeByLocation, d.Mode())

	a := &types.Match{StructuralID: "loc1", FindingID: "same"}
	b := &types.Match{StructuralID: "loc2", FindingID: "same"}

	assert.True(t, d.Keep(a))
	assert.False(t, d.Keep(a))
	assert.True(t, d.Keep(b))
}

func TestDeduplicator_ByContent(t *testing.T) {
	d := NewDeduplicator(DedupeByContent)

	a := &types.Match{StructuralID: "loc1", FindingID: "same"}
	b := &types.Match{StructuralID: "loc2", FindingID: "same"}
	c := &types.Match{StructuralID: "loc3", FindingID: "other"}

	assert.True(t, d.Keep(a))
	assert.False(t, d.Keep(b))
	assert.True(t, d.Keep(c))
}
