package types

import (
	"crypto/sha1"
	"encoding/hex"
	"slices"
	"strconv"

	"github.com/praetorian-inc/dfamatch/pkg/statemachine"
)

// Machine is a precompiled DFA over bytes together with its descriptor
// metadata.
type Machine struct {
	ID               string   // e.g., "dfa.number.1"
	Name             string   // human-readable name
	Description      string   // optional
	Pattern          string   // source pattern the DFA was compiled from, optional
	StructuralID     string   // SHA-1 of the canonical table (computed)
	Keywords         []string // literals for Aho-Corasick prefiltering
	Categories       []string // classification tags
	Examples         []string // inputs that must produce a match
	NegativeExamples []string // inputs that must not produce a match
	References       []string // documentation URLs

	DFA statemachine.DFA[byte, string] `json:"-"`
}

// NumStates returns the number of rows in the transition table.
func (m *Machine) NumStates() int {
	return len(m.DFA.StateTable)
}

// AcceptingStates returns the accepting state ids in ascending order.
func (m *Machine) AcceptingStates() []statemachine.StateID {
	var states []statemachine.StateID
	for i, ok := range m.DFA.Accepting {
		if ok {
			states = append(states, statemachine.StateID(i))
		}
	}
	return states
}

// TagNames returns every distinct tag in order of first appearance.
func (m *Machine) TagNames() []string {
	var names []string
	for _, tags := range m.DFA.Tags {
		for _, tag := range tags {
			if !slices.Contains(names, tag) {
				names = append(names, tag)
			}
		}
	}
	return names
}

// ComputeStructuralID computes SHA-1 over the canonical form of the DFA:
// per state, its transitions sorted by symbol, its accepting flag and its
// tags. Metadata does not contribute, so two descriptors that compile to the
// same automaton share an ID.
func (m *Machine) ComputeStructuralID() string {
	h := sha1.New()
	buf := make([]byte, 0, 64)

	for state, row := range m.DFA.StateTable {
		buf = append(buf[:0], 's')
		buf = strconv.AppendInt(buf, int64(state), 10)
		buf = append(buf, 0)

		symbols := make([]byte, 0, len(row))
		for symbol := range row {
			symbols = append(symbols, symbol)
		}
		slices.Sort(symbols)
		for _, symbol := range symbols {
			buf = append(buf, symbol, ':')
			buf = strconv.AppendUint(buf, uint64(row[symbol]), 10)
			buf = append(buf, ',')
		}
		buf = append(buf, 0)

		if state < len(m.DFA.Accepting) && m.DFA.Accepting[state] {
			buf = append(buf, 'a')
		}
		buf = append(buf, 0)

		if state < len(m.DFA.Tags) {
			for _, tag := range m.DFA.Tags[state] {
				buf = append(buf, tag...)
				buf = append(buf, 0x1f)
			}
		}
		buf = append(buf, '\n')
		h.Write(buf)
	}

	return hex.EncodeToString(h.Sum(nil))
}
