// Package statemachine runs precompiled deterministic finite automata over
// symbol sequences.
//
// A DFA is described by a transition table, an accepting-state mask and a
// list of tags per state. Match scans an input once, left to right, and
// reports the maximal non-overlapping runs that end in an accepting state.
// When a run cannot continue, the symbol that broke it is retried from the
// initial state so a new run may begin on it.
//
// The machine holds no per-scan state. A single Machine can be shared by any
// number of goroutines as long as the tables it references are not mutated.
package statemachine

// StateID identifies a state in a DFA transition table.
type StateID uint32

const (
	// FailState is the dead state. A transition that is not present in the
	// table leads here.
	FailState StateID = 0

	// InitialState is where every scan and every restarted run begins.
	InitialState StateID = 1
)

// Transitions is one row of a transition table: symbol to next state.
// Symbols without an entry transition to FailState.
type Transitions[S comparable] map[S]StateID

// DFA is a precompiled automaton. StateTable, Accepting and Tags are all
// indexed by StateID.
//
// Accepting and Tags may be shorter than StateTable; states past their end
// are non-accepting and carry no tags.
type DFA[S comparable, T comparable] struct {
	StateTable []Transitions[S]
	Accepting  []bool
	Tags       [][]T
}

// Machine scans symbol sequences with a DFA.
type Machine[S comparable, T comparable] struct {
	stateTable []Transitions[S]
	accepting  []bool
	tags       [][]T
}

// New returns a Machine for dfa. The tables are referenced, not copied, and
// are not validated; see Validate.
func New[S comparable, T comparable](dfa DFA[S, T]) *Machine[S, T] {
	return &Machine[S, T]{
		stateTable: dfa.StateTable,
		accepting:  dfa.Accepting,
		tags:       dfa.Tags,
	}
}

// NumStates returns the number of rows in the transition table.
func (m *Machine[S, T]) NumStates() int {
	return len(m.stateTable)
}

// Next returns the state reached from state on symbol.
// It panics if state has no row in the transition table.
func (m *Machine[S, T]) Next(state StateID, symbol S) StateID {
	return m.stateTable[state][symbol]
}

// IsAccepting reports whether state is an accepting state.
func (m *Machine[S, T]) IsAccepting(state StateID) bool {
	return int(state) < len(m.accepting) && m.accepting[state]
}

// TagsOf returns the tags attached to state, or nil.
func (m *Machine[S, T]) TagsOf(state StateID) []T {
	if int(state) >= len(m.tags) {
		return nil
	}
	return m.tags[state]
}
