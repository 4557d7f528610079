package statemachine

import "fmt"

// Validate checks that dfa can be scanned without out-of-range lookups.
// New does not call it; loaders should, before handing tables to New.
func Validate[S comparable, T comparable](dfa DFA[S, T]) error {
	n := len(dfa.StateTable)
	if n <= int(InitialState) {
		return &TableError{
			Kind:    MissingState,
			State:   StateID(n),
			Message: fmt.Sprintf("table has %d rows, need at least %d", n, InitialState+1),
		}
	}

	if len(dfa.Accepting) > n {
		return &TableError{
			Kind:    MisalignedTable,
			State:   StateID(len(dfa.Accepting) - 1),
			Message: fmt.Sprintf("accepting has %d entries for %d states", len(dfa.Accepting), n),
		}
	}
	if len(dfa.Tags) > n {
		return &TableError{
			Kind:    MisalignedTable,
			State:   StateID(len(dfa.Tags) - 1),
			Message: fmt.Sprintf("tags has %d entries for %d states", len(dfa.Tags), n),
		}
	}

	if len(dfa.Accepting) > 0 && dfa.Accepting[FailState] {
		return &TableError{
			Kind:    AcceptingFailState,
			State:   FailState,
			Message: "fail state cannot be accepting",
		}
	}

	for from, row := range dfa.StateTable {
		for symbol, to := range row {
			if int(to) >= n {
				return &TableError{
					Kind:    StateOutOfRange,
					State:   StateID(from),
					Message: fmt.Sprintf("transition on %v targets state %d of %d", symbol, to, n),
				}
			}
		}
	}

	return nil
}
