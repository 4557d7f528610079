package machine

import (
	"fmt"
	"strconv"

	"github.com/praetorian-inc/dfamatch/pkg/statemachine"
)

// maxStates bounds the table size a descriptor may request.
const maxStates = 1 << 20

// byteDFA is the automaton form used for scanning content.
type byteDFA = statemachine.DFA[byte, string]

// compile builds the transition table, accepting mask and tag list for a
// descriptor and validates the result.
func compile(ym yamlMachine) (byteDFA, error) {
	fail := func(kind ErrorKind, cause error, format string, args ...any) (byteDFA, error) {
		return byteDFA{}, &DescriptorError{
			Kind:      kind,
			MachineID: ym.ID,
			Message:   fmt.Sprintf(format, args...),
			Cause:     cause,
		}
	}

	switch {
	case len(ym.Transitions) > 0 && len(ym.StateTable) > 0:
		return fail(ConflictingTables, nil, "transitions and state_table are mutually exclusive")
	case len(ym.Transitions) == 0 && len(ym.StateTable) == 0:
		return fail(MissingTable, nil, "one of transitions or state_table is required")
	}

	tags := make(map[statemachine.StateID][]string, len(ym.Tags))
	for key, list := range ym.Tags {
		state, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return fail(InvalidTable, err, "tag key %q is not a state id", key)
		}
		tags[statemachine.StateID(state)] = list
	}

	n := numStates(ym, tags)
	if n > maxStates {
		return fail(InvalidTable, nil, "%d states exceeds the limit of %d", n, maxStates)
	}

	dfa := byteDFA{
		StateTable: make([]statemachine.Transitions[byte], n),
		Accepting:  make([]bool, n),
		Tags:       make([][]string, n),
	}
	for i := range dfa.StateTable {
		dfa.StateTable[i] = statemachine.Transitions[byte]{}
	}

	for state, row := range ym.StateTable {
		if len(row) > 256 {
			return fail(InvalidSymbolSet, nil, "state_table row %d has %d columns, symbols are bytes", state, len(row))
		}
		for symbol, to := range row {
			if statemachine.StateID(to) != statemachine.FailState {
				dfa.StateTable[state][byte(symbol)] = statemachine.StateID(to)
			}
		}
	}

	for _, tr := range ym.Transitions {
		symbols, err := ParseSymbolSet(tr.Symbols)
		if err != nil {
			return fail(InvalidSymbolSet, err, "transition %d->%d", tr.From, tr.To)
		}
		row := dfa.StateTable[tr.From]
		to := statemachine.StateID(tr.To)
		for _, c := range symbols {
			if prev, ok := row[c]; ok && prev != to {
				return fail(Nondeterministic, nil, "state %d on %s goes to both %d and %d",
					tr.From, formatSymbol(c), prev, to)
			}
			row[c] = to
		}
	}

	for _, state := range ym.Accepting {
		dfa.Accepting[state] = true
	}
	for state, list := range tags {
		dfa.Tags[state] = list
	}

	if err := statemachine.Validate(dfa); err != nil {
		return fail(InvalidTable, err, "invalid table")
	}
	return dfa, nil
}

// numStates returns one more than the highest state id the descriptor
// mentions, and never less than enough rows for the fail and initial states.
func numStates(ym yamlMachine, tags map[statemachine.StateID][]string) int {
	highest := int(statemachine.InitialState)
	see := func(id int) {
		if id > highest {
			highest = id
		}
	}

	see(len(ym.StateTable) - 1)
	for _, row := range ym.StateTable {
		for _, to := range row {
			see(int(to))
		}
	}
	for _, tr := range ym.Transitions {
		see(int(tr.From))
		see(int(tr.To))
	}
	for _, state := range ym.Accepting {
		see(int(state))
	}
	for state := range tags {
		see(int(state))
	}
	return highest + 1
}
