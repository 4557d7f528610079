package statemachine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		dfa  DFA[byte, string]
		kind ErrorKind
		ok   bool
	}{
		{
			name: "valid",
			dfa:  aPlus(),
			ok:   true,
		},
		{
			name: "only fail state",
			dfa:  DFA[byte, string]{StateTable: []Transitions[byte]{{}}},
			kind: MissingState,
		},
		{
			name: "transition out of range",
			dfa: DFA[byte, string]{
				StateTable: []Transitions[byte]{{}, {'a': 5}},
			},
			kind: StateOutOfRange,
		},
		{
			name: "accepting fail state",
			dfa: DFA[byte, string]{
				StateTable: []Transitions[byte]{{}, {'a': 1}},
				Accepting:  []bool{true, false},
			},
			kind: AcceptingFailState,
		},
		{
			name: "accepting longer than table",
			dfa: DFA[byte, string]{
				StateTable: []Transitions[byte]{{}, {}},
				Accepting:  []bool{false, false, true},
			},
			kind: MisalignedTable,
		},
		{
			name: "tags longer than table",
			dfa: DFA[byte, string]{
				StateTable: []Transitions[byte]{{}, {}},
				Tags:       [][]string{nil, nil, {"x"}},
			},
			kind: MisalignedTable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.dfa)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)

			var tableErr *TableError
			require.True(t, errors.As(err, &tableErr))
			assert.Equal(t, tt.kind, tableErr.Kind)
			assert.True(t, errors.Is(err, &TableError{Kind: tt.kind}))
		})
	}
}

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "MissingState", MissingState.String())
	assert.Equal(t, "StateOutOfRange", StateOutOfRange.String())
	assert.Equal(t, "AcceptingFailState", AcceptingFailState.String())
	assert.Equal(t, "MisalignedTable", MisalignedTable.String())
	assert.Equal(t, "UnknownErrorKind(99)", ErrorKind(99).String())
}
