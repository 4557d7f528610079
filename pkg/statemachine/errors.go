package statemachine

import "fmt"

// ErrorKind classifies table validation errors.
type ErrorKind uint8

const (
	// MissingState indicates the table lacks the fail or initial state row.
	MissingState ErrorKind = iota

	// StateOutOfRange indicates a transition targets a state with no row.
	StateOutOfRange

	// AcceptingFailState indicates FailState is marked accepting.
	AcceptingFailState

	// MisalignedTable indicates Accepting or Tags has more entries than
	// StateTable has rows.
	MisalignedTable
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case MissingState:
		return "MissingState"
	case StateOutOfRange:
		return "StateOutOfRange"
	case AcceptingFailState:
		return "AcceptingFailState"
	case MisalignedTable:
		return "MisalignedTable"
	default:
		return fmt.Sprintf("UnknownErrorKind(%d)", k)
	}
}

// TableError describes a malformed DFA.
type TableError struct {
	Kind    ErrorKind
	State   StateID
	Message string
}

// Error implements the error interface.
func (e *TableError) Error() string {
	return fmt.Sprintf("invalid DFA (%s, state %d): %s", e.Kind, e.State, e.Message)
}

// Is matches any *TableError of the same kind.
func (e *TableError) Is(target error) bool {
	t, ok := target.(*TableError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
