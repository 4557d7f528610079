package machine

import "fmt"

// ErrorKind classifies descriptor errors.
type ErrorKind uint8

const (
	// MissingField indicates a required descriptor field is empty.
	MissingField ErrorKind = iota

	// MissingTable indicates neither transitions nor state_table was given.
	MissingTable

	// ConflictingTables indicates both transitions and state_table were given.
	ConflictingTables

	// InvalidSymbolSet indicates a transition symbol set could not be parsed.
	InvalidSymbolSet

	// Nondeterministic indicates one state has two targets for the same symbol.
	Nondeterministic

	// InvalidTable indicates the compiled table failed validation.
	InvalidTable

	// InconsistentStructuralID indicates a stored structural ID does not
	// match the table.
	InconsistentStructuralID

	// DuplicateID indicates two machines share an ID.
	DuplicateID
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case MissingField:
		return "MissingField"
	case MissingTable:
		return "MissingTable"
	case ConflictingTables:
		return "ConflictingTables"
	case InvalidSymbolSet:
		return "InvalidSymbolSet"
	case Nondeterministic:
		return "Nondeterministic"
	case InvalidTable:
		return "InvalidTable"
	case InconsistentStructuralID:
		return "InconsistentStructuralID"
	case DuplicateID:
		return "DuplicateID"
	default:
		return fmt.Sprintf("UnknownErrorKind(%d)", k)
	}
}

// DescriptorError reports a machine descriptor that cannot be used.
type DescriptorError struct {
	Kind      ErrorKind
	MachineID string
	Message   string
	Cause     error // optional underlying error
}

// Error implements the error interface.
func (e *DescriptorError) Error() string {
	id := e.MachineID
	if id == "" {
		id = "<unnamed>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("machine %s: %s: %v", id, e.Message, e.Cause)
	}
	return fmt.Sprintf("machine %s: %s", id, e.Message)
}

// Unwrap returns the underlying error.
func (e *DescriptorError) Unwrap() error {
	return e.Cause
}

// Is matches any *DescriptorError of the same kind.
func (e *DescriptorError) Is(target error) bool {
	t, ok := target.(*DescriptorError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
