package types

// Snippet contains context around a match.
type Snippet struct {
	Before   []byte // context lines preceding the run
	Matching []byte // the matched run
	After    []byte // context lines following the run
}

// Len returns the combined length of all three parts.
func (s Snippet) Len() int {
	return len(s.Before) + len(s.Matching) + len(s.After)
}
