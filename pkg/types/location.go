package types

// OffsetSpan is a half-open byte range: Start is the first matched byte,
// End is one past the last.
type OffsetSpan struct {
	Start int64
	End   int64
}

// InclusiveSpan converts a run as reported by the state machine, whose end
// index is inclusive, into an OffsetSpan.
func InclusiveSpan(start, end int) OffsetSpan {
	return OffsetSpan{Start: int64(start), End: int64(end) + 1}
}

// Len returns the number of bytes in the span.
func (s OffsetSpan) Len() int64 {
	return s.End - s.Start
}

// SourcePoint is a 1-based line and column.
type SourcePoint struct {
	Line   int
	Column int
}

// SourceSpan runs from the first matched byte's position to the last one's.
type SourceSpan struct {
	Start SourcePoint
	End   SourcePoint
}

// Location places a match within its blob, both as bytes and as text
// coordinates.
type Location struct {
	Offset OffsetSpan
	Source SourceSpan
}
