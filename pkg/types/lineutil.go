package types

import "sort"

// ComputeLineColumn computes line and column numbers from a byte offset in content.
// Lines and columns are 1-indexed (first line is 1, first column is 1).
func ComputeLineColumn(content []byte, byteOffset int) (line, column int) {
	p := NewLineIndex(content).Position(byteOffset)
	return p.Line, p.Column
}

// LineIndex maps byte offsets to line and column numbers. Build it once per
// blob when many offsets need converting.
type LineIndex struct {
	newlines []int
	size     int
}

// NewLineIndex records the offset of every '\n' in content.
func NewLineIndex(content []byte) *LineIndex {
	idx := &LineIndex{size: len(content)}
	for i, b := range content {
		if b == '\n' {
			idx.newlines = append(idx.newlines, i)
		}
	}
	return idx
}

// Position returns the 1-based line and column of offset. Offsets past the
// end of content are clamped.
func (idx *LineIndex) Position(offset int) SourcePoint {
	if offset > idx.size {
		offset = idx.size
	}
	if offset < 0 {
		offset = 0
	}

	// Number of newlines strictly before offset.
	line := sort.SearchInts(idx.newlines, offset)
	lineStart := 0
	if line > 0 {
		lineStart = idx.newlines[line-1] + 1
	}
	return SourcePoint{Line: line + 1, Column: offset - lineStart + 1}
}

// Span returns the source span for a half-open offset span. The end point
// is the position of the last byte covered.
func (idx *LineIndex) Span(span OffsetSpan) SourceSpan {
	end := int(span.End) - 1
	if end < int(span.Start) {
		end = int(span.Start)
	}
	return SourceSpan{
		Start: idx.Position(int(span.Start)),
		End:   idx.Position(end),
	}
}
