package matcher

import "bytes"

// ExtractContext returns up to lines full lines before start and after end,
// plus the partial lines the match begins and ends on. The returned slices
// are copies, so holding on to them does not pin content in memory.
// Offsets outside content, or start > end, yield no context.
func ExtractContext(content []byte, start, end int, lines int) (before, after []byte) {
	if lines <= 0 || start < 0 || end > len(content) || start > end {
		return nil, nil
	}

	if b := linesBefore(content[:start], lines); len(b) > 0 {
		before = bytes.Clone(b)
	}
	if a := linesAfter(content[end:], lines); len(a) > 0 {
		after = bytes.Clone(a)
	}
	return before, after
}

// linesBefore returns the suffix of prefix that starts lines newlines
// before the line prefix ends on.
func linesBefore(prefix []byte, lines int) []byte {
	cut := len(prefix)
	for range lines + 1 {
		nl := bytes.LastIndexByte(prefix[:cut], '\n')
		if nl < 0 {
			return prefix
		}
		cut = nl
	}
	return prefix[cut+1:]
}

// linesAfter returns the prefix of suffix up to and including its lines-th
// newline. A newline directly after the match ends the match line and is
// not counted.
func linesAfter(suffix []byte, lines int) []byte {
	if len(suffix) > 0 && suffix[0] == '\n' {
		suffix = suffix[1:]
	}

	end := 0
	for range lines {
		nl := bytes.IndexByte(suffix[end:], '\n')
		if nl < 0 {
			return suffix
		}
		end += nl + 1
	}
	return suffix[:end]
}
