package machine

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSymbolSet parses a set of byte symbols written like a regex
// character class body without the brackets: literal bytes, ranges such as
// "a-z", and escapes \n \t \r \0 \xNN. A backslash before punctuation makes
// it literal; a '-' at either end of the set is literal too.
//
// The result is sorted and free of duplicates.
func ParseSymbolSet(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("empty symbol set")
	}

	var set [256]bool
	for i := 0; i < len(s); {
		lo, n, err := readSymbol(s, i)
		if err != nil {
			return nil, err
		}
		i += n

		if i+1 < len(s) && s[i] == '-' {
			hi, m, err := readSymbol(s, i+1)
			if err != nil {
				return nil, err
			}
			if hi < lo {
				return nil, fmt.Errorf("invalid range %s-%s in %q", formatSymbol(lo), formatSymbol(hi), s)
			}
			for c := int(lo); c <= int(hi); c++ {
				set[c] = true
			}
			i += 1 + m
			continue
		}
		set[lo] = true
	}

	var symbols []byte
	for c, ok := range set {
		if ok {
			symbols = append(symbols, byte(c))
		}
	}
	return symbols, nil
}

// readSymbol decodes the symbol starting at s[i] and returns it with the
// number of bytes consumed.
func readSymbol(s string, i int) (byte, int, error) {
	if s[i] != '\\' {
		return s[i], 1, nil
	}
	if i+1 >= len(s) {
		return 0, 0, fmt.Errorf("trailing backslash in %q", s)
	}

	switch c := s[i+1]; c {
	case 'n':
		return '\n', 2, nil
	case 't':
		return '\t', 2, nil
	case 'r':
		return '\r', 2, nil
	case '0':
		return 0, 2, nil
	case 'x':
		if i+4 > len(s) {
			return 0, 0, fmt.Errorf("short \\x escape in %q", s)
		}
		v, err := strconv.ParseUint(s[i+2:i+4], 16, 8)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid \\x escape in %q: %w", s, err)
		}
		return byte(v), 4, nil
	default:
		if isAlnum(c) {
			return 0, 0, fmt.Errorf("unknown escape \\%c in %q", c, s)
		}
		return c, 2, nil
	}
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// FormatSymbolSet renders symbols in the syntax accepted by
// ParseSymbolSet, collapsing runs of three or more into ranges.
func FormatSymbolSet(symbols []byte) string {
	var set [256]bool
	for _, c := range symbols {
		set[c] = true
	}

	var b strings.Builder
	for c := 0; c < 256; {
		if !set[c] {
			c++
			continue
		}
		end := c
		for end+1 < 256 && set[end+1] {
			end++
		}
		switch {
		case end-c >= 2:
			b.WriteString(formatSymbol(byte(c)))
			b.WriteByte('-')
			b.WriteString(formatSymbol(byte(end)))
		default:
			for x := c; x <= end; x++ {
				b.WriteString(formatSymbol(byte(x)))
			}
		}
		c = end + 1
	}
	return b.String()
}

func formatSymbol(c byte) string {
	switch c {
	case '\n':
		return `\n`
	case '\t':
		return `\t`
	case '\r':
		return `\r`
	case '\\':
		return `\\`
	case '-':
		return `\-`
	}
	if c < 0x20 || c > 0x7e {
		return fmt.Sprintf(`\x%02x`, c)
	}
	return string(rune(c))
}
