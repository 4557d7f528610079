package explore

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// scrollList tracks a cursor over n rows of which rows are visible.
type scrollList struct {
	cursor int
	offset int
}

// navigate applies a movement key and reports whether msg was one.
func (l *scrollList) navigate(msg tea.KeyMsg, n, rows int) bool {
	switch {
	case key.Matches(msg, defaultKeys.Up):
		l.cursor--
	case key.Matches(msg, defaultKeys.Down):
		l.cursor++
	case key.Matches(msg, defaultKeys.Home):
		l.cursor = 0
	case key.Matches(msg, defaultKeys.End):
		l.cursor = n - 1
	case key.Matches(msg, defaultKeys.PageDown):
		l.cursor += rows
	case key.Matches(msg, defaultKeys.PageUp):
		l.cursor -= rows
	default:
		return false
	}
	l.clamp(n, rows)
	return true
}

// clamp keeps the cursor in range and scrolls it into view.
func (l *scrollList) clamp(n, rows int) {
	l.cursor = max(0, min(l.cursor, n-1))
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if rows > 0 && l.cursor >= l.offset+rows {
		l.offset = l.cursor - rows + 1
	}
	l.offset = max(0, l.offset)
}

// window returns the visible index range [start, end).
func (l scrollList) window(n, rows int) (int, int) {
	return l.offset, min(l.offset+rows, n)
}
