package explore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// sortField is a column of the findings table.
type sortField int

const (
	sortByMachine sortField = iota
	sortByContent
	sortByTags
	sortByMatches
	sortFieldCount
)

var sortFieldNames = [sortFieldCount]string{"Machine", "Content", "Tags", "Matches"}

var sortLess = [sortFieldCount]func(a, b *findingRow) bool{
	sortByMachine: func(a, b *findingRow) bool { return a.MachineName < b.MachineName },
	sortByContent: func(a, b *findingRow) bool { return string(a.Content) < string(b.Content) },
	sortByTags:    func(a, b *findingRow) bool { return strings.Join(a.Tags, ",") < strings.Join(b.Tags, ",") },
	sortByMatches: func(a, b *findingRow) bool { return len(a.Matches) < len(b.Matches) },
}

// findingsPane is the findings table.
type findingsPane struct {
	rows    []*findingRow
	total   int
	list    scrollList
	width   int
	height  int
	focused bool
	sortBy  sortField
	desc    bool
}

func newFindingsPane(rows []*findingRow) findingsPane {
	fp := findingsPane{total: len(rows)}
	fp.setFilteredRows(rows)
	return fp
}

// setFilteredRows replaces the visible rows, keeping the current order.
func (fp *findingsPane) setFilteredRows(rows []*findingRow) {
	fp.rows = append([]*findingRow(nil), rows...)
	fp.sort()
	fp.list.clamp(len(fp.rows), fp.visibleRows())
}

func (fp findingsPane) selectedFinding() *findingRow {
	if fp.list.cursor < 0 || fp.list.cursor >= len(fp.rows) {
		return nil
	}
	return fp.rows[fp.list.cursor]
}

func (fp findingsPane) Update(msg tea.Msg) (findingsPane, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !fp.focused {
		return fp, nil
	}
	if fp.list.navigate(keyMsg, len(fp.rows), fp.visibleRows()) {
		return fp, nil
	}
	switch {
	case key.Matches(keyMsg, defaultKeys.SortNext):
		fp.sortBy = (fp.sortBy + 1) % sortFieldCount
		fp.sort()
	case key.Matches(keyMsg, defaultKeys.SortReverse):
		fp.desc = !fp.desc
		fp.sort()
	}
	return fp, nil
}

func (fp *findingsPane) sort() {
	less := sortLess[fp.sortBy]
	sort.SliceStable(fp.rows, func(i, j int) bool {
		if fp.desc {
			return less(fp.rows[j], fp.rows[i])
		}
		return less(fp.rows[i], fp.rows[j])
	})
}

func (fp findingsPane) View() string {
	if fp.width <= 0 || fp.height <= 0 {
		return ""
	}

	inner := fp.width - 4
	colMatches := 8
	colTags := min(24, inner/4)
	colContent := min(32, inner/3)
	colMachine := max(10, inner-colTags-colContent-colMatches-4)

	indicator := func(f sortField) string {
		switch {
		case fp.sortBy != f:
			return ""
		case fp.desc:
			return " v"
		default:
			return " ^"
		}
	}

	header := fmt.Sprintf(" %-*s %-*s %-*s %*s",
		colMachine, "Machine"+indicator(sortByMachine),
		colContent, "Content"+indicator(sortByContent),
		colTags, "Tags"+indicator(sortByTags),
		colMatches, "Matches"+indicator(sortByMatches))

	lines := []string{
		headerRowStyle.Width(inner).Render(truncateString(header, inner)),
		strings.Repeat("─", max(0, inner)),
	}

	start, end := fp.list.window(len(fp.rows), fp.visibleRows())
	for i := start; i < end; i++ {
		row := fp.rows[i]
		line := fmt.Sprintf(" %-*s %-*s %-*s %*d",
			colMachine, truncateString(row.MachineName, colMachine),
			colContent, truncateString(printable(row.Content), colContent),
			colTags, truncateString(strings.Join(row.Tags, ","), colTags),
			colMatches, len(row.Matches))
		if i == fp.list.cursor && fp.focused {
			line = selectedRowStyle.Width(inner).Render(line)
		}
		lines = append(lines, line)
	}

	title := fmt.Sprintf(" Findings (%d/%d) [sort: %s] ", len(fp.rows), fp.total, sortFieldNames[fp.sortBy])
	return paneFrame(title, fillLines(lines, inner, fp.visibleRows()+2), fp.width, fp.height, fp.focused)
}

func (fp findingsPane) visibleRows() int {
	return max(1, fp.height-6)
}

func (fp *findingsPane) setSize(w, h int) {
	fp.width = w
	fp.height = h
}
