package explore

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// detailsPane shows the selected finding and one of its matches.
type detailsPane struct {
	finding     *findingRow
	matchCursor int
	offset      int
	width       int
	height      int
	focused     bool
}

func (dp *detailsPane) setFinding(f *findingRow) {
	dp.finding = f
	dp.matchCursor = 0
	dp.offset = 0
}

func (dp detailsPane) selectedMatch() *matchRow {
	if dp.finding == nil || dp.matchCursor < 0 || dp.matchCursor >= len(dp.finding.Matches) {
		return nil
	}
	return dp.finding.Matches[dp.matchCursor]
}

func (dp detailsPane) Update(msg tea.Msg) (detailsPane, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !dp.focused {
		return dp, nil
	}

	switch {
	case key.Matches(keyMsg, defaultKeys.Up):
		dp.offset = max(0, dp.offset-1)
	case key.Matches(keyMsg, defaultKeys.Down):
		dp.offset++
	case key.Matches(keyMsg, defaultKeys.Home):
		dp.offset = 0
	case key.Matches(keyMsg, defaultKeys.PageDown):
		dp.offset += dp.visibleRows()
	case key.Matches(keyMsg, defaultKeys.PageUp):
		dp.offset = max(0, dp.offset-dp.visibleRows())
	case key.Matches(keyMsg, defaultKeys.Left):
		if dp.matchCursor > 0 {
			dp.matchCursor--
			dp.offset = 0
		}
	case key.Matches(keyMsg, defaultKeys.Right):
		if dp.finding != nil && dp.matchCursor < len(dp.finding.Matches)-1 {
			dp.matchCursor++
			dp.offset = 0
		}
	}
	return dp, nil
}

func (dp detailsPane) View() string {
	if dp.width <= 0 || dp.height <= 0 {
		return ""
	}

	inner := dp.width - 4
	lines := dp.lines(inner)
	offset := min(dp.offset, max(0, len(lines)-1))
	lines = lines[offset:]
	if len(lines) > dp.visibleRows() {
		lines = lines[:dp.visibleRows()]
	}
	return paneFrame(" Details ", fillLines(lines, inner, dp.visibleRows()), dp.width, dp.height, dp.focused)
}

func (dp detailsPane) lines(width int) []string {
	f := dp.finding
	if f == nil {
		return []string{"  No finding selected"}
	}

	lines := []string{
		field("Machine:", fmt.Sprintf("%s (%s)", f.MachineName, f.MachineID)),
	}
	if len(f.Categories) > 0 {
		lines = append(lines, field("Categories:", strings.Join(f.Categories, ", ")))
	}
	if len(f.Tags) > 0 {
		lines = append(lines, fmt.Sprintf("  %s %s", fieldLabelStyle.Render("Tags:"), renderTags(f.Tags)))
	}
	lines = append(lines,
		fmt.Sprintf("  %s %s", fieldLabelStyle.Render("Content:"), snippetMatchStyle.Render(printable(f.Content))),
		field("Finding:", f.FindingID),
		"")

	m := dp.selectedMatch()
	if m == nil {
		return append(lines, "  No matches")
	}
	lines = append(lines,
		"  "+headerRowStyle.Render(fmt.Sprintf("Match %d/%d (h/l to navigate)", dp.matchCursor+1, len(f.Matches))),
		"  "+strings.Repeat("─", max(0, min(40, width-4))))
	return append(lines, matchLines(m, width)...)
}

func field(label, value string) string {
	return fmt.Sprintf("  %s %s", fieldLabelStyle.Render(label), fieldValueStyle.Render(value))
}

// matchLines renders provenance, location and the context snippet of m.
func matchLines(m *matchRow, width int) []string {
	var lines []string
	for _, prov := range m.Provenance {
		switch p := prov.(type) {
		case types.FileProvenance:
			lines = append(lines, field("File:", p.FilePath))
		case types.GitProvenance:
			lines = append(lines, field("Repo:", p.RepoPath), field("Path:", p.BlobPath))
			if p.Commit != nil {
				lines = append(lines, field("Commit:", p.Commit.CommitID))
				if p.Commit.AuthorName != "" {
					lines = append(lines, field("Author:", fmt.Sprintf("%s <%s>", p.Commit.AuthorName, p.Commit.AuthorEmail)))
				}
			}
		default:
			if path := prov.Path(); path != "" {
				lines = append(lines, field("Source:", path))
			}
		}
	}

	lines = append(lines,
		field("Blob:", m.BlobID.Hex()),
		field("Match:", m.StructuralID),
		field("Bytes:", fmt.Sprintf("%d-%d", m.Location.Offset.Start, m.Location.Offset.End)))
	if m.Location.Source.Start.Line > 0 {
		lines = append(lines, field("Lines:", fmt.Sprintf("%d:%d - %d:%d",
			m.Location.Source.Start.Line, m.Location.Source.Start.Column,
			m.Location.Source.End.Line, m.Location.Source.End.Column)))
	}
	if len(m.Tags) > 0 {
		lines = append(lines, fmt.Sprintf("  %s %s", fieldLabelStyle.Render("Tags:"), renderTags(m.Tags)))
	}

	lines = append(lines, "", "  "+fieldLabelStyle.Render("Snippet:"))
	lines = append(lines, snippetLines(m.Snippet, width-6)...)
	return lines
}

func snippetLines(s types.Snippet, width int) []string {
	var lines []string
	add := func(text string, matching bool) {
		for _, line := range strings.Split(text, "\n") {
			if line == "" && !matching {
				continue
			}
			style := snippetContextStyle
			if matching {
				style = snippetMatchStyle
			}
			lines = append(lines, "    "+style.Render(truncateString(line, width)))
		}
	}
	add(strings.TrimRight(string(s.Before), "\r\n"), false)
	add(string(s.Matching), true)
	add(strings.TrimLeft(string(s.After), "\r\n"), false)
	return lines
}

func (dp detailsPane) visibleRows() int {
	return max(1, dp.height-4)
}

func (dp *detailsPane) setSize(w, h int) {
	dp.width = w
	dp.height = h
}
