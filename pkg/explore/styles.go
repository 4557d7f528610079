package explore

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary   = lipgloss.Color("#e63948")
	colorSecondary = lipgloss.Color("10")
	colorMatch     = lipgloss.Color("#D4AF37")
	colorMuted     = lipgloss.Color("8")
	colorAccent    = lipgloss.Color("#11C3DB")
	colorTag       = lipgloss.Color("13")
	colorHighlight = lipgloss.Color("15")
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary)

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorMuted)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHighlight).
			Background(colorPrimary).
			Padding(0, 1)
)

var (
	selectedRowStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("17")).
				Foreground(colorHighlight)

	headerRowStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	snippetMatchStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorMatch)
	snippetContextStyle = lipgloss.NewStyle().Foreground(colorMuted)
	tagStyle            = lipgloss.NewStyle().Foreground(colorTag)

	statusBarStyle = lipgloss.NewStyle().Foreground(colorMuted)
	helpKeyStyle   = lipgloss.NewStyle().Foreground(colorAccent)
	helpDescStyle  = lipgloss.NewStyle().Foreground(colorMuted)

	facetLabelStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	facetSelectedStyle = lipgloss.NewStyle().Foreground(colorSecondary)
	facetCountStyle    = lipgloss.NewStyle().Foreground(colorMuted)

	fieldLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	fieldValueStyle = lipgloss.NewStyle().Foreground(colorHighlight)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorPrimary).
			Padding(1, 2)
)

// renderTags joins tags in the tag color.
func renderTags(tags []string) string {
	return tagStyle.Render(strings.Join(tags, ", "))
}

// paneFrame draws a titled, bordered pane of the given outer size around
// body.
func paneFrame(title, body string, width, height int, focused bool) string {
	border := inactiveBorderStyle
	if focused {
		border = activeBorderStyle
	}
	content := border.Width(width - 2).Height(height - 3).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), content)
}

// fillLines pads lines to width and appends blank lines up to rows.
func fillLines(lines []string, width, rows int) string {
	var b strings.Builder
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString("\n")
		}
		if i < len(lines) {
			b.WriteString(padRight(lines[i], width))
		} else {
			b.WriteString(strings.Repeat(" ", max(0, width)))
		}
	}
	return b.String()
}

func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// stripANSI removes escape sequences so a line can be restyled.
func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\033':
			inEscape = true
		case inEscape:
			if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' {
				inEscape = false
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// printable renders matched bytes on one line.
func printable(b []byte) string {
	r := strings.NewReplacer("\n", `\n`, "\r", `\r`, "\t", `\t`)
	return r.Replace(string(b))
}
