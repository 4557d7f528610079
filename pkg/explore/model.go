// Package explore is an interactive terminal browser over the findings of
// a datastore.
package explore

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type focusedPane int

const (
	paneFilters focusedPane = iota
	paneFindings
	paneDetails
)

type overlay int

const (
	overlayNone overlay = iota
	overlayHelp
	overlaySnippet
)

// Model is the root Bubble Tea model.
type Model struct {
	data     *exploreData
	filters  filterPane
	findings findingsPane
	details  detailsPane

	focus       focusedPane
	overlay     overlay
	overlayText string
	overlayOff  int
	showFilters bool

	width  int
	height int
}

// New loads the datastore at path and builds the model.
func New(path string) (Model, error) {
	data, err := loadData(path)
	if err != nil {
		return Model{}, err
	}
	return newModel(data), nil
}

func newModel(data *exploreData) Model {
	m := Model{
		data:        data,
		filters:     newFilterPane(buildFacets(data.findings)),
		findings:    newFindingsPane(data.findings),
		showFilters: true,
	}
	m.setFocus(paneFindings)
	m.details.setFinding(m.findings.selectedFinding())
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.SetWindowTitle("dfamatch explore")
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.MouseMsg:
		if m.overlay == overlayNone && msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.click(msg.X, msg.Y)
		}
		return m, nil

	case tea.KeyMsg:
		if m.overlay != overlayNone {
			m.updateOverlay(msg)
			return m, nil
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, defaultKeys.Quit, defaultKeys.ForceQuit):
		return m, tea.Quit
	case key.Matches(msg, defaultKeys.ToggleHelp):
		m.openOverlay(overlayHelp, helpText())
		return m, nil
	case key.Matches(msg, defaultKeys.OpenSnippet):
		if match := m.details.selectedMatch(); match != nil {
			s := match.Snippet
			m.openOverlay(overlaySnippet, string(s.Before)+string(s.Matching)+string(s.After))
		}
		return m, nil
	case key.Matches(msg, defaultKeys.ToggleFilters):
		m.showFilters = !m.showFilters
		if !m.showFilters && m.focus == paneFilters {
			m.setFocus(paneFindings)
		}
		m.layout()
		return m, nil
	case key.Matches(msg, defaultKeys.FocusFilters):
		if m.showFilters {
			m.setFocus(paneFilters)
		}
		return m, nil
	case key.Matches(msg, defaultKeys.FocusFindings):
		m.setFocus(paneFindings)
		return m, nil
	case key.Matches(msg, defaultKeys.FocusDetails):
		m.setFocus(paneDetails)
		return m, nil
	case key.Matches(msg, defaultKeys.NextPane):
		next := (m.focus + 1) % 3
		if next == paneFilters && !m.showFilters {
			next = paneFindings
		}
		m.setFocus(next)
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case paneFilters:
		m.filters, cmd = m.filters.Update(msg)
		m.applyFilters()
	case paneFindings:
		prev := m.findings.selectedFinding()
		m.findings, cmd = m.findings.Update(msg)
		if f := m.findings.selectedFinding(); f != prev {
			m.details.setFinding(f)
		}
	case paneDetails:
		m.details, cmd = m.details.Update(msg)
	}
	return m, cmd
}

func (m *Model) openOverlay(o overlay, text string) {
	m.overlay = o
	m.overlayText = text
	m.overlayOff = 0
}

func (m *Model) updateOverlay(msg tea.KeyMsg) {
	page := max(1, m.height/2)
	switch {
	case key.Matches(msg, defaultKeys.Quit, defaultKeys.ForceQuit, defaultKeys.ToggleHelp, defaultKeys.OpenSnippet):
		m.overlay = overlayNone
	case key.Matches(msg, defaultKeys.Down):
		m.overlayOff++
	case key.Matches(msg, defaultKeys.Up):
		m.overlayOff = max(0, m.overlayOff-1)
	case key.Matches(msg, defaultKeys.PageDown):
		m.overlayOff += page
	case key.Matches(msg, defaultKeys.PageUp):
		m.overlayOff = max(0, m.overlayOff-page)
	}
}

func (m *Model) setFocus(p focusedPane) {
	m.focus = p
	m.filters.focused = p == paneFilters
	m.findings.focused = p == paneFindings
	m.details.focused = p == paneDetails
}

// layout sizes the panes: filters take the left column, findings the top
// of the right column and details the rest.
func (m *Model) layout() {
	contentHeight := m.height - 2
	findingsHeight := contentHeight * 40 / 100
	dataWidth := m.width
	if m.showFilters {
		filtersWidth := m.filtersWidth()
		dataWidth -= filtersWidth
		m.filters.setSize(filtersWidth, contentHeight)
		m.filters.list.clamp(len(m.filters.items), m.filters.visibleRows())
	}
	m.findings.setSize(dataWidth, findingsHeight)
	m.findings.list.clamp(len(m.findings.rows), m.findings.visibleRows())
	m.details.setSize(dataWidth, contentHeight-findingsHeight)
}

func (m Model) filtersWidth() int {
	return min(m.width*30/100, 50)
}

// click focuses the pane under (x, y) and selects the row clicked.
func (m *Model) click(x, y int) {
	contentHeight := m.height - 2
	findingsHeight := contentHeight * 40 / 100
	left := 0
	if m.showFilters {
		left = m.filtersWidth()
	}

	switch {
	case x < left && y < contentHeight:
		m.setFocus(paneFilters)
		if idx := y - 2 + m.filters.list.offset; y >= 2 && idx < len(m.filters.items) {
			m.filters.list.cursor = idx
			m.filters.toggleCurrent()
			m.applyFilters()
		}
	case x >= left && y < findingsHeight:
		m.setFocus(paneFindings)
		if idx := y - 4 + m.findings.list.offset; y >= 4 && idx < len(m.findings.rows) {
			m.findings.list.cursor = idx
			m.details.setFinding(m.findings.selectedFinding())
		}
	default:
		m.setFocus(paneDetails)
	}
}

// applyFilters recomputes the visible findings from the facet selection.
func (m *Model) applyFilters() {
	facets := m.filters.facets
	rows := m.data.findings
	if facets.hasActiveFilters() {
		rows = nil
		for _, f := range m.data.findings {
			if facets.matchesFinding(f) {
				rows = append(rows, f)
			}
		}
	}

	prev := m.findings.selectedFinding()
	m.findings.setFilteredRows(rows)
	facets.updateCounts(m.data.findings)
	if f := m.findings.selectedFinding(); f != prev {
		m.details.setFinding(f)
	}
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.overlay != overlayNone {
		return m.renderOverlay()
	}

	data := lipgloss.JoinVertical(lipgloss.Left, m.findings.View(), m.details.View())
	body := data
	if m.showFilters {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.filters.View(), data)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusBar())
}

func (m Model) statusBar() string {
	left := statusBarStyle.Render(fmt.Sprintf(" %d findings | %d shown", len(m.data.findings), len(m.findings.rows)))

	parts := make([]string, 0, len(defaultKeys.statusKeys()))
	for _, b := range defaultKeys.statusKeys() {
		h := b.Help()
		parts = append(parts, helpKeyStyle.Render(h.Key)+":"+helpDescStyle.Render(h.Desc))
	}
	right := strings.Join(parts, "  ")

	gap := max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderOverlay() string {
	width := m.width * 80 / 100
	height := m.height * 80 / 100
	title := " Help (q to close) "
	if m.overlay == overlaySnippet {
		title = " Snippet (q to close) "
	}

	lines := strings.Split(m.overlayText, "\n")
	start := min(m.overlayOff, max(0, len(lines)-1))
	end := min(start+max(1, height-4), len(lines))

	box := modalStyle.Width(width - 4).Height(height - 2).Render(strings.Join(lines[start:end], "\n"))
	view := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), box)

	hPad := max(0, (m.width-lipgloss.Width(view))/2)
	vPad := max(0, (m.height-lipgloss.Height(view))/2)
	return strings.Repeat("\n", vPad) + lipgloss.NewStyle().PaddingLeft(hPad).Render(view)
}

// Close releases the datastore.
func (m *Model) Close() error {
	if m.data != nil {
		return m.data.close()
	}
	return nil
}

func helpText() string {
	return `dfamatch explore - interactive findings browser

NAVIGATION
  j/k or Up/Down    Move cursor up/down
  h/l or Left/Right Previous/next match of the finding
  Ctrl+f/Ctrl+b     Page down/up
  g/G               Jump to top/bottom

FOCUS
  F1                Focus filters pane
  f                 Focus findings pane
  d                 Focus details pane
  Tab               Cycle panes
  F7                Toggle filters pane visibility

FILTERS
  x or Space        Toggle filter value or collapse a facet
  Ctrl+r            Reset all filters

VIEWS
  s                 Cycle sort column
  S                 Reverse sort order
  o                 Show the full snippet of the match
  ?                 Toggle this help screen

QUIT
  q                 Quit
  Ctrl+c            Force quit
`
}
