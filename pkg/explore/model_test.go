package explore

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testModel(t *testing.T) Model {
	t.Helper()
	m := newModel(&exploreData{findings: testRows()})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	return next.(Model)
}

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestModel_InitialState(t *testing.T) {
	m := testModel(t)
	if m.focus != paneFindings {
		t.Errorf("expected findings focus, got %d", m.focus)
	}
	if m.details.finding == nil {
		t.Fatal("expected first finding to be selected")
	}
	if m.details.finding != m.findings.selectedFinding() {
		t.Error("details should show the selected finding")
	}

	view := m.View()
	for _, want := range []string{"Filters", "Findings (3/3)", "Details", "Decimal Number"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_NavigationUpdatesDetails(t *testing.T) {
	m := testModel(t)
	first := m.details.finding

	m = send(m, runes("j"))
	if m.details.finding == first {
		t.Error("expected details to follow the cursor")
	}

	m = send(m, runes("G"))
	if m.findings.list.cursor != 2 {
		t.Errorf("expected cursor at bottom, got %d", m.findings.list.cursor)
	}
	m = send(m, runes("g"))
	if m.findings.list.cursor != 0 {
		t.Errorf("expected cursor at top, got %d", m.findings.list.cursor)
	}
}

func TestModel_FilterByTag(t *testing.T) {
	m := testModel(t)
	m = send(m, tea.KeyMsg{Type: tea.KeyF1})
	if m.focus != paneFilters {
		t.Fatalf("expected filters focus, got %d", m.focus)
	}

	// Walk to the "short" tag value and select it.
	target := -1
	for i, item := range m.filters.items {
		if !item.heading && item.facet == facetTag && item.label == "short" {
			target = i
		}
	}
	if target < 0 {
		t.Fatal("tag value 'short' not found")
	}
	for i := 0; i < target; i++ {
		m = send(m, runes("j"))
	}
	m = send(m, runes("x"))

	if len(m.findings.rows) != 1 || string(m.findings.rows[0].Content) != "#fff" {
		t.Fatalf("expected only #fff after filtering, got %d rows", len(m.findings.rows))
	}
	if m.details.finding != m.findings.rows[0] {
		t.Error("details should follow the filtered selection")
	}

	m = send(m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if len(m.findings.rows) != 3 {
		t.Errorf("expected all rows after reset, got %d", len(m.findings.rows))
	}
}

func TestModel_CollapseFacet(t *testing.T) {
	m := testModel(t)
	m = send(m, tea.KeyMsg{Type: tea.KeyF1})
	before := len(m.filters.items)

	m = send(m, runes("x"))
	if len(m.filters.items) >= before {
		t.Errorf("expected collapsing the first facet to hide its values: %d -> %d", before, len(m.filters.items))
	}
	m = send(m, runes("x"))
	if len(m.filters.items) != before {
		t.Errorf("expected expanding to restore values: %d -> %d", before, len(m.filters.items))
	}
}

func TestModel_Sort(t *testing.T) {
	m := testModel(t)
	m = send(m, runes("s"))
	if m.findings.sortBy != sortByContent {
		t.Fatalf("expected content sort, got %d", m.findings.sortBy)
	}
	if got := string(m.findings.rows[0].Content); got != "#fff" {
		t.Errorf("expected #fff first by content, got %q", got)
	}

	m = send(m, runes("S"))
	if got := string(m.findings.rows[0].Content); got != "2.5" {
		t.Errorf("expected 2.5 first when reversed, got %q", got)
	}
}

func TestModel_Overlays(t *testing.T) {
	m := testModel(t)

	m = send(m, runes("?"))
	if m.overlay != overlayHelp || !strings.Contains(m.View(), "NAVIGATION") {
		t.Error("expected help overlay")
	}
	m = send(m, runes("q"))
	if m.overlay != overlayNone {
		t.Error("expected q to close the overlay")
	}

	// The test rows carry no matches, so there is no snippet to open.
	m = send(m, runes("o"))
	if m.overlay != overlayNone {
		t.Error("expected no snippet overlay without a match")
	}
}

func TestModel_ToggleFilterPane(t *testing.T) {
	m := testModel(t)
	m = send(m, tea.KeyMsg{Type: tea.KeyF1}, tea.KeyMsg{Type: tea.KeyF7})
	if m.showFilters {
		t.Fatal("expected filters hidden")
	}
	if m.focus != paneFindings {
		t.Error("expected focus to leave the hidden filters pane")
	}
	if strings.Contains(m.View(), " Filters ") {
		t.Error("filters pane should not render when hidden")
	}
}

func TestModel_Quit(t *testing.T) {
	m := testModel(t)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestDetailsLines(t *testing.T) {
	s := seedStore(t)
	defer s.Close()
	rows, err := buildRows(s)
	if err != nil {
		t.Fatalf("buildRows: %v", err)
	}

	var dp detailsPane
	for _, r := range rows {
		if string(r.Content) == "12" {
			dp.setFinding(r)
		}
	}
	text := strings.Join(dp.lines(100), "\n")
	for _, want := range []string{"Decimal Number", "integer, number", "Match 1/2", "sizes.txt", "Bytes:"} {
		if !strings.Contains(text, want) {
			t.Errorf("details missing %q", want)
		}
	}

	dp.focused = true
	dp, _ = dp.Update(runes("l"))
	if dp.matchCursor != 1 {
		t.Errorf("expected second match, got %d", dp.matchCursor)
	}
	dp, _ = dp.Update(runes("l"))
	if dp.matchCursor != 1 {
		t.Errorf("cursor should stop at the last match, got %d", dp.matchCursor)
	}
}
