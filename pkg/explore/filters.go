package explore

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// filterPane is the faceted search tree on the left.
type filterPane struct {
	facets    *facetState
	collapsed map[facetID]bool
	items     []filterItem
	list      scrollList
	width     int
	height    int
	focused   bool
}

// filterItem is one line of the tree: a facet heading or one of its values.
type filterItem struct {
	heading  bool
	label    string
	facet    facetID
	valueIdx int
}

func newFilterPane(facets *facetState) filterPane {
	fp := filterPane{facets: facets, collapsed: make(map[facetID]bool)}
	fp.rebuildItems()
	return fp
}

func (fp *filterPane) rebuildItems() {
	fp.items = fp.items[:0]
	for _, def := range facetDefs {
		values := fp.facets.Values[def.ID]
		if len(values) == 0 {
			continue
		}
		fp.items = append(fp.items, filterItem{heading: true, label: def.Label, facet: def.ID})
		if fp.collapsed[def.ID] {
			continue
		}
		for i, v := range values {
			fp.items = append(fp.items, filterItem{label: v.Value, facet: def.ID, valueIdx: i})
		}
	}
	fp.list.clamp(len(fp.items), fp.visibleRows())
}

func (fp filterPane) Update(msg tea.Msg) (filterPane, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !fp.focused {
		return fp, nil
	}
	if fp.list.navigate(keyMsg, len(fp.items), fp.visibleRows()) {
		return fp, nil
	}
	switch {
	case key.Matches(keyMsg, defaultKeys.ToggleFilter):
		fp.toggleCurrent()
	case key.Matches(keyMsg, defaultKeys.ResetFilter):
		fp.facets.resetAll()
	}
	return fp, nil
}

// toggleCurrent collapses a heading or selects a value.
func (fp *filterPane) toggleCurrent() {
	if fp.list.cursor < 0 || fp.list.cursor >= len(fp.items) {
		return
	}
	item := fp.items[fp.list.cursor]
	if item.heading {
		fp.collapsed[item.facet] = !fp.collapsed[item.facet]
		fp.rebuildItems()
		return
	}
	if values := fp.facets.Values[item.facet]; item.valueIdx < len(values) {
		values[item.valueIdx].Selected = !values[item.valueIdx].Selected
	}
}

func (fp filterPane) View() string {
	if fp.width <= 0 || fp.height <= 0 {
		return ""
	}

	inner := fp.width - 2
	start, end := fp.list.window(len(fp.items), fp.visibleRows())
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		line := fp.renderItem(fp.items[i])
		if i == fp.list.cursor && fp.focused {
			line = selectedRowStyle.Width(inner).Render(stripANSI(line))
		}
		lines = append(lines, line)
	}
	return paneFrame(" Filters ", fillLines(lines, inner, fp.visibleRows()), fp.width, fp.height, fp.focused)
}

func (fp filterPane) renderItem(item filterItem) string {
	if item.heading {
		arrow := "▾"
		if fp.collapsed[item.facet] {
			arrow = "▸"
		}
		return facetLabelStyle.Render(fmt.Sprintf(" %s %s", arrow, item.label))
	}

	v := fp.facets.Values[item.facet][item.valueIdx]
	label := truncateString(item.label, fp.width-12)
	count := facetCountStyle.Render(fmt.Sprintf("(%d)", v.Count))
	if v.Selected {
		return fmt.Sprintf("   %s %s %s", facetSelectedStyle.Render("+"), facetSelectedStyle.Render(label), count)
	}
	return fmt.Sprintf("     %s %s", label, count)
}

func (fp filterPane) visibleRows() int {
	return max(1, fp.height-4)
}

func (fp *filterPane) setSize(w, h int) {
	fp.width = w
	fp.height = h
}
