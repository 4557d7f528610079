package explore

import "sort"

// facetID identifies a facet category.
type facetID int

const (
	facetMachine facetID = iota
	facetCategory
	facetTag
)

// facetDef describes a facet and how to read its values off a finding.
type facetDef struct {
	ID     facetID
	Label  string
	values func(f *findingRow) []string
}

var facetDefs = []facetDef{
	{facetMachine, "Machine", func(f *findingRow) []string { return []string{f.MachineName} }},
	{facetCategory, "Category", func(f *findingRow) []string { return f.Categories }},
	{facetTag, "Tag", func(f *findingRow) []string { return f.Tags }},
}

// facetValue is a single selectable value within a facet.
type facetValue struct {
	FacetID  facetID
	Value    string
	Count    int
	Selected bool
}

// facetState holds the complete filter state.
type facetState struct {
	Values map[facetID][]*facetValue
}

// buildFacets collects every facet value present in findings.
func buildFacets(findings []*findingRow) *facetState {
	fs := &facetState{Values: make(map[facetID][]*facetValue)}
	for _, def := range facetDefs {
		counts := make(map[string]int)
		for _, f := range findings {
			for _, v := range distinct(def.values(f)) {
				counts[v]++
			}
		}

		values := make([]*facetValue, 0, len(counts))
		for v, c := range counts {
			values = append(values, &facetValue{FacetID: def.ID, Value: v, Count: c})
		}
		sort.Slice(values, func(i, j int) bool { return values[i].Value < values[j].Value })
		fs.Values[def.ID] = values
	}
	return fs
}

// selectedValues returns the set of selected values for a facet.
func (fs *facetState) selectedValues(id facetID) map[string]bool {
	selected := make(map[string]bool)
	for _, v := range fs.Values[id] {
		if v.Selected {
			selected[v.Value] = true
		}
	}
	return selected
}

func (fs *facetState) hasActiveFilters() bool {
	for _, values := range fs.Values {
		for _, v := range values {
			if v.Selected {
				return true
			}
		}
	}
	return false
}

func (fs *facetState) resetAll() {
	for _, values := range fs.Values {
		for _, v := range values {
			v.Selected = false
		}
	}
}

// matchesFinding reports whether f passes the active filters: any selected
// value within a facet, every facet with a selection.
func (fs *facetState) matchesFinding(f *findingRow) bool {
	for _, def := range facetDefs {
		selected := fs.selectedValues(def.ID)
		if len(selected) == 0 {
			continue
		}
		found := false
		for _, v := range def.values(f) {
			if selected[v] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// updateCounts recounts facet values over the findings that pass the
// active filters.
func (fs *facetState) updateCounts(findings []*findingRow) {
	index := make(map[facetID]map[string]*facetValue, len(fs.Values))
	for id, values := range fs.Values {
		index[id] = make(map[string]*facetValue, len(values))
		for _, v := range values {
			v.Count = 0
			index[id][v.Value] = v
		}
	}

	for _, f := range findings {
		if !fs.matchesFinding(f) {
			continue
		}
		for _, def := range facetDefs {
			for _, v := range distinct(def.values(f)) {
				if fv, ok := index[def.ID][v]; ok {
					fv.Count++
				}
			}
		}
	}
}

func distinct(values []string) []string {
	if len(values) < 2 {
		return values
	}
	seen := make(map[string]bool, len(values))
	out := values[:0:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
