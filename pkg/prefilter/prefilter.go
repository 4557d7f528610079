// Package prefilter narrows the set of machines worth running on a blob by
// searching for their literal keywords with Aho-Corasick.
package prefilter

import (
	"github.com/cloudflare/ahocorasick"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// Prefilter selects machines whose keywords occur in content. It is safe
// for concurrent use.
type Prefilter struct {
	machines []*types.Machine
	matcher  *ahocorasick.Matcher
	owners   [][]int // keyword index -> indices into machines
	always   []bool  // machines without keywords
}

// New creates a prefilter over machines. Machines without keywords always
// pass the filter.
func New(machines []*types.Machine) *Prefilter {
	pf := &Prefilter{
		machines: machines,
		always:   make([]bool, len(machines)),
	}

	var keywords []string
	index := make(map[string]int)
	for i, m := range machines {
		if len(m.Keywords) == 0 {
			pf.always[i] = true
			continue
		}
		for _, keyword := range m.Keywords {
			k, ok := index[keyword]
			if !ok {
				k = len(keywords)
				index[keyword] = k
				keywords = append(keywords, keyword)
				pf.owners = append(pf.owners, nil)
			}
			pf.owners[k] = append(pf.owners[k], i)
		}
	}

	if len(keywords) > 0 {
		pf.matcher = ahocorasick.NewStringMatcher(keywords)
	}
	return pf
}

// Filter returns the machines that may match content, in their original
// order.
func (pf *Prefilter) Filter(content []byte) []*types.Machine {
	selected := make([]bool, len(pf.machines))
	copy(selected, pf.always)

	if pf.matcher != nil {
		for _, hit := range pf.matcher.MatchThreadSafe(content) {
			for _, i := range pf.owners[hit] {
				selected[i] = true
			}
		}
	}

	result := make([]*types.Machine, 0, len(pf.machines))
	for i, ok := range selected {
		if ok {
			result = append(result, pf.machines[i])
		}
	}
	return result
}

// KeywordCount returns the number of distinct keywords indexed.
func (pf *Prefilter) KeywordCount() int {
	return len(pf.owners)
}
