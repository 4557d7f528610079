package machine

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/praetorian-inc/dfamatch/pkg/statemachine"
	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// patternTimeout bounds a single cross-check evaluation of a source pattern.
const patternTimeout = 2 * time.Second

// Issue is a problem found by Check.
type Issue struct {
	MachineID string
	Input     string // the example that triggered the issue, if any
	Negative  bool   // Input came from negative_examples
	Message   string
}

// String formats the issue for display.
func (i Issue) String() string {
	if i.Input == "" {
		return fmt.Sprintf("%s: %s", i.MachineID, i.Message)
	}
	kind := "example"
	if i.Negative {
		kind = "negative example"
	}
	return fmt.Sprintf("%s: %s %q: %s", i.MachineID, kind, i.Input, i.Message)
}

// Check runs the machine's examples through the DFA. Every example must
// produce a match and every negative example must not. When the descriptor
// carries its source pattern, the pattern is evaluated with a backtracking
// engine and must agree with the DFA on whether each example matches.
func Check(m *types.Machine) []Issue {
	var issues []Issue
	dfa := statemachine.New(m.DFA)

	var re *regexp2.Regexp
	if m.Pattern != "" {
		compiled, err := regexp2.Compile(m.Pattern, regexp2.None)
		if err != nil {
			issues = append(issues, Issue{
				MachineID: m.ID,
				Message:   fmt.Sprintf("pattern does not compile: %v", err),
			})
		} else {
			compiled.MatchTimeout = patternTimeout
			re = compiled
		}
	}

	checkOne := func(input string, negative bool) {
		hit := len(dfa.Match([]byte(input))) > 0
		if hit == negative {
			msg := "produced no match"
			if negative {
				msg = "produced a match"
			}
			issues = append(issues, Issue{MachineID: m.ID, Input: input, Negative: negative, Message: msg})
		}

		if re == nil {
			return
		}
		patternHit, err := re.MatchString(input)
		if err != nil {
			issues = append(issues, Issue{
				MachineID: m.ID, Input: input, Negative: negative,
				Message: fmt.Sprintf("pattern evaluation failed: %v", err),
			})
			return
		}
		if patternHit != hit {
			issues = append(issues, Issue{
				MachineID: m.ID, Input: input, Negative: negative,
				Message: fmt.Sprintf("pattern match=%t disagrees with DFA match=%t", patternHit, hit),
			})
		}
	}

	for _, example := range m.Examples {
		checkOne(example, false)
	}
	for _, example := range m.NegativeExamples {
		checkOne(example, true)
	}

	return issues
}

// CheckAll runs Check on every machine.
func CheckAll(machines []*types.Machine) []Issue {
	var issues []Issue
	for _, m := range machines {
		issues = append(issues, Check(m)...)
	}
	return issues
}
