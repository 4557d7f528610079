package machine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	base := func(extra string) string {
		return `machines:
  - id: test.ab.1
    name: AB
    accepting: [3]
    tags: {3: [ab]}
    transitions:
      - {from: 1, to: 2, symbols: a}
      - {from: 2, to: 3, symbols: b}
` + extra
	}

	tests := []struct {
		name     string
		extra    string
		messages []string
	}{
		{
			name:  "clean",
			extra: "    pattern: ab\n    examples: [xab]\n    negative_examples: [ba]\n",
		},
		{
			name:     "example without match",
			extra:    "    examples: [aa]\n",
			messages: []string{"produced no match"},
		},
		{
			name:     "negative example with match",
			extra:    "    negative_examples: [cab]\n",
			messages: []string{"produced a match"},
		},
		{
			name:     "negative example matched by both",
			extra:    "    pattern: 'a+b'\n    negative_examples: [aab]\n",
			messages: []string{"produced a match"},
		},
		{
			name:     "pattern disagrees only with the engine",
			extra:    "    pattern: 'c'\n    examples: [ab]\n",
			messages: []string{"disagrees"},
		},
		{
			name:     "pattern does not compile",
			extra:    "    pattern: '(a'\n",
			messages: []string{"does not compile"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewLoader().LoadMachine([]byte(base(tt.extra)))
			require.NoError(t, err)

			issues := Check(m)
			require.Len(t, issues, len(tt.messages), "%v", issues)
			for i, msg := range tt.messages {
				assert.Contains(t, issues[i].String(), msg)
				assert.Equal(t, "test.ab.1", issues[i].MachineID)
			}
		})
	}
}

func TestIssue_String(t *testing.T) {
	assert.Equal(t, "m: broken", Issue{MachineID: "m", Message: "broken"}.String())
	assert.True(t, strings.HasPrefix(Issue{MachineID: "m", Input: "x", Negative: true, Message: "bad"}.String(), `m: negative example "x"`))
}
