package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetApplyFlags(machineID string, tags ...string) {
	applyMachinesPath = ""
	applyMachineID = machineID
	applyTags = tags
	applyColor = "never"
}

func TestRunApply_SelectedTag(t *testing.T) {
	path := writeFile(t, t.TempDir(), "input.txt", "1 2.50 3")
	resetApplyFlags("dfa.number.1", "decimal")

	cmd, out, _ := newTestCmd()
	require.NoError(t, runApply(cmd, []string{path}))
	assert.Equal(t, "decimal 2-5 \"2.50\"\n", out.String())
}

func TestRunApply_AllTags(t *testing.T) {
	path := writeFile(t, t.TempDir(), "input.txt", "1 2.50")
	resetApplyFlags("dfa.number.1")

	cmd, out, _ := newTestCmd()
	require.NoError(t, runApply(cmd, []string{path}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		`integer 0-0 "1"`,
		`number 0-0 "1"`,
		`decimal 2-5 "2.50"`,
		`number 2-5 "2.50"`,
	}, lines)
}

func TestRunApply_Stdin(t *testing.T) {
	resetApplyFlags("dfa.hexcolor.1", "short")

	cmd, out, _ := newTestCmd()
	cmd.SetIn(strings.NewReader("a { color: #fff }"))
	require.NoError(t, runApply(cmd, []string{stdinTarget}))
	assert.Contains(t, out.String(), `short 11-14 "#fff"`)
}

func TestRunApply_Errors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "input.txt", "1")

	resetApplyFlags("dfa.missing.1")
	cmd, _, _ := newTestCmd()
	assert.ErrorContains(t, runApply(cmd, []string{path}), "unknown machine")

	resetApplyFlags("dfa.number.1")
	cmd, _, _ = newTestCmd()
	assert.ErrorContains(t, runApply(cmd, []string{"/nonexistent/input.txt"}), "reading file")
}
