package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/dfamatch/pkg/store"
	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// newReportCmd creates a fresh report command for testing.
func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "report",
		RunE: runReport,
	}
	cmd.Flags().StringVar(&reportDatastore, "datastore", "dfamatch.db", "")
	cmd.Flags().StringVar(&reportFormat, "format", "human", "")
	cmd.Flags().StringVar(&reportColor, "color", "auto", "")
	return cmd
}

// scannedDatastore scans one file with the number machine into a new
// SQLite datastore and returns its path.
func scannedDatastore(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "input.txt", content)
	dbPath := filepath.Join(t.TempDir(), "scan.db")

	resetScanFlags(dbPath)
	scanMachineInclude = `^dfa\.number\.`
	cmd, _, _ := newTestCmd()
	require.NoError(t, runScan(cmd, []string{dir}))
	return dbPath
}

func executeReport(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := newReportCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestReportCommand_HumanFormat(t *testing.T) {
	dbPath := scannedDatastore(t, "first 10\nsecond 10\nthird 2.5\n")

	out, err := executeReport(t, "--datastore", dbPath, "--color", "never")
	require.NoError(t, err)

	assert.Contains(t, out, "Finding 1/2")
	assert.Contains(t, out, "Finding 2/2")
	assert.Contains(t, out, "Machine: Decimal Number")
	assert.Contains(t, out, "Tags: decimal, number")
	assert.Contains(t, out, "Match 2/2")
	assert.Contains(t, out, "input.txt")
	assert.NotContains(t, out, "\x1b[", "color must be disabled")
}

func TestReportCommand_ColorAlways(t *testing.T) {
	dbPath := scannedDatastore(t, "42\n")

	out, err := executeReport(t, "--datastore", dbPath, "--color", "always")
	require.NoError(t, err)
	assert.Contains(t, out, "\x1b[")
}

func TestReportCommand_JSONFormat(t *testing.T) {
	dbPath := scannedDatastore(t, "7 and 7\n")

	out, err := executeReport(t, "--datastore", dbPath, "--format", "json")
	require.NoError(t, err)

	var findings []*types.Finding
	require.NoError(t, json.Unmarshal([]byte(out), &findings))
	require.Len(t, findings, 1)
	assert.Equal(t, "7", string(findings[0].Content))
	assert.Len(t, findings[0].Matches, 2)
}

func TestReportCommand_SARIFFormat(t *testing.T) {
	dbPath := scannedDatastore(t, "3.14\n")

	out, err := executeReport(t, "--datastore", dbPath, "--format", "sarif")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "2.1.0"`)
	assert.Contains(t, out, "dfa.number.1")
}

func TestReportCommand_NoFindings(t *testing.T) {
	dbPath := scannedDatastore(t, "no digits here\n")

	out, err := executeReport(t, "--datastore", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No findings.")
}

func TestReportCommand_Errors(t *testing.T) {
	_, err := executeReport(t, "--datastore", store.MemoryPath)
	assert.ErrorContains(t, err, "in-memory")

	_, err = executeReport(t, "--datastore", filepath.Join(t.TempDir(), "missing.db"))
	assert.ErrorContains(t, err, "datastore not found")

	dbPath := scannedDatastore(t, "1\n")
	_, err = executeReport(t, "--datastore", dbPath, "--format", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestFormatSnippetWithParts(t *testing.T) {
	tests := []struct {
		name     string
		before   string
		matching string
		after    string
		maxLen   int
		want     snippetParts
	}{
		{
			name:     "fits",
			before:   "a = ",
			matching: "12",
			after:    ";",
			maxLen:   100,
			want:     snippetParts{before: "a = ", matching: "12", after: ";"},
		},
		{
			name:     "match longer than window",
			matching: strings.Repeat("9", 30),
			maxLen:   16,
			want:     snippetParts{prefix: "...", matching: strings.Repeat("9", 10), suffix: "..."},
		},
		{
			name:     "centered",
			before:   strings.Repeat("b", 20),
			matching: "42",
			after:    strings.Repeat("a", 20),
			maxLen:   18,
			want: snippetParts{
				prefix:   "...",
				before:   "bbbbb",
				matching: "42",
				after:    "aaaaa",
				suffix:   "...",
			},
		},
		{
			name:     "clamped at start",
			before:   "x",
			matching: "42",
			after:    strings.Repeat("a", 40),
			maxLen:   18,
			want: snippetParts{
				before:   "x",
				matching: "42",
				after:    strings.Repeat("a", 9),
				suffix:   "...",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatSnippetWithParts([]byte(tt.before), []byte(tt.matching), []byte(tt.after), tt.maxLen)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColorEnabled(t *testing.T) {
	assert.True(t, colorEnabled("always"))
	assert.False(t, colorEnabled("never"))

	t.Setenv("NO_COLOR", "1")
	assert.False(t, colorEnabled("auto"))
}

func TestRunExplore_MissingDatastore(t *testing.T) {
	exploreDatastore = filepath.Join(t.TempDir(), "missing.db")
	cmd, _, _ := newTestCmd()
	err := runExplore(cmd, nil)
	assert.ErrorContains(t, err, "datastore not found")
}
