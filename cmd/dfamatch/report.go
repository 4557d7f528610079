package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/praetorian-inc/dfamatch/pkg/sarif"
	"github.com/praetorian-inc/dfamatch/pkg/store"
	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// maxSnippetLen bounds the rendered snippet of one match.
const maxSnippetLen = 500

// maxMatchesShown is the number of matches printed per finding.
const maxMatchesShown = 3

var (
	reportDatastore string
	reportFormat    string
	reportColor     string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the findings recorded in a datastore",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDatastore, "datastore", "dfamatch.db", "Datastore path or postgres:// DSN")
	reportCmd.Flags().StringVar(&reportFormat, "format", "human", "Output format: human, json, sarif")
	reportCmd.Flags().StringVar(&reportColor, "color", "auto", "Color output: auto, always, never")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportDatastore == store.MemoryPath {
		return fmt.Errorf("cannot report from in-memory store")
	}
	if !store.IsPostgresDSN(reportDatastore) {
		if _, err := os.Stat(reportDatastore); err != nil {
			return fmt.Errorf("datastore not found: %s", reportDatastore)
		}
	}

	s, err := store.New(store.Config{Path: reportDatastore})
	if err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	switch reportFormat {
	case "json":
		return outputReportJSON(out, s)
	case "human":
		return outputHuman(out, s, newStyles(colorEnabled(reportColor)))
	case "sarif":
		return outputSARIF(out, s)
	default:
		return fmt.Errorf("unknown output format: %s", reportFormat)
	}
}

// styles holds the color formatters of the human report.
type styles struct {
	findingHeading *color.Color
	id             *color.Color
	machineName    *color.Color
	heading        *color.Color
	match          *color.Color
	metadata       *color.Color
	tag            *color.Color
}

func newStyles(enabled bool) *styles {
	s := &styles{
		findingHeading: color.New(color.Bold, color.FgHiWhite),
		id:             color.New(color.FgHiGreen),
		machineName:    color.New(color.Bold, color.FgHiBlue),
		heading:        color.New(color.Bold),
		match:          color.New(color.FgYellow),
		metadata:       color.New(color.FgHiBlue),
		tag:            color.New(color.FgHiMagenta),
	}
	for _, c := range []*color.Color{s.findingHeading, s.id, s.machineName, s.heading, s.match, s.metadata, s.tag} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// colorEnabled resolves a --color mode. auto enables color only on a
// terminal and only when NO_COLOR is unset.
func colorEnabled(mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""
	}
}

// snippetParts holds separated snippet components for colored output.
type snippetParts struct {
	prefix   string // "..." if truncated at start
	before   string
	matching string
	after    string
	suffix   string // "..." if truncated at end
}

func (p snippetParts) empty() bool {
	return p.prefix == "" && p.before == "" && p.matching == "" && p.after == "" && p.suffix == ""
}

// formatSnippetWithParts cuts a window of at most maxLen bytes centered on
// the matching part.
func formatSnippetWithParts(before, matching, after []byte, maxLen int) snippetParts {
	full := string(before) + string(matching) + string(after)
	if len(full) <= maxLen {
		return snippetParts{before: string(before), matching: string(matching), after: string(after)}
	}

	if len(matching) >= maxLen {
		return snippetParts{prefix: "...", matching: string(matching[:maxLen-6]), suffix: "..."}
	}

	matchStart := len(before)
	matchEnd := matchStart + len(matching)
	half := (maxLen - len(matching) - 6) / 2

	start, end := matchStart-half, matchEnd+half
	if start < 0 {
		end -= start
		start = 0
	}
	if end > len(full) {
		start = max(start-(end-len(full)), 0)
		end = len(full)
	}

	parts := snippetParts{
		before:   full[start:matchStart],
		matching: full[matchStart:matchEnd],
		after:    full[matchEnd:end],
	}
	if start > 0 {
		parts.prefix = "..."
	}
	if end < len(full) {
		parts.suffix = "..."
	}
	return parts
}

// groupByFinding indexes matches by the finding they belong to.
func groupByFinding(matches []*types.Match) map[string][]*types.Match {
	grouped := make(map[string][]*types.Match)
	for _, m := range matches {
		grouped[m.FindingID] = append(grouped[m.FindingID], m)
	}
	return grouped
}

// provenancePaths resolves and caches the displayed path of each blob,
// falling back to the blob ID.
type provenancePaths struct {
	s     store.Store
	cache map[types.BlobID]string
}

func newProvenancePaths(s store.Store) *provenancePaths {
	return &provenancePaths{s: s, cache: make(map[types.BlobID]string)}
}

func (p *provenancePaths) path(blobID types.BlobID) string {
	if path, ok := p.cache[blobID]; ok {
		return path
	}
	path := blobID.Hex()
	if provs, err := p.s.GetProvenance(blobID); err == nil {
		for _, prov := range provs {
			if prov.Path() != "" {
				path = prov.Path()
				break
			}
		}
	}
	p.cache[blobID] = path
	return path
}

func outputReportJSON(w io.Writer, s store.Store) error {
	findings, err := s.GetFindings()
	if err != nil {
		return fmt.Errorf("retrieving findings: %w", err)
	}
	matches, err := s.GetAllMatches()
	if err != nil {
		return fmt.Errorf("retrieving matches: %w", err)
	}

	grouped := groupByFinding(matches)
	for _, f := range findings {
		f.Matches = grouped[f.ID]
	}
	return writeJSON(w, findings)
}

func outputHuman(w io.Writer, s store.Store, st *styles) error {
	findings, err := s.GetFindings()
	if err != nil {
		return fmt.Errorf("retrieving findings: %w", err)
	}
	if len(findings) == 0 {
		fmt.Fprintln(w, "No findings.")
		return nil
	}

	matches, err := s.GetAllMatches()
	if err != nil {
		return fmt.Errorf("retrieving matches: %w", err)
	}
	machines, err := s.GetMachines()
	if err != nil {
		return fmt.Errorf("retrieving machines: %w", err)
	}
	names := make(map[string]string, len(machines))
	for _, m := range machines {
		names[m.ID] = m.Name
	}

	grouped := groupByFinding(matches)
	paths := newProvenancePaths(s)

	for i, f := range findings {
		fmt.Fprintf(w, "%s (%s %s)\n",
			st.findingHeading.Sprintf("Finding %d/%d", i+1, len(findings)),
			st.heading.Sprint("id"),
			st.id.Sprint(f.ID))

		name := names[f.MachineID]
		if name == "" {
			name = f.MachineID
		}
		fmt.Fprintf(w, "%s %s\n", st.heading.Sprint("Machine:"), st.machineName.Sprint(name))
		if len(f.Tags) > 0 {
			fmt.Fprintf(w, "%s %s\n", st.heading.Sprint("Tags:"), st.tag.Sprint(strings.Join(f.Tags, ", ")))
		}
		fmt.Fprintf(w, "%s %s\n", st.heading.Sprint("Content:"), st.match.Sprint(string(f.Content)))

		findingMatches := grouped[f.ID]
		total := len(findingMatches)
		if total > maxMatchesShown {
			fmt.Fprintf(w, "Showing %d/%d matches:\n", maxMatchesShown, total)
			findingMatches = findingMatches[:maxMatchesShown]
		}

		for k, m := range findingMatches {
			fmt.Fprintf(w, "\n    %s (%s %s)\n",
				st.heading.Sprintf("Match %d/%d", k+1, total),
				st.heading.Sprint("id"),
				st.id.Sprint(m.StructuralID))
			fmt.Fprintf(w, "    %s %s\n", st.heading.Sprint("File:"), st.metadata.Sprint(paths.path(m.BlobID)))
			fmt.Fprintf(w, "    %s %s\n", st.heading.Sprint("Blob:"), st.metadata.Sprint(m.BlobID.Hex()))
			fmt.Fprintf(w, "    %s %d-%d\n", st.heading.Sprint("Bytes:"), m.Location.Offset.Start, m.Location.Offset.End)
			if m.Location.Source.Start.Line > 0 {
				fmt.Fprintf(w, "    %s %d:%d-%d:%d\n",
					st.heading.Sprint("Lines:"),
					m.Location.Source.Start.Line, m.Location.Source.Start.Column,
					m.Location.Source.End.Line, m.Location.Source.End.Column)
			}

			parts := formatSnippetWithParts(m.Snippet.Before, m.Snippet.Matching, m.Snippet.After, maxSnippetLen)
			if !parts.empty() {
				fmt.Fprintf(w, "\n        %s%s%s%s%s\n",
					parts.prefix, parts.before, st.match.Sprint(parts.matching), parts.after, parts.suffix)
			}
		}
		fmt.Fprint(w, "\n\n")
	}
	return nil
}

// outputSARIF writes every stored match as a SARIF 2.1.0 log.
func outputSARIF(w io.Writer, s store.Store) error {
	machines, err := s.GetMachines()
	if err != nil {
		return fmt.Errorf("retrieving machines: %w", err)
	}
	matches, err := s.GetAllMatches()
	if err != nil {
		return fmt.Errorf("retrieving matches: %w", err)
	}

	report := sarif.NewReport()
	for _, m := range machines {
		report.AddMachine(m)
	}
	paths := newProvenancePaths(s)
	for _, m := range matches {
		report.AddResult(m, paths.path(m.BlobID))
	}

	data, err := report.ToJSON()
	if err != nil {
		return fmt.Errorf("serializing SARIF: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing SARIF output: %w", err)
	}
	return nil
}
