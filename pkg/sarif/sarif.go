// Package sarif renders matches as a SARIF 2.1.0 log. Each machine becomes
// a rule and each match a result.
package sarif

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// SARIF 2.1.0 constants
const (
	SchemaURI = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
	Version   = "2.1.0"
	ToolName  = "dfamatch"
)

// ToolVersion is reported in the driver block. The CLI overrides it with
// the build version.
var ToolVersion = "0.1.0"

// Report is the top-level SARIF log.
type Report struct {
	Schema  string `json:"$schema"`
	Version string `json:"version"`
	Runs    []Run  `json:"runs"`
}

// Run is a single invocation of the tool.
type Run struct {
	Tool    Tool     `json:"tool"`
	Results []Result `json:"results"`
}

type Tool struct {
	Driver Driver `json:"driver"`
}

type Driver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Rules   []Rule `json:"rules,omitempty"`
}

// Rule describes one machine.
type Rule struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	ShortDescription Text            `json:"shortDescription"`
	HelpURI          string          `json:"helpUri,omitempty"`
	Properties       *RuleProperties `json:"properties,omitempty"`
}

type RuleProperties struct {
	Tags []string `json:"tags,omitempty"`
}

type Text struct {
	Text string `json:"text"`
}

// Result is one match.
type Result struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           int               `json:"ruleIndex"`
	Level               string            `json:"level"`
	Message             Text              `json:"message"`
	Locations           []Location        `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
	Properties          *ResultProperties `json:"properties,omitempty"`
}

type ResultProperties struct {
	Tags []string `json:"tags"`
}

type Location struct {
	PhysicalLocation PhysicalLocation `json:"physicalLocation"`
}

type PhysicalLocation struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
	Region           Region           `json:"region"`
}

type ArtifactLocation struct {
	URI string `json:"uri"`
}

// Region holds 1-based line and column bounds plus the byte range.
type Region struct {
	StartLine   int   `json:"startLine,omitempty"`
	StartColumn int   `json:"startColumn,omitempty"`
	EndLine     int   `json:"endLine,omitempty"`
	EndColumn   int   `json:"endColumn,omitempty"`
	ByteOffset  int64 `json:"byteOffset"`
	ByteLength  int64 `json:"byteLength"`
	Snippet     *Text `json:"snippet,omitempty"`
}

// NewReport creates an empty report with one run.
func NewReport() *Report {
	return &Report{
		Schema:  SchemaURI,
		Version: Version,
		Runs: []Run{{
			Tool:    Tool{Driver: Driver{Name: ToolName, Version: ToolVersion, Rules: []Rule{}}},
			Results: []Result{},
		}},
	}
}

// AddMachine registers a machine as a rule. Registering the same ID twice
// is a no-op.
func (r *Report) AddMachine(m *types.Machine) {
	if r.ruleIndex(m.ID) >= 0 {
		return
	}
	rule := Rule{
		ID:               m.ID,
		Name:             m.Name,
		ShortDescription: Text{Text: m.Description},
	}
	if rule.ShortDescription.Text == "" {
		rule.ShortDescription.Text = m.Name
	}
	if len(m.References) > 0 {
		rule.HelpURI = m.References[0]
	}
	if len(m.Categories) > 0 {
		rule.Properties = &RuleProperties{Tags: m.Categories}
	}
	r.Runs[0].Tool.Driver.Rules = append(r.Runs[0].Tool.Driver.Rules, rule)
}

// AddResult adds a match found in the file at filePath. A rule is created
// for the machine if none was registered.
func (r *Report) AddResult(match *types.Match, filePath string) {
	idx := r.ruleIndex(match.MachineID)
	if idx < 0 {
		r.AddMachine(&types.Machine{ID: match.MachineID, Name: match.MachineName})
		idx = len(r.Runs[0].Tool.Driver.Rules) - 1
	}

	region := Region{
		StartLine:   match.Location.Source.Start.Line,
		StartColumn: match.Location.Source.Start.Column,
		EndLine:     match.Location.Source.End.Line,
		EndColumn:   match.Location.Source.End.Column,
		ByteOffset:  match.Location.Offset.Start,
		ByteLength:  match.Location.Offset.Len(),
	}
	if len(match.Snippet.Matching) > 0 {
		region.Snippet = &Text{Text: string(match.Snippet.Matching)}
	}

	tags := match.Tags
	if tags == nil {
		tags = []string{}
	}

	result := Result{
		RuleID:    match.MachineID,
		RuleIndex: idx,
		Level:     "note",
		Message:   Text{Text: resultMessage(match)},
		Locations: []Location{{
			PhysicalLocation: PhysicalLocation{
				ArtifactLocation: ArtifactLocation{URI: formatFileURI(filePath)},
				Region:           region,
			},
		}},
		Properties: &ResultProperties{Tags: tags},
	}
	if match.StructuralID != "" || match.FindingID != "" {
		result.PartialFingerprints = map[string]string{}
		if match.StructuralID != "" {
			result.PartialFingerprints["matchId/v1"] = match.StructuralID
		}
		if match.FindingID != "" {
			result.PartialFingerprints["findingId/v1"] = match.FindingID
		}
	}

	r.Runs[0].Results = append(r.Runs[0].Results, result)
}

// ToJSON serializes the report to indented JSON.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func (r *Report) ruleIndex(id string) int {
	for i, rule := range r.Runs[0].Tool.Driver.Rules {
		if rule.ID == id {
			return i
		}
	}
	return -1
}

// resultMessage renders "Name [tag, tag]".
func resultMessage(m *types.Match) string {
	name := m.MachineName
	if name == "" {
		name = m.MachineID
	}
	if len(m.Tags) == 0 {
		return name
	}
	return name + " [" + strings.Join(m.Tags, ", ") + "]"
}

// formatFileURI converts a file path to SARIF URI format.
// Absolute paths get a file:// prefix, relative paths stay as-is.
func formatFileURI(path string) string {
	if filepath.IsAbs(path) {
		path = filepath.ToSlash(path)
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		return "file://" + path
	}
	return filepath.ToSlash(path)
}
