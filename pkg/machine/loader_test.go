package machine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/praetorian-inc/dfamatch/pkg/statemachine"
)

const abYAML = `machines:
  - id: test.ab.1
    name: A then B
    description: one or more a, then b
    pattern: 'a+b'
    keywords: [ab]
    categories: [test]
    examples: ["aab"]
    negative_examples: ["ba"]
    accepting: [3]
    tags:
      3: [ab]
    transitions:
      - {from: 1, to: 2, symbols: "a"}
      - {from: 2, to: 2, symbols: "a"}
      - {from: 2, to: 3, symbols: "b"}
`

func TestLoadMachine_Valid(t *testing.T) {
	m, err := NewLoader().LoadMachine([]byte(abYAML))
	if err != nil {
		t.Fatalf("LoadMachine failed: %v", err)
	}

	if m.ID != "test.ab.1" {
		t.Errorf("expected ID test.ab.1, got %s", m.ID)
	}
	if m.Name != "A then B" {
		t.Errorf("expected name 'A then B', got %s", m.Name)
	}
	if m.Pattern != "a+b" {
		t.Errorf("expected pattern a+b, got %s", m.Pattern)
	}
	if m.NumStates() != 4 {
		t.Errorf("expected 4 states, got %d", m.NumStates())
	}
	if got := m.DFA.StateTable[2]['b']; got != 3 {
		t.Errorf("expected 2 -b-> 3, got %d", got)
	}
	if !m.DFA.Accepting[3] || m.DFA.Accepting[2] {
		t.Errorf("unexpected accepting mask %v", m.DFA.Accepting)
	}
	if len(m.DFA.Tags[3]) != 1 || m.DFA.Tags[3][0] != "ab" {
		t.Errorf("unexpected tags %v", m.DFA.Tags)
	}
	if m.StructuralID == "" || m.StructuralID != m.ComputeStructuralID() {
		t.Errorf("expected StructuralID to be computed, got %q", m.StructuralID)
	}
	if len(m.Keywords) != 1 || len(m.Examples) != 1 || len(m.NegativeExamples) != 1 {
		t.Errorf("metadata not carried over: %+v", m)
	}
}

func TestLoadMachine_JSON(t *testing.T) {
	doc := `{"machines": [{
		"id": "test.json.1",
		"name": "JSON",
		"accepting": [2],
		"tags": {"2": ["x"]},
		"transitions": [{"from": 1, "to": 2, "symbols": "x"}]
	}]}`

	m, err := NewLoader().LoadMachine([]byte(doc))
	if err != nil {
		t.Fatalf("LoadMachine failed: %v", err)
	}
	if m.DFA.Tags[2][0] != "x" {
		t.Errorf("expected tag x on state 2, got %v", m.DFA.Tags)
	}
}

func TestLoadMachine_StateTable(t *testing.T) {
	doc := `machines:
  - id: test.dense.1
    name: Dense
    accepting: [2]
    state_table:
      - []
      - [0, 2, 0]
      - [0, 2]
`
	m, err := NewLoader().LoadMachine([]byte(doc))
	if err != nil {
		t.Fatalf("LoadMachine failed: %v", err)
	}

	if got := m.DFA.StateTable[1][1]; got != 2 {
		t.Errorf("expected 1 -\\x01-> 2, got %d", got)
	}
	if _, ok := m.DFA.StateTable[1][0]; ok {
		t.Error("zero entries should be left out of the row")
	}
	matches := statemachine.New(m.DFA).Match([]byte{1, 1, 0, 1})
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %v", matches)
	}
}

func TestLoadMachines_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind ErrorKind
	}{
		{
			name: "missing table",
			doc:  "machines:\n  - {id: a, name: A, accepting: [1]}\n",
			kind: MissingTable,
		},
		{
			name: "conflicting tables",
			doc: `machines:
  - id: a
    name: A
    state_table: [[], []]
    transitions: [{from: 1, to: 1, symbols: "a"}]
`,
			kind: ConflictingTables,
		},
		{
			name: "bad symbol set",
			doc:  "machines:\n  - {id: a, name: A, transitions: [{from: 1, to: 2, symbols: \"z-a\"}]}\n",
			kind: InvalidSymbolSet,
		},
		{
			name: "nondeterministic",
			doc: `machines:
  - id: a
    name: A
    transitions:
      - {from: 1, to: 2, symbols: "a-c"}
      - {from: 1, to: 3, symbols: "c"}
`,
			kind: Nondeterministic,
		},
		{
			name: "accepting fail state",
			doc:  "machines:\n  - {id: a, name: A, accepting: [0], transitions: [{from: 1, to: 1, symbols: a}]}\n",
			kind: InvalidTable,
		},
		{
			name: "bad tag key",
			doc:  "machines:\n  - {id: a, name: A, tags: {two: [x]}, transitions: [{from: 1, to: 1, symbols: a}]}\n",
			kind: InvalidTable,
		},
		{
			name: "missing name",
			doc:  "machines:\n  - {id: a, transitions: [{from: 1, to: 1, symbols: a}]}\n",
			kind: MissingField,
		},
		{
			name: "duplicate id",
			doc: `machines:
  - {id: a, name: A, transitions: [{from: 1, to: 1, symbols: a}]}
  - {id: a, name: B, transitions: [{from: 1, to: 1, symbols: b}]}
`,
			kind: DuplicateID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().LoadMachines([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, &DescriptorError{Kind: tt.kind}) {
				t.Errorf("expected %s error, got %v", tt.kind, err)
			}
		})
	}
}

func TestLoadMachine_InvalidYAML(t *testing.T) {
	_, err := NewLoader().LoadMachine([]byte(`this is not valid yaml: [[[`))
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadMachine_NoMachines(t *testing.T) {
	_, err := NewLoader().LoadMachine([]byte(`machines: []`))
	if err == nil || !strings.Contains(err.Error(), "no machines") {
		t.Errorf("expected 'no machines' error, got %v", err)
	}
}

func TestLoadMachine_Multiple(t *testing.T) {
	doc := `machines:
  - {id: a, name: A, transitions: [{from: 1, to: 1, symbols: a}]}
  - {id: b, name: B, transitions: [{from: 1, to: 1, symbols: b}]}
`
	_, err := NewLoader().LoadMachine([]byte(doc))
	if err == nil || !strings.Contains(err.Error(), "expected single machine") {
		t.Errorf("expected single-machine error, got %v", err)
	}
}

func TestLoadPath(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ab.yml"), []byte(abYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	other := "machines:\n  - {id: test.c.1, name: C, transitions: [{from: 1, to: 1, symbols: c}]}\n"
	if err := os.WriteFile(filepath.Join(sub, "c.yaml"), []byte(other), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader()

	machines, err := loader.LoadPath(dir)
	if err != nil {
		t.Fatalf("LoadPath(dir) failed: %v", err)
	}
	if len(machines) != 2 || machines[0].ID != "test.ab.1" || machines[1].ID != "test.c.1" {
		t.Errorf("unexpected machines: %v", machines)
	}

	machines, err = loader.LoadPath(filepath.Join(dir, "ab.yml"))
	if err != nil {
		t.Fatalf("LoadPath(file) failed: %v", err)
	}
	if len(machines) != 1 {
		t.Errorf("expected 1 machine, got %d", len(machines))
	}

	if _, err := loader.LoadPath(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestLoadPath_DuplicateAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"one.yml", "two.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(abYAML), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	_, err := NewLoader().LoadPath(dir)
	if !errors.Is(err, &DescriptorError{Kind: DuplicateID}) {
		t.Errorf("expected duplicate ID error, got %v", err)
	}
}

func TestLoadBuiltinMachines_CustomFS(t *testing.T) {
	fsys := fstest.MapFS{
		"machines/ab.yml":    {Data: []byte(abYAML)},
		"machines/notes.txt": {Data: []byte("skip me")},
	}

	machines, err := NewLoaderWithFS(fsys).LoadBuiltinMachines()
	if err != nil {
		t.Fatalf("LoadBuiltinMachines failed: %v", err)
	}
	if len(machines) != 1 || machines[0].ID != "test.ab.1" {
		t.Errorf("unexpected machines: %v", machines)
	}
}
