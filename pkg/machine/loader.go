package machine

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// builtinDir is the directory inside the loader filesystem that holds
// builtin descriptors.
const builtinDir = "machines"

// Loader reads machine descriptors from YAML or JSON.
type Loader struct {
	fs fs.FS // filesystem holding builtinDir
}

// NewLoader creates a loader whose builtins come from the embedded descriptors.
func NewLoader() *Loader {
	return &Loader{fs: builtinFS}
}

// NewLoaderWithFS creates a loader whose builtins come from fsys.
func NewLoaderWithFS(fsys fs.FS) *Loader {
	return &Loader{fs: fsys}
}

// LoadMachines parses every machine in a descriptor document.
func (l *Loader) LoadMachines(data []byte) ([]*types.Machine, error) {
	var file yamlMachinesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor: %w", err)
	}
	if len(file.Machines) == 0 {
		return nil, fmt.Errorf("no machines found in descriptor")
	}

	machines := make([]*types.Machine, 0, len(file.Machines))
	for _, ym := range file.Machines {
		m, err := convertYAMLMachine(ym)
		if err != nil {
			return nil, err
		}
		machines = append(machines, m)
	}

	if err := ValidateMachines(machines); err != nil {
		return nil, err
	}
	return machines, nil
}

// LoadMachine parses a document that must hold exactly one machine.
func (l *Loader) LoadMachine(data []byte) (*types.Machine, error) {
	machines, err := l.LoadMachines(data)
	if err != nil {
		return nil, err
	}
	if len(machines) > 1 {
		return nil, fmt.Errorf("expected single machine, found %d", len(machines))
	}
	return machines[0], nil
}

// LoadFile loads all machines from one descriptor file.
func (l *Loader) LoadFile(path string) ([]*types.Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	machines, err := l.LoadMachines(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return machines, nil
}

// LoadPath loads a descriptor file, or every descriptor file below a
// directory in lexical order.
func (l *Loader) LoadPath(path string) ([]*types.Machine, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return l.LoadFile(path)
	}

	machines, err := l.walk(os.DirFS(path), ".")
	if err != nil {
		return nil, fmt.Errorf("failed to load machines from %s: %w", path, err)
	}
	return machines, nil
}

// LoadBuiltinMachines loads the builtin descriptors.
func (l *Loader) LoadBuiltinMachines() ([]*types.Machine, error) {
	return l.walk(l.fs, builtinDir)
}

func (l *Loader) walk(fsys fs.FS, root string) ([]*types.Machine, error) {
	var machines []*types.Machine

	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isDescriptorFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		loaded, err := l.LoadMachines(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		machines = append(machines, loaded...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := ValidateMachines(machines); err != nil {
		return nil, err
	}
	return machines, nil
}

func isDescriptorFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yml", ".yaml", ".json":
		return true
	}
	return false
}

// convertYAMLMachine compiles a descriptor into a validated Machine and
// computes its StructuralID.
func convertYAMLMachine(ym yamlMachine) (*types.Machine, error) {
	dfa, err := compile(ym)
	if err != nil {
		return nil, err
	}

	m := &types.Machine{
		ID:               ym.ID,
		Name:             ym.Name,
		Description:      ym.Description,
		Pattern:          ym.Pattern,
		Keywords:         ym.Keywords,
		Categories:       ym.Categories,
		Examples:         ym.Examples,
		NegativeExamples: ym.NegativeExamples,
		References:       ym.References,
		DFA:              dfa,
	}
	m.StructuralID = m.ComputeStructuralID()

	if err := ValidateMachine(m); err != nil {
		return nil, err
	}
	return m, nil
}
