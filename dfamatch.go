// Package dfamatch scans content with precompiled deterministic finite
// automata and reports the longest tagged runs they accept.
//
// # Basic Usage
//
// Create a scanner with the builtin machines and scan content:
//
//	scanner, err := dfamatch.NewScanner()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer scanner.Close()
//
//	matches, err := scanner.ScanString("width: 12.5px; color: #fff")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, m := range matches {
//	    fmt.Printf("%s %v at %d\n", m.MachineName, m.Tags, m.Location.Offset.Start)
//	}
//
// # Tag Actions
//
// Apply dispatches every match of one machine to a callback per tag:
//
//	err := scanner.Apply("dfa.number.1", content, dfamatch.Actions{
//	    "decimal": func(start, end int, run []byte) { fmt.Printf("%s\n", run) },
//	})
package dfamatch

import (
	"fmt"
	"os"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/praetorian-inc/dfamatch/pkg/machine"
	"github.com/praetorian-inc/dfamatch/pkg/matcher"
	"github.com/praetorian-inc/dfamatch/pkg/statemachine"
	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// Re-export commonly used types so callers can import only this package.
type (
	// Match is a single tagged run found in content.
	Match = types.Match

	// Machine is a compiled DFA with its descriptor metadata.
	Machine = types.Machine

	// Location describes where a match was found within content.
	Location = types.Location

	// Snippet holds the matched bytes with surrounding context.
	Snippet = types.Snippet

	// StateID identifies a DFA state.
	StateID = statemachine.StateID

	// Action receives one tagged run: inclusive start and end offsets and
	// the bytes of the run.
	Action = statemachine.Action[byte]

	// Actions maps tags to the action run for them.
	Actions = statemachine.Actions[byte, string]
)

// Re-export the reserved states.
const (
	FailState    = statemachine.FailState
	InitialState = statemachine.InitialState
)

// Scanner runs a set of machines over content. It is safe for concurrent
// use.
type Scanner struct {
	matcher *matcher.MachineMatcher
	config  *scannerConfig
	mu      sync.RWMutex
}

type scannerConfig struct {
	machines     []*types.Machine
	contextLines int
	tolerant     bool
	logger       *zap.Logger
}

// Option configures a Scanner.
type Option func(*scannerConfig)

// WithMachines uses the given machines instead of the builtin ones.
func WithMachines(machines []*Machine) Option {
	return func(c *scannerConfig) {
		c.machines = machines
	}
}

// WithContextLines sets the number of context lines captured around
// matches. Default is 2.
func WithContextLines(lines int) Option {
	return func(c *scannerConfig) {
		c.contextLines = lines
	}
}

// WithTolerant keeps scanning when a machine fails on some content; the
// failing machine contributes no matches for it.
func WithTolerant() Option {
	return func(c *scannerConfig) {
		c.tolerant = true
	}
}

// WithLogger sets the logger used for machine failures.
func WithLogger(logger *zap.Logger) Option {
	return func(c *scannerConfig) {
		c.logger = logger
	}
}

// NewScanner creates a Scanner. Without WithMachines it loads the builtin
// machines.
func NewScanner(opts ...Option) (*Scanner, error) {
	config := &scannerConfig{contextLines: 2}
	for _, opt := range opts {
		opt(config)
	}

	if config.machines == nil {
		machines, err := LoadBuiltinMachines()
		if err != nil {
			return nil, fmt.Errorf("loading builtin machines: %w", err)
		}
		config.machines = machines
	}

	m, err := matcher.NewMachineMatcher(matcher.Config{
		Machines:     config.machines,
		ContextLines: config.contextLines,
		Options:      matcher.Options{Tolerant: config.tolerant},
		Logger:       config.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating matcher: %w", err)
	}

	return &Scanner{matcher: m, config: config}, nil
}

// ScanString scans a string and returns all matches ordered by offset.
func (s *Scanner) ScanString(content string) ([]*Match, error) {
	return s.ScanBytes([]byte(content))
}

// ScanBytes scans raw bytes and returns all matches ordered by offset.
func (s *Scanner) ScanBytes(content []byte) ([]*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.matcher.Match(content)
}

// ScanFile reads and scans a file.
func (s *Scanner) ScanFile(path string) ([]*Match, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return s.ScanBytes(content)
}

// Apply runs the machine with the given ID over content and calls the
// action of each tag of every match, in order.
func (s *Scanner) Apply(machineID string, content []byte, actions Actions) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.matcher.Apply(machineID, content, actions)
}

// Close releases scanner resources.
func (s *Scanner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.matcher.Close()
}

// MachineCount returns the number of machines loaded.
func (s *Scanner) MachineCount() int {
	return len(s.config.machines)
}

// Machines returns a copy of the loaded machine list.
func (s *Scanner) Machines() []*Machine {
	return slices.Clone(s.config.machines)
}

// LoadMachinesFromFile loads every machine in a YAML or JSON descriptor
// file. Use it with WithMachines.
func LoadMachinesFromFile(path string) ([]*Machine, error) {
	return machine.NewLoader().LoadFile(path)
}

// LoadBuiltinMachines returns the embedded machines.
func LoadBuiltinMachines() ([]*Machine, error) {
	return machine.NewLoader().LoadBuiltinMachines()
}
