package matcher

import (
	"fmt"
	"runtime"
	"slices"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/praetorian-inc/dfamatch/pkg/prefilter"
	"github.com/praetorian-inc/dfamatch/pkg/statemachine"
	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// parallelThreshold is the blob size at which machines start running
// concurrently.
const parallelThreshold = 10000 // bytes

// MachineMatcher implements Matcher on top of statemachine.Machine.
//
// All state is read-only after construction and each scan keeps its own
// bookkeeping, so a MachineMatcher is safe for concurrent use.
type MachineMatcher struct {
	machines     []*types.Machine
	compiled     map[*types.Machine]*statemachine.Machine[byte, string]
	prefilter    *prefilter.Prefilter
	contextLines int
	dedupe       DedupeMode
	opts         Options
	logger       *zap.Logger
}

// NewMachineMatcher validates every machine table and prepares the
// prefilter.
func NewMachineMatcher(cfg Config) (*MachineMatcher, error) {
	if len(cfg.Machines) == 0 {
		return nil, fmt.Errorf("no machines provided")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &MachineMatcher{
		machines:     cfg.Machines,
		compiled:     make(map[*types.Machine]*statemachine.Machine[byte, string], len(cfg.Machines)),
		prefilter:    prefilter.New(cfg.Machines),
		contextLines: cfg.ContextLines,
		dedupe:       cfg.Dedupe,
		opts:         cfg.Options,
		logger:       logger,
	}

	for _, machine := range cfg.Machines {
		if err := statemachine.Validate(machine.DFA); err != nil {
			return nil, fmt.Errorf("machine %s: %w", machine.ID, err)
		}
		if machine.StructuralID == "" {
			machine.StructuralID = machine.ComputeStructuralID()
		}
		m.compiled[machine] = statemachine.New(machine.DFA)
	}

	return m, nil
}

// Machines returns the machines the matcher runs, in scan order.
func (m *MachineMatcher) Machines() []*types.Machine {
	return m.machines
}

// Match scans content against all loaded machines.
func (m *MachineMatcher) Match(content []byte) ([]*types.Match, error) {
	return m.MatchWithBlobID(content, types.ComputeBlobID(content))
}

// MatchWithBlobID scans content with a known BlobID.
func (m *MachineMatcher) MatchWithBlobID(content []byte, blobID types.BlobID) ([]*types.Match, error) {
	result, err := m.MatchDetailed(content, blobID)
	if err != nil {
		return nil, err
	}
	return result.Matches, nil
}

// machineRun is the outcome of one machine over one blob.
type machineRun struct {
	machine  *types.Machine
	matches  []*types.Match
	duration time.Duration
	err      error
}

// MatchDetailed scans content and reports per-machine statistics along with
// the matches, ordered by start offset.
func (m *MachineMatcher) MatchDetailed(content []byte, blobID types.BlobID) (*MatchResult, error) {
	candidates := m.prefilter.Filter(content)
	lines := types.NewLineIndex(content)

	runs := make([]machineRun, len(candidates))
	if len(content) >= parallelThreshold && len(candidates) > 1 {
		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i, machine := range candidates {
			g.Go(func() error {
				runs[i] = m.run(machine, content, blobID, lines)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, machine := range candidates {
			runs[i] = m.run(machine, content, blobID, lines)
		}
	}

	result := &MatchResult{
		MachineStats: make(map[string]MachineStat, len(m.machines)),
		Summary: ResultSummary{
			TotalMachines:   len(m.machines),
			SkippedMachines: len(m.machines) - len(candidates),
		},
	}
	for _, machine := range m.machines {
		result.MachineStats[machine.ID] = MachineStat{MachineID: machine.ID, Status: MachineSkipped}
	}

	dedup := NewDeduplicator(m.dedupe)
	for _, run := range runs {
		stat := MachineStat{MachineID: run.machine.ID, Duration: run.duration}

		if run.err != nil {
			if !m.opts.Tolerant {
				return nil, run.err
			}
			m.logger.Warn("machine failed, skipping it for this blob",
				zap.String("machine", run.machine.ID),
				zap.String("blob", blobID.Hex()),
				zap.Error(run.err))
			stat.Status = MachineFailed
			stat.Error = run.err
			result.Summary.FailedMachines++
			result.MachineStats[run.machine.ID] = stat
			continue
		}

		for _, match := range run.matches {
			if dedup.Keep(match) {
				result.Matches = append(result.Matches, match)
				stat.Matches++
			}
		}
		stat.Status = MachineCompleted
		result.Summary.CompletedMachines++
		result.MachineStats[run.machine.ID] = stat
	}

	sort.SliceStable(result.Matches, func(i, j int) bool {
		return result.Matches[i].Location.Offset.Start < result.Matches[j].Location.Offset.Start
	})

	return result, nil
}

// run executes one machine and locates its matches.
func (m *MachineMatcher) run(machine *types.Machine, content []byte, blobID types.BlobID, lines *types.LineIndex) machineRun {
	start := time.Now()
	recs, err := m.scan(machine, content)
	run := machineRun{machine: machine, err: err}
	if err == nil {
		for _, rec := range recs {
			run.matches = append(run.matches, m.buildMatch(blobID, machine, rec, content, lines))
		}
	}
	run.duration = time.Since(start)
	return run
}

// buildMatch converts an inclusive run into a located match.
func (m *MachineMatcher) buildMatch(
	blobID types.BlobID,
	machine *types.Machine,
	rec statemachine.Match[string],
	content []byte,
	lines *types.LineIndex,
) *types.Match {
	offset := types.InclusiveSpan(rec.Start, rec.End)
	start, end := int(offset.Start), int(offset.End)

	before, after := ExtractContext(content, start, end, m.contextLines)
	matching := slices.Clone(content[start:end])
	tags := slices.Clone(rec.Tags)

	match := &types.Match{
		BlobID:      blobID,
		MachineID:   machine.ID,
		MachineName: machine.Name,
		Tags:        tags,
		Location: types.Location{
			Offset: offset,
			Source: lines.Span(offset),
		},
		Snippet: types.Snippet{
			Before:   before,
			Matching: matching,
			After:    after,
		},
	}
	match.StructuralID = match.ComputeStructuralID(machine.StructuralID)
	match.FindingID = types.ComputeFindingID(machine.StructuralID, tags, matching)
	return match
}

// Machine returns the machine with the given ID, or nil.
func (m *MachineMatcher) Machine(id string) *types.Machine {
	for _, machine := range m.machines {
		if machine.ID == id {
			return machine
		}
	}
	return nil
}

// Apply runs one machine over content and calls the action registered for
// each tag of every match, in match order. Tags without an action are
// skipped. The prefilter is not consulted.
//
// A malformed table is reported as *MachineError. Panics raised by actions
// are not recovered.
func (m *MachineMatcher) Apply(machineID string, content []byte, actions statemachine.Actions[byte, string]) error {
	machine := m.Machine(machineID)
	if machine == nil {
		return fmt.Errorf("unknown machine %q", machineID)
	}
	runs, err := m.scan(machine, content)
	if err != nil {
		return err
	}
	for _, run := range runs {
		for _, tag := range run.Tags {
			if action := actions[tag]; action != nil {
				action(run.Start, run.End, content[run.Start:run.End+1])
			}
		}
	}
	return nil
}

// scan runs machine over content, converting a panic from a malformed table
// into a *MachineError.
func (m *MachineMatcher) scan(machine *types.Machine, content []byte) (runs []statemachine.Match[string], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &MachineError{MachineID: machine.ID, Cause: fmt.Errorf("%v", r)}
		}
	}()
	return m.compiled[machine].Match(content), nil
}

// Close releases resources (no-op).
func (m *MachineMatcher) Close() error {
	return nil
}
