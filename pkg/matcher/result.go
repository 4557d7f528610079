package matcher

import (
	"fmt"
	"time"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// MachineStatus represents how a machine's scan of one blob ended.
type MachineStatus int

const (
	MachineCompleted MachineStatus = iota // ran to completion
	MachineSkipped                        // filtered out by the keyword prefilter
	MachineFailed                         // aborted with an error
)

// String returns the status name.
func (s MachineStatus) String() string {
	switch s {
	case MachineCompleted:
		return "completed"
	case MachineSkipped:
		return "skipped"
	case MachineFailed:
		return "error"
	default:
		return fmt.Sprintf("MachineStatus(%d)", int(s))
	}
}

// MachineStat describes one machine's scan of one blob.
type MachineStat struct {
	MachineID string
	Status    MachineStatus
	Matches   int           // matches kept after de-duplication
	Duration  time.Duration // time spent in the machine
	Error     error         // set when Status == MachineFailed
}

// ResultSummary aggregates MachineStats.
type ResultSummary struct {
	TotalMachines     int
	CompletedMachines int
	SkippedMachines   int
	FailedMachines    int
}

// MatchResult contains matches and execution statistics.
type MatchResult struct {
	Matches      []*types.Match
	MachineStats map[string]MachineStat
	Summary      ResultSummary
}

// MachineError reports a machine that aborted while scanning, typically
// because its table references a state with no row.
type MachineError struct {
	MachineID string
	Cause     error
}

// Error implements the error interface.
func (e *MachineError) Error() string {
	return fmt.Sprintf("machine %s failed: %v", e.MachineID, e.Cause)
}

// Unwrap returns the underlying error.
func (e *MachineError) Unwrap() error {
	return e.Cause
}
