package matcher

import (
	"go.uber.org/zap"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// Config for matcher initialization.
type Config struct {
	// Machines to run. Their tables must not be mutated while the matcher is
	// in use.
	Machines []*types.Machine

	// ContextLines is the number of lines captured before and after each
	// match (0 = none).
	ContextLines int

	// Dedupe selects how repeated matches within one blob are collapsed.
	Dedupe DedupeMode

	// Options controls failure handling.
	Options Options

	// Logger receives warnings about machines that fail; nil disables logging.
	Logger *zap.Logger
}

// Options contains configuration for matcher behavior.
type Options struct {
	// Tolerant keeps scanning when a machine fails on a blob. The failure is
	// logged and recorded in MatchResult instead of being returned.
	Tolerant bool
}
