// Package scanner wraps a matcher and an in-memory store behind a small
// content-in, matches-out API used by the serve command.
package scanner

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/praetorian-inc/dfamatch/pkg/machine"
	"github.com/praetorian-inc/dfamatch/pkg/matcher"
	"github.com/praetorian-inc/dfamatch/pkg/store"
	"github.com/praetorian-inc/dfamatch/pkg/types"
)

var (
	builtinOnce     sync.Once
	builtinMachines []*types.Machine
	builtinErr      error
)

// BuiltinMachines returns the embedded machines, loaded once per process.
func BuiltinMachines() ([]*types.Machine, error) {
	builtinOnce.Do(func() {
		builtinMachines, builtinErr = machine.NewLoader().LoadBuiltinMachines()
	})
	return builtinMachines, builtinErr
}

// Core wraps the matcher and store for scanning operations.
type Core struct {
	matcher *matcher.MachineMatcher
	store   store.Store
	logger  *zap.Logger
}

// NewCore creates a Core. machinesDoc is "" or "builtin" for the embedded
// machines, or a YAML or JSON descriptor document.
func NewCore(machinesDoc string, logger *zap.Logger) (*Core, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var machines []*types.Machine
	var err error
	if machinesDoc == "" || machinesDoc == "builtin" {
		machines, err = BuiltinMachines()
	} else {
		machines, err = machine.NewLoader().LoadMachines([]byte(machinesDoc))
	}
	if err != nil {
		return nil, fmt.Errorf("loading machines: %w", err)
	}
	logger.Debug("machines loaded", zap.Int("count", len(machines)))

	m, err := matcher.NewMachineMatcher(matcher.Config{
		Machines:     machines,
		ContextLines: 2,
		Options:      matcher.Options{Tolerant: true},
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating matcher: %w", err)
	}

	s := store.NewMemory()
	for _, mc := range machines {
		if err := s.AddMachine(mc); err != nil {
			return nil, err
		}
	}

	return &Core{matcher: m, store: s, logger: logger}, nil
}

// Machines returns the machines the core scans with.
func (c *Core) Machines() []*types.Machine {
	return c.matcher.Machines()
}

// Store returns the store that accumulates every scan result.
func (c *Core) Store() store.Store {
	return c.store
}

// Scan scans a single content string.
func (c *Core) Scan(content, source string) (*ScanResult, error) {
	return c.scan(ContentItem{Content: content, Source: source})
}

// ScanBatch scans items in order. An item that fails carries its error in
// its result and does not stop the batch.
func (c *Core) ScanBatch(items []ContentItem) (*BatchScanResult, error) {
	batch := &BatchScanResult{Results: make([]ScanResult, 0, len(items))}

	for _, item := range items {
		result, err := c.scan(item)
		if err != nil {
			c.logger.Warn("scan failed", zap.String("source", item.Source), zap.Error(err))
			batch.Results = append(batch.Results, ScanResult{Source: item.Source, Matches: []*types.Match{}, Error: err.Error()})
			batch.Failed++
			continue
		}
		batch.Results = append(batch.Results, *result)
		batch.Total += len(result.Matches)
	}

	return batch, nil
}

func (c *Core) scan(item ContentItem) (*ScanResult, error) {
	data := []byte(item.Content)
	blobID := types.ComputeBlobID(data)

	matches, err := c.matcher.MatchWithBlobID(data, blobID)
	if err != nil {
		return nil, err
	}

	if err := Persist(c.store, data, blobID, item.provenance(), matches); err != nil {
		return nil, err
	}
	c.logger.Debug("scanned",
		zap.String("source", item.Source),
		zap.Stringer("blob", blobID),
		zap.Int("matches", len(matches)))

	if matches == nil {
		matches = []*types.Match{}
	}
	return &ScanResult{Source: item.Source, BlobID: blobID, Matches: matches}, nil
}

func (item ContentItem) provenance() types.Provenance {
	payload := map[string]any{"source": item.Source}
	for k, v := range item.Metadata {
		if k != "source" {
			payload[k] = v
		}
	}
	return types.ExtendedProvenance{Payload: payload}
}

// Close releases scanner resources.
func (c *Core) Close() error {
	c.matcher.Close()
	return c.store.Close()
}
