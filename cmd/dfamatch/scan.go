package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/praetorian-inc/dfamatch/pkg/enum"
	"github.com/praetorian-inc/dfamatch/pkg/machine"
	"github.com/praetorian-inc/dfamatch/pkg/matcher"
	"github.com/praetorian-inc/dfamatch/pkg/scanner"
	"github.com/praetorian-inc/dfamatch/pkg/store"
	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// stdinTarget names standard input on the command line.
const stdinTarget = "-"

var (
	scanMachinesPath   string
	scanMachineInclude string
	scanMachineExclude string
	scanOutputPath     string
	scanOutputFormat   string
	scanGit            bool
	scanMaxFileSize    int64
	scanIncludeHidden  bool
	scanContextLines   int
	scanIncremental    bool
	scanTolerant       bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <target>...",
	Short: "Scan files, directories or git repositories",
	Long: `Scan one or more targets with the loaded machines and record every match
in a datastore. A target of "-" reads from standard input. Directories that
contain a .git directory are scanned as repositories.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanMachinesPath, "machines", "", "Path to a machine descriptor file or directory (default: builtin)")
	scanCmd.Flags().StringVar(&scanMachineInclude, "machines-include", "", "Include machines whose ID matches a regex (comma-separated)")
	scanCmd.Flags().StringVar(&scanMachineExclude, "machines-exclude", "", "Exclude machines whose ID matches a regex (comma-separated)")
	scanCmd.Flags().StringVar(&scanOutputPath, "output", "dfamatch.db", "Datastore path, :memory: or a postgres:// DSN")
	scanCmd.Flags().StringVar(&scanOutputFormat, "format", "human", "Output format: human, json, sarif")
	scanCmd.Flags().BoolVar(&scanGit, "git", false, "Enumerate the full git history of each target")
	scanCmd.Flags().Int64Var(&scanMaxFileSize, "max-file-size", 10*1024*1024, "Maximum file size to scan (bytes)")
	scanCmd.Flags().BoolVar(&scanIncludeHidden, "include-hidden", false, "Include hidden files and directories")
	scanCmd.Flags().IntVar(&scanContextLines, "context-lines", 2, "Lines of context before/after matches (0 to disable)")
	scanCmd.Flags().BoolVar(&scanIncremental, "incremental", false, "Skip blobs already in the datastore")
	scanCmd.Flags().BoolVar(&scanTolerant, "tolerant", false, "Log failing machines and keep scanning")
}

// scanStats counts enumeration results. The enumeration callback can run on
// several goroutines.
type scanStats struct {
	mu      sync.Mutex
	blobs   int
	matches int
	skipped int
}

func (s *scanStats) add(blobs, matches, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs += blobs
	s.matches += matches
	s.skipped += skipped
}

func runScan(cmd *cobra.Command, args []string) error {
	switch scanOutputFormat {
	case "human", "json", "sarif":
	default:
		return fmt.Errorf("unknown output format: %s", scanOutputFormat)
	}

	logger := newLogger()
	defer logger.Sync() //nolint:errcheck

	enumerator, err := createEnumerator(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	machines, err := loadMachines(scanMachinesPath, scanMachineInclude, scanMachineExclude)
	if err != nil {
		return fmt.Errorf("loading machines: %w", err)
	}
	if len(machines) == 0 {
		return fmt.Errorf("no machines selected")
	}

	m, err := matcher.NewMachineMatcher(matcher.Config{
		Machines:     machines,
		ContextLines: scanContextLines,
		Options:      matcher.Options{Tolerant: scanTolerant},
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("creating matcher: %w", err)
	}
	defer m.Close()

	s, err := store.New(store.Config{Path: scanOutputPath})
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	defer s.Close()

	for _, mc := range machines {
		if err := s.AddMachine(mc); err != nil {
			return fmt.Errorf("storing machine %s: %w", mc.ID, err)
		}
	}

	stats := &scanStats{}
	err = enumerator.Enumerate(contextOrBackground(cmd), func(content []byte, blobID types.BlobID, prov types.Provenance) error {
		if scanIncremental {
			exists, err := s.BlobExists(blobID)
			if err != nil {
				return fmt.Errorf("checking blob: %w", err)
			}
			if exists {
				stats.add(0, 0, 1)
				return nil
			}
		}

		matches, err := m.MatchWithBlobID(content, blobID)
		if err != nil {
			return fmt.Errorf("matching %s: %w", prov.Path(), err)
		}
		if err := scanner.Persist(s, content, blobID, prov, matches); err != nil {
			return fmt.Errorf("storing results: %w", err)
		}

		logger.Debug("blob scanned",
			zap.String("blob", blobID.Hex()),
			zap.String("path", prov.Path()),
			zap.Int("matches", len(matches)))
		stats.add(1, len(matches), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}

	findings, err := s.GetFindings()
	if err != nil {
		return fmt.Errorf("retrieving findings: %w", err)
	}

	// Keep stdout pure JSON for the machine-readable formats.
	summary := cmd.OutOrStdout()
	if scanOutputFormat != "human" {
		summary = cmd.ErrOrStderr()
	}
	fmt.Fprintf(summary, "Scan complete: %d blobs, %d matches, %d findings", stats.blobs, stats.matches, len(findings))
	if scanIncremental {
		fmt.Fprintf(summary, " (%d blobs skipped)", stats.skipped)
	}
	fmt.Fprintln(summary)
	if scanOutputPath != store.MemoryPath && !store.IsPostgresDSN(scanOutputPath) {
		fmt.Fprintf(summary, "Results stored in: %s\n", scanOutputPath)
	}

	switch scanOutputFormat {
	case "json":
		matches, err := s.GetAllMatches()
		if err != nil {
			return fmt.Errorf("retrieving matches: %w", err)
		}
		return writeJSON(cmd.OutOrStdout(), matches)
	case "sarif":
		return outputSARIF(cmd.OutOrStdout(), s)
	default:
		fmt.Fprintln(cmd.OutOrStdout())
		return outputHuman(cmd.OutOrStdout(), s, newStyles(colorEnabled("auto")))
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// createEnumerator builds one enumerator per target and combines them.
func createEnumerator(stdin io.Reader, targets []string) (enum.Enumerator, error) {
	enumerators := make([]enum.Enumerator, 0, len(targets))
	for _, target := range targets {
		if target == stdinTarget {
			enumerators = append(enumerators, enum.NewReaderEnumerator(stdin, "stdin"))
			continue
		}
		if _, err := os.Stat(target); err != nil {
			return nil, fmt.Errorf("target does not exist: %s", target)
		}

		config := enum.Config{
			Root:          target,
			IncludeHidden: scanIncludeHidden,
			MaxFileSize:   scanMaxFileSize,
		}
		if scanGit || isGitRepo(target) {
			g := enum.NewGitEnumerator(config)
			g.History = scanGit
			enumerators = append(enumerators, g)
			continue
		}
		enumerators = append(enumerators, enum.NewFilesystemEnumerator(config))
	}

	if len(enumerators) == 1 {
		return enumerators[0], nil
	}
	return enum.NewCombinedEnumerator(enumerators...), nil
}

func isGitRepo(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && info.IsDir()
}

// loadMachines loads descriptors from path, or the builtin machines when
// path is empty, and applies the ID filters.
func loadMachines(path, include, exclude string) ([]*types.Machine, error) {
	var machines []*types.Machine
	var err error
	if path != "" {
		machines, err = machine.NewLoader().LoadPath(path)
	} else {
		machines, err = scanner.BuiltinMachines()
	}
	if err != nil {
		return nil, err
	}

	if include != "" || exclude != "" {
		machines, err = machine.Filter(machines, machine.FilterConfig{
			Include: machine.ParsePatterns(include),
			Exclude: machine.ParsePatterns(exclude),
		})
		if err != nil {
			return nil, fmt.Errorf("filtering machines: %w", err)
		}
	}
	return machines, nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// contextOrBackground lets run functions be called with a bare command.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
