package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/dfamatch/pkg/store"
)

var mergeOutput string

var mergeCmd = &cobra.Command{
	Use:   "merge <source.db>...",
	Short: "Merge SQLite datastores",
	Long: `Merge one or more SQLite datastores into a single output datastore.

Blobs, machines, matches, findings and provenance are deduplicated, so
merging the same source twice adds nothing.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "merged.db", "Output datastore path")
}

func runMerge(cmd *cobra.Command, args []string) error {
	stats, err := store.Merge(store.MergeConfig{
		SourcePaths: args,
		DestPath:    mergeOutput,
	})
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Merge complete:\n")
	fmt.Fprintf(out, "  Sources processed: %d\n", stats.SourcesProcessed)
	fmt.Fprintf(out, "  Blobs merged: %d\n", stats.BlobsMerged)
	fmt.Fprintf(out, "  Machines merged: %d\n", stats.MachinesMerged)
	fmt.Fprintf(out, "  Matches merged: %d\n", stats.MatchesMerged)
	fmt.Fprintf(out, "  Findings merged: %d\n", stats.FindingsMerged)
	fmt.Fprintf(out, "  Provenance merged: %d\n", stats.ProvenanceMerged)
	fmt.Fprintf(out, "Output: %s\n", mergeOutput)
	return nil
}
