package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/praetorian-inc/dfamatch/pkg/explore"
)

var exploreDatastore string

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Interactively browse the findings of a datastore",
	Long: `Launch a terminal UI over the findings of a datastore.

  - Filters pane with facets by machine, category and tag
  - Sortable findings table
  - Match details with provenance, location and context snippet
  - Vi-style navigation (hjkl, Ctrl-f/b, g/G)`,
	Args: cobra.NoArgs,
	RunE: runExplore,
}

func init() {
	exploreCmd.Flags().StringVar(&exploreDatastore, "datastore", "dfamatch.db", "Datastore path or postgres:// DSN")
	rootCmd.AddCommand(exploreCmd)
}

func runExplore(cmd *cobra.Command, args []string) error {
	model, err := explore.New(exploreDatastore)
	if err != nil {
		return fmt.Errorf("loading datastore: %w", err)
	}
	defer model.Close()

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running explore TUI: %w", err)
	}
	return nil
}
