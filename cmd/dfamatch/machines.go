package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/dfamatch/pkg/machine"
	"github.com/praetorian-inc/dfamatch/pkg/statemachine"
	"github.com/praetorian-inc/dfamatch/pkg/types"
)

var (
	machinesPath   string
	machinesFormat string
)

var machinesCmd = &cobra.Command{
	Use:   "machines",
	Short: "Inspect machine descriptors",
}

var machinesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available machines",
	Args:  cobra.NoArgs,
	RunE:  runMachinesList,
}

var machinesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run every machine against its examples",
	Args:  cobra.NoArgs,
	RunE:  runMachinesCheck,
}

var machinesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one machine and its transition table",
	Args:  cobra.ExactArgs(1),
	RunE:  runMachinesShow,
}

func init() {
	machinesCmd.PersistentFlags().StringVar(&machinesPath, "machines", "", "Path to a machine descriptor file or directory (default: builtin)")
	machinesListCmd.Flags().StringVar(&machinesFormat, "format", "table", "Output format: table, json")

	machinesCmd.AddCommand(machinesListCmd)
	machinesCmd.AddCommand(machinesCheckCmd)
	machinesCmd.AddCommand(machinesShowCmd)
}

func runMachinesList(cmd *cobra.Command, args []string) error {
	machines, err := loadMachines(machinesPath, "", "")
	if err != nil {
		return fmt.Errorf("loading machines: %w", err)
	}

	switch machinesFormat {
	case "json":
		return writeJSON(cmd.OutOrStdout(), machines)
	case "table":
		return outputMachinesTable(cmd.OutOrStdout(), machines)
	default:
		return fmt.Errorf("unknown output format: %s", machinesFormat)
	}
}

func runMachinesCheck(cmd *cobra.Command, args []string) error {
	machines, err := loadMachines(machinesPath, "", "")
	if err != nil {
		return fmt.Errorf("loading machines: %w", err)
	}

	out := cmd.OutOrStdout()
	issues := machine.CheckAll(machines)
	for _, issue := range issues {
		fmt.Fprintln(out, issue.String())
	}
	if len(issues) > 0 {
		return fmt.Errorf("%d issue(s) in %d machine(s)", len(issues), len(machines))
	}
	fmt.Fprintf(out, "%d machine(s) OK\n", len(machines))
	return nil
}

func runMachinesShow(cmd *cobra.Command, args []string) error {
	machines, err := loadMachines(machinesPath, "", "")
	if err != nil {
		return fmt.Errorf("loading machines: %w", err)
	}
	for _, m := range machines {
		if m.ID == args[0] {
			showMachine(cmd.OutOrStdout(), m)
			return nil
		}
	}
	return fmt.Errorf("unknown machine %q", args[0])
}

// =============================================================================
// HELPERS
// =============================================================================

func outputMachinesTable(w io.Writer, machines []*types.Machine) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tName\tStates\tTags\n")
	fmt.Fprintf(tw, "--\t----\t------\t----\n")
	for _, m := range machines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", m.ID, m.Name, m.NumStates(), strings.Join(m.TagNames(), ","))
	}
	return tw.Flush()
}

func showMachine(w io.Writer, m *types.Machine) {
	fmt.Fprintf(w, "ID:            %s\n", m.ID)
	fmt.Fprintf(w, "Name:          %s\n", m.Name)
	if m.Description != "" {
		fmt.Fprintf(w, "Description:   %s\n", strings.TrimSpace(m.Description))
	}
	if m.Pattern != "" {
		fmt.Fprintf(w, "Pattern:       %s\n", m.Pattern)
	}
	fmt.Fprintf(w, "Structural ID: %s\n", m.StructuralID)
	if len(m.Keywords) > 0 {
		fmt.Fprintf(w, "Keywords:      %s\n", strings.Join(m.Keywords, ", "))
	}
	if len(m.Categories) > 0 {
		fmt.Fprintf(w, "Categories:    %s\n", strings.Join(m.Categories, ", "))
	}
	fmt.Fprintf(w, "States:        %d\n", m.NumStates())

	fmt.Fprintln(w, "\nTransitions:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  State\tSymbols\tNext\tAccepting\tTags\n")
	for from, row := range m.DFA.StateTable {
		state := statemachine.StateID(from)
		accepting := state < statemachine.StateID(len(m.DFA.Accepting)) && m.DFA.Accepting[state]
		var tags []string
		if int(state) < len(m.DFA.Tags) {
			tags = m.DFA.Tags[state]
		}
		edges := groupEdges(row)
		if len(edges) == 0 {
			fmt.Fprintf(tw, "  %d\t\t\t%t\t%s\n", state, accepting, strings.Join(tags, ","))
			continue
		}
		for _, e := range edges {
			fmt.Fprintf(tw, "  %d\t%s\t%d\t%t\t%s\n", state, machine.FormatSymbolSet(e.symbols), e.to, accepting, strings.Join(tags, ","))
		}
	}
	tw.Flush()
}

// edge collects the symbols of one row that lead to the same state.
type edge struct {
	to      statemachine.StateID
	symbols []byte
}

func groupEdges(row statemachine.Transitions[byte]) []edge {
	byTarget := make(map[statemachine.StateID][]byte)
	for sym, to := range row {
		if to == statemachine.FailState {
			continue
		}
		byTarget[to] = append(byTarget[to], sym)
	}
	edges := make([]edge, 0, len(byTarget))
	for to, symbols := range byTarget {
		edges = append(edges, edge{to: to, symbols: symbols})
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].to < edges[j].to })
	return edges
}
