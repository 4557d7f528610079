package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/dfamatch"
)

var (
	applyMachinesPath string
	applyMachineID    string
	applyTags         []string
	applyColor        string
)

var applyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Run one machine over a file and print each tag dispatch",
	Long: `Run one machine over a file. Every run that ends in an accepting state
dispatches once per tag of its closing state; each dispatch is printed with
its inclusive byte range. Without --tag every tag of the machine is printed.
A file of "-" reads standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVar(&applyMachinesPath, "machines", "", "Path to a machine descriptor file or directory (default: builtin)")
	applyCmd.Flags().StringVar(&applyMachineID, "machine", "", "ID of the machine to run")
	applyCmd.Flags().StringSliceVar(&applyTags, "tag", nil, "Tag to dispatch (repeatable)")
	applyCmd.Flags().StringVar(&applyColor, "color", "auto", "Color output: auto, always, never")
	applyCmd.MarkFlagRequired("machine") //nolint:errcheck
}

func runApply(cmd *cobra.Command, args []string) error {
	content, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	machines, err := loadMachines(applyMachinesPath, "", "")
	if err != nil {
		return fmt.Errorf("loading machines: %w", err)
	}

	logger := newLogger()
	defer logger.Sync() //nolint:errcheck

	s, err := dfamatch.NewScanner(dfamatch.WithMachines(machines), dfamatch.WithLogger(logger))
	if err != nil {
		return err
	}
	defer s.Close()

	tags := applyTags
	if len(tags) == 0 {
		for _, m := range s.Machines() {
			if m.ID == applyMachineID {
				tags = m.TagNames()
			}
		}
	}

	out := cmd.OutOrStdout()
	st := newStyles(colorEnabled(applyColor))
	actions := make(dfamatch.Actions, len(tags))
	for _, tag := range tags {
		actions[tag] = printDispatch(out, st, tag)
	}
	return s.Apply(applyMachineID, content, actions)
}

// printDispatch returns an action that prints the tag, the inclusive byte
// range and the quoted run.
func printDispatch(w io.Writer, st *styles, tag string) dfamatch.Action {
	return func(start, end int, sub []byte) {
		fmt.Fprintf(w, "%s %s %s\n",
			st.tag.Sprint(tag),
			st.metadata.Sprintf("%d-%d", start, end),
			st.match.Sprint(strconv.Quote(string(sub))))
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == stdinTarget {
		content, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return content, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return content, nil
}
