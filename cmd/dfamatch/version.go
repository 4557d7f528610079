package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/dfamatch/pkg/sarif"
	"github.com/praetorian-inc/dfamatch/pkg/serve"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build and protocol versions",
	Long:  "Print the dfamatch release, the commit it was built from, and the serve protocol version.",
	RunE:  runVersion,
}

func init() {
	if version != "dev" {
		sarif.ToolVersion = version
	}
}

// buildCommit prefers the ldflags value and falls back to the VCS revision
// the go tool stamps into module builds.
func buildCommit() string {
	if commit != "" {
		return commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value
			}
		}
	}
	return "unknown"
}

func runVersion(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "dfamatch %s (%s)\n", version, buildCommit())
	fmt.Fprintf(w, "serve protocol %s\n", serve.Version)
	fmt.Fprintf(w, "built with %s for %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}
