package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "annotation-worker",
	Short: "Ephemeral lifecycle manager for GPU annotation workers",
	Long: `annotation-worker runs on a short-lived GPU instance. It waits for
the GPU driver to come up, reads its task from instance metadata, runs
the annotation pipeline, then deletes its own instance.

The instance exists for exactly one run: the process terminates the
machine it runs on no matter how the run ends.`,
	Version: Version,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"annotation-worker version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(journalCmd)
}
