// Command winnow inspects and repairs persisted pruning state offline:
// savings stats, pruned-unit listings, and restores against a session
// file without a running host.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var dataDir string

var rootCmd = &cobra.Command{
	Use:   "winnow",
	Short: "Inspect persisted context-pruning session state",
	Long: "winnow reads the per-session state files written by the pruning " +
		"engine and reports what has been pruned and what it saved. The " +
		"restore subcommand edits a session file in place; run it only " +
		"while the owning host is stopped.",
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir(), "directory holding session state files")
	rootCmd.AddCommand(statsCmd, showCmd, restoreCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".winnow"
	}
	return home + "/.winnow/sessions"
}
