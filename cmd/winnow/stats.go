package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/winnow-sh/winnow/internal/persist"
	"github.com/winnow-sh/winnow/internal/session"
)

var statsCmd = &cobra.Command{
	Use:   "stats <session-id>",
	Short: "Print savings counters for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := persist.NewStore(dataDir)
		doc, ok := store.Load(args[0])
		if !ok {
			return fmt.Errorf("no usable state for session %q under %s", args[0], dataDir)
		}

		cmd.Printf("session:       %s\n", doc.SessionID)
		cmd.Printf("tokens saved:  %d\n", doc.Stats.TokensSaved)
		cmd.Printf("units saved:   %d\n", doc.Stats.UnitsSaved)
		cmd.Printf("pruned now:    %d tools, %d parts, %d reasoning, %d segments\n",
			len(doc.Prune.Tools), len(doc.Prune.Parts), len(doc.Prune.Reasoning), len(doc.Prune.Segments))

		kinds := make([]string, 0, len(doc.Stats.PerStrategy))
		for k := range doc.Stats.PerStrategy {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			ps := doc.Stats.PerStrategy[session.StrategyKind(k)]
			cmd.Printf("  %-12s %8d tokens  %5d units\n", k, ps.TokensSaved, ps.UnitsSaved)
		}
		return nil
	},
}
