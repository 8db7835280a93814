package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/winnow-sh/winnow/internal/persist"
)

var showHistory bool

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "List pruned units and registered hashes for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := persist.NewStore(dataDir)
		doc, ok := store.Load(args[0])
		if !ok {
			return fmt.Errorf("no usable state for session %q under %s", args[0], dataDir)
		}

		pruned := make(map[string]struct{})
		for _, set := range [][]string{doc.Prune.Tools, doc.Prune.Parts, doc.Prune.Reasoning, doc.Prune.Segments} {
			for _, id := range set {
				pruned[id] = struct{}{}
			}
		}

		for _, entry := range doc.Registry {
			mark := " "
			if _, ok := pruned[entry.ID]; ok {
				mark = "x"
			}
			name := entry.ToolName
			if name == "" {
				name = string(entry.Type)
			}
			cmd.Printf("[%s] %-9s %-12s %s  %s\n", mark, entry.Hash, name, entry.ID, entry.Preview)
		}

		if showHistory {
			cmd.Println()
			for _, rec := range doc.History {
				cmd.Printf("%s  %-11s %6d tokens  %v\n",
					rec.Timestamp.Format("2006-01-02 15:04:05"), rec.Reason, rec.TokensSaved, rec.Hashes)
			}
		}
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showHistory, "history", false, "also print the discard history")
}
