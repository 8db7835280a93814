package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/winnow-sh/winnow/internal/persist"
	"github.com/winnow-sh/winnow/internal/prune"
	"github.com/winnow-sh/winnow/internal/session"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <session-id> <hash>...",
	Short: "Remove units from a session's prune sets offline",
	Long: "Restore edits the persisted session file directly. The owning " +
		"host must not be running; it would overwrite the change on its " +
		"next save.",
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, hashes := args[0], args[1:]

		store := persist.NewStore(dataDir)
		st := session.NewState(sessionID)
		if !store.LoadInto(st) {
			return fmt.Errorf("no usable state for session %q under %s", sessionID, dataDir)
		}

		res := prune.Restore(st, hashes)
		store.Save(st)

		cmd.Printf("Restored %d unit(s).\n", len(res.Restored))
		if len(res.NotFound) > 0 {
			cmd.Printf("Unknown hashes: %s\n", strings.Join(res.NotFound, ", "))
		}
		if len(res.NotPruned) > 0 {
			cmd.Printf("Not pruned: %s\n", strings.Join(res.NotPruned, ", "))
		}
		return nil
	},
}
