package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/bookmarks/internal/engine"
	"github.com/nikbrunner/bookmarks/internal/storage"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show database and session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stats, err := a.store.Stats(ctx)
			if err != nil {
				return err
			}
			version, err := a.store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			pending := a.eng.Pending()
			fmt.Fprintf(a.out, "Database:       %s (schema v%d)\n", a.store.Path(), version)
			fmt.Fprintf(a.out, "Stored:         %d bookmark(s), %d directory(ies)\n", stats.Bookmarks, stats.Directories)
			fmt.Fprintf(a.out, "In session:     %d bookmark(s), %d directory(ies)\n", len(a.eng.Bookmarks()), len(a.eng.Directories()))
			fmt.Fprintf(a.out, "Legacy import:  %s\n", yesNo(stats.Migrated, "done", "not run"))
			fmt.Fprintf(a.out, "Pending writes: %d\n", pending.Total())
			fmt.Fprintf(a.out, "Undo depth:     %d\n", a.eng.UndoDepth())
			if a.titles != nil {
				fmt.Fprintf(a.out, "Title fetches:  %d\n", a.titles.Pending())
			}
			if err := a.eng.LastError(); err != nil {
				fmt.Fprintf(a.out, "Last error:     %s\n", engine.UserMessage(err))
			}
			return nil
		},
	}
}

func yesNo(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "reset",
		Short:       "Delete all bookmarks, directories and settings",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipEngine: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.session {
				return errors.New("reset is not available inside the shell")
			}
			ctx := cmd.Context()

			confirmed := a.prompter().Confirm(ctx, engine.Prompt{
				Kind:    engine.PromptBulkDelete,
				Message: "Delete all bookmarks, directories and settings? This cannot be undone.",
			})
			if !confirmed {
				return engine.ErrCancelled
			}

			if err := a.openStore(); err != nil {
				return err
			}
			if err := a.store.Wipe(ctx); err != nil {
				return err
			}
			// Keep legacy data from coming back on the next start.
			if err := a.store.Settings().Set(ctx, storage.KeyMigrated, true); err != nil {
				return err
			}
			a.logger.Info("database wiped", "path", a.store.Path())
			fmt.Fprintln(a.out, "All data deleted.")
			return nil
		},
	}
}
