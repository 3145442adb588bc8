package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// skipEngine marks commands that manage the engine themselves.
const skipEngine = "skip-engine"

// newRootCmd builds the command tree over a. The shell builds a fresh tree
// per line so flag values never leak between commands.
func newRootCmd(a *app) *cobra.Command {
	var flags struct {
		configPath string
		dataDir    string
		yes        bool
		logLevel   string
	}

	root := &cobra.Command{
		Use:   "bm",
		Short: "bm is a local bookmark manager",
		Long: `bm keeps bookmarks in a local SQLite database. It fetches page titles
in the background, organises bookmarks into directories and tags, and
imports or exports JSON backups and browser bookmark files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Only flags given on this line override the session values.
			pf := cmd.Flags()
			if pf.Changed("config") {
				a.configPath = flags.configPath
			}
			if pf.Changed("data-dir") {
				a.dataDir = flags.dataDir
			}
			if pf.Changed("yes") {
				a.yes = flags.yes
			}
			if pf.Changed("log-level") {
				a.logLevel = flags.logLevel
			}

			if cmd.Annotations[skipEngine] != "" {
				return nil
			}
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.session || cmd.Annotations[skipEngine] != "" {
				return nil
			}
			return a.close(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default: ~/.config/bm/config.yaml)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: ~/.local/share/bm)")
	root.PersistentFlags().BoolVarP(&flags.yes, "yes", "y", false, "answer yes to every confirmation")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newAddCmd(a),
		newListCmd(a),
		newSearchCmd(a),
		newEditCmd(a),
		newRmCmd(a),
		newArchiveCmd(a, true),
		newArchiveCmd(a, false),
		newMoveCmd(a),
		newUndoCmd(a),
		newCheckCmd(a),
		newDirCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newPrefsCmd(a),
		newStatusCmd(a),
		newResetCmd(a),
	)
	if !a.session {
		root.AddCommand(newShellCmd(a))
	}
	return root
}

// execute runs args against a fresh command tree and always releases what
// the command opened, since cobra skips post-run hooks after an error.
func execute(ctx context.Context, a *app, args []string) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	err := root.ExecuteContext(ctx)
	if !a.session {
		if cerr := a.close(ctx); err == nil {
			err = cerr
		}
	}
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid bookmark id %q", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
