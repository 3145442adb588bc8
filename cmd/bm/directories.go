package main

import (
	"fmt"
	"html"

	"github.com/spf13/cobra"
)

func newDirCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dir",
		Aliases: []string{"dirs"},
		Short:   "Manage directories",
	}
	cmd.AddCommand(newDirAddCmd(a), newDirRmCmd(a), newDirLsCmd(a))
	return cmd
}

func newDirAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := a.eng.AddDirectory(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created directory %s.\n", html.UnescapeString(name))
			return nil
		},
	}
}

func newDirRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a directory, moving its bookmarks to Unsorted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			moved, err := a.eng.DeleteDirectory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted directory %s.", args[0])
			if moved > 0 {
				fmt.Fprintf(a.out, " %d bookmark(s) moved to Unsorted.", moved)
			}
			fmt.Fprintln(a.out)
			return nil
		},
	}
}

func newDirLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List directories with their bookmark counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.styles()
			counts := a.eng.DirectoryCounts()
			for _, name := range a.eng.Directories() {
				fmt.Fprintf(a.out, "%s %s\n",
					st.Directory.Render(html.UnescapeString(name)),
					st.Date.Render(fmt.Sprintf("(%d)", counts[name])))
			}
			return nil
		},
	}
}
