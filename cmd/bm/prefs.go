package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/bookmarks/internal/prefs"
)

func newPrefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change display preferences",
	}
	cmd.AddCommand(newPrefsGetCmd(a), newPrefsSetCmd(a), newPrefsToggleThemeCmd(a))
	return cmd
}

func newPrefsGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print preferences (theme, density)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current := a.prefs.Current()
			keys := prefs.Keys
			if len(args) == 1 {
				keys = args
			}
			for _, key := range keys {
				value, err := current.Get(key)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s: %s\n", key, value)
			}
			return nil
		},
	}
}

func newPrefsSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a preference",
		Long: `Change a preference. Keys and values:

  theme     light, dark
  density   compact, default, generous`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.prefs.Set(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			value, _ := a.prefs.Current().Get(args[0])
			fmt.Fprintf(a.out, "%s: %s\n", args[0], value)
			return nil
		},
	}
}

func newPrefsToggleThemeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-theme",
		Short: "Switch between the light and dark theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			theme, err := a.prefs.ToggleTheme(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "theme: %s\n", theme)
			return nil
		},
	}
}
