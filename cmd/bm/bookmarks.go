package main

import (
	"context"
	"fmt"
	"html"
	"os/exec"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/bookmarks/internal/engine"
	"github.com/nikbrunner/bookmarks/internal/model"
	"github.com/nikbrunner/bookmarks/internal/picker"
	"github.com/nikbrunner/bookmarks/internal/prefs"
	"github.com/nikbrunner/bookmarks/internal/search"
	"github.com/nikbrunner/bookmarks/internal/view"
)

// formatBookmark renders one list row with the current theme and density.
func formatBookmark(st prefs.Styles, b model.Bookmark) string {
	var sb strings.Builder
	pad := strings.Repeat(" ", st.Spacing.PadX)

	sb.WriteString(pad)
	sb.WriteString(st.Date.Render(fmt.Sprintf("#%d", b.ID)))
	sb.WriteString(st.Item.Render(html.UnescapeString(b.Title)))
	if b.Archived {
		sb.WriteString(" " + st.Archived.Render("[archived]"))
	}
	sb.WriteString(" " + st.Directory.Render("("+html.UnescapeString(b.Directory)+")"))
	if len(b.Tags) > 0 {
		sb.WriteString(" " + st.Tag.Render("["+html.UnescapeString(strings.Join(b.Tags, ", "))+"]"))
	}
	if st.Spacing.ShowURL {
		sb.WriteString("\n" + pad + "  " + st.URL.Render(b.URL))
	}
	sb.WriteString(strings.Repeat("\n", st.Spacing.RowGap))
	return sb.String()
}

func (a *app) printBookmarks(bookmarks []model.Bookmark) {
	st := a.styles()
	if len(bookmarks) == 0 {
		fmt.Fprintln(a.out, st.Empty.Render("No bookmarks."))
		return
	}
	for _, b := range bookmarks {
		fmt.Fprintln(a.out, formatBookmark(st, b))
	}
}

func newAddCmd(a *app) *cobra.Command {
	var (
		tags    string
		dir     string
		noWait  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Add a bookmark",
		Long: `Add a bookmark. The title starts as the URL and is replaced by the page
title once it has been fetched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := a.eng.AddBookmark(ctx, engine.NewBookmark{
				URL:       args[0],
				Tags:      tags,
				Directory: dir,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added #%d %s\n", b.ID, b.URL)

			// The shell keeps fetching in the background.
			if noWait || a.session {
				return nil
			}
			wctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if err := a.eng.WaitTitles(wctx); err != nil {
				a.logger.Info("stopped waiting for title", "id", b.ID, "err", err)
				return nil
			}
			if updated, ok := a.eng.Bookmark(b.ID); ok && updated.Title != b.Title {
				fmt.Fprintf(a.out, "Title: %s\n", html.UnescapeString(updated.Title))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tags, "tags", "t", "", "comma-separated tags")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory (default: Unsorted)")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "do not wait for the page title")
	cmd.Flags().DurationVar(&timeout, "wait", 30*time.Second, "how long to wait for the page title")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var (
		filter string
		order  string
		q      view.Query
	)

	cmd := &cobra.Command{
		Use:     "list [term...]",
		Aliases: []string{"ls"},
		Short:   "List bookmarks",
		Long: `List bookmarks, optionally narrowed by a search term, archive state,
directory, tag or a --where expression such as

  bm list --where 'archived && "go" in tags'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if q.Filter, err = view.ParseFilter(filter); err != nil {
				return err
			}
			if q.Sort, err = view.ParseSort(order); err != nil {
				return err
			}
			q.Term = strings.Join(args, " ")

			bookmarks, err := view.Apply(a.eng.Bookmarks(), q)
			if err != nil {
				return err
			}
			a.printBookmarks(bookmarks)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "all, unread or archived")
	cmd.Flags().StringVarP(&order, "sort", "s", "date-desc", "date-desc, date-asc, title-asc or title-desc")
	cmd.Flags().StringVarP(&q.Directory, "dir", "d", "", "only this directory")
	cmd.Flags().StringVar(&q.Tag, "tag", "", "only bookmarks with this tag")
	cmd.Flags().StringVarP(&q.Where, "where", "w", "", "boolean filter expression")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Fuzzy search, pick a result and open it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			results := search.FuzzySearchBookmarks(a.eng.Bookmarks(), query)
			if len(results) == 0 {
				fmt.Fprintf(a.out, "No bookmarks found for '%s'\n", query)
				return nil
			}

			if printOnly || !a.interactive() {
				st := a.styles()
				for _, r := range results {
					fmt.Fprintln(a.out, formatBookmark(st, *r.Bookmark))
				}
				return nil
			}

			var selected *model.Bookmark
			if len(results) == 1 {
				selected = results[0].Bookmark
			} else {
				p := picker.New(results, query, a.styles())
				final, err := tea.NewProgram(p,
					tea.WithInput(a.ttyIn),
					tea.WithOutput(a.out),
					tea.WithContext(cmd.Context()),
				).Run()
				if err != nil {
					return fmt.Errorf("run picker: %w", err)
				}
				selected = final.(picker.Picker).SelectedBookmark()
			}
			if selected == nil {
				return nil
			}

			fmt.Fprintf(a.out, "Opening: %s\n", html.UnescapeString(selected.Title))
			if err := openURL(selected.URL); err != nil {
				a.logger.Warn("failed to open browser", "url", selected.URL, "err", err)
				fmt.Fprintln(a.out, selected.URL)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&printOnly, "print", "p", false, "print the matches instead of opening one")
	return cmd
}

// openURL opens a URL in the default browser.
func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("no browser opener for %s", runtime.GOOS)
	}
	return cmd.Start()
}

func newEditCmd(a *app) *cobra.Command {
	var url, title, tags, dir string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a bookmark",
		Long:  `Edit the given fields of a bookmark. All fields are validated together; a single invalid field leaves the bookmark unchanged.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var edit engine.Edit
			flags := cmd.Flags()
			if flags.Changed("url") {
				edit.URL = &url
			}
			if flags.Changed("title") {
				edit.Title = &title
			}
			if flags.Changed("tags") {
				edit.Tags = &tags
			}
			if flags.Changed("dir") {
				edit.Directory = &dir
			}
			if edit == (engine.Edit{}) {
				return fmt.Errorf("nothing to change: pass --url, --title, --tags or --dir")
			}

			b, err := a.eng.EditBookmark(id, edit)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, formatBookmark(a.styles(), b))
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "new URL")
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVarP(&tags, "tags", "t", "", "new comma-separated tags (empty clears)")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "new directory")
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id...>",
		Aliases: []string{"delete"},
		Short:   "Delete bookmarks",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			var removed []model.Bookmark
			if len(ids) == 1 {
				b, err := a.eng.DeleteBookmark(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				removed = []model.Bookmark{b}
			} else {
				if removed, err = a.eng.BulkDelete(cmd.Context(), ids); err != nil {
					return err
				}
			}

			fmt.Fprintf(a.out, "Deleted %d bookmark(s).\n", len(removed))
			if a.session {
				fmt.Fprintln(a.out, "Run `undo` to restore.")
			}
			return nil
		},
	}
}

func newArchiveCmd(a *app, archived bool) *cobra.Command {
	use, short := "archive", "Mark bookmarks as read"
	if !archived {
		use, short = "unarchive", "Mark bookmarks as unread"
	}
	var toggle bool

	cmd := &cobra.Command{
		Use:   use + " <id...>",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			if toggle {
				for _, id := range ids {
					b, err := a.eng.ToggleArchive(id)
					if err != nil {
						return err
					}
					fmt.Fprintln(a.out, formatBookmark(a.styles(), b))
				}
				return nil
			}

			n, err := a.eng.BulkArchive(ids, archived)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated %d bookmark(s).\n", n)
			return nil
		},
	}

	if archived {
		cmd.Flags().BoolVar(&toggle, "toggle", false, "flip the archived state instead of setting it")
	}
	return cmd
}

func newMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "move <directory> <id...>",
		Aliases: []string{"mv"},
		Short:   "Move bookmarks to a directory",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}

			if len(ids) == 1 {
				b, err := a.eng.MoveBookmark(ids[0], args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Moved #%d to %s.\n", b.ID, html.UnescapeString(b.Directory))
				return nil
			}

			n, err := a.eng.BulkMove(ids, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Moved %d bookmark(s).\n", n)
			return nil
		},
	}
}

func newUndoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Restore the most recently deleted bookmarks",
		Long:  `Restore the most recently deleted bookmarks. The undo history lives in memory, so it spans the commands of one ` + "`bm shell`" + ` session.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := a.eng.Undo(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Restored %d bookmark(s).\n", len(entry.Bookmarks))
			return nil
		},
	}
}
