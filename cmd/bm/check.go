package main

import (
	"fmt"
	"html"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/bookmarks/internal/culler"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		concurrency int
		timeout     time.Duration
		exclude     []string
		remove      bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Find bookmarks whose links are dead",
		Long: `Request every bookmarked URL and report the dead (404, 410) and
unreachable ones. With --delete the dead bookmarks are removed after
confirmation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bookmarks := a.eng.Bookmarks()
			st := a.styles()

			checker := culler.New(culler.Options{
				Concurrency:    concurrency,
				Timeout:        timeout,
				ExcludeDomains: exclude,
				UserAgent:      a.cfg.FetchUserAgent,
				Logger:         a.logger,
				OnProgress: func(done, total int) {
					if a.interactive() {
						fmt.Fprintf(a.out, "\rChecked %d/%d", done, total)
					}
				},
			})
			results := checker.Check(ctx, bookmarks)
			if a.interactive() && len(results) > 0 {
				fmt.Fprintln(a.out)
			}

			var healthy int
			for _, r := range results {
				title := html.UnescapeString(r.Bookmark.Title)
				switch r.Status {
				case culler.Healthy:
					healthy++
				case culler.Dead:
					fmt.Fprintf(a.out, "%s #%d %s (%d)\n", st.Danger.Render("dead"), r.Bookmark.ID, title, r.StatusCode)
				default:
					fmt.Fprintf(a.out, "%s #%d %s (%s)\n", st.Status.Render("unreachable"), r.Bookmark.ID, title, r.Reason)
				}
			}
			dead := culler.DeadIDs(results)
			fmt.Fprintf(a.out, "%d healthy, %d dead, %d unreachable\n", healthy, len(dead), len(results)-healthy-len(dead))

			if !remove || len(dead) == 0 {
				return nil
			}
			removed, err := a.eng.BulkDelete(ctx, dead)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %d dead bookmark(s).\n", len(removed))
			return nil
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 10, "parallel requests")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "timeout per request")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "domains whose 404s may be private pages, e.g. github.com")
	cmd.Flags().BoolVar(&remove, "delete", false, "delete dead bookmarks")
	return cmd
}
