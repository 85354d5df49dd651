package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"malawiexplorer/analytics/analytics"
	"malawiexplorer/analytics/database"
	"malawiexplorer/analytics/models"
	"malawiexplorer/analytics/store"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newReportCommand(opts *rootOptions) *cobra.Command {
	var (
		days     int
		sessions int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a traffic summary from the primary store",
		Long: `Print the live snapshot, a per-day history and the most recent sessions,
read straight from the primary store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := opts.cfg

			db, err := database.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			engine := analytics.NewEngine(store.NewPageViewStore(db, cfg.Analytics.VisitTimeout), cfg.Analytics)
			if days <= 0 {
				days = engine.DefaultHistoryDays()
			}

			snap := engine.RealTime(ctx)
			history, err := engine.Historical(ctx, days)
			if err != nil {
				return err
			}
			recent, err := engine.Sessions(ctx)
			if err != nil {
				return err
			}
			if sessions >= 0 && len(recent) > sessions {
				recent = recent[:sessions]
			}

			out := cmd.OutOrStdout()
			writeSnapshot(out, snap)
			writeHistory(out, history, days)
			writeSessions(out, recent, time.Now())
			return nil
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 0, "days of history to include (default analytics.default_history_days)")
	cmd.Flags().IntVar(&sessions, "sessions", 10, "number of recent sessions to list")
	return cmd
}

func writeSnapshot(w io.Writer, snap models.RealTimeSnapshot) {
	fmt.Fprintln(w, "Live")
	fmt.Fprintln(w, "====")
	fmt.Fprintf(w, "Active visitors:      %s\n", humanize.Comma(snap.ActiveVisitors))
	fmt.Fprintf(w, "Page views today:     %s\n", humanize.Comma(snap.TotalPageViewsToday))
	fmt.Fprintf(w, "Unique visitors today: %s\n", humanize.Comma(snap.UniqueVisitorsToday))
	fmt.Fprintln(w)

	if len(snap.PageViewsByPath) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PATH\tTITLE\tVIEWS")
		for _, p := range snap.PageViewsByPath {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Path, p.Title, humanize.Comma(p.Count))
		}
		_ = tw.Flush()
		fmt.Fprintln(w)
	}
}

func writeHistory(w io.Writer, stats []models.DailyStat, days int) {
	fmt.Fprintf(w, "Last %d days\n", days)
	fmt.Fprintln(w, "============")
	if len(stats) == 0 {
		fmt.Fprintln(w, "no page views recorded")
		fmt.Fprintln(w)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tPAGE VIEWS\tUNIQUE VISITORS")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Date, humanize.Comma(s.PageViews), humanize.Comma(s.UniqueVisitors))
	}
	_ = tw.Flush()
	fmt.Fprintln(w)
}

func writeSessions(w io.Writer, sessions []models.Session, now time.Time) {
	fmt.Fprintln(w, "Recent sessions")
	fmt.Fprintln(w, "===============")
	if len(sessions) == 0 {
		fmt.Fprintln(w, "no sessions recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tLAST SEEN\tVISITS\tVIEWS\tDEVICE\tBROWSER\tOS")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			s.SessionID, humanize.RelTime(s.LastVisitAt, now, "ago", "from now"),
			s.TotalVisits, s.TotalPageViews, s.DeviceType, s.Browser, s.OS)
	}
	_ = tw.Flush()
}
