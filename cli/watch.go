package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"malawiexplorer/analytics/client"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	var (
		baseURL string
		apiKey  string
		token   string
		days    int
		once    bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll a running server and print live totals",
		Long: `Poll the dashboard endpoints of a running server every
dashboard.poll_interval and print a one-line summary after each refresh.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api := client.NewClient(baseURL)
			api.APIKey = apiKey
			if api.APIKey == "" {
				api.APIKey = opts.cfg.Auth.APIKey
			}
			api.Token = token

			interval := opts.cfg.Dashboard.PollInterval
			dash := client.NewDashboard(api, client.WithPollInterval(interval), client.WithHistoryDays(days))

			if once {
				dash.Refresh(cmd.Context())
				printDashboard(cmd.OutOrStdout(), dash)
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch(ctx, cmd.OutOrStdout(), dash, interval)
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "base URL of the analytics server")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (defaults to auth.api_key)")
	cmd.Flags().StringVar(&token, "token", "", "bearer token from /api/login")
	cmd.Flags().IntVarP(&days, "days", "d", 0, "days of history to poll (server default when 0)")
	cmd.Flags().BoolVar(&once, "once", false, "refresh once and exit")
	return cmd
}

func watch(ctx context.Context, w io.Writer, dash *client.Dashboard, interval time.Duration) error {
	dash.Start(ctx)
	defer dash.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			printDashboard(w, dash)
		}
	}
}

func printDashboard(w io.Writer, dash *client.Dashboard) {
	rt := dash.RealTime()
	if rt.Err != nil {
		fmt.Fprintf(w, "realtime unavailable: %v\n", rt.Err)
		return
	}

	var views int64
	hist := dash.Historical()
	for _, d := range hist.Data {
		views += d.PageViews
	}

	sessions := len(dash.Sessions().Data)
	fmt.Fprintf(w, "%s  active=%s today=%s views  history=%s views over %d days  sessions=%d\n",
		rt.UpdatedAt.Format(time.TimeOnly),
		humanize.Comma(rt.Data.ActiveVisitors),
		humanize.Comma(rt.Data.TotalPageViewsToday),
		humanize.Comma(views), len(hist.Data), sessions)
}
