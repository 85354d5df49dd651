package cli

import (
	"fmt"
	"time"

	"malawiexplorer/analytics/client"

	"github.com/spf13/cobra"
)

func newTrackCommand() *cobra.Command {
	var (
		baseURL     string
		title       string
		referrer    string
		sessionFile string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "track <page-path>",
		Short: "Send one page view to a running server",
		Long: `Send one page view through the client SDK, reusing the session token
persisted on this machine. Useful as a smoke test after deploying.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var storage client.Storage
			if sessionFile != "" {
				storage = &client.FileStorage{Path: sessionFile}
			} else {
				fs, err := client.DefaultFileStorage()
				if err != nil {
					return err
				}
				storage = fs
			}

			identity := client.NewIdentityManager(storage)
			api := client.NewClient(baseURL)
			api.UserAgent = "explorer-analytics/" + versionInfo

			tracker := client.NewTracker(api, identity, client.WithReferrer(referrer), client.WithSendTimeout(timeout))
			tracker.TrackPageView(args[0], title)
			tracker.Wait()

			fmt.Fprintf(cmd.OutOrStdout(), "sent %s as %s\n", args[0], identity.GetOrCreateSessionID())
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "base URL of the analytics server")
	cmd.Flags().StringVar(&title, "title", "", "page title")
	cmd.Flags().StringVar(&referrer, "referrer", "", "referrer to report")
	cmd.Flags().StringVar(&sessionFile, "session-file", "", "file holding the session token (defaults to the user config dir)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "send timeout")
	return cmd
}
