// Package cli is the explorer-analytics command line.
package cli

import (
	"fmt"
	"os"

	"malawiexplorer/analytics/config"
	"malawiexplorer/analytics/logging"

	"github.com/spf13/cobra"
)

var versionInfo = "dev"

// SetVersion sets the version reported by --version.
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	envFiles   []string
	cfg        *config.Config
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "explorer-analytics",
		Short: "Visitor analytics for Malawi Explorer",
		Long: `explorer-analytics records page views from the Malawi Explorer site and
serves live and historical visitor analytics to the admin dashboard.`,
		Version:       versionInfo,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(opts.envFiles...); err != nil {
				return err
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			logging.Init(logging.Config{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				Output: cmd.ErrOrStderr(),
			})
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (defaults to $"+config.ConfigPathEnvVar+")")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load before reading the environment")

	cmd.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newReportCommand(opts),
		newWatchCommand(opts),
		newTrackCommand(),
	)
	return cmd
}
