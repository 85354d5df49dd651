package cli

import (
	"fmt"

	"malawiexplorer/analytics/database"
	"malawiexplorer/analytics/logging"
	"malawiexplorer/analytics/store"

	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Create the users, page_views and visitor_sessions tables in the primary
store. When the ClickHouse warehouse is enabled its event table is created too.
Running migrate more than once is safe.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := opts.cfg

			db, err := database.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(ctx); err != nil {
				return err
			}

			if cfg.ClickHouse.Enabled {
				ch, err := database.NewClickHouseDB(ctx, cfg.ClickHouse)
				if err != nil {
					return err
				}
				defer ch.Close()
				if err := store.NewWarehouseStore(ch).EnsureSchema(ctx); err != nil {
					return err
				}
			}

			logging.Info().Str("driver", cfg.Database.Driver).Bool("warehouse", cfg.ClickHouse.Enabled).Msg("schema up to date")
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}
