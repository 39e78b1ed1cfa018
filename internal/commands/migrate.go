package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evercoin-dev/evercoin/internal/config"
	"github.com/evercoin-dev/evercoin/internal/store/postgres"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			pool, err := postgres.Connect(cmd.Context(), cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer pool.Close()

			if err := postgres.Migrate(cmd.Context(), pool); err != nil {
				return fmt.Errorf("applying schema: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date")
			return nil
		},
	}
}
