package commands

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/evercoin-dev/evercoin/internal/config"
	"github.com/evercoin-dev/evercoin/internal/importer"
	"github.com/evercoin-dev/evercoin/internal/ledger"
	"github.com/evercoin-dev/evercoin/internal/store/postgres"
)

func newImportCommand(configPath *string) *cobra.Command {
	var ownerID string
	var walletID string
	var format string

	cmd := &cobra.Command{
		Use:   "import <statement.csv>",
		Short: "Import a bank statement CSV as ledger operations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := uuid.Parse(ownerID)
			if err != nil {
				return fmt.Errorf("parsing owner id: %w", err)
			}
			wallet, err := uuid.Parse(walletID)
			if err != nil {
				return fmt.Errorf("parsing wallet id: %w", err)
			}

			parser := importer.DefaultRegistry().Get(format)
			if parser == nil {
				return fmt.Errorf("unknown statement format %q", format)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening statement: %w", err)
			}
			defer f.Close()

			rows, err := parser.Parse(f)
			if err != nil {
				return fmt.Errorf("parsing statement: %w", err)
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			pool, err := postgres.Connect(cmd.Context(), cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer pool.Close()

			st := postgres.New(pool)
			ing := importer.NewIngester(ledger.NewService(st, log), st, log)

			summary, err := ing.Import(cmd.Context(), owner, wallet, rows)
			if err != nil {
				return fmt.Errorf("importing statement: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&ownerID, "owner", "", "owner id (required)")
	_ = cmd.MarkFlagRequired("owner")
	cmd.Flags().StringVar(&walletID, "wallet", "", "target wallet id (required)")
	_ = cmd.MarkFlagRequired("wallet")
	cmd.Flags().StringVar(&format, "format", "chase", "statement format")

	return cmd
}
