package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/evercoin-dev/evercoin/internal/config"
	"github.com/evercoin-dev/evercoin/internal/reconcile"
	"github.com/evercoin-dev/evercoin/internal/store/postgres"
)

func newReconcileCommand(configPath *string) *cobra.Command {
	var walletID string
	var watch bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute wallet balances from history and report drift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			job := reconcile.NewJob(postgres.New(pool), log)

			if watch {
				return job.Run(cmd.Context(), cfg.Reconcile.Interval.Std())
			}

			var reports []reconcile.Report
			if walletID != "" {
				id, err := uuid.Parse(walletID)
				if err != nil {
					return fmt.Errorf("parsing wallet id: %w", err)
				}
				report, err := job.Reconcile(cmd.Context(), id)
				if err != nil {
					return err
				}
				reports = []reconcile.Report{report}
			} else {
				reports, err = job.ReconcileAll(cmd.Context())
				if err != nil {
					return err
				}
			}

			drifted := 0
			for _, r := range reports {
				status := "ok"
				if !r.InBalance() {
					status = "DRIFT " + r.Drift.String()
					drifted++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  stored=%s computed=%s ops=%d  %s\n",
					r.WalletID, r.Stored, r.Computed, r.Operations, status)
			}
			if drifted > 0 {
				return fmt.Errorf("%d of %d wallets out of balance", drifted, len(reports))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d wallets in balance\n", len(reports))
			return nil
		},
	}

	cmd.Flags().StringVar(&walletID, "wallet", "", "reconcile a single wallet")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep reconciling at the configured interval")

	return cmd
}
