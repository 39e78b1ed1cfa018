package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/evercoin-dev/evercoin/internal/ledger"
	"github.com/evercoin-dev/evercoin/internal/model"
	"github.com/evercoin-dev/evercoin/internal/money"
	"github.com/evercoin-dev/evercoin/internal/reconcile"
	"github.com/evercoin-dev/evercoin/internal/store"
	"github.com/evercoin-dev/evercoin/internal/store/memory"
	"github.com/evercoin-dev/evercoin/internal/wallets"
)

// newDemoCommand walks a short ledger session against an in-memory store so
// the balance semantics can be seen without a database.
func newDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Walk an example ledger session in memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			st := memory.New()
			walletSvc := wallets.NewService(st, nil)
			ledgerSvc := ledger.NewService(st, nil)

			owner := uuid.New()
			checking, err := walletSvc.Create(ctx, wallets.CreateParams{
				OwnerID: owner, Name: "checking", Currency: "USD", IsDefault: true,
			})
			if err != nil {
				return err
			}
			savings, err := walletSvc.Create(ctx, wallets.CreateParams{
				OwnerID: owner, Name: "savings", Currency: "USD",
			})
			if err != nil {
				return err
			}

			show := func(label string) error {
				c, err := st.Wallets().Get(ctx, checking.ID)
				if err != nil {
					return err
				}
				s, err := st.Wallets().Get(ctx, savings.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-28s checking=%s savings=%s\n", label, c.Balance, s.Balance)
				return nil
			}

			if _, err := ledgerSvc.Create(ctx, ledger.CreateParams{
				OwnerID: owner, WalletID: checking.ID, Kind: model.KindIncome,
				Amount: money.MustParse("1000.00", "USD"), Title: "salary",
			}); err != nil {
				return err
			}
			if err := show("income 1000.00"); err != nil {
				return err
			}

			if _, err := ledgerSvc.Create(ctx, ledger.CreateParams{
				OwnerID: owner, WalletID: checking.ID, Kind: model.KindExpense,
				Amount: money.MustParse("300.00", "USD"), Title: "rent",
			}); err != nil {
				return err
			}
			if err := show("expense 300.00"); err != nil {
				return err
			}

			transfer, err := ledgerSvc.Transfer(ctx, ledger.TransferParams{
				OwnerID: owner, FromWalletID: checking.ID, ToWalletID: savings.ID,
				Amount: money.MustParse("200.00", "USD"), Title: "savings top-up",
			})
			if err != nil {
				return err
			}
			if err := show("transfer 200.00"); err != nil {
				return err
			}

			if err := ledgerSvc.Delete(ctx, owner, transfer.ID); err != nil {
				return err
			}
			if err := show("transfer deleted"); err != nil {
				return err
			}

			_, err = ledgerSvc.Create(ctx, ledger.CreateParams{
				OwnerID: owner, WalletID: checking.ID, Kind: model.KindExpense,
				Amount: money.MustParse("750.00", "USD"), Title: "too big",
			})
			if !store.IsInsufficientFunds(err) {
				return fmt.Errorf("expected insufficient funds, got %v", err)
			}
			fmt.Fprintf(out, "%-28s rejected: %v\n", "expense 750.00", err)

			reports, err := reconcile.NewJob(st, nil).ReconcileAll(ctx)
			if err != nil {
				return err
			}
			for _, r := range reports {
				fmt.Fprintf(out, "reconcile %s stored=%s computed=%s in_balance=%t\n",
					r.WalletID, r.Stored, r.Computed, r.InBalance())
			}
			return nil
		},
	}
}
