package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evercoin-dev/evercoin/internal/ledger"
	"github.com/evercoin-dev/evercoin/internal/model"
	"github.com/evercoin-dev/evercoin/internal/money"
	"github.com/evercoin-dev/evercoin/internal/store"
)

// Ingester records parsed statement rows as ledger operations.
type Ingester struct {
	ledger *ledger.Service
	store  store.Store
	log    *zap.Logger
}

// NewIngester creates an Ingester. A nil logger disables logging.
func NewIngester(led *ledger.Service, st store.Store, log *zap.Logger) *Ingester {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingester{ledger: led, store: st, log: log}
}

// Import creates one operation per row in the target wallet: positive
// amounts become income, negative become expense, zero rows are skipped.
// Rows matching an existing operation's date, title and amount are skipped
// as duplicates, so re-importing the same statement is safe.
func (i *Ingester) Import(ctx context.Context, ownerID, walletID uuid.UUID, rows []Row) (Summary, error) {
	wallet, err := i.store.Wallets().Get(ctx, walletID)
	if err != nil {
		return Summary{}, err
	}

	existing, err := i.store.Operations().ListByWallet(ctx, walletID)
	if err != nil {
		return Summary{}, err
	}
	seen := make(map[string]bool, len(existing))
	for _, op := range existing {
		seen[dedupKey(op.OccurredAt, op.Title, op.Amount.Amount().StringFixed(2))] = true
	}

	var summary Summary
	for _, row := range rows {
		if row.Amount.IsZero() {
			summary.Skipped++
			continue
		}

		kind := model.KindIncome
		magnitude := row.Amount
		if row.Amount.IsNegative() {
			kind = model.KindExpense
			magnitude = row.Amount.Neg()
		}

		amount, err := money.New(magnitude.Round(2), wallet.Currency)
		if err != nil {
			return summary, fmt.Errorf("row %q: %w", row.Reference, err)
		}

		key := dedupKey(row.Date.UTC(), row.Description, amount.Amount().StringFixed(2))
		if seen[key] {
			summary.Skipped++
			continue
		}

		_, err = i.ledger.Create(ctx, ledger.CreateParams{
			OwnerID:     ownerID,
			WalletID:    walletID,
			Kind:        kind,
			Amount:      amount,
			Title:       row.Description,
			Description: row.Reference,
			OccurredAt:  row.Date.UTC(),
		})
		if err != nil {
			return summary, fmt.Errorf("importing row %q: %w", row.Reference, err)
		}
		seen[key] = true
		summary.Created++
	}

	i.log.Info("statement imported",
		zap.String("wallet_id", walletID.String()),
		zap.Int("created", summary.Created),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

func dedupKey(date time.Time, title, amount string) string {
	return date.Format("2006-01-02") + "|" + title + "|" + amount
}
