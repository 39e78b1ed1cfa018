// Package reconcile recomputes wallet balances from operation history and
// reports drift against the stored balance. It is read-only: drift is never
// auto-corrected, because silently patching the cache would mask whatever
// bug produced it.
package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evercoin-dev/evercoin/internal/money"
	"github.com/evercoin-dev/evercoin/internal/store"
)

// Report is the result of reconciling one wallet.
type Report struct {
	WalletID   uuid.UUID
	Stored     money.Money
	Computed   money.Money
	Drift      money.Money // Stored - Computed; zero on a healthy wallet
	Operations int
}

// InBalance reports whether the stored balance matches the recomputed one.
func (r Report) InBalance() bool { return r.Drift.IsZero() }

// Job reconciles wallets against their operation history.
type Job struct {
	store store.Store
	log   *zap.Logger
}

// NewJob creates a reconciliation Job. A nil logger disables logging.
func NewJob(st store.Store, log *zap.Logger) *Job {
	if log == nil {
		log = zap.NewNop()
	}
	return &Job{store: st, log: log}
}

// Reconcile folds the effect of every operation referencing the wallet, as
// primary or counter side, from zero and compares the result to the stored
// balance.
func (j *Job) Reconcile(ctx context.Context, walletID uuid.UUID) (Report, error) {
	wallet, err := j.store.Wallets().Get(ctx, walletID)
	if err != nil {
		return Report{}, err
	}

	ops, err := j.store.Operations().ListByWallet(ctx, walletID)
	if err != nil {
		return Report{}, err
	}

	computed := money.Zero(wallet.Currency)
	for _, op := range ops {
		effect, err := op.EffectOn(walletID)
		if err != nil {
			return Report{}, fmt.Errorf("folding operation %s: %w", op.ID, err)
		}
		computed, err = computed.Add(effect)
		if err != nil {
			return Report{}, fmt.Errorf("folding operation %s: %w", op.ID, err)
		}
	}

	drift, err := wallet.Balance.Sub(computed)
	if err != nil {
		return Report{}, fmt.Errorf("computing drift: %w", err)
	}

	report := Report{
		WalletID:   walletID,
		Stored:     wallet.Balance,
		Computed:   computed,
		Drift:      drift,
		Operations: len(ops),
	}
	if !report.InBalance() {
		j.log.Warn("wallet balance drift detected",
			zap.String("wallet_id", walletID.String()),
			zap.String("stored", report.Stored.String()),
			zap.String("computed", report.Computed.String()),
			zap.String("drift", report.Drift.String()))
	}
	return report, nil
}

// ReconcileAll reconciles every wallet in the store.
func (j *Job) ReconcileAll(ctx context.Context) ([]Report, error) {
	wallets, err := j.store.Wallets().List(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(wallets))
	for _, w := range wallets {
		report, err := j.Reconcile(ctx, w.ID)
		if err != nil {
			return reports, fmt.Errorf("reconciling wallet %s: %w", w.ID, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}
