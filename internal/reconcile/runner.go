package reconcile

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Run reconciles all wallets every interval until ctx is cancelled. A failed
// sweep is retried with exponential backoff before waiting for the next
// tick; drift is only logged, never corrected.
func (j *Job) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := j.sweep(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			j.log.Error("reconciliation sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (j *Job) sweep(ctx context.Context) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(func() error {
		reports, err := j.ReconcileAll(ctx)
		if err != nil {
			return err
		}
		drifted := 0
		for _, r := range reports {
			if !r.InBalance() {
				drifted++
			}
		}
		j.log.Info("reconciliation sweep complete",
			zap.Int("wallets", len(reports)),
			zap.Int("drifted", drifted))
		return nil
	}, policy)
}
