// Package retry gives callers a bounded retry loop for version conflicts.
// The engine itself never retries a conflict: automatic retry deep in the
// core could mask a legitimate business-level denial. Callers that do want
// to retry must recompute from freshly loaded state on every attempt, which
// is why Do takes a closure rather than a prebuilt mutation.
package retry

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"

	"github.com/evercoin-dev/evercoin/internal/store"
)

// Do runs fn until it succeeds, returns a non-conflict error, or maxRetries
// conflicts have been retried. fn must reload wallet state itself; replaying
// a stale delta defeats the version check.
func Do(ctx context.Context, maxRetries uint64, fn func(ctx context.Context) error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	return backoff.Retry(func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}
