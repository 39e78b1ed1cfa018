package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evercoin-dev/evercoin/internal/store"
)

func TestDoRetriesConflicts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), 5, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return store.ErrConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), 2, func(ctx context.Context) error {
		attempts++
		return store.ErrConflict
	})
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, 3, attempts) // initial try + 2 retries
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	attempts := 0
	err := Do(context.Background(), 5, func(ctx context.Context) error {
		attempts++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, 10, func(ctx context.Context) error {
		return store.ErrConflict
	})
	assert.Error(t, err)
}
