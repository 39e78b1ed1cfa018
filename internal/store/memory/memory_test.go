package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evercoin-dev/evercoin/internal/model"
	"github.com/evercoin-dev/evercoin/internal/money"
	"github.com/evercoin-dev/evercoin/internal/store"
)

func newWallet(t *testing.T, s *Store, balance string) model.Wallet {
	t.Helper()
	w := model.NewWallet(uuid.New(), "checking", "USD", true)
	require.NoError(t, s.Wallets().Insert(context.Background(), w))
	if balance != "0" {
		var err error
		w, err = s.Wallets().ApplyDelta(context.Background(), w.ID, money.MustParse(balance, "USD"), w.Version)
		require.NoError(t, err)
	}
	return w
}

func TestApplyDelta(t *testing.T) {
	s := New()
	ctx := context.Background()
	w := newWallet(t, s, "100.00")

	got, err := s.Wallets().ApplyDelta(ctx, w.ID, money.MustParse("-40.00", "USD"), w.Version)
	require.NoError(t, err)
	assert.Equal(t, "60.00 USD", got.Balance.String())
	assert.Equal(t, w.Version+1, got.Version)
}

func TestApplyDeltaVersionConflict(t *testing.T) {
	s := New()
	ctx := context.Background()
	w := newWallet(t, s, "100.00")

	_, err := s.Wallets().ApplyDelta(ctx, w.ID, money.MustParse("1.00", "USD"), w.Version-1)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestApplyDeltaInsufficientFunds(t *testing.T) {
	s := New()
	ctx := context.Background()
	w := newWallet(t, s, "50.00")

	_, err := s.Wallets().ApplyDelta(ctx, w.ID, money.MustParse("-80.00", "USD"), w.Version)
	var ife *store.InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, w.ID, ife.WalletID)
	assert.Equal(t, "30.00 USD", ife.Shortfall.String())

	// Balance untouched.
	cur, err := s.Wallets().Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.00 USD", cur.Balance.String())
	assert.Equal(t, w.Version, cur.Version)
}

func TestCreditNeverFailsSufficiency(t *testing.T) {
	s := New()
	ctx := context.Background()
	w := newWallet(t, s, "0")

	got, err := s.Wallets().ApplyDelta(ctx, w.ID, money.MustParse("10.00", "USD"), w.Version)
	require.NoError(t, err)
	assert.Equal(t, "10.00 USD", got.Balance.String())
}

func TestApplyPairedDelta(t *testing.T) {
	s := New()
	ctx := context.Background()
	from := newWallet(t, s, "100.00")
	to := newWallet(t, s, "0")

	gotFrom, gotTo, err := s.Wallets().ApplyPairedDelta(ctx, from.ID, to.ID, money.MustParse("30.00", "USD"), from.Version, to.Version)
	require.NoError(t, err)
	assert.Equal(t, "70.00 USD", gotFrom.Balance.String())
	assert.Equal(t, "30.00 USD", gotTo.Balance.String())
}

func TestApplyPairedDeltaAllOrNothing(t *testing.T) {
	s := New()
	ctx := context.Background()
	from := newWallet(t, s, "100.00")
	to := newWallet(t, s, "0")

	// Stale credit-side version: the debit side must be rolled back too.
	_, _, err := s.Wallets().ApplyPairedDelta(ctx, from.ID, to.ID, money.MustParse("30.00", "USD"), from.Version, to.Version+7)
	assert.ErrorIs(t, err, store.ErrConflict)

	curFrom, err := s.Wallets().Get(ctx, from.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00 USD", curFrom.Balance.String())
	assert.Equal(t, from.Version, curFrom.Version)
}

func TestWithTxRollback(t *testing.T) {
	s := New()
	ctx := context.Background()
	w := newWallet(t, s, "100.00")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context) error {
		_, err := s.Wallets().ApplyDelta(ctx, w.ID, money.MustParse("-100.00", "USD"), w.Version)
		require.NoError(t, err)
		op := model.Operation{ID: uuid.New(), OwnerID: w.OwnerID, WalletID: w.ID, Kind: model.KindExpense, Amount: money.MustParse("100.00", "USD")}
		require.NoError(t, s.Operations().Insert(ctx, op))
		return boom
	})
	require.ErrorIs(t, err, boom)

	cur, err := s.Wallets().Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00 USD", cur.Balance.String())

	ops, err := s.Operations().ListByWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestWithTxCommit(t *testing.T) {
	s := New()
	ctx := context.Background()
	w := newWallet(t, s, "100.00")

	err := s.WithTx(ctx, func(ctx context.Context) error {
		_, err := s.Wallets().ApplyDelta(ctx, w.ID, money.MustParse("-25.00", "USD"), w.Version)
		return err
	})
	require.NoError(t, err)

	cur, err := s.Wallets().Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "75.00 USD", cur.Balance.String())
}

func TestWalletUpdateDoesNotTouchBalance(t *testing.T) {
	s := New()
	ctx := context.Background()
	w := newWallet(t, s, "100.00")

	cur, err := s.Wallets().Get(ctx, w.ID)
	require.NoError(t, err)

	cur.IsHidden = true
	cur.Balance = money.MustParse("999.00", "USD") // must be ignored
	updated, err := s.Wallets().Update(ctx, cur)
	require.NoError(t, err)
	assert.True(t, updated.IsHidden)
	assert.Equal(t, "100.00 USD", updated.Balance.String())
}

func TestDefaultForOwner(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()

	def := model.NewWallet(owner, "main", "USD", true)
	other := model.NewWallet(owner, "savings", "USD", false)
	require.NoError(t, s.Wallets().Insert(ctx, def))
	require.NoError(t, s.Wallets().Insert(ctx, other))

	got, err := s.Wallets().DefaultForOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, def.ID, got.ID)

	_, err = s.Wallets().DefaultForOwner(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOperationVersioning(t *testing.T) {
	s := New()
	ctx := context.Background()
	w := newWallet(t, s, "0")

	op := model.Operation{
		ID: uuid.New(), OwnerID: w.OwnerID, WalletID: w.ID,
		Kind: model.KindIncome, Amount: money.MustParse("10.00", "USD"), Version: 1,
	}
	require.NoError(t, s.Operations().Insert(ctx, op))

	op.Title = "salary"
	updated, err := s.Operations().Update(ctx, op)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	// Stale version loses.
	_, err = s.Operations().Update(ctx, op)
	assert.ErrorIs(t, err, store.ErrConflict)
}
