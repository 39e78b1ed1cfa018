package wallets

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/evercoin-dev/evercoin/internal/ledger"
	"github.com/evercoin-dev/evercoin/internal/model"
	"github.com/evercoin-dev/evercoin/internal/money"
	"github.com/evercoin-dev/evercoin/internal/store"
	"github.com/evercoin-dev/evercoin/internal/store/memory"
)

func setup(t *testing.T) (*Service, *ledger.Service, *memory.Store, uuid.UUID) {
	t.Helper()
	st := memory.New()
	log := zaptest.NewLogger(t)
	return NewService(st, log), ledger.NewService(st, log), st, uuid.New()
}

func TestCreateFirstDefault(t *testing.T) {
	svc, _, _, owner := setup(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "main", Currency: "USD", IsDefault: true})
	require.NoError(t, err)
	assert.True(t, w.IsDefault)
	assert.Equal(t, "0.00 USD", w.Balance.String())
}

func TestCreateDefaultDemotesPrevious(t *testing.T) {
	svc, _, st, owner := setup(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "main", Currency: "USD", IsDefault: true})
	require.NoError(t, err)

	second, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "new main", Currency: "USD", IsDefault: true})
	require.NoError(t, err)
	assert.True(t, second.IsDefault)

	cur, err := st.Wallets().Get(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, cur.IsDefault, "previous default must be demoted")

	def, err := st.Wallets().DefaultForOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)
}

func TestSetDefault(t *testing.T) {
	svc, _, st, owner := setup(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "a", Currency: "USD", IsDefault: true})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "b", Currency: "USD"})
	require.NoError(t, err)

	updated, err := svc.SetDefault(ctx, owner, b.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)

	curA, err := st.Wallets().Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, curA.IsDefault)

	// Idempotent on the current default.
	again, err := svc.SetDefault(ctx, owner, b.ID)
	require.NoError(t, err)
	assert.True(t, again.IsDefault)
}

func TestUnownedWalletIsNotFound(t *testing.T) {
	svc, _, _, owner := setup(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "main", Currency: "USD"})
	require.NoError(t, err)

	_, err = svc.SetDefault(ctx, uuid.New(), w.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Get(ctx, uuid.New(), w.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTotalsSkipHidden(t *testing.T) {
	svc, led, _, owner := setup(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "a", Currency: "USD", IsDefault: true})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "b", Currency: "USD", IsHidden: true})
	require.NoError(t, err)
	c, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "c", Currency: "EUR"})
	require.NoError(t, err)

	for wallet, amount := range map[uuid.UUID]money.Money{
		a.ID: money.MustParse("100.00", "USD"),
		b.ID: money.MustParse("50.00", "USD"),
		c.ID: money.MustParse("70.00", "EUR"),
	} {
		_, err := led.Create(ctx, ledger.CreateParams{
			OwnerID: owner, WalletID: wallet, Kind: model.KindIncome, Amount: amount,
		})
		require.NoError(t, err)
	}

	totals, err := svc.Totals(ctx, owner)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "100.00 USD", totals["USD"].String(), "hidden wallet excluded")
	assert.Equal(t, "70.00 EUR", totals["EUR"].String())
}

func TestDeleteEmptyWallet(t *testing.T) {
	svc, _, st, owner := setup(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "scratch", Currency: "USD"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner, w.ID))
	_, err = st.Wallets().Get(ctx, w.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteReassignsOperationsToDefault(t *testing.T) {
	svc, led, st, owner := setup(t)
	ctx := context.Background()

	def, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "main", Currency: "USD", IsDefault: true})
	require.NoError(t, err)
	old, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "old", Currency: "USD"})
	require.NoError(t, err)

	_, err = led.Create(ctx, ledger.CreateParams{
		OwnerID: owner, WalletID: old.ID, Kind: model.KindIncome, Amount: money.MustParse("200.00", "USD"),
	})
	require.NoError(t, err)
	_, err = led.Create(ctx, ledger.CreateParams{
		OwnerID: owner, WalletID: old.ID, Kind: model.KindExpense, Amount: money.MustParse("80.00", "USD"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner, old.ID))

	_, err = st.Wallets().Get(ctx, old.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The default wallet inherited both operations and their net effect.
	cur, err := st.Wallets().Get(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, "120.00 USD", cur.Balance.String())

	ops, err := st.Operations().ListByWallet(ctx, def.ID)
	require.NoError(t, err)
	assert.Len(t, ops, 2)
}

func TestDeleteDefaultWithOperationsRefused(t *testing.T) {
	svc, led, _, owner := setup(t)
	ctx := context.Background()

	def, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "main", Currency: "USD", IsDefault: true})
	require.NoError(t, err)
	_, err = led.Create(ctx, ledger.CreateParams{
		OwnerID: owner, WalletID: def.ID, Kind: model.KindIncome, Amount: money.MustParse("10.00", "USD"),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, owner, def.ID), ErrDeleteDefault)
}

func TestDeleteWithoutDefaultRefused(t *testing.T) {
	svc, led, _, owner := setup(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "only", Currency: "USD"})
	require.NoError(t, err)
	_, err = led.Create(ctx, ledger.CreateParams{
		OwnerID: owner, WalletID: w.ID, Kind: model.KindIncome, Amount: money.MustParse("10.00", "USD"),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, owner, w.ID), ErrNoDefault)
}

func TestDeleteWalletWithTransfersRefused(t *testing.T) {
	svc, led, _, owner := setup(t)
	ctx := context.Background()

	def, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "main", Currency: "USD", IsDefault: true})
	require.NoError(t, err)
	w, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "side", Currency: "USD"})
	require.NoError(t, err)

	_, err = led.Create(ctx, ledger.CreateParams{
		OwnerID: owner, WalletID: def.ID, Kind: model.KindIncome, Amount: money.MustParse("100.00", "USD"),
	})
	require.NoError(t, err)
	_, err = led.Transfer(ctx, ledger.TransferParams{
		OwnerID: owner, FromWalletID: def.ID, ToWalletID: w.ID, Amount: money.MustParse("40.00", "USD"),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, owner, w.ID), ErrHasTransfers)
}

func TestDeleteCurrencyMismatchRefused(t *testing.T) {
	svc, led, _, owner := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "main", Currency: "USD", IsDefault: true})
	require.NoError(t, err)
	eur, err := svc.Create(ctx, CreateParams{OwnerID: owner, Name: "euros", Currency: "EUR"})
	require.NoError(t, err)

	_, err = led.Create(ctx, ledger.CreateParams{
		OwnerID: owner, WalletID: eur.ID, Kind: model.KindIncome, Amount: money.MustParse("10.00", "EUR"),
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, owner, eur.ID)
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
}
