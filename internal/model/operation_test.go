package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evercoin-dev/evercoin/internal/money"
)

func TestEffect(t *testing.T) {
	walletA := uuid.New()
	walletB := uuid.New()
	amount := money.MustParse("100.00", "USD")

	tests := []struct {
		name string
		op   Operation
		want []Delta
	}{
		{
			name: "income credits the wallet",
			op:   Operation{Kind: KindIncome, WalletID: walletA, Amount: amount},
			want: []Delta{{WalletID: walletA, Amount: amount}},
		},
		{
			name: "expense debits the wallet",
			op:   Operation{Kind: KindExpense, WalletID: walletA, Amount: amount},
			want: []Delta{{WalletID: walletA, Amount: amount.Neg()}},
		},
		{
			name: "transfer debits primary and credits counter",
			op:   Operation{Kind: KindTransfer, WalletID: walletA, CounterWalletID: &walletB, Amount: amount},
			want: []Delta{
				{WalletID: walletA, Amount: amount.Neg()},
				{WalletID: walletB, Amount: amount},
			},
		},
		{
			name: "transfer without counter has no effect",
			op:   Operation{Kind: KindTransfer, WalletID: walletA, Amount: amount},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.op.Effect()
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].WalletID, got[i].WalletID)
				assert.True(t, tt.want[i].Amount.Equal(got[i].Amount),
					"delta %d: want %s got %s", i, tt.want[i].Amount, got[i].Amount)
			}
		})
	}
}

func TestEffectOn(t *testing.T) {
	walletA := uuid.New()
	walletB := uuid.New()
	other := uuid.New()
	op := Operation{
		Kind:            KindTransfer,
		WalletID:        walletA,
		CounterWalletID: &walletB,
		Amount:          money.MustParse("25.00", "USD"),
	}

	onA, err := op.EffectOn(walletA)
	require.NoError(t, err)
	assert.Equal(t, "-25.00 USD", onA.String())

	onB, err := op.EffectOn(walletB)
	require.NoError(t, err)
	assert.Equal(t, "25.00 USD", onB.String())

	onOther, err := op.EffectOn(other)
	require.NoError(t, err)
	assert.True(t, onOther.IsZero())
}

func TestTouches(t *testing.T) {
	walletA := uuid.New()
	walletB := uuid.New()
	op := Operation{Kind: KindTransfer, WalletID: walletA, CounterWalletID: &walletB}

	assert.True(t, op.Touches(walletA))
	assert.True(t, op.Touches(walletB))
	assert.False(t, op.Touches(uuid.New()))
}

func TestKindValid(t *testing.T) {
	assert.True(t, KindIncome.Valid())
	assert.True(t, KindExpense.Valid())
	assert.True(t, KindTransfer.Valid())
	assert.False(t, Kind("refund").Valid())
	assert.False(t, Kind("").Valid())
}
