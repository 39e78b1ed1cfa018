package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evercoin-dev/evercoin/internal/model"
	"github.com/evercoin-dev/evercoin/internal/money"
	"github.com/evercoin-dev/evercoin/internal/store"
)

func TestValidateShape(t *testing.T) {
	walletA := uuid.New()
	walletB := uuid.New()
	zeroID := uuid.UUID{}
	amount := money.MustParse("10.00", "USD")

	tests := []struct {
		name       string
		op         model.Operation
		wantChecks []string
	}{
		{
			name: "valid expense",
			op:   model.Operation{Kind: model.KindExpense, WalletID: walletA, Amount: amount},
		},
		{
			name: "valid transfer",
			op:   model.Operation{Kind: model.KindTransfer, WalletID: walletA, CounterWalletID: &walletB, Amount: amount},
		},
		{
			name:       "zero amount",
			op:         model.Operation{Kind: model.KindIncome, WalletID: walletA, Amount: money.Zero("USD")},
			wantChecks: []string{"amount"},
		},
		{
			name:       "negative amount",
			op:         model.Operation{Kind: model.KindIncome, WalletID: walletA, Amount: money.MustParse("-5.00", "USD")},
			wantChecks: []string{"amount"},
		},
		{
			name:       "unknown kind",
			op:         model.Operation{Kind: model.Kind("loan"), WalletID: walletA, Amount: amount},
			wantChecks: []string{"kind"},
		},
		{
			name:       "transfer without counter",
			op:         model.Operation{Kind: model.KindTransfer, WalletID: walletA, Amount: amount},
			wantChecks: []string{"counter_wallet"},
		},
		{
			name:       "transfer with zero counter",
			op:         model.Operation{Kind: model.KindTransfer, WalletID: walletA, CounterWalletID: &zeroID, Amount: amount},
			wantChecks: []string{"counter_wallet"},
		},
		{
			name:       "self transfer",
			op:         model.Operation{Kind: model.KindTransfer, WalletID: walletA, CounterWalletID: &walletA, Amount: amount},
			wantChecks: []string{"counter_wallet"},
		},
		{
			name:       "income with counter",
			op:         model.Operation{Kind: model.KindIncome, WalletID: walletA, CounterWalletID: &walletB, Amount: amount},
			wantChecks: []string{"counter_wallet"},
		},
		{
			name:       "everything wrong at once",
			op:         model.Operation{Kind: model.Kind("loan"), WalletID: walletA, CounterWalletID: &walletA, Amount: money.Zero("USD")},
			wantChecks: []string{"kind", "amount"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateShape(tt.op)
			require.Len(t, errs, len(tt.wantChecks), "errors: %v", errs)
			for i, check := range tt.wantChecks {
				assert.Equal(t, check, errs[i].Check)
			}
		})
	}
}

func TestValidateCurrency(t *testing.T) {
	w := model.NewWallet(uuid.New(), "w", "USD", false)

	ok := model.Operation{Kind: model.KindIncome, WalletID: w.ID, Amount: money.MustParse("1.00", "USD")}
	assert.Empty(t, validateCurrency(ok, w))

	bad := model.Operation{Kind: model.KindIncome, WalletID: w.ID, Amount: money.MustParse("1.00", "EUR")}
	errs := validateCurrency(bad, w)
	require.Len(t, errs, 1)
	assert.Equal(t, "currency", errs[0].Check)
}

func TestCheckSufficiency(t *testing.T) {
	w := model.NewWallet(uuid.New(), "w", "USD", false)
	w.Balance = money.MustParse("100.00", "USD")

	// Credits never fail.
	assert.NoError(t, checkSufficiency(w, money.MustParse("1000000.00", "USD")))

	// Debit within balance passes, down to exactly zero.
	assert.NoError(t, checkSufficiency(w, money.MustParse("-100.00", "USD")))

	// Overdraw reports the wallet and shortfall.
	err := checkSufficiency(w, money.MustParse("-130.00", "USD"))
	var ife *store.InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, w.ID, ife.WalletID)
	assert.Equal(t, "30.00 USD", ife.Shortfall.String())
}

func TestValidationErrorsMessage(t *testing.T) {
	err := ValidationErrors{
		{Check: "amount", Description: "amount must be positive, got 0.00 USD"},
		{Check: "kind", Description: `unknown operation kind "loan"`},
	}
	assert.Contains(t, err.Error(), "validation failed: ")
	assert.Contains(t, err.Error(), "amount must be positive")
	assert.Contains(t, err.Error(), "; kind:")
	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(nil))
	assert.False(t, IsValidation(store.ErrConflict))
}
