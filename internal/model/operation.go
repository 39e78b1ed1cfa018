package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evercoin-dev/evercoin/internal/money"
)

// Kind classifies a financial operation.
type Kind string

const (
	KindIncome   Kind = "income"
	KindExpense  Kind = "expense"
	KindTransfer Kind = "transfer"
)

// Valid reports whether k is one of the three known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer:
		return true
	}
	return false
}

// Operation is one financial operation against a wallet. Amount is always a
// positive magnitude; the sign of the balance change is derived from Kind.
// A transfer is a single row referencing both wallets: CounterWalletID is set
// for transfers and nil otherwise.
type Operation struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	WalletID        uuid.UUID
	CounterWalletID *uuid.UUID
	Kind            Kind
	Amount          money.Money
	Title           string
	Description     string
	CategoryID      *uuid.UUID
	OccurredAt      time.Time
	CreatedAt       time.Time
	Version         int64
}

// Delta is a signed balance change on one wallet.
type Delta struct {
	WalletID uuid.UUID
	Amount   money.Money // signed
}

// Effect returns the signed balance deltas the operation implies: income is
// +Amount on WalletID, expense is -Amount on WalletID, transfer is -Amount on
// WalletID and +Amount on CounterWalletID.
func (o Operation) Effect() []Delta {
	switch o.Kind {
	case KindIncome:
		return []Delta{{WalletID: o.WalletID, Amount: o.Amount}}
	case KindExpense:
		return []Delta{{WalletID: o.WalletID, Amount: o.Amount.Neg()}}
	case KindTransfer:
		if o.CounterWalletID == nil {
			return nil
		}
		return []Delta{
			{WalletID: o.WalletID, Amount: o.Amount.Neg()},
			{WalletID: *o.CounterWalletID, Amount: o.Amount},
		}
	}
	return nil
}

// EffectOn returns the summed signed delta the operation applies to a single
// wallet, or a zero amount if the operation does not touch it.
func (o Operation) EffectOn(walletID uuid.UUID) (money.Money, error) {
	total := money.Zero(o.Amount.Currency())
	for _, d := range o.Effect() {
		if d.WalletID != walletID {
			continue
		}
		sum, err := total.Add(d.Amount)
		if err != nil {
			return money.Money{}, fmt.Errorf("summing effect on wallet %s: %w", walletID, err)
		}
		total = sum
	}
	return total, nil
}

// Touches reports whether the operation references the wallet as primary or
// counter side.
func (o Operation) Touches(walletID uuid.UUID) bool {
	if o.WalletID == walletID {
		return true
	}
	return o.CounterWalletID != nil && *o.CounterWalletID == walletID
}
