package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/evercoin-dev/evercoin/internal/money"
)

// Wallet is a user's account holding a materialized balance. The balance is a
// cache of the summed effects of all operations referencing the wallet and is
// mutated only through the store's delta primitives, never assigned directly.
type Wallet struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	Balance   money.Money // Balance.Currency() == Currency always
	Currency  string
	IsDefault bool
	IsHidden  bool // excluded from owner-level totals
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewWallet creates a wallet with a zero balance in the given currency.
func NewWallet(ownerID uuid.UUID, name, currency string, isDefault bool) Wallet {
	now := time.Now().UTC()
	return Wallet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      name,
		Balance:   money.Zero(currency),
		Currency:  currency,
		IsDefault: isDefault,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
