package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/evercoin-dev/evercoin/internal/money"
)

// ErrNotFound is returned for an unknown row. Callers that scope lookups by
// owner return it for unowned rows as well, so existence never leaks.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an optimistic version check fails because a
// concurrent writer got there first. It is transient: reload the row and
// recompute before retrying. The engine never retries it internally.
var ErrConflict = errors.New("version conflict")

// InsufficientFundsError reports a debit that would drive a wallet balance
// below zero. Shortfall is the positive amount missing.
type InsufficientFundsError struct {
	WalletID  uuid.UUID
	Shortfall money.Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in wallet %s: short %s", e.WalletID, e.Shortfall)
}

// IsInsufficientFunds reports whether err is an InsufficientFundsError.
func IsInsufficientFunds(err error) bool {
	var ife *InsufficientFundsError
	return errors.As(err, &ife)
}
