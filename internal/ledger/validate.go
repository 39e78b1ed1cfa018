package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/evercoin-dev/evercoin/internal/model"
	"github.com/evercoin-dev/evercoin/internal/money"
	"github.com/evercoin-dev/evercoin/internal/store"
)

// ValidationError describes a single violated input rule. These are always
// caller-fixable and never worth retrying.
type ValidationError struct {
	Check       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Check, e.Description)
}

// ValidationErrors aggregates every violated rule for one request.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// IsValidation reports whether err carries validation failures.
func IsValidation(err error) bool {
	var verrs ValidationErrors
	return errors.As(err, &verrs)
}

func validationFailed(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	return ValidationErrors(errs)
}

// validateShape checks the structural invariants of an operation: known
// kind, strictly positive amount, and the transfer/counter-wallet pairing
// rules. It is pure and runs before any transaction opens; the same rules
// are re-checked inside the transaction before mutating.
func validateShape(op model.Operation) []ValidationError {
	var errs []ValidationError

	if !op.Kind.Valid() {
		errs = append(errs, ValidationError{
			Check:       "kind",
			Description: fmt.Sprintf("unknown operation kind %q", op.Kind),
		})
	}

	if !op.Amount.IsPositive() {
		errs = append(errs, ValidationError{
			Check:       "amount",
			Description: fmt.Sprintf("amount must be positive, got %s", op.Amount),
		})
	}

	switch op.Kind {
	case model.KindTransfer:
		// A pointer to the zero UUID is as absent as a nil pointer; Create
		// materializes the counter from params before validation runs.
		if op.CounterWalletID == nil || *op.CounterWalletID == uuid.Nil {
			errs = append(errs, ValidationError{
				Check:       "counter_wallet",
				Description: "transfer requires a counter wallet",
			})
		} else if *op.CounterWalletID == op.WalletID {
			errs = append(errs, ValidationError{
				Check:       "counter_wallet",
				Description: "transfer source and destination must differ",
			})
		}
	case model.KindIncome, model.KindExpense:
		if op.CounterWalletID != nil {
			errs = append(errs, ValidationError{
				Check:       "counter_wallet",
				Description: fmt.Sprintf("%s must not reference a counter wallet", op.Kind),
			})
		}
	}

	return errs
}

// validateCurrency checks that the operation amount is denominated in the
// wallet's currency. Cross-currency operations are rejected outright; there
// is no conversion path.
func validateCurrency(op model.Operation, w model.Wallet) []ValidationError {
	if op.Amount.Currency() == w.Currency {
		return nil
	}
	return []ValidationError{{
		Check: "currency",
		Description: fmt.Sprintf("amount currency %s does not match wallet %s currency %s",
			op.Amount.Currency(), w.ID, w.Currency),
	}}
}

// checkSufficiency is the advisory pre-check for a debit: it fails fast with
// the same error the store's atomic delta would produce. The store re-checks
// under its version guard, which is the authoritative enforcement point.
func checkSufficiency(w model.Wallet, delta money.Money) error {
	if !delta.IsNegative() {
		return nil
	}
	next, err := w.Balance.Add(delta)
	if err != nil {
		return err
	}
	if next.IsNegative() {
		return &store.InsufficientFundsError{WalletID: w.ID, Shortfall: next.Neg()}
	}
	return nil
}
