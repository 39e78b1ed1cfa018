// Package store defines the transactional persistence boundary for wallets
// and operations. The wallet store is the only component allowed to mutate a
// wallet's balance, and it only accepts deltas guarded by an optimistic
// version token; callers never read a balance, compute an absolute value and
// write it back.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/evercoin-dev/evercoin/internal/model"
	"github.com/evercoin-dev/evercoin/internal/money"
)

// Store bundles the repositories behind a single transactional boundary.
// WithTx runs fn inside one transaction: every repository call made through
// the ctx passed to fn joins that transaction, and any error from fn rolls
// the whole unit back.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Wallets() WalletStore
	Operations() OperationStore
	Changes() ChangeLogStore
}

// WalletStore holds wallet rows and the atomic balance-mutation primitives.
type WalletStore interface {
	Get(ctx context.Context, id uuid.UUID) (model.Wallet, error)
	Insert(ctx context.Context, w model.Wallet) error

	// Update persists name/flag changes guarded by w.Version and increments
	// the version. It never writes the balance.
	Update(ctx context.Context, w model.Wallet) (model.Wallet, error)

	// Delete removes a wallet row. The caller is responsible for having
	// migrated or removed every operation referencing it first.
	Delete(ctx context.Context, id uuid.UUID) error

	// ApplyDelta atomically adds delta to the wallet's balance and increments
	// its version. Returns ErrConflict if expectedVersion does not match the
	// stored version, and InsufficientFundsError if delta is negative and the
	// resulting balance would be negative (credits never fail this check).
	ApplyDelta(ctx context.Context, id uuid.UUID, delta money.Money, expectedVersion int64) (model.Wallet, error)

	// ApplyPairedDelta debits amount from one wallet and credits it to the
	// other as a single atomic unit: both mutations succeed or neither does.
	ApplyPairedDelta(ctx context.Context, debitID, creditID uuid.UUID, amount money.Money, debitVersion, creditVersion int64) (model.Wallet, model.Wallet, error)

	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Wallet, error)
	List(ctx context.Context) ([]model.Wallet, error)

	// DefaultForOwner returns the owner's default wallet, or ErrNotFound.
	DefaultForOwner(ctx context.Context, ownerID uuid.UUID) (model.Wallet, error)
}

// OperationStore holds operation rows.
type OperationStore interface {
	Get(ctx context.Context, id uuid.UUID) (model.Operation, error)
	Insert(ctx context.Context, op model.Operation) error

	// Update persists op guarded by op.Version and increments the version.
	Update(ctx context.Context, op model.Operation) (model.Operation, error)

	Delete(ctx context.Context, id uuid.UUID) error

	// ListByWallet returns operations referencing the wallet as primary or
	// counter side, oldest first.
	ListByWallet(ctx context.Context, walletID uuid.UUID) ([]model.Operation, error)
}

// ChangeLogStore appends audit rows for operation mutations.
type ChangeLogStore interface {
	Append(ctx context.Context, entry model.ChangeLog) error
	ListByOperation(ctx context.Context, operationID uuid.UUID) ([]model.ChangeLog, error)
}
