package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/evercoin-dev/evercoin/internal/model"
	"github.com/evercoin-dev/evercoin/internal/money"
	"github.com/evercoin-dev/evercoin/internal/store"
)

type walletStore struct {
	s *Store
}

const walletColumns = `id, owner_id, name, balance, currency, is_default, is_hidden, version, created_at, updated_at`

func scanWallet(row pgx.Row) (model.Wallet, error) {
	var w model.Wallet
	var balance decimal.Decimal
	err := row.Scan(&w.ID, &w.OwnerID, &w.Name, &balance, &w.Currency,
		&w.IsDefault, &w.IsHidden, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return model.Wallet{}, err
	}
	w.Balance, err = money.New(balance, w.Currency)
	if err != nil {
		return model.Wallet{}, fmt.Errorf("reading balance: %w", err)
	}
	return w, nil
}

func (r *walletStore) Get(ctx context.Context, id uuid.UUID) (model.Wallet, error) {
	row := r.s.conn(ctx).QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
	w, err := scanWallet(row)
	if err != nil {
		return model.Wallet{}, notFoundOr(err, "getting wallet")
	}
	return w, nil
}

func (r *walletStore) Insert(ctx context.Context, w model.Wallet) error {
	_, err := r.s.conn(ctx).Exec(ctx, `
		INSERT INTO wallets (`+walletColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		w.ID, w.OwnerID, w.Name, w.Balance.Amount(), w.Currency,
		w.IsDefault, w.IsHidden, w.Version, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting wallet: %w", err)
	}
	return nil
}

// Update writes name and flags under the version guard. The balance column
// is deliberately absent: only the delta primitives may touch it.
func (r *walletStore) Update(ctx context.Context, w model.Wallet) (model.Wallet, error) {
	row := r.s.conn(ctx).QueryRow(ctx, `
		UPDATE wallets
		SET name = $2, is_default = $3, is_hidden = $4,
		    version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $5
		RETURNING `+walletColumns,
		w.ID, w.Name, w.IsDefault, w.IsHidden, w.Version)
	updated, err := scanWallet(row)
	if err == nil {
		return updated, nil
	}
	return model.Wallet{}, r.classifyMiss(ctx, w.ID, w.Version, err, "updating wallet")
}

func (r *walletStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.s.conn(ctx).Exec(ctx, `DELETE FROM wallets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *walletStore) ApplyDelta(ctx context.Context, id uuid.UUID, delta money.Money, expectedVersion int64) (model.Wallet, error) {
	// The balance guard binds only for debits; credits always pass. The
	// WHERE clause is the authoritative check-and-act point, so a race that
	// slipped past the advisory pre-validation still cannot overdraw.
	row := r.s.conn(ctx).QueryRow(ctx, `
		UPDATE wallets
		SET balance = balance + $2, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $3 AND ($4 OR balance + $2 >= 0)
		RETURNING `+walletColumns,
		id, delta.Amount(), expectedVersion, !delta.IsNegative())
	w, err := scanWallet(row)
	if err == nil {
		if w.Currency != delta.Currency() {
			return model.Wallet{}, fmt.Errorf("applying delta: %w: wallet %s vs delta %s",
				money.ErrCurrencyMismatch, w.Currency, delta.Currency())
		}
		return w, nil
	}
	return model.Wallet{}, r.classifyDeltaMiss(ctx, id, delta, expectedVersion, err)
}

func (r *walletStore) ApplyPairedDelta(ctx context.Context, debitID, creditID uuid.UUID, amount money.Money, debitVersion, creditVersion int64) (model.Wallet, model.Wallet, error) {
	var debited, credited model.Wallet

	err := r.s.WithTx(ctx, func(ctx context.Context) error {
		// Touch rows in id order so two opposite concurrent transfers
		// cannot deadlock on each other's row locks.
		first, second := debitID, creditID
		if creditID.String() < debitID.String() {
			first, second = creditID, debitID
		}

		apply := func(id uuid.UUID) error {
			var err error
			switch id {
			case debitID:
				debited, err = r.ApplyDelta(ctx, debitID, amount.Neg(), debitVersion)
			default:
				credited, err = r.ApplyDelta(ctx, creditID, amount, creditVersion)
			}
			return err
		}

		if err := apply(first); err != nil {
			return err
		}
		return apply(second)
	})
	if err != nil {
		return model.Wallet{}, model.Wallet{}, err
	}
	return debited, credited, nil
}

func (r *walletStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Wallet, error) {
	rows, err := r.s.conn(ctx).Query(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE owner_id = $1 ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}
	return collectWallets(rows)
}

func (r *walletStore) List(ctx context.Context) ([]model.Wallet, error) {
	rows, err := r.s.conn(ctx).Query(ctx,
		`SELECT `+walletColumns+` FROM wallets ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}
	return collectWallets(rows)
}

func (r *walletStore) DefaultForOwner(ctx context.Context, ownerID uuid.UUID) (model.Wallet, error) {
	row := r.s.conn(ctx).QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE owner_id = $1 AND is_default`, ownerID)
	w, err := scanWallet(row)
	if err != nil {
		return model.Wallet{}, notFoundOr(err, "getting default wallet")
	}
	return w, nil
}

func collectWallets(rows pgx.Rows) ([]model.Wallet, error) {
	defer rows.Close()
	var out []model.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning wallet: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading wallets: %w", err)
	}
	return out, nil
}

// classifyMiss distinguishes NotFound from Conflict after a guarded UPDATE
// matched no row.
func (r *walletStore) classifyMiss(ctx context.Context, id uuid.UUID, expectedVersion int64, cause error, what string) error {
	if !isNoRows(cause) {
		return fmt.Errorf("%s: %w", what, cause)
	}
	var version int64
	err := r.s.conn(ctx).QueryRow(ctx, `SELECT version FROM wallets WHERE id = $1`, id).Scan(&version)
	if err != nil {
		return notFoundOr(err, what)
	}
	if version != expectedVersion {
		return store.ErrConflict
	}
	return fmt.Errorf("%s: %w", what, cause)
}

// classifyDeltaMiss additionally distinguishes an overdraw, reporting the
// shortfall from the row state visible to this transaction.
func (r *walletStore) classifyDeltaMiss(ctx context.Context, id uuid.UUID, delta money.Money, expectedVersion int64, cause error) error {
	if !isNoRows(cause) {
		return fmt.Errorf("applying delta: %w", cause)
	}
	var version int64
	var balance decimal.Decimal
	var currency string
	err := r.s.conn(ctx).QueryRow(ctx,
		`SELECT version, balance, currency FROM wallets WHERE id = $1`, id).
		Scan(&version, &balance, &currency)
	if err != nil {
		return notFoundOr(err, "applying delta")
	}
	if version != expectedVersion {
		return store.ErrConflict
	}
	shortfall, err := money.New(balance.Add(delta.Amount()).Neg(), currency)
	if err != nil {
		return fmt.Errorf("computing shortfall: %w", err)
	}
	return &store.InsufficientFundsError{WalletID: id, Shortfall: shortfall}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
