package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/evercoin-dev/evercoin/internal/model"
	"github.com/evercoin-dev/evercoin/internal/money"
	"github.com/evercoin-dev/evercoin/internal/store"
)

type operationStore struct {
	s *Store
}

const operationColumns = `id, owner_id, wallet_id, counter_wallet_id, kind, amount, currency,
	title, description, category_id, occurred_at, created_at, version`

func scanOperation(row pgx.Row) (model.Operation, error) {
	var op model.Operation
	var counter, category uuid.NullUUID
	var amount decimal.Decimal
	var currency string
	err := row.Scan(&op.ID, &op.OwnerID, &op.WalletID, &counter, &op.Kind, &amount, &currency,
		&op.Title, &op.Description, &category, &op.OccurredAt, &op.CreatedAt, &op.Version)
	if err != nil {
		return model.Operation{}, err
	}
	if counter.Valid {
		op.CounterWalletID = &counter.UUID
	}
	if category.Valid {
		op.CategoryID = &category.UUID
	}
	op.Amount, err = money.New(amount, currency)
	if err != nil {
		return model.Operation{}, fmt.Errorf("reading amount: %w", err)
	}
	return op, nil
}

func nullUUID(p *uuid.UUID) uuid.NullUUID {
	if p == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *p, Valid: true}
}

func (r *operationStore) Get(ctx context.Context, id uuid.UUID) (model.Operation, error) {
	row := r.s.conn(ctx).QueryRow(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE id = $1`, id)
	op, err := scanOperation(row)
	if err != nil {
		return model.Operation{}, notFoundOr(err, "getting operation")
	}
	return op, nil
}

func (r *operationStore) Insert(ctx context.Context, op model.Operation) error {
	_, err := r.s.conn(ctx).Exec(ctx, `
		INSERT INTO operations (`+operationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		op.ID, op.OwnerID, op.WalletID, nullUUID(op.CounterWalletID), op.Kind,
		op.Amount.Amount(), op.Amount.Currency(), op.Title, op.Description,
		nullUUID(op.CategoryID), op.OccurredAt, op.CreatedAt, op.Version)
	if err != nil {
		return fmt.Errorf("inserting operation: %w", err)
	}
	return nil
}

func (r *operationStore) Update(ctx context.Context, op model.Operation) (model.Operation, error) {
	row := r.s.conn(ctx).QueryRow(ctx, `
		UPDATE operations
		SET wallet_id = $2, counter_wallet_id = $3, kind = $4, amount = $5, currency = $6,
		    title = $7, description = $8, category_id = $9, occurred_at = $10,
		    version = version + 1
		WHERE id = $1 AND version = $11
		RETURNING `+operationColumns,
		op.ID, op.WalletID, nullUUID(op.CounterWalletID), op.Kind,
		op.Amount.Amount(), op.Amount.Currency(), op.Title, op.Description,
		nullUUID(op.CategoryID), op.OccurredAt, op.Version)
	updated, err := scanOperation(row)
	if err == nil {
		return updated, nil
	}
	if !isNoRows(err) {
		return model.Operation{}, fmt.Errorf("updating operation: %w", err)
	}

	var version int64
	verr := r.s.conn(ctx).QueryRow(ctx, `SELECT version FROM operations WHERE id = $1`, op.ID).Scan(&version)
	if verr != nil {
		return model.Operation{}, notFoundOr(verr, "updating operation")
	}
	if version != op.Version {
		return model.Operation{}, store.ErrConflict
	}
	return model.Operation{}, fmt.Errorf("updating operation: %w", err)
}

func (r *operationStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.s.conn(ctx).Exec(ctx, `DELETE FROM operations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting operation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *operationStore) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]model.Operation, error) {
	rows, err := r.s.conn(ctx).Query(ctx, `
		SELECT `+operationColumns+` FROM operations
		WHERE wallet_id = $1 OR counter_wallet_id = $1
		ORDER BY occurred_at, created_at, id`, walletID)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var out []model.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		out = append(out, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading operations: %w", err)
	}
	return out, nil
}
