package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is idempotent: every statement is guarded with IF NOT EXISTS.
// The partial unique index enforces at most one default wallet per owner at
// the database level; the check constraints mirror the operation shape rules
// so a buggy writer cannot persist an invalid row.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS wallets (
		id uuid PRIMARY KEY,
		owner_id uuid NOT NULL,
		name text NOT NULL,
		balance numeric(15,2) NOT NULL DEFAULT 0,
		currency text NOT NULL,
		is_default boolean NOT NULL DEFAULT false,
		is_hidden boolean NOT NULL DEFAULT false,
		version bigint NOT NULL DEFAULT 1,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS wallets_one_default_per_owner
		ON wallets (owner_id) WHERE is_default`,
	`CREATE TABLE IF NOT EXISTS operations (
		id uuid PRIMARY KEY,
		owner_id uuid NOT NULL,
		wallet_id uuid NOT NULL REFERENCES wallets (id),
		counter_wallet_id uuid REFERENCES wallets (id),
		kind text NOT NULL,
		amount numeric(15,2) NOT NULL,
		currency text NOT NULL,
		title text NOT NULL DEFAULT '',
		description text NOT NULL DEFAULT '',
		category_id uuid,
		occurred_at timestamptz NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		version bigint NOT NULL DEFAULT 1,
		CONSTRAINT operations_amount_positive CHECK (amount > 0),
		CONSTRAINT operations_transfer_shape CHECK ((kind = 'transfer') = (counter_wallet_id IS NOT NULL)),
		CONSTRAINT operations_distinct_wallets CHECK (counter_wallet_id IS DISTINCT FROM wallet_id)
	)`,
	`CREATE INDEX IF NOT EXISTS operations_wallet_idx ON operations (wallet_id)`,
	`CREATE INDEX IF NOT EXISTS operations_counter_wallet_idx ON operations (counter_wallet_id)`,
	`CREATE INDEX IF NOT EXISTS operations_owner_idx ON operations (owner_id, occurred_at)`,
	`CREATE TABLE IF NOT EXISTS operation_changes (
		id uuid PRIMARY KEY,
		owner_id uuid NOT NULL,
		operation_id uuid NOT NULL,
		action text NOT NULL,
		old_data jsonb,
		new_data jsonb,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS operation_changes_operation_idx ON operation_changes (operation_id)`,
}

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
