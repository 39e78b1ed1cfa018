package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/evercoin-dev/evercoin/internal/model"
)

type changeLogStore struct {
	s *Store
}

func (r *changeLogStore) Append(ctx context.Context, entry model.ChangeLog) error {
	_, err := r.s.conn(ctx).Exec(ctx, `
		INSERT INTO operation_changes (id, owner_id, operation_id, action, old_data, new_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.OwnerID, entry.OperationID, entry.Action,
		entry.OldData, entry.NewData, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending change log: %w", err)
	}
	return nil
}

func (r *changeLogStore) ListByOperation(ctx context.Context, operationID uuid.UUID) ([]model.ChangeLog, error) {
	rows, err := r.s.conn(ctx).Query(ctx, `
		SELECT id, owner_id, operation_id, action, old_data, new_data, created_at
		FROM operation_changes
		WHERE operation_id = $1
		ORDER BY created_at, id`, operationID)
	if err != nil {
		return nil, fmt.Errorf("listing change log: %w", err)
	}
	defer rows.Close()

	var out []model.ChangeLog
	for rows.Next() {
		var c model.ChangeLog
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.OperationID, &c.Action,
			&c.OldData, &c.NewData, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning change log: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading change log: %w", err)
	}
	return out, nil
}
