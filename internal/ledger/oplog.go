package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evercoin-dev/evercoin/internal/model"
)

// opSnapshot is the JSON shape stored in the change log's old/new columns.
type opSnapshot struct {
	WalletID        uuid.UUID  `json:"wallet_id"`
	CounterWalletID *uuid.UUID `json:"counter_wallet_id,omitempty"`
	Kind            model.Kind `json:"kind"`
	Amount          string     `json:"amount"`
	Currency        string     `json:"currency"`
	Title           string     `json:"title,omitempty"`
	CategoryID      *uuid.UUID `json:"category_id,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

func snapshotJSON(op *model.Operation) ([]byte, error) {
	if op == nil {
		return nil, nil
	}
	data, err := json.Marshal(opSnapshot{
		WalletID:        op.WalletID,
		CounterWalletID: op.CounterWalletID,
		Kind:            op.Kind,
		Amount:          op.Amount.Amount().StringFixed(2),
		Currency:        op.Amount.Currency(),
		Title:           op.Title,
		CategoryID:      op.CategoryID,
		OccurredAt:      op.OccurredAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling operation snapshot: %w", err)
	}
	return data, nil
}

// logChange appends an audit row inside the caller's transaction, so the
// audit trail and the mutation it describes commit or roll back together.
func (s *Service) logChange(ctx context.Context, action model.ChangeAction, old, updated *model.Operation) error {
	ref := old
	if ref == nil {
		ref = updated
	}

	oldData, err := snapshotJSON(old)
	if err != nil {
		return err
	}
	newData, err := snapshotJSON(updated)
	if err != nil {
		return err
	}

	return s.store.Changes().Append(ctx, model.ChangeLog{
		ID:          uuid.New(),
		OwnerID:     ref.OwnerID,
		OperationID: ref.ID,
		Action:      action,
		OldData:     oldData,
		NewData:     newData,
		CreatedAt:   time.Now().UTC(),
	})
}
