package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evercoin-dev/evercoin/internal/model"
	"github.com/evercoin-dev/evercoin/internal/money"
)

// TransferParams holds parameters for moving funds between two wallets of
// the same owner.
type TransferParams struct {
	OwnerID      uuid.UUID
	FromWalletID uuid.UUID
	ToWalletID   uuid.UUID
	Amount       money.Money
	CategoryID   *uuid.UUID
	Title        string
	Description  string
	OccurredAt   time.Time
}

// Transfer debits one wallet and credits another as a single atomic unit and
// records the movement as one operation row referencing both wallets. No
// reader ever observes only one side applied, and no second synthetic row
// exists to orphan.
func (s *Service) Transfer(ctx context.Context, params TransferParams) (model.Operation, error) {
	op := newOperation(CreateParams{
		OwnerID:         params.OwnerID,
		WalletID:        params.FromWalletID,
		Kind:            model.KindTransfer,
		Amount:          params.Amount,
		CounterWalletID: &params.ToWalletID,
		CategoryID:      params.CategoryID,
		Title:           params.Title,
		Description:     params.Description,
		OccurredAt:      params.OccurredAt,
	})
	if err := validationFailed(validateShape(op)); err != nil {
		return model.Operation{}, err
	}

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		from, err := s.ownedWallet(ctx, params.OwnerID, params.FromWalletID)
		if err != nil {
			return err
		}
		to, err := s.ownedWallet(ctx, params.OwnerID, params.ToWalletID)
		if err != nil {
			return err
		}

		var verrs []ValidationError
		verrs = append(verrs, validateCurrency(op, from)...)
		verrs = append(verrs, validateCurrency(op, to)...)
		if err := validationFailed(verrs); err != nil {
			return err
		}
		if err := checkSufficiency(from, params.Amount.Neg()); err != nil {
			return err
		}

		if _, _, err := s.store.Wallets().ApplyPairedDelta(ctx, from.ID, to.ID,
			params.Amount, from.Version, to.Version); err != nil {
			return err
		}
		if err := s.store.Operations().Insert(ctx, op); err != nil {
			return err
		}
		return s.logChange(ctx, model.ActionCreate, nil, &op)
	})
	if err != nil {
		return model.Operation{}, err
	}

	s.log.Info("transfer recorded",
		zap.String("operation_id", op.ID.String()),
		zap.String("from_wallet_id", params.FromWalletID.String()),
		zap.String("to_wallet_id", params.ToWalletID.String()),
		zap.String("amount", params.Amount.String()))
	return op, nil
}
