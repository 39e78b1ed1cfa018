// Package ledger is the wallet-ledger consistency engine. It owns the rule
// that a wallet's stored balance is a materialized cache of the summed
// effects of every operation referencing it: each create, update and delete
// applies its balance delta and its row mutation inside one store
// transaction, so no partially applied state is ever observable.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evercoin-dev/evercoin/internal/model"
	"github.com/evercoin-dev/evercoin/internal/money"
	"github.com/evercoin-dev/evercoin/internal/store"
)

// Service provides the operation ledger: create, update and delete of
// financial operations with atomically maintained wallet balances.
//
// Conflicts from concurrent writers surface as store.ErrConflict and are
// never retried here; the caller decides whether to reload and try again.
type Service struct {
	store store.Store
	log   *zap.Logger
}

// NewService creates a ledger Service. A nil logger disables logging.
func NewService(st store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, log: log}
}

// CreateParams holds parameters for recording a new operation.
type CreateParams struct {
	OwnerID         uuid.UUID
	WalletID        uuid.UUID
	Kind            model.Kind
	Amount          money.Money
	CounterWalletID *uuid.UUID // transfers only
	CategoryID      *uuid.UUID
	Title           string
	Description     string
	OccurredAt      time.Time
}

// Create validates and records an operation, applying its balance effect in
// the same transaction as the row insert. Transfer kinds are delegated to
// Transfer, which applies the paired delta across both wallets.
func (s *Service) Create(ctx context.Context, params CreateParams) (model.Operation, error) {
	if params.Kind == model.KindTransfer {
		var counter uuid.UUID
		if params.CounterWalletID != nil {
			counter = *params.CounterWalletID
		}
		return s.Transfer(ctx, TransferParams{
			OwnerID:      params.OwnerID,
			FromWalletID: params.WalletID,
			ToWalletID:   counter,
			Amount:       params.Amount,
			CategoryID:   params.CategoryID,
			Title:        params.Title,
			Description:  params.Description,
			OccurredAt:   params.OccurredAt,
		})
	}

	op := newOperation(params)
	if err := validationFailed(validateShape(op)); err != nil {
		return model.Operation{}, err
	}

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		wallet, err := s.ownedWallet(ctx, op.OwnerID, op.WalletID)
		if err != nil {
			return err
		}
		if err := validationFailed(validateCurrency(op, wallet)); err != nil {
			return err
		}

		delta, err := op.EffectOn(wallet.ID)
		if err != nil {
			return err
		}
		if err := checkSufficiency(wallet, delta); err != nil {
			return err
		}

		if _, err := s.store.Wallets().ApplyDelta(ctx, wallet.ID, delta, wallet.Version); err != nil {
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

	s.log.Info("operation created",
		zap.String("operation_id", op.ID.String()),
		zap.String("wallet_id", op.WalletID.String()),
		zap.String("kind", string(op.Kind)),
		zap.String("amount", op.Amount.String()))
	return op, nil
}

// UpdateParams holds the mutable fields of an operation. Nil pointers leave
// the field unchanged. Changing Kind away from transfer clears the counter
// wallet; changing it to transfer requires CounterWalletID.
type UpdateParams struct {
	OperationID     uuid.UUID
	OwnerID         uuid.UUID
	Kind            *model.Kind
	Amount          *money.Money
	WalletID        *uuid.UUID
	CounterWalletID *uuid.UUID
	CategoryID      *uuid.UUID
	ClearCategory   bool
	Title           *string
	Description     *string
	OccurredAt      *time.Time
}

// Update rewrites an operation and applies, per wallet, the difference
// between the old and new effects. When the wallet set changes this is a
// reverse-on-A, apply-on-B pair; all deltas and the row update commit as one
// transaction.
func (s *Service) Update(ctx context.Context, params UpdateParams) (model.Operation, error) {
	var updated model.Operation

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		old, err := s.ownedOperation(ctx, params.OwnerID, params.OperationID)
		if err != nil {
			return err
		}

		next := applyUpdate(old, params)
		if err := validationFailed(validateShape(next)); err != nil {
			return err
		}

		if err := s.applyEffectDiff(ctx, old, next); err != nil {
			return err
		}

		updated, err = s.store.Operations().Update(ctx, next)
		if err != nil {
			return err
		}
		return s.logChange(ctx, model.ActionUpdate, &old, &updated)
	})
	if err != nil {
		return model.Operation{}, err
	}

	s.log.Info("operation updated",
		zap.String("operation_id", updated.ID.String()),
		zap.String("kind", string(updated.Kind)),
		zap.String("amount", updated.Amount.String()))
	return updated, nil
}

// Delete removes an operation, applying the inverse of its current effect in
// the same transaction as the row delete.
func (s *Service) Delete(ctx context.Context, ownerID, operationID uuid.UUID) error {
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		op, err := s.ownedOperation(ctx, ownerID, operationID)
		if err != nil {
			return err
		}

		if op.Kind == model.KindTransfer {
			// Reversing a transfer sends the funds back: debit the counter
			// wallet, credit the primary. Applied as one paired unit.
			from, err := s.ownedWallet(ctx, ownerID, *op.CounterWalletID)
			if err != nil {
				return err
			}
			to, err := s.ownedWallet(ctx, ownerID, op.WalletID)
			if err != nil {
				return err
			}
			if err := checkSufficiency(from, op.Amount.Neg()); err != nil {
				return err
			}
			if _, _, err := s.store.Wallets().ApplyPairedDelta(ctx, from.ID, to.ID,
				op.Amount, from.Version, to.Version); err != nil {
				return err
			}
		} else {
			wallet, err := s.ownedWallet(ctx, ownerID, op.WalletID)
			if err != nil {
				return err
			}
			effect, err := op.EffectOn(wallet.ID)
			if err != nil {
				return err
			}
			inverse := effect.Neg()
			if err := checkSufficiency(wallet, inverse); err != nil {
				return err
			}
			if _, err := s.store.Wallets().ApplyDelta(ctx, wallet.ID, inverse, wallet.Version); err != nil {
				return err
			}
		}

		if err := s.store.Operations().Delete(ctx, op.ID); err != nil {
			return err
		}
		return s.logChange(ctx, model.ActionDelete, &op, nil)
	})
	if err != nil {
		return err
	}

	s.log.Info("operation deleted", zap.String("operation_id", operationID.String()))
	return nil
}

// Get returns an operation scoped to its owner.
func (s *Service) Get(ctx context.Context, ownerID, operationID uuid.UUID) (model.Operation, error) {
	return s.ownedOperation(ctx, ownerID, operationID)
}

// applyEffectDiff applies, per wallet, newEffect - oldEffect. Wallets are
// processed in id order so concurrent updates acquire row locks in a
// consistent sequence.
func (s *Service) applyEffectDiff(ctx context.Context, old, next model.Operation) error {
	ids := affectedWallets(old, next)
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		wallet, err := s.ownedWallet(ctx, next.OwnerID, id)
		if err != nil {
			return err
		}

		oldEffect, err := effectInCurrency(old, wallet)
		if err != nil {
			return err
		}
		newEffect, err := effectInCurrency(next, wallet)
		if err != nil {
			return err
		}

		diff, err := newEffect.Sub(oldEffect)
		if err != nil {
			return err
		}
		if diff.IsZero() {
			continue
		}
		if err := checkSufficiency(wallet, diff); err != nil {
			return err
		}
		if _, err := s.store.Wallets().ApplyDelta(ctx, wallet.ID, diff, wallet.Version); err != nil {
			return err
		}
	}
	return nil
}

// effectInCurrency returns the operation's summed effect on the wallet in
// the wallet's currency; zero if the operation does not touch the wallet,
// and a validation error if it does but is denominated differently.
func effectInCurrency(op model.Operation, w model.Wallet) (money.Money, error) {
	if !op.Touches(w.ID) {
		return money.Zero(w.Currency), nil
	}
	if err := validationFailed(validateCurrency(op, w)); err != nil {
		return money.Money{}, err
	}
	return op.EffectOn(w.ID)
}

func affectedWallets(old, next model.Operation) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, op := range []model.Operation{old, next} {
		for _, d := range op.Effect() {
			if !seen[d.WalletID] {
				seen[d.WalletID] = true
				ids = append(ids, d.WalletID)
			}
		}
	}
	return ids
}

func applyUpdate(old model.Operation, params UpdateParams) model.Operation {
	next := old
	if params.Kind != nil {
		next.Kind = *params.Kind
	}
	if params.Amount != nil {
		next.Amount = *params.Amount
	}
	if params.WalletID != nil {
		next.WalletID = *params.WalletID
	}
	if params.CounterWalletID != nil {
		next.CounterWalletID = params.CounterWalletID
	}
	if next.Kind != model.KindTransfer {
		next.CounterWalletID = nil
	}
	if params.CategoryID != nil {
		next.CategoryID = params.CategoryID
	}
	if params.ClearCategory {
		next.CategoryID = nil
	}
	if params.Title != nil {
		next.Title = *params.Title
	}
	if params.Description != nil {
		next.Description = *params.Description
	}
	if params.OccurredAt != nil {
		next.OccurredAt = *params.OccurredAt
	}
	return next
}

func newOperation(params CreateParams) model.Operation {
	now := time.Now().UTC()
	occurred := params.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	return model.Operation{
		ID:              uuid.New(),
		OwnerID:         params.OwnerID,
		WalletID:        params.WalletID,
		CounterWalletID: params.CounterWalletID,
		Kind:            params.Kind,
		Amount:          params.Amount,
		Title:           params.Title,
		Description:     params.Description,
		CategoryID:      params.CategoryID,
		OccurredAt:      occurred,
		CreatedAt:       now,
		Version:         1,
	}
}

// ownedWallet loads a wallet and hides unowned rows behind ErrNotFound so
// callers cannot probe for other users' wallet ids.
func (s *Service) ownedWallet(ctx context.Context, ownerID, walletID uuid.UUID) (model.Wallet, error) {
	w, err := s.store.Wallets().Get(ctx, walletID)
	if err != nil {
		return model.Wallet{}, err
	}
	if w.OwnerID != ownerID {
		return model.Wallet{}, fmt.Errorf("wallet %s: %w", walletID, store.ErrNotFound)
	}
	return w, nil
}

func (s *Service) ownedOperation(ctx context.Context, ownerID, operationID uuid.UUID) (model.Operation, error) {
	op, err := s.store.Operations().Get(ctx, operationID)
	if err != nil {
		return model.Operation{}, err
	}
	if op.OwnerID != ownerID {
		return model.Operation{}, fmt.Errorf("operation %s: %w", operationID, store.ErrNotFound)
	}
	return op, nil
}
