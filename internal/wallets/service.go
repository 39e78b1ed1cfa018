// Package wallets manages wallet lifecycle: creation, the single-default
// rule, hiding, and deletion with operation reassignment. Balances are never
// written here; only the store's delta primitives move money.
package wallets

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evercoin-dev/evercoin/internal/model"
	"github.com/evercoin-dev/evercoin/internal/money"
	"github.com/evercoin-dev/evercoin/internal/store"
)

var (
	// ErrDeleteDefault is returned when deleting the default wallet while
	// operations still reference it: there is no other default to take them.
	ErrDeleteDefault = errors.New("cannot delete the default wallet while operations reference it")

	// ErrNoDefault is returned when a deletion needs a reassignment target
	// and the owner has no default wallet.
	ErrNoDefault = errors.New("owner has no default wallet to reassign operations to")

	// ErrHasTransfers is returned when deleting a wallet that participates
	// in transfers; those must be deleted or retargeted through the ledger
	// first, since blindly moving one leg would corrupt both balances.
	ErrHasTransfers = errors.New("wallet participates in transfers; remove them first")
)

// Service provides wallet lifecycle operations.
type Service struct {
	store store.Store
	log   *zap.Logger
}

// NewService creates a wallet Service. A nil logger disables logging.
func NewService(st store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, log: log}
}

// CreateParams holds parameters for opening a wallet.
type CreateParams struct {
	OwnerID   uuid.UUID
	Name      string
	Currency  string
	IsDefault bool
	IsHidden  bool
}

// Create opens a wallet with a zero balance. Making it the default demotes
// the previous default in the same transaction, so exactly one default
// exists at every observable moment.
func (s *Service) Create(ctx context.Context, params CreateParams) (model.Wallet, error) {
	if params.Name == "" {
		return model.Wallet{}, errors.New("wallet name required")
	}
	if params.Currency == "" {
		return model.Wallet{}, errors.New("wallet currency required")
	}

	w := model.NewWallet(params.OwnerID, params.Name, params.Currency, params.IsDefault)
	w.IsHidden = params.IsHidden

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		if params.IsDefault {
			if err := s.demoteDefault(ctx, params.OwnerID); err != nil {
				return err
			}
		}
		return s.store.Wallets().Insert(ctx, w)
	})
	if err != nil {
		return model.Wallet{}, err
	}

	s.log.Info("wallet created",
		zap.String("wallet_id", w.ID.String()),
		zap.String("currency", w.Currency),
		zap.Bool("is_default", w.IsDefault))
	return w, nil
}

// Get returns a wallet scoped to its owner.
func (s *Service) Get(ctx context.Context, ownerID, walletID uuid.UUID) (model.Wallet, error) {
	return s.owned(ctx, ownerID, walletID)
}

// ListByOwner returns all of an owner's wallets.
func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Wallet, error) {
	return s.store.Wallets().ListByOwner(ctx, ownerID)
}

// SetDefault makes the wallet the owner's default, demoting the previous
// one atomically.
func (s *Service) SetDefault(ctx context.Context, ownerID, walletID uuid.UUID) (model.Wallet, error) {
	var updated model.Wallet
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		w, err := s.owned(ctx, ownerID, walletID)
		if err != nil {
			return err
		}
		if w.IsDefault {
			updated = w
			return nil
		}
		if err := s.demoteDefault(ctx, ownerID); err != nil {
			return err
		}
		w.IsDefault = true
		updated, err = s.store.Wallets().Update(ctx, w)
		return err
	})
	if err != nil {
		return model.Wallet{}, err
	}
	return updated, nil
}

// SetHidden toggles whether the wallet is excluded from owner totals.
func (s *Service) SetHidden(ctx context.Context, ownerID, walletID uuid.UUID, hidden bool) (model.Wallet, error) {
	var updated model.Wallet
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		w, err := s.owned(ctx, ownerID, walletID)
		if err != nil {
			return err
		}
		w.IsHidden = hidden
		updated, err = s.store.Wallets().Update(ctx, w)
		return err
	})
	if err != nil {
		return model.Wallet{}, err
	}
	return updated, nil
}

// Rename changes the wallet's display name.
func (s *Service) Rename(ctx context.Context, ownerID, walletID uuid.UUID, name string) (model.Wallet, error) {
	if name == "" {
		return model.Wallet{}, errors.New("wallet name required")
	}
	var updated model.Wallet
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		w, err := s.owned(ctx, ownerID, walletID)
		if err != nil {
			return err
		}
		w.Name = name
		updated, err = s.store.Wallets().Update(ctx, w)
		return err
	})
	if err != nil {
		return model.Wallet{}, err
	}
	return updated, nil
}

// Totals sums visible wallet balances per currency, skipping hidden wallets.
func (s *Service) Totals(ctx context.Context, ownerID uuid.UUID) (map[string]money.Money, error) {
	ws, err := s.store.Wallets().ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]money.Money)
	for _, w := range ws {
		if w.IsHidden {
			continue
		}
		cur, ok := totals[w.Currency]
		if !ok {
			cur = money.Zero(w.Currency)
		}
		sum, err := cur.Add(w.Balance)
		if err != nil {
			return nil, fmt.Errorf("summing wallet %s: %w", w.ID, err)
		}
		totals[w.Currency] = sum
	}
	return totals, nil
}

// Delete removes a wallet. Income and expense operations referencing it are
// migrated to the owner's default wallet with their balance effects moved
// along, so the ledger invariant holds on both wallets throughout. The whole
// migration plus the row delete is one transaction.
func (s *Service) Delete(ctx context.Context, ownerID, walletID uuid.UUID) error {
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		w, err := s.owned(ctx, ownerID, walletID)
		if err != nil {
			return err
		}

		ops, err := s.store.Operations().ListByWallet(ctx, w.ID)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			return s.store.Wallets().Delete(ctx, w.ID)
		}

		if w.IsDefault {
			return ErrDeleteDefault
		}
		for _, op := range ops {
			if op.Kind == model.KindTransfer {
				return ErrHasTransfers
			}
		}

		target, err := s.store.Wallets().DefaultForOwner(ctx, ownerID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoDefault
		}
		if err != nil {
			return err
		}
		if target.Currency != w.Currency {
			return fmt.Errorf("cannot reassign operations: %w: wallet %s vs default %s",
				money.ErrCurrencyMismatch, w.Currency, target.Currency)
		}

		// Move the summed effect in one paired delta rather than reversing
		// operation by operation: a per-operation reversal can transiently
		// overdraw the source even when the net movement is fine.
		net := money.Zero(w.Currency)
		for _, op := range ops {
			effect, err := op.EffectOn(w.ID)
			if err != nil {
				return err
			}
			net, err = net.Add(effect)
			if err != nil {
				return err
			}
		}
		if !w.Balance.Equal(net) {
			// Drifted balance; refuse rather than delete money.
			return fmt.Errorf("wallet %s balance %s does not match its operation history (%s)",
				w.ID, w.Balance, net)
		}

		if !net.IsZero() {
			if _, _, err := s.store.Wallets().ApplyPairedDelta(ctx, w.ID, target.ID,
				net, w.Version, target.Version); err != nil {
				return err
			}
		}
		for _, op := range ops {
			op.WalletID = target.ID
			if _, err := s.store.Operations().Update(ctx, op); err != nil {
				return err
			}
		}
		return s.store.Wallets().Delete(ctx, w.ID)
	})
	if err != nil {
		return err
	}

	s.log.Info("wallet deleted", zap.String("wallet_id", walletID.String()))
	return nil
}

// demoteDefault clears the owner's current default flag, if any.
func (s *Service) demoteDefault(ctx context.Context, ownerID uuid.UUID) error {
	cur, err := s.store.Wallets().DefaultForOwner(ctx, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	cur.IsDefault = false
	_, err = s.store.Wallets().Update(ctx, cur)
	return err
}

func (s *Service) owned(ctx context.Context, ownerID, walletID uuid.UUID) (model.Wallet, error) {
	w, err := s.store.Wallets().Get(ctx, walletID)
	if err != nil {
		return model.Wallet{}, err
	}
	if w.OwnerID != ownerID {
		return model.Wallet{}, fmt.Errorf("wallet %s: %w", walletID, store.ErrNotFound)
	}
	return w, nil
}
