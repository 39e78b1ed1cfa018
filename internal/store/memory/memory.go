// Package memory is an in-memory Store used by tests and the demo command.
// A single mutex serializes transactions; WithTx snapshots all state up front
// and restores it when fn fails, so the rollback guarantee matches the
// database-backed store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evercoin-dev/evercoin/internal/model"
	"github.com/evercoin-dev/evercoin/internal/money"
	"github.com/evercoin-dev/evercoin/internal/store"
)

type txKey struct{}

// Store implements store.Store over process-local maps.
type Store struct {
	mu         sync.Mutex
	wallets    map[uuid.UUID]model.Wallet
	operations map[uuid.UUID]model.Operation
	changes    []model.ChangeLog
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		wallets:    make(map[uuid.UUID]model.Wallet),
		operations: make(map[uuid.UUID]model.Operation),
	}
}

// WithTx serializes fn against all other transactions and rolls back every
// change fn made if it returns an error.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapWallets := make(map[uuid.UUID]model.Wallet, len(s.wallets))
	for k, v := range s.wallets {
		snapWallets[k] = v
	}
	snapOps := make(map[uuid.UUID]model.Operation, len(s.operations))
	for k, v := range s.operations {
		snapOps[k] = v
	}
	snapChanges := append([]model.ChangeLog(nil), s.changes...)

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.wallets = snapWallets
		s.operations = snapOps
		s.changes = snapChanges
		return err
	}
	if err := ctx.Err(); err != nil {
		// Cancelled before commit: same outcome as a failed fn.
		s.wallets = snapWallets
		s.operations = snapOps
		s.changes = snapChanges
		return err
	}
	return nil
}

// Wallets returns the wallet repository.
func (s *Store) Wallets() store.WalletStore { return (*walletStore)(s) }

// Operations returns the operation repository.
func (s *Store) Operations() store.OperationStore { return (*operationStore)(s) }

// Changes returns the change-log repository.
func (s *Store) Changes() store.ChangeLogStore { return (*changeLogStore)(s) }

// lock acquires the store mutex unless ctx carries an open transaction,
// which already holds it. The returned func undoes whatever lock was taken.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type walletStore Store

func (ws *walletStore) Get(ctx context.Context, id uuid.UUID) (model.Wallet, error) {
	s := (*Store)(ws)
	defer s.lock(ctx)()
	w, ok := s.wallets[id]
	if !ok {
		return model.Wallet{}, store.ErrNotFound
	}
	return w, nil
}

func (ws *walletStore) Insert(ctx context.Context, w model.Wallet) error {
	s := (*Store)(ws)
	defer s.lock(ctx)()
	s.wallets[w.ID] = w
	return nil
}

func (ws *walletStore) Update(ctx context.Context, w model.Wallet) (model.Wallet, error) {
	s := (*Store)(ws)
	defer s.lock(ctx)()
	cur, ok := s.wallets[w.ID]
	if !ok {
		return model.Wallet{}, store.ErrNotFound
	}
	if cur.Version != w.Version {
		return model.Wallet{}, store.ErrConflict
	}
	// Balance is owned by the delta primitives; keep the stored one.
	w.Balance = cur.Balance
	w.Version++
	w.UpdatedAt = time.Now().UTC()
	s.wallets[w.ID] = w
	return w, nil
}

func (ws *walletStore) Delete(ctx context.Context, id uuid.UUID) error {
	s := (*Store)(ws)
	defer s.lock(ctx)()
	if _, ok := s.wallets[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.wallets, id)
	return nil
}

func (ws *walletStore) ApplyDelta(ctx context.Context, id uuid.UUID, delta money.Money, expectedVersion int64) (model.Wallet, error) {
	s := (*Store)(ws)
	defer s.lock(ctx)()
	return s.applyDelta(id, delta, expectedVersion)
}

func (ws *walletStore) ApplyPairedDelta(ctx context.Context, debitID, creditID uuid.UUID, amount money.Money, debitVersion, creditVersion int64) (model.Wallet, model.Wallet, error) {
	s := (*Store)(ws)
	defer s.lock(ctx)()

	// Stage both mutations before publishing either.
	snapDebit, debitOK := s.wallets[debitID]
	snapCredit, creditOK := s.wallets[creditID]

	debited, err := s.applyDelta(debitID, amount.Neg(), debitVersion)
	if err != nil {
		return model.Wallet{}, model.Wallet{}, err
	}
	credited, err := s.applyDelta(creditID, amount, creditVersion)
	if err != nil {
		if debitOK {
			s.wallets[debitID] = snapDebit
		}
		if creditOK {
			s.wallets[creditID] = snapCredit
		}
		return model.Wallet{}, model.Wallet{}, err
	}
	return debited, credited, nil
}

// applyDelta assumes the store mutex is held.
func (s *Store) applyDelta(id uuid.UUID, delta money.Money, expectedVersion int64) (model.Wallet, error) {
	w, ok := s.wallets[id]
	if !ok {
		return model.Wallet{}, store.ErrNotFound
	}
	if w.Version != expectedVersion {
		return model.Wallet{}, store.ErrConflict
	}
	next, err := w.Balance.Add(delta)
	if err != nil {
		return model.Wallet{}, err
	}
	if delta.IsNegative() && next.IsNegative() {
		return model.Wallet{}, &store.InsufficientFundsError{
			WalletID:  id,
			Shortfall: next.Neg(),
		}
	}
	w.Balance = next
	w.Version++
	w.UpdatedAt = time.Now().UTC()
	s.wallets[id] = w
	return w, nil
}

func (ws *walletStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Wallet, error) {
	s := (*Store)(ws)
	defer s.lock(ctx)()
	var out []model.Wallet
	for _, w := range s.wallets {
		if w.OwnerID == ownerID {
			out = append(out, w)
		}
	}
	sortWallets(out)
	return out, nil
}

func (ws *walletStore) List(ctx context.Context) ([]model.Wallet, error) {
	s := (*Store)(ws)
	defer s.lock(ctx)()
	out := make([]model.Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		out = append(out, w)
	}
	sortWallets(out)
	return out, nil
}

func (ws *walletStore) DefaultForOwner(ctx context.Context, ownerID uuid.UUID) (model.Wallet, error) {
	s := (*Store)(ws)
	defer s.lock(ctx)()
	for _, w := range s.wallets {
		if w.OwnerID == ownerID && w.IsDefault {
			return w, nil
		}
	}
	return model.Wallet{}, store.ErrNotFound
}

func sortWallets(ws []model.Wallet) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].CreatedAt.Equal(ws[j].CreatedAt) {
			return ws[i].ID.String() < ws[j].ID.String()
		}
		return ws[i].CreatedAt.Before(ws[j].CreatedAt)
	})
}

type operationStore Store

func (os *operationStore) Get(ctx context.Context, id uuid.UUID) (model.Operation, error) {
	s := (*Store)(os)
	defer s.lock(ctx)()
	op, ok := s.operations[id]
	if !ok {
		return model.Operation{}, store.ErrNotFound
	}
	return op, nil
}

func (os *operationStore) Insert(ctx context.Context, op model.Operation) error {
	s := (*Store)(os)
	defer s.lock(ctx)()
	s.operations[op.ID] = op
	return nil
}

func (os *operationStore) Update(ctx context.Context, op model.Operation) (model.Operation, error) {
	s := (*Store)(os)
	defer s.lock(ctx)()
	cur, ok := s.operations[op.ID]
	if !ok {
		return model.Operation{}, store.ErrNotFound
	}
	if cur.Version != op.Version {
		return model.Operation{}, store.ErrConflict
	}
	op.Version++
	s.operations[op.ID] = op
	return op, nil
}

func (os *operationStore) Delete(ctx context.Context, id uuid.UUID) error {
	s := (*Store)(os)
	defer s.lock(ctx)()
	if _, ok := s.operations[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.operations, id)
	return nil
}

func (os *operationStore) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]model.Operation, error) {
	s := (*Store)(os)
	defer s.lock(ctx)()
	var out []model.Operation
	for _, op := range s.operations {
		if op.Touches(walletID) {
			out = append(out, op)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

type changeLogStore Store

func (cs *changeLogStore) Append(ctx context.Context, entry model.ChangeLog) error {
	s := (*Store)(cs)
	defer s.lock(ctx)()
	s.changes = append(s.changes, entry)
	return nil
}

func (cs *changeLogStore) ListByOperation(ctx context.Context, operationID uuid.UUID) ([]model.ChangeLog, error) {
	s := (*Store)(cs)
	defer s.lock(ctx)()
	var out []model.ChangeLog
	for _, c := range s.changes {
		if c.OperationID == operationID {
			out = append(out, c)
		}
	}
	return out, nil
}
