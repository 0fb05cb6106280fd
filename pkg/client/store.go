package client

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/accounts"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OpStatus is the lifecycle state of a local mutation
type OpStatus string

const (
	OpPending   OpStatus = "pending"
	OpConfirmed OpStatus = "confirmed"
	OpFailed    OpStatus = "failed"
)

// OpKind is the kind of mutation
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

const (
	entityAccount     = "account"
	entityTransaction = "transaction"

	// localIDPrefix marks rows created optimistically that the server has
	// not assigned an id to yet.
	localIDPrefix = "local-"
)

// PendingOp records one mutation issued through the store.
type PendingOp struct {
	CreatedAt time.Time `msgpack:"created_at"`
	SettledAt time.Time `msgpack:"settled_at"`
	ID        string    `msgpack:"id"`
	Entity    string    `msgpack:"entity"`
	EntityID  string    `msgpack:"entity_id"`
	Kind      OpKind    `msgpack:"kind"`
	Status    OpStatus  `msgpack:"status"`
	Error     string    `msgpack:"error,omitempty"`
}

// State is the mirrored server state plus the local op log.
type State struct {
	SyncedAt     time.Time            `msgpack:"synced_at"`
	Accounts     []domain.Account     `msgpack:"accounts"`
	Transactions []domain.Transaction `msgpack:"transactions"`
	Ops          []PendingOp          `msgpack:"ops"`
}

// API is the server surface the store mirrors. *Client implements it.
type API interface {
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	CreateAccount(ctx context.Context, req accounts.CreateRequest) (*domain.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
	CreateTransaction(ctx context.Context, t domain.Transaction) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, t domain.Transaction) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
}

// Subscriber streams server events. *Client implements it.
type Subscriber interface {
	Subscribe(ctx context.Context, fn func(Event), types ...string) error
}

// applyFunc changes the state optimistically and returns its inverse.
type applyFunc func(*State) func(*State)

type inflight struct {
	op    *PendingOp
	apply applyFunc
	undo  func(*State)
}

// Store mirrors one user's accounts and transactions. Every mutation is
// applied locally first, then sent; a rejected mutation is rolled back and
// its op marked failed. Confirmed mutations are reconciled by a refetch.
type Store struct {
	api       API
	mu        sync.RWMutex
	state     State
	ops       []*PendingOp
	pending   []*inflight
	listeners []func(State)
	now       func() time.Time
	log       zerolog.Logger
}

// NewStore creates an empty store backed by api.
func NewStore(api API, log zerolog.Logger) *Store {
	return &Store{
		api: api,
		now: time.Now,
		log: log.With().Str("component", "client_store").Logger(),
	}
}

// OnChange registers fn to receive a copy of the state after every change.
func (s *Store) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	st := State{
		SyncedAt:     s.state.SyncedAt,
		Accounts:     slices.Clone(s.state.Accounts),
		Transactions: slices.Clone(s.state.Transactions),
		Ops:          make([]PendingOp, 0, len(s.ops)),
	}
	for _, op := range s.ops {
		st.Ops = append(st.Ops, *op)
	}
	return st
}

func (s *Store) notify() {
	s.mu.RLock()
	listeners := slices.Clone(s.listeners)
	st := s.snapshotLocked()
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(st)
	}
}

// Refresh replaces the mirror with the server's state. Mutations still in
// flight are re-applied on top so their optimistic rows survive.
func (s *Store) Refresh(ctx context.Context) error {
	accts, err := s.api.ListAccounts(ctx)
	if err != nil {
		return err
	}
	txs, err := s.api.ListTransactions(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state.Accounts = accts
	s.state.Transactions = txs
	s.state.SyncedAt = s.now()
	for _, f := range s.pending {
		f.undo = f.apply(&s.state)
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// mutate runs the optimistic protocol for one op. call performs the server
// request and returns an optional settle step applied on success.
func (s *Store) mutate(ctx context.Context, entity, entityID string, kind OpKind, apply applyFunc,
	call func(context.Context) (func(*State), error)) error {
	op := &PendingOp{
		CreatedAt: s.now(),
		ID:        uuid.NewString(),
		Entity:    entity,
		EntityID:  entityID,
		Kind:      kind,
		Status:    OpPending,
	}
	f := &inflight{op: op, apply: apply}

	s.mu.Lock()
	f.undo = apply(&s.state)
	s.ops = append(s.ops, op)
	s.pending = append(s.pending, f)
	s.mu.Unlock()
	s.notify()

	settle, err := call(ctx)

	s.mu.Lock()
	s.pending = slices.DeleteFunc(s.pending, func(p *inflight) bool { return p == f })
	op.SettledAt = s.now()
	if err != nil {
		f.undo(&s.state)
		op.Status = OpFailed
		op.Error = err.Error()
	} else {
		if settle != nil {
			settle(&s.state)
		}
		op.Status = OpConfirmed
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.log.Warn().Err(err).
			Str("op", op.ID).
			Str("entity", entity).
			Str("kind", string(kind)).
			Msg("Mutation rejected, rolled back")
		return err
	}

	if rerr := s.Refresh(ctx); rerr != nil {
		s.log.Warn().Err(rerr).Str("op", op.ID).Msg("Refetch after confirmed mutation failed")
	}
	return nil
}

// Ops returns the op log, oldest first.
func (s *Store) Ops() []PendingOp {
	return s.Snapshot().Ops
}

// ClearSettled drops confirmed and failed ops from the log.
func (s *Store) ClearSettled() {
	s.mu.Lock()
	s.ops = slices.DeleteFunc(s.ops, func(op *PendingOp) bool { return op.Status != OpPending })
	s.mu.Unlock()
	s.notify()
}

// CreateTransaction adds t optimistically under a local id and replaces it
// with the stored row once the server accepts it.
func (s *Store) CreateTransaction(ctx context.Context, t domain.Transaction) (*domain.Transaction, error) {
	local := t
	local.ID = localIDPrefix + uuid.NewString()
	if local.Source == "" {
		local.Source = domain.SourceManual
	}

	var created *domain.Transaction
	err := s.mutate(ctx, entityTransaction, local.ID, OpCreate,
		func(st *State) func(*State) {
			st.Transactions = append([]domain.Transaction{local}, st.Transactions...)
			return func(st *State) { st.Transactions = removeByID(st.Transactions, local.ID, txID) }
		},
		func(ctx context.Context) (func(*State), error) {
			var err error
			created, err = s.api.CreateTransaction(ctx, t)
			if err != nil {
				return nil, err
			}
			return func(st *State) { st.Transactions = replaceByID(st.Transactions, local.ID, *created, txID) }, nil
		})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateTransaction replaces a transaction optimistically.
func (s *Store) UpdateTransaction(ctx context.Context, t domain.Transaction) (*domain.Transaction, error) {
	var updated *domain.Transaction
	err := s.mutate(ctx, entityTransaction, t.ID, OpUpdate,
		func(st *State) func(*State) {
			i := slices.IndexFunc(st.Transactions, func(x domain.Transaction) bool { return x.ID == t.ID })
			if i < 0 {
				return func(*State) {}
			}
			prev := st.Transactions[i]
			st.Transactions[i] = t
			return func(st *State) { st.Transactions = replaceByID(st.Transactions, t.ID, prev, txID) }
		},
		func(ctx context.Context) (func(*State), error) {
			var err error
			updated, err = s.api.UpdateTransaction(ctx, t)
			if err != nil {
				return nil, err
			}
			return func(st *State) { st.Transactions = replaceByID(st.Transactions, t.ID, *updated, txID) }, nil
		})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTransaction removes a transaction optimistically. Split children
// and fee rows go with it on the server; the refetch brings them in line.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	return s.mutate(ctx, entityTransaction, id, OpDelete,
		func(st *State) func(*State) {
			i := slices.IndexFunc(st.Transactions, func(x domain.Transaction) bool { return x.ID == id })
			if i < 0 {
				return func(*State) {}
			}
			prev := st.Transactions[i]
			st.Transactions = slices.Delete(st.Transactions, i, i+1)
			return func(st *State) { st.Transactions = restoreAt(st.Transactions, i, prev, txID) }
		},
		func(ctx context.Context) (func(*State), error) {
			return nil, s.api.DeleteTransaction(ctx, id)
		})
}

// CreateAccount adds an account optimistically.
func (s *Store) CreateAccount(ctx context.Context, req accounts.CreateRequest) (*domain.Account, error) {
	local := domain.Account{
		ID:             localIDPrefix + uuid.NewString(),
		Name:           req.Name,
		Type:           req.Type,
		Currency:       req.Currency,
		InitialBalance: req.InitialBalance,
		CurrentBalance: req.InitialBalance,
		IsDefault:      req.IsDefault,
		CreatedAt:      s.now(),
	}

	var created *domain.Account
	err := s.mutate(ctx, entityAccount, local.ID, OpCreate,
		func(st *State) func(*State) {
			st.Accounts = append(st.Accounts, local)
			return func(st *State) { st.Accounts = removeByID(st.Accounts, local.ID, accountID) }
		},
		func(ctx context.Context) (func(*State), error) {
			var err error
			created, err = s.api.CreateAccount(ctx, req)
			if err != nil {
				return nil, err
			}
			return func(st *State) { st.Accounts = replaceByID(st.Accounts, local.ID, *created, accountID) }, nil
		})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DeleteAccount removes an account optimistically.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	return s.mutate(ctx, entityAccount, id, OpDelete,
		func(st *State) func(*State) {
			i := slices.IndexFunc(st.Accounts, func(x domain.Account) bool { return x.ID == id })
			if i < 0 {
				return func(*State) {}
			}
			prev := st.Accounts[i]
			st.Accounts = slices.Delete(st.Accounts, i, i+1)
			return func(st *State) { st.Accounts = restoreAt(st.Accounts, i, prev, accountID) }
		},
		func(ctx context.Context) (func(*State), error) {
			return nil, s.api.DeleteAccount(ctx, id)
		})
}

// Watch refetches whenever the server reports a ledger change. It blocks
// until ctx ends or the subscription fails.
func (s *Store) Watch(ctx context.Context, sub Subscriber) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// one queued refresh covers any burst of events
	trigger := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-trigger:
				if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
					s.log.Warn().Err(err).Msg("Refetch after ledger change failed")
				}
			}
		}
	}()

	err := sub.Subscribe(ctx, func(e Event) {
		if e.Type != EventLedgerChanged {
			return
		}
		select {
		case trigger <- struct{}{}:
		default:
		}
	}, EventLedgerChanged)

	cancel()
	<-done
	return err
}

func txID(t domain.Transaction) string  { return t.ID }
func accountID(a domain.Account) string { return a.ID }

func removeByID[T any](items []T, id string, key func(T) string) []T {
	return slices.DeleteFunc(items, func(x T) bool { return key(x) == id })
}

func replaceByID[T any](items []T, id string, v T, key func(T) string) []T {
	for i := range items {
		if key(items[i]) == id {
			items[i] = v
			return items
		}
	}
	return items
}

// restoreAt reinserts v near its old position unless a refetch already
// brought it back.
func restoreAt[T any](items []T, i int, v T, key func(T) string) []T {
	id := key(v)
	if slices.ContainsFunc(items, func(x T) bool { return key(x) == id }) {
		return items
	}
	return slices.Insert(items, min(i, len(items)), v)
}
