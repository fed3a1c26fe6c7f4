// Package memory is an in-process implementation of the ledger unit of work
// and outbox store. A transaction works on a copy of the state and swaps it in
// on commit, so a failed operation leaves nothing behind. State lives as long
// as the Store value, which makes it suitable for local runs and tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/bloco/wallethub/services/ledger-service/internal/domain"
	"github.com/bloco/wallethub/services/ledger-service/internal/outbox"
	"github.com/bloco/wallethub/services/ledger-service/internal/usecase"
	"github.com/google/uuid"
)

type state struct {
	networks     map[uuid.UUID]domain.Network
	tokens       map[uuid.UUID]domain.Token
	transactions map[uuid.UUID]domain.Transaction
	vaults       map[uuid.UUID]domain.VaultConfig
	outbox       []outbox.Record
	nextID       int64
}

func (s *state) clone() *state {
	return &state{
		networks:     maps.Clone(s.networks),
		tokens:       maps.Clone(s.tokens),
		transactions: maps.Clone(s.transactions),
		vaults:       maps.Clone(s.vaults),
		outbox:       slices.Clone(s.outbox),
		nextID:       s.nextID,
	}
}

type Store struct {
	mu        sync.Mutex
	st        *state
	now       func() time.Time
	stageHook func(outbox.Entry) error
}

func New() *Store {
	return &Store{
		st: &state{
			networks:     map[uuid.UUID]domain.Network{},
			tokens:       map[uuid.UUID]domain.Token{},
			transactions: map[uuid.UUID]domain.Transaction{},
			vaults:       map[uuid.UUID]domain.VaultConfig{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetStageHook installs fn to run before every Stage; a non-nil error from fn
// fails the Stage call. Passing nil removes the hook.
func (s *Store) SetStageHook(fn func(outbox.Entry) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stageHook = fn
}

// SetClock overrides the time source used for created/sent timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Do runs fn against a private copy of the state. Transactions are serialized.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx usecase.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{st: s.st.clone(), now: s.now, stageHook: s.stageHook}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.st = tx.st
	return nil
}

var _ usecase.UnitOfWork = (*Store)(nil)

type memTx struct {
	st        *state
	now       func() time.Time
	stageHook func(outbox.Entry) error
}

func (t *memTx) Networks() usecase.NetworkRepository         { return networkRepo{t.st} }
func (t *memTx) Tokens() usecase.TokenRepository             { return tokenRepo{t.st} }
func (t *memTx) Transactions() usecase.TransactionRepository { return transactionRepo{t.st} }
func (t *memTx) Vaults() usecase.VaultRepository             { return vaultRepo{t.st} }
func (t *memTx) Outbox() outbox.Stager                       { return t }

func (t *memTx) Stage(ctx context.Context, e outbox.Entry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := e.Validate(); err != nil {
		return 0, err
	}
	if t.stageHook != nil {
		if err := t.stageHook(e); err != nil {
			return 0, err
		}
	}
	t.st.nextID++
	now := t.now()
	t.st.outbox = append(t.st.outbox, outbox.Record{
		ID:            t.st.nextID,
		Entry:         e,
		NextAttemptAt: now,
		CreatedAt:     now,
	})
	return t.st.nextID, nil
}
