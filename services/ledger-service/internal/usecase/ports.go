package usecase

import (
	"context"

	"github.com/bloco/wallethub/services/ledger-service/internal/domain"
	"github.com/bloco/wallethub/services/ledger-service/internal/outbox"
	"github.com/google/uuid"
)

// Repositories return domain.ErrNotFound / domain.ErrConflict kinds for
// missing rows and uniqueness violations.

type NetworkRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Network, error)
	Insert(ctx context.Context, n *domain.Network) error
	Update(ctx context.Context, n *domain.Network) error
}

type TokenRepository interface {
	Insert(ctx context.Context, t *domain.Token) error
}

type TransactionRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	Insert(ctx context.Context, t *domain.Transaction) error
	Update(ctx context.Context, t *domain.Transaction) error
}

type VaultRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.VaultConfig, error)
	Insert(ctx context.Context, v *domain.VaultConfig) error
	Update(ctx context.Context, v *domain.VaultConfig) error
}

// Tx groups everything written by one business operation. All of it commits
// or none of it does.
type Tx interface {
	Networks() NetworkRepository
	Tokens() TokenRepository
	Transactions() TransactionRepository
	Vaults() VaultRepository
	Outbox() outbox.Stager
}

// UnitOfWork runs fn in a transaction, committing only if fn returns nil.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
