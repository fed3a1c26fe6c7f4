// Package storage persists the ledger aggregates and the outbox in
// PostgreSQL. Aggregate rows and their outbox records are written in the same
// transaction.
package storage

import (
	"context"

	"github.com/bloco/wallethub/libs/db"
	"github.com/bloco/wallethub/services/ledger-service/internal/outbox"
	"github.com/bloco/wallethub/services/ledger-service/internal/usecase"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the subset of pgx.Tx and pgxpool.Pool used by the repositories.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UnitOfWork struct {
	pool *db.Pool
}

func NewUnitOfWork(pool *db.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

var _ usecase.UnitOfWork = (*UnitOfWork)(nil)

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx usecase.Tx) error) error {
	return u.pool.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, pgTx{q: tx})
	})
}

type pgTx struct {
	q querier
}

func (t pgTx) Networks() usecase.NetworkRepository         { return networkRepo{t.q} }
func (t pgTx) Tokens() usecase.TokenRepository             { return tokenRepo{t.q} }
func (t pgTx) Transactions() usecase.TransactionRepository { return transactionRepo{t.q} }
func (t pgTx) Vaults() usecase.VaultRepository             { return vaultRepo{t.q} }
func (t pgTx) Outbox() outbox.Stager                       { return stager{t.q} }
