package storage

import (
	"context"

	"github.com/bloco/wallethub/libs/db"
	"github.com/bloco/wallethub/services/ledger-service/internal/outbox"
)

// AdvisoryLocker lets one dispatcher at a time drain the outbox when several
// service instances share a database.
type AdvisoryLocker struct {
	pool *db.Pool
	key  int64
}

func NewAdvisoryLocker(pool *db.Pool, key int64) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool, key: key}
}

var _ outbox.Locker = (*AdvisoryLocker)(nil)

func (l *AdvisoryLocker) TryLock(ctx context.Context) (bool, func(), error) {
	return l.pool.TryAdvisoryLock(ctx, l.key)
}
