//go:build integration

package storage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bloco/wallethub/libs/db"
	"github.com/bloco/wallethub/services/ledger-service/internal/domain"
	"github.com/bloco/wallethub/services/ledger-service/internal/outbox"
	"github.com/bloco/wallethub/services/ledger-service/internal/storage"
	"github.com/bloco/wallethub/services/ledger-service/internal/usecase"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestPool(t *testing.T) *db.Pool {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("LEDGER_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("LEDGER_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, storage.Migrate(ctx, pool, logger))
	// Migrate is idempotent.
	require.NoError(t, storage.Migrate(ctx, pool, logger))

	_, err = pool.Exec(ctx, `TRUNCATE outbox, transactions, tokens, vault_configs, networks RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

func newService(pool *db.Pool) *usecase.Service {
	return usecase.New(storage.NewUnitOfWork(pool), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func addNetwork(t *testing.T, svc *usecase.Service, chainID string) *domain.Network {
	t.Helper()
	n, err := svc.AddNetwork(context.Background(), usecase.AddNetworkInput{
		CorrelationID: "corr-1",
		Name:          "Polygon",
		ChainID:       chainID,
		RPCURL:        "https://polygon-rpc.com",
		ExplorerURL:   "https://polygonscan.com",
	})
	require.NoError(t, err)
	return n
}

func TestPostgresLedgerFlowStagesEventsInOrder(t *testing.T) {
	ctx := context.Background()
	pool := openTestPool(t)
	svc := newService(pool)
	store := storage.NewOutboxStore(pool)

	n := addNetwork(t, svc, "137")
	_, err := svc.CreateToken(ctx, usecase.CreateTokenInput{
		CorrelationID:   "corr-1",
		NetworkID:       n.ID(),
		Name:            "USD Coin",
		Symbol:          "USDC",
		Decimals:        6,
		Type:            domain.TokenERC20,
		ContractAddress: "0x2791bca1f2de4661ed88a30c99a7a9449aa84174",
	})
	require.NoError(t, err)
	tx, err := svc.CreateTransaction(ctx, usecase.CreateTransactionInput{
		CorrelationID: "corr-1",
		NetworkID:     n.ID(),
		Hash:          "0xabc",
		FromAddress:   "0xfrom",
		ToAddress:     "0xto",
		Value:         decimal.RequireFromString("123456789012345678901234567890"),
	})
	require.NoError(t, err)

	confirmed, err := svc.ConfirmTransaction(ctx, usecase.ConfirmTransactionInput{
		CorrelationID: "corr-2",
		TransactionID: tx.ID(),
		BlockNumber:   42,
		BlockHash:     "0xblock",
		GasUsed:       decimal.NewFromInt(21000),
	})
	require.NoError(t, err)
	require.NotNil(t, confirmed.BlockNumber)
	assert.Equal(t, int64(42), *confirmed.BlockNumber)
	assert.True(t, confirmed.Value.Equal(decimal.RequireFromString("123456789012345678901234567890")))

	unsent, err := store.ListUnsent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, unsent, 4)
	var types []string
	for i, r := range unsent {
		types = append(types, r.EventType)
		if i > 0 {
			assert.Greater(t, r.ID, unsent[i-1].ID)
		}
	}
	assert.Equal(t, []string{
		domain.EventNetworkCreated,
		domain.EventTokenCreated,
		domain.EventTransactionCreated,
		domain.EventTransactionStatusChanged,
	}, types)
	assert.Equal(t, "corr-2", unsent[3].CorrelationID)
	assert.Contains(t, string(unsent[0].Payload), `"chainId":"137"`)

	_, err = svc.ConfirmTransaction(ctx, usecase.ConfirmTransactionInput{
		CorrelationID: "corr-3",
		TransactionID: tx.ID(),
		BlockNumber:   43,
		BlockHash:     "0xother",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestPostgresDuplicateChainIDIsConflictAndStagesNothing(t *testing.T) {
	ctx := context.Background()
	pool := openTestPool(t)
	svc := newService(pool)
	store := storage.NewOutboxStore(pool)

	addNetwork(t, svc, "1")
	_, err := svc.AddNetwork(ctx, usecase.AddNetworkInput{
		CorrelationID: "corr-dup",
		Name:          "Ethereum",
		ChainID:       "1",
		RPCURL:        "https://eth.llamarpc.com",
		ExplorerURL:   "https://etherscan.io",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	unsent, err := store.ListUnsent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, unsent, 1)
}

func TestPostgresRollbackDiscardsStateAndRecords(t *testing.T) {
	ctx := context.Background()
	pool := openTestPool(t)
	uow := storage.NewUnitOfWork(pool)
	store := storage.NewOutboxStore(pool)

	n, err := domain.NewNetwork(uuid.New(), "corr-rb", "Base", "8453", "https://base.org", "https://basescan.org")
	require.NoError(t, err)

	errBoom := errors.New("boom")
	err = uow.Do(ctx, func(ctx context.Context, tx usecase.Tx) error {
		if err := tx.Networks().Insert(ctx, n); err != nil {
			return err
		}
		if _, err := outbox.StageEvents(ctx, tx.Outbox(), n); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	err = uow.Do(ctx, func(ctx context.Context, tx usecase.Tx) error {
		_, err := tx.Networks().Get(ctx, n.ID())
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	unsent, err := store.ListUnsent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, unsent)
}

func TestPostgresOutboxStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := openTestPool(t)
	svc := newService(pool)
	store := storage.NewOutboxStore(pool)

	addNetwork(t, svc, "10")
	addNetwork(t, svc, "56")

	unsent, err := store.ListUnsent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, unsent, 2)
	first, second := unsent[0], unsent[1]

	changed, err := store.MarkSent(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = store.MarkSent(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	unsent, err = store.ListUnsent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, unsent, 1)
	assert.Equal(t, second.ID, unsent[0].ID)

	now := time.Now()
	require.NoError(t, store.MarkFailed(ctx, second.ID, outbox.Failure{
		Attempts:      3,
		LastError:     "rejected",
		NextAttemptAt: now.Add(time.Hour),
		Park:          true,
	}))
	due, err := store.ListDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	stale, err := store.ListStale(ctx, now.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.True(t, stale[0].Parked)
	assert.Equal(t, 3, stale[0].Attempts)
	assert.Equal(t, "rejected", stale[0].LastError)

	requeued, err := store.Requeue(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, requeued)
	due, err = store.ListDue(ctx, time.Now().Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, second.ID, due[0].ID)

	requeued, err = store.Requeue(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, requeued)
}

func TestPostgresDueRecordsIgnoreDatabaseClock(t *testing.T) {
	ctx := context.Background()
	pool := openTestPool(t)
	svc := newService(pool)
	store := storage.NewOutboxStore(pool)

	addNetwork(t, svc, "8453")

	// A dispatcher clock well behind the database still sees fresh records as due.
	behind := time.Now().Add(-time.Hour)
	due, err := store.ListDue(ctx, behind, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	id := due[0].ID

	require.NoError(t, store.MarkFailed(ctx, id, outbox.Failure{
		Attempts:      1,
		NextAttemptAt: behind.Add(time.Minute),
		Park:          true,
	}))
	due, err = store.ListDue(ctx, behind, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	requeued, err := store.Requeue(ctx, id)
	require.NoError(t, err)
	require.True(t, requeued)
	due, err = store.ListDue(ctx, behind, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, id, due[0].ID)
}

func TestPostgresAdvisoryLockerIsExclusive(t *testing.T) {
	ctx := context.Background()
	pool := openTestPool(t)

	a := storage.NewAdvisoryLocker(pool, 4242)
	b := storage.NewAdvisoryLocker(pool, 4242)

	ok, release, err := a.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	ok, release, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	release()
}
