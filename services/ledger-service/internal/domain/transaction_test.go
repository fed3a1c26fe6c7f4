package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction(t *testing.T) *Transaction {
	t.Helper()
	tx, err := NewTransaction(uuid.New(), "corr-1", uuid.New(), "0xhash", "0xfrom", "0xto", decimal.RequireFromString("1.25"), "")
	require.NoError(t, err)
	return tx
}

func TestNewTransactionRaisesCreated(t *testing.T) {
	tx := newTestTransaction(t)
	assert.Equal(t, TransactionPending, tx.Status)

	events := tx.Drain()
	require.Len(t, events, 1)
	created := events[0].(TransactionCreated)
	assert.Equal(t, "0xhash", created.TransactionHash)
	assert.Equal(t, tx.NetworkID, created.NetworkID)
}

func TestNewTransactionValidation(t *testing.T) {
	_, err := NewTransaction(uuid.New(), "corr", uuid.New(), "  ", "a", "b", decimal.Zero, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewTransaction(uuid.New(), "corr", uuid.New(), "0x1", "a", "b", decimal.NewFromInt(-1), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestConfirmTransaction(t *testing.T) {
	tx := newTestTransaction(t)
	tx.Drain()

	require.NoError(t, tx.Confirm("corr-2", 100, "0xblock", decimal.NewFromInt(21000)))
	assert.Equal(t, TransactionConfirmed, tx.Status)
	require.NotNil(t, tx.BlockNumber)
	assert.EqualValues(t, 100, *tx.BlockNumber)

	events := tx.Drain()
	require.Len(t, events, 1)
	changed := events[0].(TransactionStatusChanged)
	assert.Equal(t, TransactionPending, changed.OldStatus)
	assert.Equal(t, TransactionConfirmed, changed.NewStatus)

	err := tx.Confirm("corr-3", 101, "0xother", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Empty(t, tx.Drain())
}

func TestFailTransaction(t *testing.T) {
	tx := newTestTransaction(t)
	tx.Drain()

	require.NoError(t, tx.Fail("corr-2", "out of gas"))
	events := tx.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, "out of gas", events[0].(TransactionStatusChanged).Reason)

	assert.ErrorIs(t, tx.Fail("corr-3", "again"), ErrInvalidState)
}

func TestRehydrateTransactionHasNoPendingEvents(t *testing.T) {
	id := uuid.New()
	tx := RehydrateTransaction(Transaction{
		AggregateRoot: NewAggregateRoot(id),
		Hash:          "0x1",
		Status:        TransactionPending,
	})
	assert.Equal(t, id, tx.ID())
	assert.Zero(t, tx.PendingCount())
}

func TestSetGasInfo(t *testing.T) {
	tx := newTestTransaction(t)

	require.NoError(t, tx.SetGasInfo(decimal.NewFromInt(30_000_000_000), decimal.NewFromInt(21000)))
	assert.True(t, tx.GasPrice.Valid)
	assert.Equal(t, "21000", tx.GasLimit.Decimal.String())

	err := tx.SetGasInfo(decimal.NewFromInt(-1), decimal.NewFromInt(21000))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "30000000000", tx.GasPrice.Decimal.String())
}
