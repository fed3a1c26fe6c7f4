package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bloco/wallethub/services/ledger-service/internal/domain"
	"github.com/bloco/wallethub/services/ledger-service/internal/outbox"
	"github.com/bloco/wallethub/services/ledger-service/internal/usecase"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(eventType string) outbox.Entry {
	return outbox.Entry{
		EventID:       uuid.New(),
		EventType:     eventType,
		CorrelationID: "corr-1",
		Payload:       []byte(`{}`),
	}
}

func stageAll(t *testing.T, s *Store, eventTypes ...string) {
	t.Helper()
	require.NoError(t, s.Do(context.Background(), func(ctx context.Context, tx usecase.Tx) error {
		for _, et := range eventTypes {
			if _, err := tx.Outbox().Stage(ctx, entry(et)); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestDoDiscardsEverythingOnError(t *testing.T) {
	s := New()
	n, err := domain.NewNetwork(uuid.New(), "corr-1", "Base", "8453", "https://base.org", "https://basescan.org")
	require.NoError(t, err)

	errAbort := errors.New("abort")
	err = s.Do(context.Background(), func(ctx context.Context, tx usecase.Tx) error {
		require.NoError(t, tx.Networks().Insert(ctx, n))
		_, err := tx.Outbox().Stage(ctx, entry("NetworkCreated"))
		require.NoError(t, err)
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	err = s.Do(context.Background(), func(ctx context.Context, tx usecase.Tx) error {
		_, err := tx.Networks().Get(ctx, n.ID())
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	records, err := s.ListUnsent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStageAssignsIncreasingIDs(t *testing.T) {
	s := New()
	stageAll(t, s, "A", "B")
	stageAll(t, s, "C")

	records, err := s.ListUnsent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, int64(i+1), r.ID)
		assert.False(t, r.Sent)
	}

	limited, err := s.ListUnsent(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStageRejectsInvalidEntries(t *testing.T) {
	s := New()
	err := s.Do(context.Background(), func(ctx context.Context, tx usecase.Tx) error {
		e := entry("A")
		e.CorrelationID = ""
		_, err := tx.Outbox().Stage(ctx, e)
		return err
	})
	assert.ErrorIs(t, err, outbox.ErrCorrelationIDRequired)
}

func TestMarkSentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	sentAt := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	stageAll(t, s, "A", "B")
	s.SetClock(func() time.Time { return sentAt })

	changed, err := s.MarkSent(ctx, 1)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.MarkSent(ctx, 1)
	require.NoError(t, err)
	assert.False(t, changed)
	changed, err = s.MarkSent(ctx, 42)
	require.NoError(t, err)
	assert.False(t, changed)

	r, ok := s.Get(1)
	require.True(t, ok)
	require.NotNil(t, r.SentAt)
	assert.Equal(t, sentAt, *r.SentAt)

	records, err := s.ListUnsent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].ID)
}

func TestMarkFailedDoesNotTouchSentRecords(t *testing.T) {
	ctx := context.Background()
	s := New()
	stageAll(t, s, "A")
	_, err := s.MarkSent(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, s.MarkFailed(ctx, 1, outbox.Failure{Attempts: 1, LastError: "late failure", Park: true}))
	r, _ := s.Get(1)
	assert.True(t, r.Sent)
	assert.False(t, r.Parked)
	assert.Empty(t, r.LastError)
}

func TestListDueSkipsParkedAndDeferred(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := New()
	s.SetClock(func() time.Time { return now })
	stageAll(t, s, "A", "B", "C")

	require.NoError(t, s.MarkFailed(ctx, 1, outbox.Failure{Attempts: 1, NextAttemptAt: now.Add(time.Minute)}))
	require.NoError(t, s.MarkFailed(ctx, 2, outbox.Failure{Attempts: 9, NextAttemptAt: now, Park: true}))

	due, err := s.ListDue(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, int64(3), due[0].ID)

	due, err = s.ListDue(ctx, now.Add(time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, int64(1), due[0].ID)

	stale, err := s.ListStale(ctx, now.Add(time.Second), 0)
	require.NoError(t, err)
	assert.Len(t, stale, 3)
}

func TestRequeueClearsParking(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := New()
	s.SetClock(func() time.Time { return now })
	stageAll(t, s, "A")
	require.NoError(t, s.MarkFailed(ctx, 1, outbox.Failure{Attempts: 3, NextAttemptAt: now.Add(time.Hour), Park: true}))

	ok, err := s.Requeue(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	r, _ := s.Get(1)
	assert.False(t, r.Parked)
	assert.Equal(t, now, r.NextAttemptAt)
	assert.Equal(t, 3, r.Attempts)

	ok, err = s.Requeue(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCancelledContextIsRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New()

	err := s.Do(ctx, func(context.Context, usecase.Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.ListUnsent(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.MarkSent(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRepositoriesReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	v, err := domain.NewVaultConfig(uuid.New(), "corr-1", "hsm", domain.VaultHSM, map[string]string{"slot": "1"})
	require.NoError(t, err)
	require.NoError(t, s.Do(ctx, func(ctx context.Context, tx usecase.Tx) error {
		return tx.Vaults().Insert(ctx, v)
	}))
	v.Parameters["slot"] = "2"

	require.NoError(t, s.Do(ctx, func(ctx context.Context, tx usecase.Tx) error {
		got, err := tx.Vaults().Get(ctx, v.ID())
		if err != nil {
			return err
		}
		assert.Equal(t, "1", got.Parameters["slot"])
		assert.Zero(t, got.PendingCount())
		return nil
	}))
}
