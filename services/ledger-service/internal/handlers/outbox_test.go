package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bloco/wallethub/services/ledger-service/internal/outbox"
	"github.com/bloco/wallethub/services/ledger-service/internal/storage/memory"
	"github.com/bloco/wallethub/services/ledger-service/internal/usecase"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*OutboxHandler, *memory.Store, *http.ServeMux, *time.Time) {
	t.Helper()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := memory.New()
	store.SetClock(func() time.Time { return now })

	h := NewOutboxHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return now }
	mux := http.NewServeMux()
	h.Register(mux)
	return h, store, mux, &now
}

func stageRecord(t *testing.T, store *memory.Store, eventType string) int64 {
	t.Helper()
	var id int64
	err := store.Do(context.Background(), func(ctx context.Context, tx usecase.Tx) error {
		var err error
		id, err = tx.Outbox().Stage(ctx, outbox.Entry{
			EventID:       uuid.New(),
			EventType:     eventType,
			CorrelationID: "corr-ops",
			Payload:       []byte(`{}`),
		})
		return err
	})
	require.NoError(t, err)
	return id
}

func TestBacklogListsOnlyOldUnsentRecords(t *testing.T) {
	_, store, mux, now := newTestHandler(t)
	oldID := stageRecord(t, store, "NetworkCreated")
	*now = now.Add(10 * time.Minute)
	stageRecord(t, store, "TokenCreated")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/outbox/backlog?older_than=5m", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp backlogResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "5m0s", resp.OlderThan)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, oldID, resp.Records[0].ID)
	assert.Equal(t, "NetworkCreated-out-0", resp.Records[0].Channel)
	assert.Equal(t, "corr-ops", resp.Records[0].CorrelationID)
	assert.Equal(t, int64(600), resp.Records[0].AgeSeconds)
}

func TestBacklogRejectsBadParameters(t *testing.T) {
	_, _, mux, _ := newTestHandler(t)
	for _, target := range []string{
		"/api/v1/outbox/backlog?older_than=soon",
		"/api/v1/outbox/backlog?older_than=-1m",
		"/api/v1/outbox/backlog?limit=0",
		"/api/v1/outbox/backlog?limit=many",
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/outbox/backlog", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequeueMakesParkedRecordDue(t *testing.T) {
	_, store, mux, now := newTestHandler(t)
	id := stageRecord(t, store, "VaultCreated")
	require.NoError(t, store.MarkFailed(context.Background(), id, outbox.Failure{
		Attempts:      5,
		LastError:     "rejected",
		NextAttemptAt: now.Add(time.Hour),
		Park:          true,
	}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/outbox/requeue?id=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	due, err := store.ListDue(context.Background(), *now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.False(t, due[0].Parked)
}

func TestRequeueRejectsSentOrUnknownRecords(t *testing.T) {
	_, store, mux, _ := newTestHandler(t)
	id := stageRecord(t, store, "VaultCreated")
	_, err := store.MarkSent(context.Background(), id)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/outbox/requeue?id=1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/outbox/requeue?id=99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/outbox/requeue?id=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/outbox/requeue?id=1", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
