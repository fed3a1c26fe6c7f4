package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/bloco/wallethub/libs/db"
	"github.com/bloco/wallethub/services/ledger-service/internal/outbox"
	"github.com/jackc/pgx/v5"
)

// stager writes outbox records through the caller's transaction.
type stager struct{ q querier }

func (s stager) Stage(ctx context.Context, e outbox.Entry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := s.q.QueryRow(ctx, `
		INSERT INTO outbox (event_id, event_type, aggregate_type, aggregate_id, correlation_id, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, e.EventID, e.EventType, e.AggregateType, e.AggregateID, e.CorrelationID, string(e.Payload),
		e.Trace.Traceparent, e.Trace.Tracestate).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert outbox record: %w", err)
	}
	return id, nil
}

// OutboxStore is the dispatcher and operator side of the outbox table. Writes
// outside a business transaction go straight to the pool.
type OutboxStore struct {
	pool *db.Pool
}

func NewOutboxStore(pool *db.Pool) *OutboxStore {
	return &OutboxStore{pool: pool}
}

var _ outbox.Store = (*OutboxStore)(nil)

// next_attempt_at stays NULL until the dispatcher schedules a retry; NULL rows are due.
const recordColumns = `id, event_id, event_type, aggregate_type, aggregate_id, correlation_id, payload,
	traceparent, tracestate, sent, sent_at, attempts, last_error, COALESCE(next_attempt_at, created_at),
	parked, created_at`

func (s *OutboxStore) ListUnsent(ctx context.Context, limit int) ([]outbox.Record, error) {
	return s.query(ctx, `
		SELECT `+recordColumns+`
		FROM outbox
		WHERE sent = false
		ORDER BY id
		LIMIT $1
	`, sqlLimit(limit))
}

func (s *OutboxStore) ListDue(ctx context.Context, now time.Time, limit int) ([]outbox.Record, error) {
	return s.query(ctx, `
		SELECT `+recordColumns+`
		FROM outbox
		WHERE sent = false AND parked = false AND (next_attempt_at IS NULL OR next_attempt_at <= $1)
		ORDER BY id
		LIMIT $2
	`, now, sqlLimit(limit))
}

func (s *OutboxStore) ListStale(ctx context.Context, createdBefore time.Time, limit int) ([]outbox.Record, error) {
	return s.query(ctx, `
		SELECT `+recordColumns+`
		FROM outbox
		WHERE sent = false AND created_at < $1
		ORDER BY id
		LIMIT $2
	`, createdBefore, sqlLimit(limit))
}

// MarkSent flips sent only while it is still false, so concurrent or repeated
// calls change the row at most once.
func (s *OutboxStore) MarkSent(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE outbox
		SET sent = true, sent_at = now()
		WHERE id = $1 AND sent = false
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, f outbox.Failure) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox
		SET attempts = $2, last_error = $3, next_attempt_at = $4, parked = $5
		WHERE id = $1 AND sent = false
	`, id, f.Attempts, f.LastError, f.NextAttemptAt, f.Park)
	return err
}

func (s *OutboxStore) Requeue(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE outbox
		SET parked = false, next_attempt_at = NULL
		WHERE id = $1 AND sent = false
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *OutboxStore) query(ctx context.Context, sql string, args ...any) ([]outbox.Record, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanRecord)
}

func scanRecord(row pgx.CollectableRow) (outbox.Record, error) {
	var (
		r       outbox.Record
		payload string
	)
	err := row.Scan(
		&r.ID, &r.EventID, &r.EventType, &r.AggregateType, &r.AggregateID, &r.CorrelationID, &payload,
		&r.Trace.Traceparent, &r.Trace.Tracestate, &r.Sent, &r.SentAt, &r.Attempts, &r.LastError,
		&r.NextAttemptAt, &r.Parked, &r.CreatedAt,
	)
	r.Payload = []byte(payload)
	return r, err
}

// sqlLimit turns "no limit" into NULL, which LIMIT treats as unbounded.
func sqlLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
