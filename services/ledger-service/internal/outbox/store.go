package outbox

import (
	"context"
	"time"
)

// Stager inserts entries as unsent records. Implementations are bound to the
// caller's transaction so the insert commits or rolls back together with the
// aggregate state written in that transaction.
type Stager interface {
	Stage(ctx context.Context, e Entry) (int64, error)
}

// DispatchStore is what the dispatcher needs from the outbox table.
type DispatchStore interface {
	// ListDue returns unsent, unparked records whose next attempt time is at
	// or before now, in creation order.
	ListDue(ctx context.Context, now time.Time, limit int) ([]Record, error)
	// MarkSent flips sent to true if it is still false. It reports whether
	// this call changed the record; a second call is a no-op.
	MarkSent(ctx context.Context, id int64) (bool, error)
	// MarkFailed records a failed attempt on a still-unsent record.
	MarkFailed(ctx context.Context, id int64, f Failure) error
}

// BacklogStore exposes the unsent backlog to operators.
type BacklogStore interface {
	// ListStale returns unsent records created before createdBefore, oldest first.
	ListStale(ctx context.Context, createdBefore time.Time, limit int) ([]Record, error)
	// Requeue clears the parked flag and backoff of an unsent record.
	Requeue(ctx context.Context, id int64) (bool, error)
}

// Store is the full outbox persistence contract.
type Store interface {
	DispatchStore
	BacklogStore
	// ListUnsent returns every record with sent=false in creation order.
	// A limit <= 0 means no limit.
	ListUnsent(ctx context.Context, limit int) ([]Record, error)
}
