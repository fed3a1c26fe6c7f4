package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/bloco/wallethub/services/ledger-service/internal/outbox"
)

var _ outbox.Store = (*Store)(nil)

func (s *Store) ListUnsent(ctx context.Context, limit int) ([]outbox.Record, error) {
	return s.list(ctx, limit, func(r outbox.Record) bool { return !r.Sent })
}

func (s *Store) ListDue(ctx context.Context, now time.Time, limit int) ([]outbox.Record, error) {
	return s.list(ctx, limit, func(r outbox.Record) bool {
		return !r.Sent && !r.Parked && !r.NextAttemptAt.After(now)
	})
}

func (s *Store) ListStale(ctx context.Context, createdBefore time.Time, limit int) ([]outbox.Record, error) {
	return s.list(ctx, limit, func(r outbox.Record) bool {
		return !r.Sent && r.CreatedAt.Before(createdBefore)
	})
}

// Get returns a copy of the record with id, for inspection.
func (s *Store) Get(id int64) (outbox.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index(id); ok {
		return s.st.outbox[i], true
	}
	return outbox.Record{}, false
}

func (s *Store) MarkSent(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index(id)
	if !ok || s.st.outbox[i].Sent {
		return false, nil
	}
	now := s.now()
	s.st.outbox[i].Sent = true
	s.st.outbox[i].SentAt = &now
	return true, nil
}

func (s *Store) MarkFailed(ctx context.Context, id int64, f outbox.Failure) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index(id)
	if !ok || s.st.outbox[i].Sent {
		return nil
	}
	r := &s.st.outbox[i]
	r.Attempts = f.Attempts
	r.LastError = f.LastError
	r.NextAttemptAt = f.NextAttemptAt
	r.Parked = f.Park
	return nil
}

func (s *Store) Requeue(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index(id)
	if !ok || s.st.outbox[i].Sent {
		return false, nil
	}
	s.st.outbox[i].Parked = false
	s.st.outbox[i].NextAttemptAt = s.now()
	return true, nil
}

func (s *Store) list(ctx context.Context, limit int, keep func(outbox.Record) bool) ([]outbox.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []outbox.Record
	for _, r := range s.st.outbox {
		if !keep(r) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// index finds id by binary search; records are appended in id order.
func (s *Store) index(id int64) (int, bool) {
	return slices.BinarySearchFunc(s.st.outbox, id, func(r outbox.Record, id int64) int {
		return cmp.Compare(r.ID, id)
	})
}
