package domain

import "github.com/google/uuid"

// AggregateRoot buffers the events raised during one business operation.
// It is not safe for concurrent use: an aggregate instance belongs to the unit
// of work that loaded it, and that unit of work must Drain it exactly once
// before committing.
type AggregateRoot struct {
	id      uuid.UUID
	pending []Event
}

func NewAggregateRoot(id uuid.UUID) AggregateRoot {
	return AggregateRoot{id: id}
}

func (a *AggregateRoot) ID() uuid.UUID { return a.id }

// Append adds e to the tail of the pending sequence.
func (a *AggregateRoot) Append(e Event) {
	a.pending = append(a.pending, e)
}

// Drain returns the pending events in the order they were appended and
// leaves the buffer empty.
func (a *AggregateRoot) Drain() []Event {
	out := a.pending
	a.pending = nil
	if out == nil {
		return []Event{}
	}
	return out
}

// PendingCount reports how many events are waiting to be drained.
func (a *AggregateRoot) PendingCount() int { return len(a.pending) }

// Aggregate is what the persistence layer needs to flush an aggregate's events.
type Aggregate interface {
	ID() uuid.UUID
	AggregateType() string
	Drain() []Event
}
