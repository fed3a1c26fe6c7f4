package domain

import (
	"time"

	"github.com/google/uuid"
)

// Metadata is the envelope every domain event carries. It is embedded in each
// event so its fields are serialized inline with the event attributes.
type Metadata struct {
	EventID       uuid.UUID `json:"eventId"`
	OccurredOn    time.Time `json:"occurredOn"`
	CorrelationID string    `json:"correlationId"`
}

// NewMetadata stamps a fresh event id and the current UTC time.
func NewMetadata(correlationID string) Metadata {
	return Metadata{
		EventID:       uuid.New(),
		OccurredOn:    time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

func (m Metadata) Meta() Metadata { return m }

// Event is an immutable fact about a state change. EventType is the
// discriminator used to route the event; it never changes for a given type.
type Event interface {
	EventType() string
	Meta() Metadata
}
