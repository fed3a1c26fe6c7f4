package outbox

import (
	"errors"
	"strings"
	"time"

	otelx "github.com/bloco/wallethub/libs/otel"
	"github.com/google/uuid"
)

// ChannelSuffix is appended to an event type to form its bus channel name.
const ChannelSuffix = "-out-0"

// ChannelFor returns the bus channel an event type is published on.
func ChannelFor(eventType string) string {
	return eventType + ChannelSuffix
}

var (
	ErrEventTypeRequired     = errors.New("outbox: event type is required")
	ErrCorrelationIDRequired = errors.New("outbox: correlation id is required")
	ErrPayloadRequired       = errors.New("outbox: payload is required")
)

// Entry is what gets staged: one serialized domain event plus the metadata
// needed to route and trace it.
type Entry struct {
	EventID       uuid.UUID
	EventType     string
	AggregateType string
	AggregateID   string
	CorrelationID string
	Payload       []byte
	Trace         otelx.TraceContext
}

func (e Entry) Validate() error {
	switch {
	case strings.TrimSpace(e.EventType) == "":
		return ErrEventTypeRequired
	case strings.TrimSpace(e.CorrelationID) == "":
		return ErrCorrelationIDRequired
	case len(e.Payload) == 0:
		return ErrPayloadRequired
	}
	return nil
}

// Record is a staged entry as stored. Sent moves from false to true once and
// never back; records are never deleted here.
type Record struct {
	ID int64
	Entry
	Sent          bool
	SentAt        *time.Time
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	Parked        bool
	CreatedAt     time.Time
}

// Failure describes a failed delivery attempt.
type Failure struct {
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	Park          bool
}

const maxLastErrorLen = 512

func truncateError(msg string) string {
	if len(msg) <= maxLastErrorLen {
		return msg
	}
	return msg[:maxLastErrorLen]
}
