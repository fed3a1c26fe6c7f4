package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	otelx "github.com/bloco/wallethub/libs/otel"
	"github.com/bloco/wallethub/services/ledger-service/internal/domain"
)

// NewEntry serializes e into a stageable entry attributed to agg.
func NewEntry(ctx context.Context, aggregateType, aggregateID string, e domain.Event) (Entry, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}
	meta := e.Meta()
	return Entry{
		EventID:       meta.EventID,
		EventType:     e.EventType(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		CorrelationID: meta.CorrelationID,
		Payload:       payload,
		Trace:         otelx.CaptureTraceContext(ctx),
	}, nil
}

// StageEvents drains agg and stages one record per event in the order the
// events were raised. It must run inside the transaction that persists agg;
// any error should abort that transaction.
func StageEvents(ctx context.Context, stager Stager, agg domain.Aggregate) ([]int64, error) {
	events := agg.Drain()
	ids := make([]int64, 0, len(events))
	for _, e := range events {
		entry, err := NewEntry(ctx, agg.AggregateType(), agg.ID().String(), e)
		if err != nil {
			return nil, err
		}
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("stage %s: %w", entry.EventType, err)
		}
		id, err := stager.Stage(ctx, entry)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", entry.EventType, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
