package outbox

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

type dispatcherMetrics struct {
	sent           metric.Int64Counter
	failed         metric.Int64Counter
	parked         metric.Int64Counter
	markSentFailed metric.Int64Counter
	selected       metric.Int64Gauge
	cycleDuration  metric.Float64Histogram
}

func newDispatcherMetrics(provider metric.MeterProvider) (dispatcherMetrics, error) {
	meter := provider.Meter("ledger-service/outbox")

	var (
		m   dispatcherMetrics
		err error
	)

	if m.sent, err = meter.Int64Counter("outbox.records.sent",
		metric.WithDescription("Outbox records accepted by the bus and marked sent"),
		metric.WithUnit("{record}"),
	); err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create outbox.records.sent counter: %w", err)
	}

	if m.failed, err = meter.Int64Counter("outbox.records.failed",
		metric.WithDescription("Outbox delivery attempts that failed"),
		metric.WithUnit("{record}"),
	); err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create outbox.records.failed counter: %w", err)
	}

	if m.parked, err = meter.Int64Counter("outbox.records.parked",
		metric.WithDescription("Outbox records parked after exhausting their attempts"),
		metric.WithUnit("{record}"),
	); err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create outbox.records.parked counter: %w", err)
	}

	if m.markSentFailed, err = meter.Int64Counter("outbox.records.mark_sent_failed",
		metric.WithDescription("Outbox records delivered but not marked sent"),
		metric.WithUnit("{record}"),
	); err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create outbox.records.mark_sent_failed counter: %w", err)
	}

	if m.selected, err = meter.Int64Gauge("outbox.cycle.selected",
		metric.WithDescription("Records selected by the last dispatch cycle"),
		metric.WithUnit("{record}"),
	); err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create outbox.cycle.selected gauge: %w", err)
	}

	if m.cycleDuration, err = meter.Float64Histogram("outbox.cycle.duration",
		metric.WithDescription("Time taken per dispatch cycle"),
		metric.WithUnit("s"),
	); err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create outbox.cycle.duration histogram: %w", err)
	}

	return m, nil
}
