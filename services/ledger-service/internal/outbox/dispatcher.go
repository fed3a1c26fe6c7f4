package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrRejected is returned by a Bus when the broker refused the message.
var ErrRejected = errors.New("message rejected by broker")

// Message is what a Bus receives. Payload is the staged payload, unchanged.
type Message struct {
	Key     string
	Payload []byte
	Headers map[string]string
}

// Header keys set on every dispatched message.
const (
	HeaderEventID       = "event_id"
	HeaderEventType     = "event_type"
	HeaderCorrelationID = "correlation_id"
	HeaderAggregateType = "aggregate_type"
	HeaderAggregateID   = "aggregate_id"
)

// Bus delivers a message to a channel. A nil error means the broker accepted
// the message. Send may be called more than once for the same record.
type Bus interface {
	Send(ctx context.Context, channel string, msg Message) error
}

// Locker grants exclusive ownership of a dispatch cycle across processes.
// TryLock returns false when another owner holds the lock.
type Locker interface {
	TryLock(ctx context.Context) (bool, func(), error)
}

type Config struct {
	PollEvery    time.Duration
	BatchSize    int
	SendTimeout  time.Duration
	StoreTimeout time.Duration
	Retry        RetryPolicy
	// Locker is optional; without it the dispatcher assumes it is the only
	// instance draining this outbox.
	Locker Locker
	// Clock is optional and defaults to time.Now.
	Clock func() time.Time
}

// CycleResult summarizes one dispatch cycle.
type CycleResult struct {
	Selected       int
	Sent           int
	Failed         int
	Parked         int
	MarkSentFailed int
	MarkFailFailed int
	Skipped        bool
}

// Dispatcher drains due outbox records to a Bus on a fixed interval. Cycles
// never overlap within one Dispatcher.
type Dispatcher struct {
	store        DispatchStore
	bus          Bus
	logger       *slog.Logger
	tracer       trace.Tracer
	metrics      dispatcherMetrics
	locker       Locker
	now          func() time.Time
	pollEvery    time.Duration
	batchSize    int
	sendTimeout  time.Duration
	storeTimeout time.Duration
	retry        RetryPolicy
}

func NewDispatcher(store DispatchStore, bus Bus, logger *slog.Logger, cfg Config) (*Dispatcher, error) {
	if store == nil {
		return nil, errors.New("outbox: dispatch store is required")
	}
	if bus == nil {
		return nil, errors.New("outbox: bus is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 5 * time.Second
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	metrics, err := newDispatcherMetrics(otel.GetMeterProvider())
	if err != nil {
		return nil, fmt.Errorf("init outbox metrics: %w", err)
	}

	return &Dispatcher{
		store:        store,
		bus:          bus,
		logger:       logger,
		tracer:       otel.Tracer("ledger-service/outbox"),
		metrics:      metrics,
		locker:       cfg.Locker,
		now:          cfg.Clock,
		pollEvery:    cfg.PollEvery,
		batchSize:    cfg.BatchSize,
		sendTimeout:  cfg.SendTimeout,
		storeTimeout: cfg.StoreTimeout,
		retry:        cfg.Retry,
	}, nil
}

// Run dispatches once immediately and then on every tick until ctx is done.
// The next tick is only consumed after the current cycle returns.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("outbox dispatcher started",
		"poll_every", d.pollEvery.String(),
		"batch_size", d.batchSize,
		"max_attempts", d.retry.MaxAttempts,
	)
	defer d.logger.Info("outbox dispatcher stopped")

	ticker := time.NewTicker(d.pollEvery)
	defer ticker.Stop()

	d.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runCycle(ctx)
		}
	}
}

func (d *Dispatcher) runCycle(ctx context.Context) {
	res, err := d.RunOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Error("outbox dispatch cycle failed", "err", err)
		}
		return
	}
	if res.Selected > 0 {
		d.logger.Debug("outbox dispatch cycle finished",
			"selected", res.Selected,
			"sent", res.Sent,
			"failed", res.Failed,
			"parked", res.Parked,
		)
	}
}

// RunOnce performs a single dispatch cycle: every due record is attempted
// once, in creation order. A failed record stays unsent and is attempted
// again on a later cycle; it never aborts the cycle.
func (d *Dispatcher) RunOnce(ctx context.Context) (CycleResult, error) {
	var res CycleResult

	if d.locker != nil {
		locked, release, err := d.locker.TryLock(ctx)
		if err != nil {
			return res, fmt.Errorf("acquire dispatch lock: %w", err)
		}
		if !locked {
			res.Skipped = true
			return res, nil
		}
		defer release()
	}

	ctx, span := d.tracer.Start(ctx, "outbox.dispatch_cycle")
	defer span.End()
	start := time.Now()
	defer func() {
		d.metrics.cycleDuration.Record(ctx, time.Since(start).Seconds())
	}()

	listCtx, cancel := context.WithTimeout(ctx, d.storeTimeout)
	records, err := d.store.ListDue(listCtx, d.now(), d.batchSize)
	cancel()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list due records")
		return res, fmt.Errorf("list due records: %w", err)
	}
	res.Selected = len(records)
	d.metrics.selected.Record(ctx, int64(len(records)))

	for _, r := range records {
		if ctx.Err() != nil {
			break
		}
		d.dispatch(ctx, r, &res)
	}
	span.SetAttributes(
		attribute.Int("outbox.selected", res.Selected),
		attribute.Int("outbox.sent", res.Sent),
		attribute.Int("outbox.failed", res.Failed),
	)
	return res, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, r Record, res *CycleResult) {
	channel := ChannelFor(r.EventType)
	logger := d.logger.With(
		"record_id", r.ID,
		"event_type", r.EventType,
		"channel", channel,
		"correlation_id", r.CorrelationID,
	)

	if err := d.send(ctx, channel, r); err != nil {
		res.Failed++
		d.metrics.failed.Add(ctx, 1)
		logger.Warn("outbox delivery failed", "err", err, "attempts", r.Attempts+1)
		d.recordFailure(ctx, r, err, res, logger)
		return
	}

	// The send already happened; finish the bookkeeping even if ctx is
	// being cancelled so the record is not delivered twice needlessly.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.storeTimeout)
	defer cancel()
	if _, err := d.store.MarkSent(storeCtx, r.ID); err != nil {
		res.MarkSentFailed++
		d.metrics.markSentFailed.Add(ctx, 1)
		logger.Error("outbox record delivered but not marked sent; it will be delivered again", "err", err)
		return
	}
	res.Sent++
	d.metrics.sent.Add(ctx, 1)
}

func (d *Dispatcher) send(ctx context.Context, channel string, r Record) (err error) {
	ctx = r.Trace.Apply(ctx)
	ctx, span := d.tracer.Start(ctx, "outbox.send "+channel,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", channel),
			attribute.Int64("outbox.record_id", r.ID),
			attribute.String("outbox.correlation_id", r.CorrelationID),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("bus panicked: %v", p)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "send failed")
		}
	}()

	return d.bus.Send(ctx, channel, Message{
		Key:     r.AggregateID,
		Payload: r.Payload,
		Headers: map[string]string{
			HeaderEventID:       r.EventID.String(),
			HeaderEventType:     r.EventType,
			HeaderCorrelationID: r.CorrelationID,
			HeaderAggregateType: r.AggregateType,
			HeaderAggregateID:   r.AggregateID,
		},
	})
}

func (d *Dispatcher) recordFailure(ctx context.Context, r Record, sendErr error, res *CycleResult, logger *slog.Logger) {
	attempts := r.Attempts + 1
	delay, park := d.retry.Next(attempts)
	f := Failure{
		Attempts:      attempts,
		LastError:     truncateError(sendErr.Error()),
		NextAttemptAt: d.now().Add(delay),
		Park:          park,
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.storeTimeout)
	defer cancel()
	if err := d.store.MarkFailed(storeCtx, r.ID, f); err != nil {
		// The record is still unsent and due, so it is simply retried.
		res.MarkFailFailed++
		logger.Error("outbox failure bookkeeping failed", "err", err)
		return
	}
	if park {
		res.Parked++
		d.metrics.parked.Add(ctx, 1)
		logger.Error("outbox record parked after max attempts", "attempts", attempts, "last_error", f.LastError)
	}
}
