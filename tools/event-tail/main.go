// event-tail follows the ledger's outbound channels on Kafka and prints each
// event once, skipping redeliveries by event id.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bloco/wallethub/libs/config"
	"github.com/bloco/wallethub/libs/kafkax"
	"github.com/bloco/wallethub/libs/runtime"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var defaultTopics = []string{
	"NetworkCreated-out-0",
	"NetworkStatusChanged-out-0",
	"TokenCreated-out-0",
	"TransactionCreated-out-0",
	"TransactionStatusChanged-out-0",
	"VaultCreated-out-0",
	"VaultStatusChanged-out-0",
}

func main() {
	var (
		brokers   = flag.String("brokers", config.String("KAFKA_BROKERS", "localhost:9092"), "comma separated kafka brokers")
		group     = flag.String("group", config.String("EVENT_TAIL_GROUP", "event-tail"), "consumer group id")
		topics    = flag.String("topics", config.String("EVENT_TAIL_TOPICS", strings.Join(defaultTopics, ",")), "comma separated channels to follow")
		redisAddr = flag.String("redis", config.String("REDIS_ADDR", ""), "redis address for shared dedup state; empty keeps it in memory")
		dedupTTL  = flag.Duration("dedup-ttl", 24*time.Hour, "how long an event id is remembered")
		logLevel  = flag.String("log-level", config.String("LOG_LEVEL", "info"), "log level")
	)
	flag.Parse()

	logger := runtime.NewLogger("event-tail", *logLevel)
	ctx, stop := runtime.SignalContext()
	defer stop()

	var seen Deduper = NewMemoryDeduper(100000)
	if *redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: *redisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			fmt.Fprintf(os.Stderr, "redis unreachable: %v\n", err)
			os.Exit(1)
		}
		seen = NewRedisDeduper(client, "event-tail:"+*group+":", *dedupTTL)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkax.SplitBrokers(*brokers),
		GroupID:     *group,
		GroupTopics: splitList(*topics),
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	defer reader.Close()

	tail(ctx, reader, seen, logger)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// tail prints every first-seen event and commits each message after it has
// been handled, so a crash replays at most the uncommitted tail.
func tail(ctx context.Context, reader messageReader, seen Deduper, logger *slog.Logger) {
	tracer := otel.Tracer("event-tail")
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("kafka read error", "err", err)
			time.Sleep(time.Second)
			continue
		}

		msgCtx, span := tracer.Start(kafkax.ExtractTraceContext(ctx, msg), "event-tail.consume",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.destination.name", msg.Topic),
			),
		)
		handle(msgCtx, msg, seen, logger)
		span.End()

		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			logger.Error("kafka commit failed", "err", err, "topic", msg.Topic, "offset", msg.Offset)
		}
	}
}

func handle(ctx context.Context, msg kafka.Message, seen Deduper, logger *slog.Logger) {
	meta := kafkax.ExtractEventMeta(msg)
	first, err := seen.FirstSeen(ctx, meta.EventID)
	if err != nil {
		// Printing twice beats dropping an event.
		logger.Warn("dedup lookup failed", "err", err, "event_id", meta.EventID)
		first = true
	}
	if !first {
		logger.Debug("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return
	}
	logger.Info("event",
		"event_id", meta.EventID,
		"event_type", meta.EventType,
		"correlation_id", meta.CorrelationID,
		"aggregate_id", string(msg.Key),
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"payload", string(msg.Value),
	)
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
