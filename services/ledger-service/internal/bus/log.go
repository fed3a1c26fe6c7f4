package bus

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"github.com/bloco/wallethub/services/ledger-service/internal/outbox"
)

// Log writes every message to the logger and always accepts it. It is meant
// for local runs without a broker.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Send(ctx context.Context, channel string, msg outbox.Message) error {
	attrs := []any{"channel", channel, "key", msg.Key, "payload", string(msg.Payload)}
	for _, k := range sortedKeys(msg.Headers) {
		attrs = append(attrs, k, msg.Headers[k])
	}
	l.logger.InfoContext(ctx, "event published", attrs...)
	return nil
}

func (l *Log) Ready(context.Context) error { return nil }

func (l *Log) Close() error { return nil }

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
