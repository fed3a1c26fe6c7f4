// Package bus contains the broker adapters the outbox dispatcher publishes
// through. Every adapter maps an outbox channel name onto its broker's
// destination unchanged.
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bloco/wallethub/libs/kafkax"
	"github.com/bloco/wallethub/services/ledger-service/internal/outbox"
)

// Driver is a Bus that also owns a broker connection.
type Driver interface {
	outbox.Bus
	Ready(ctx context.Context) error
	Close() error
}

type Config struct {
	Driver            string
	KafkaBrokers      string
	RedisAddr         string
	RedisPassword     string
	RedisStreamMaxLen int64
	AMQPURL           string
	AMQPExchange      string
}

// New builds the driver named by cfg.Driver: kafka, redis, amqp or log.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "kafka":
		brokers := kafkax.SplitBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, fmt.Errorf("bus driver kafka: KAFKA_BROKERS is required")
		}
		return NewKafka(brokers), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("bus driver redis: REDIS_ADDR is required")
		}
		return NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisStreamMaxLen)
	case "amqp":
		if cfg.AMQPURL == "" {
			return nil, fmt.Errorf("bus driver amqp: AMQP_URL is required")
		}
		return NewAMQP(cfg.AMQPURL, cfg.AMQPExchange)
	case "log", "":
		return NewLog(logger), nil
	default:
		return nil, fmt.Errorf("unknown bus driver %q", cfg.Driver)
	}
}
