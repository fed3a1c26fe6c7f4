package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bloco/wallethub/libs/kafkax"
	"github.com/bloco/wallethub/services/ledger-service/internal/outbox"
	"github.com/segmentio/kafka-go"
)

// Kafka publishes each channel as a topic of the same name, keyed by
// aggregate id so one aggregate's events land on one partition.
type Kafka struct {
	writer  *kafka.Writer
	brokers []string
}

// kafkaBatchTimeout bounds how long a synchronous single-message write waits
// for its batch to fill. kafka-go defaults to one second.
const kafkaBatchTimeout = 5 * time.Millisecond

func NewKafka(brokers []string) *Kafka {
	return &Kafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchSize:    1,
			BatchTimeout: kafkaBatchTimeout,
		},
		brokers: brokers,
	}
}

func (k *Kafka) Send(ctx context.Context, channel string, msg outbox.Message) error {
	if err := k.writer.WriteMessages(ctx, kafkaMessage(ctx, channel, msg)); err != nil {
		if brokerRejected(err) {
			return fmt.Errorf("%w: %w", outbox.ErrRejected, err)
		}
		return err
	}
	return nil
}

// brokerRejected reports whether err carries a kafka protocol error. Synchronous
// writes return kafka.WriteErrors, which does not unwrap to its elements.
func brokerRejected(err error) bool {
	var werrs kafka.WriteErrors
	if errors.As(err, &werrs) {
		for _, e := range werrs {
			if e != nil && brokerRejected(e) {
				return true
			}
		}
		return false
	}
	var kerr kafka.Error
	return errors.As(err, &kerr)
}

func kafkaMessage(ctx context.Context, channel string, msg outbox.Message) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers)+2)
	for _, k := range sortedKeys(msg.Headers) {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(msg.Headers[k])})
	}
	return kafka.Message{
		Topic:   channel,
		Key:     []byte(msg.Key),
		Value:   msg.Payload,
		Headers: kafkax.InjectTraceHeaders(ctx, headers),
	}
}

func (k *Kafka) Ready(ctx context.Context) error {
	return kafkax.ReadyCheck(k.brokers)(ctx)
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
