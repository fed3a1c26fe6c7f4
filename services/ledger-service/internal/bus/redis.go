package bus

import (
	"context"

	"github.com/bloco/wallethub/services/ledger-service/internal/outbox"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const redisPayloadField = "payload"

// Redis appends each message to a stream named after the channel.
type Redis struct {
	client *redis.Client
	maxLen int64
}

func NewRedis(ctx context.Context, addr, password string, maxLen int64) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Redis{client: client, maxLen: maxLen}, nil
}

func (r *Redis) Send(ctx context.Context, channel string, msg outbox.Message) error {
	return r.client.XAdd(ctx, redisArgs(ctx, channel, msg, r.maxLen)).Err()
}

func redisArgs(ctx context.Context, channel string, msg outbox.Message, maxLen int64) *redis.XAddArgs {
	values := make(map[string]any, len(msg.Headers)+4)
	for k, v := range msg.Headers {
		values[k] = v
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		values[k] = v
	}
	values["key"] = msg.Key
	values[redisPayloadField] = string(msg.Payload)

	args := &redis.XAddArgs{Stream: channel, Values: values}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return args
}

func (r *Redis) Ready(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
