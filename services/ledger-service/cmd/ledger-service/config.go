package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/bloco/wallethub/libs/config"
	"github.com/bloco/wallethub/services/ledger-service/internal/bus"
	"github.com/bloco/wallethub/services/ledger-service/internal/outbox"
)

type serviceConfig struct {
	Service         string
	Port            string
	LogLevel        string
	StorageDriver   string
	DatabaseURL     string
	DBConnectWithin time.Duration
	Bus             bus.Config
	Dispatcher      outbox.Config
	// LockKey enables the cross-instance dispatch lock when non-zero.
	LockKey         int64
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() (serviceConfig, error) {
	var (
		cfg serviceConfig
		err error
	)
	cfg.Service = config.String("SERVICE_NAME", "ledger-service")
	cfg.LogLevel = config.String("LOG_LEVEL", "info")
	if cfg.Port, err = config.Port("PORT", "8090"); err != nil {
		return cfg, err
	}

	cfg.StorageDriver = strings.ToLower(config.String("STORAGE_DRIVER", "postgres"))
	switch cfg.StorageDriver {
	case "postgres":
		if cfg.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
			return cfg, err
		}
	case "memory":
	default:
		return cfg, fmt.Errorf("STORAGE_DRIVER must be postgres or memory, got %q", cfg.StorageDriver)
	}
	if cfg.DBConnectWithin, err = config.Duration("DB_CONNECT_TIMEOUT", time.Minute); err != nil {
		return cfg, err
	}

	cfg.Bus = bus.Config{
		Driver:        config.String("BUS_DRIVER", "kafka"),
		KafkaBrokers:  config.String("KAFKA_BROKERS", ""),
		RedisAddr:     config.String("REDIS_ADDR", ""),
		RedisPassword: config.String("REDIS_PASSWORD", ""),
		AMQPURL:       config.String("AMQP_URL", ""),
		AMQPExchange:  config.String("AMQP_EXCHANGE", "ledger.events"),
	}
	if cfg.Bus.RedisStreamMaxLen, err = config.Int64("REDIS_STREAM_MAXLEN", 100000); err != nil {
		return cfg, err
	}

	d := &cfg.Dispatcher
	if d.PollEvery, err = config.Duration("OUTBOX_POLL_INTERVAL", 5*time.Second); err != nil {
		return cfg, err
	}
	if d.BatchSize, err = config.Int("OUTBOX_BATCH_SIZE", 100); err != nil {
		return cfg, err
	}
	if d.SendTimeout, err = config.Duration("OUTBOX_SEND_TIMEOUT", 5*time.Second); err != nil {
		return cfg, err
	}
	if d.StoreTimeout, err = config.Duration("OUTBOX_STORE_TIMEOUT", 5*time.Second); err != nil {
		return cfg, err
	}
	if d.Retry.Backoff, err = config.Duration("OUTBOX_RETRY_BACKOFF", 0); err != nil {
		return cfg, err
	}
	if d.Retry.MaxBackoff, err = config.Duration("OUTBOX_MAX_RETRY_BACKOFF", 5*time.Minute); err != nil {
		return cfg, err
	}
	if d.Retry.MaxAttempts, err = config.Int("OUTBOX_MAX_ATTEMPTS", 0); err != nil {
		return cfg, err
	}
	if cfg.LockKey, err = config.Int64("OUTBOX_LOCK_KEY", 0); err != nil {
		return cfg, err
	}
	if cfg.RequestTimeout, err = config.Duration("HTTP_REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return cfg, err
	}
	if cfg.ShutdownTimeout, err = config.Duration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return cfg, err
	}
	return cfg, nil
}
