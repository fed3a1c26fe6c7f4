package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/bloco/wallethub/libs/db"
	"github.com/bloco/wallethub/libs/httpx"
	otelx "github.com/bloco/wallethub/libs/otel"
	"github.com/bloco/wallethub/libs/runtime"
	"github.com/bloco/wallethub/services/ledger-service/internal/bus"
	"github.com/bloco/wallethub/services/ledger-service/internal/handlers"
	"github.com/bloco/wallethub/services/ledger-service/internal/outbox"
	"github.com/bloco/wallethub/services/ledger-service/internal/storage"
	"github.com/bloco/wallethub/services/ledger-service/internal/storage/memory"
	"github.com/bloco/wallethub/services/ledger-service/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := runtime.NewLogger(cfg.Service, cfg.LogLevel)

	ctx, stop := runtime.SignalContext()
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("ledger-service exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg serviceConfig, logger *slog.Logger) error {
	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var (
		uow    usecase.UnitOfWork
		store  outbox.Store
		checks []runtime.ReadyCheck
	)
	dispatcherCfg := cfg.Dispatcher

	switch cfg.StorageDriver {
	case "postgres":
		pool, err := db.OpenWithRetry(ctx, cfg.DatabaseURL, cfg.DBConnectWithin, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := storage.Migrate(ctx, pool, logger); err != nil {
			return err
		}
		uow = storage.NewUnitOfWork(pool)
		store = storage.NewOutboxStore(pool)
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
		if cfg.LockKey != 0 {
			dispatcherCfg.Locker = storage.NewAdvisoryLocker(pool, cfg.LockKey)
		}
	default:
		logger.Warn("using in-memory storage; outbox records do not survive a restart")
		mem := memory.New()
		uow, store = mem, mem
	}

	publisher, err := bus.New(ctx, cfg.Bus, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("bus close failed", "err", err)
		}
	}()
	checks = append(checks, runtime.ReadyCheck{Name: "bus", Check: publisher.Ready})

	dispatcher, err := outbox.NewDispatcher(store, publisher, logger, dispatcherCfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx)
	}()

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.NewLedgerHandler(usecase.New(uow, logger), logger).Register(mux)
	handlers.NewOutboxHandler(store, logger).Register(mux)

	handler := httpx.Chain(mux,
		httpx.WithCorrelationID,
		httpx.WithAccessLog(logger),
		httpx.WithTimeout(cfg.RequestTimeout),
		httpx.WithBodyLimit(1<<20),
	)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(handler, "ledger"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	err = runtime.Serve(ctx, srv, logger, cfg.ShutdownTimeout)
	cancel()
	<-dispatcherDone
	return err
}
