package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"

	"github.com/odyssey-erp/stockledger/cmd/stockledger/cli"
	"github.com/odyssey-erp/stockledger/internal/access"
	"github.com/odyssey-erp/stockledger/internal/app"
	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/observability"
	"github.com/odyssey-erp/stockledger/internal/platform/cache"
	"github.com/odyssey-erp/stockledger/internal/platform/db"
	"github.com/odyssey-erp/stockledger/internal/shared"
	"github.com/odyssey-erp/stockledger/internal/stores"
	"github.com/odyssey-erp/stockledger/internal/units"
	"github.com/odyssey-erp/stockledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 {
		if err := runCommand(ctx, cfg, logger, os.Args[1:]); err != nil {
			logger.Error("command failed", slog.String("command", os.Args[1]), slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()

	metrics := observability.NewMetrics()

	tracerProvider, err := observability.NewTracerProvider(cfg.TraceExporter, "stockledger", os.Stdout)
	if err != nil {
		logger.Error("init tracing", slog.Any("error", err))
		os.Exit(1)
	}
	otel.SetTracerProvider(tracerProvider)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(flushCtx); err != nil {
			logger.Warn("tracer shutdown", slog.Any("error", err))
		}
	}()

	sessions := shared.NewSessionStore(redisClient, cfg.SessionTTL)
	accessRepo := access.NewRepository(pool)
	accessMW := access.Middleware{
		Sessions:   sessions,
		Principals: accessRepo,
		Logger:     logger,
	}

	storeRepo := stores.NewRepository(pool)
	storeService := stores.NewService(storeRepo)
	unitService := units.NewService(units.NewRepository(pool))
	ledgerService := ledger.NewService(ledger.NewRepository(pool), ledger.ServiceOptions{
		Units:       unitService,
		Stores:      storeRepo,
		Cache:       ledger.NewActionCache(redisClient, cfg.ActionCacheTTL),
		Idempotency: shared.NewIdempotencyStore(pool),
		Events:      jobClient,
		Metrics:     metrics,
		Logger:      logger,

		TracerProvider: tracerProvider,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Access:        accessMW,
		AdminHandler:  access.NewAdminHandler(logger, access.NewAdminService(accessRepo), accessMW),
		StoresHandler: stores.NewHandler(logger, storeService, accessMW),
		UnitsHandler:  units.NewHandler(logger, unitService),
		LedgerHandler: ledger.NewHandler(logger, ledgerService),
		JobHandler:    jobs.NewHandler(inspector, logger),
		Metrics:       metrics,
		Health: func(r *http.Request) error {
			if err := pool.Ping(r.Context()); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if err := redisClient.Ping(r.Context()).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func runCommand(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) error {
	switch args[0] {
	case "migrate":
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info("schema applied")
		return nil
	case "jobs":
		jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer jobsCLI.Close()
		return jobsCLI.Run(ctx, args[1:], os.Stdout)
	default:
		return fmt.Errorf("unknown command %q (want migrate or jobs)", args[0])
	}
}
