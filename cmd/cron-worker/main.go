package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stellovault/stellovault-backend/internal/collateral"
	"github.com/stellovault/stellovault-backend/internal/cron"
	"github.com/stellovault/stellovault-backend/internal/escrows"
	"github.com/stellovault/stellovault-backend/internal/parties"
	"github.com/stellovault/stellovault-backend/pkg/config"
	"github.com/stellovault/stellovault-backend/pkg/db"
	"github.com/stellovault/stellovault-backend/pkg/logger"
	"github.com/stellovault/stellovault-backend/pkg/metrics"
	"github.com/stellovault/stellovault-backend/pkg/migrate"
	"github.com/stellovault/stellovault-backend/pkg/outbox"
	"github.com/stellovault/stellovault-backend/pkg/redis"
	"github.com/stellovault/stellovault-backend/pkg/stellar"
)

const lockKeyFormat = "sv:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stellarClient, err := stellar.NewClient(cfg.Stellar, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stellar gateway", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	escrowService, err := escrows.NewService(
		escrows.NewRepository(dbClient.DB()),
		parties.NewRepository(dbClient.DB()),
		dbClient,
		outboxService,
		stellarClient,
		cfg.Stellar.EscrowContractID,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create escrow service", err)
		os.Exit(1)
	}

	indexer, err := collateral.NewIndexer(
		collateral.NewRepository(dbClient.DB()),
		stellarClient,
		dbClient,
		outboxService,
		cfg.Stellar.CollateralContractID,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create collateral indexer", err)
		os.Exit(1)
	}

	timeoutJob, err := cron.NewEscrowTimeoutJob(cron.EscrowTimeoutJobParams{
		Logger:  logg,
		Escrows: escrowService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create escrow timeout job", err)
		os.Exit(1)
	}
	indexerJob, err := cron.NewCollateralIndexerJob(cron.CollateralIndexerJobParams{
		Logger:  logg,
		Indexer: indexer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create collateral indexer job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(timeoutJob, indexerJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Sweeper.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
