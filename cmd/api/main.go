package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stellovault/stellovault-backend/api/routes"
	"github.com/stellovault/stellovault-backend/internal/collateral"
	"github.com/stellovault/stellovault-backend/internal/escrows"
	"github.com/stellovault/stellovault-backend/internal/loans"
	"github.com/stellovault/stellovault-backend/internal/oracles"
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

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)
	partyRepo := parties.NewRepository(gormDB)
	escrowRepo := escrows.NewRepository(gormDB)

	partyService, err := parties.NewService(partyRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create party service", err)
		os.Exit(1)
	}

	escrowService, err := escrows.NewService(escrowRepo, partyRepo, dbClient, outboxService, stellarClient, cfg.Stellar.EscrowContractID, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create escrow service", err)
		os.Exit(1)
	}

	loanService, err := loans.NewService(loans.NewRepository(gormDB), partyRepo, dbClient, outboxService, stellarClient, cfg.Stellar.LoanContractID, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create loan service", err)
		os.Exit(1)
	}

	oracleService, err := oracles.NewService(
		oracles.NewRepository(gormDB),
		escrowRepo,
		dbClient,
		outboxService,
		metrics.NewOracleMetrics(prometheus.DefaultRegisterer),
		cfg.Oracle,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create oracle service", err)
		os.Exit(1)
	}

	collateralService, err := collateral.NewService(collateral.NewRepository(gormDB), dbClient, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create collateral service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			Gateway:    stellarClient,
			Parties:    partyService,
			Escrows:    escrowService,
			Loans:      loanService,
			Oracles:    oracleService,
			Collateral: collateralService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
