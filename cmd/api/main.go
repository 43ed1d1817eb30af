package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/tincleo/al-sub000/internal/auth"
	"github.com/tincleo/al-sub000/internal/config"
	"github.com/tincleo/al-sub000/internal/dashboard"
	"github.com/tincleo/al-sub000/internal/database"
	"github.com/tincleo/al-sub000/internal/ledger"
	"github.com/tincleo/al-sub000/internal/reconcile"
	"github.com/tincleo/al-sub000/internal/repository"
	"github.com/tincleo/al-sub000/internal/router"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	if err := database.Migrate(ctx, pool); err != nil {
		slog.Error("Schema migration failed", "error", err)
		os.Exit(1)
	}

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Schema and River migrations applied")

	memberRepo := repository.NewTeamMemberRepo(pool)
	historyRepo := repository.NewBalanceHistoryRepo(pool)

	// Ledger
	engine := ledger.NewEngine(ledger.NewRepository(pool), cfg.Ledger.MaxConflictRetries, logger)

	// Reconciliation worker
	reconciler := reconcile.NewReconciler(memberRepo, historyRepo, logger)
	workers := river.NewWorkers()
	river.AddWorker(workers, reconcile.NewWorker(reconciler))

	riverCfg := &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.Reconcile.Workers},
		},
		Workers: workers,
		Logger:  logger,
	}
	if cfg.Reconcile.Enabled {
		// Load has validated the interval.
		interval, _ := cfg.ReconcileInterval()
		riverCfg.PeriodicJobs = []*river.PeriodicJob{reconcile.PeriodicJob(interval)}
	}
	riverClient, err := river.NewClient[pgx.Tx](riverpgxv5.New(pool), riverCfg)
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	// Auth
	tokenTTL, _ := cfg.TokenTTL()
	authSvc := auth.NewService(auth.NewRepository(pool), cfg.Auth.JWTSecret, tokenTTL)
	authHandler := auth.NewHandler(authSvc, logger)

	dashHandler := dashboard.NewHandler(
		memberRepo,
		historyRepo,
		engine,
		reconcile.NewEnqueuer(reconcile.ClientInsert(riverClient)),
		logger,
	)

	mux := http.NewServeMux()
	mux.Handle("/api/", router.New(authHandler, dashHandler, authSvc))
	if cfg.Server.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
	}).Handler(mux)

	// Start River client (processes jobs)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Server.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
