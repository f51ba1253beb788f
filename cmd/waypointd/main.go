package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"waypointd/internal/api"
	"waypointd/internal/circuitbreaker"
	"waypointd/internal/config"
	"waypointd/internal/metrics"
	"waypointd/internal/registry"
	"waypointd/internal/session"
	"waypointd/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up the store
	var store storage.Store
	var db api.Pinger

	switch cfg.StorageDriver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to database")

		if err := storage.RunMigrations(ctx, pool); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations complete")

		prometheus.MustRegister(metrics.NewPoolCollector(pool))

		store = storage.NewPostgresStore(pool, cfg.QueryTimeout)
		db = pool
	case "memory":
		logger.Warn("using in-memory storage; records will not survive a restart")
		store = storage.NewMemoryStore()
	}

	breaker := circuitbreaker.New(cfg.BreakerMaxFailures, cfg.BreakerResetTimeout)
	store = storage.NewBreakerStore(store, breaker)

	scope, err := registry.ParseScope(cfg.UniquenessScope)
	if err != nil {
		logger.Error("invalid uniqueness scope", "error", err)
		os.Exit(1)
	}

	// Disambiguation sessions with background expiry
	sessions := session.NewManager(cfg.SessionTimeout, logger)
	go sessions.Run(ctx, cfg.SessionSweepInterval)
	logger.Info("session janitor started", "timeout", cfg.SessionTimeout)

	reg := registry.New(store, scope, sessions, logger)

	// Start HTTP server
	handler := api.NewServer(logger, reg, db)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down...")

	// Cancel context to stop the session janitor
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
