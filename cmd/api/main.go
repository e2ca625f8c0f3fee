// Command api is the Leoncito alert engine and API server.
//
// Usage:
//
//	leoncito-api
//	API_PORT=8080 leoncito-api

// @title Leoncito Alert API
// @version 1.0.0
// @description Notification scheduling and delivery engine for published betting picks. Three fixed alerts per pick (30 minutes before, 5 minutes before, kickoff), deduplicated per device via collapse tags.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Leoncito
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/JeffersonAlvarez16/leoncito/internal/api"
	"github.com/JeffersonAlvarez16/leoncito/internal/api/handler"
	"github.com/JeffersonAlvarez16/leoncito/internal/background"
	"github.com/JeffersonAlvarez16/leoncito/internal/cache"
	"github.com/JeffersonAlvarez16/leoncito/internal/config"
	"github.com/JeffersonAlvarez16/leoncito/internal/connectivity"
	"github.com/JeffersonAlvarez16/leoncito/internal/db"
	"github.com/JeffersonAlvarez16/leoncito/internal/delivery"
	"github.com/JeffersonAlvarez16/leoncito/internal/listener"
	"github.com/JeffersonAlvarez16/leoncito/internal/maintenance"
	"github.com/JeffersonAlvarez16/leoncito/internal/notifications"
	"github.com/JeffersonAlvarez16/leoncito/internal/picks"
	"github.com/JeffersonAlvarez16/leoncito/internal/scheduler"

	_ "github.com/JeffersonAlvarez16/leoncito/docs" // swagger docs
)

// engineStore widens one session's pending view to every recipient: the
// server arms timers for all users' records, not a single user's.
type engineStore struct {
	notifications.Store
}

func (s engineStore) ListPending(ctx context.Context, _ string) ([]notifications.ScheduledNotification, error) {
	return s.Store.ListAllPending(ctx)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Delivery chain: FCM when configured, log output otherwise. One
	// dedup registry in front of both execution contexts.
	tokens := delivery.NewPGTokens(pool.Pool)
	var direct delivery.Displayer
	fcm, err := delivery.NewFCMDisplayer(ctx, cfg.FCMCredentialsFile, tokens, logger)
	if err != nil {
		logger.Error("Failed to initialize FCM", "error", err)
		os.Exit(1)
	}
	if fcm != nil {
		direct = fcm
		logger.Info("Push delivery enabled (FCM)")
	} else {
		direct = &delivery.LogDisplayer{Logger: logger}
		logger.Info("Push delivery disabled (no FCM_CREDENTIALS_FILE), logging notifications")
	}
	dedup := delivery.NewDedup(direct)

	// Background delivery context. Ephemeral: starts empty, re-seeded by
	// the scheduler on every resync.
	bg := background.New(delivery.BackgroundShower{Displayer: dedup},
		func(betID int64) {
			logger.Info("Notification clicked, opening pick", "bet_id", betID)
		}, logger)
	go bg.Run(ctx)

	channel := delivery.NewChannel(bg, dedup, logger)

	// Server-side permission: push delivery gates per user on active
	// tokens via the recipient query, so the engine session itself is
	// always granted.
	gate := notifications.NewGate(notifications.StaticCapability{
		IsSupported: true,
		Result:      notifications.PermissionGranted,
	})
	gate.Request(ctx)

	// Scheduling pipeline and stores
	store := notifications.NewPGStore(pool.Pool)
	prefs := notifications.NewPGPreferences(pool.Pool)
	builder := notifications.NewBuilder(
		picks.NewPGSource(pool.Pool),
		notifications.NewPGRecipients(pool.Pool),
		prefs, store, gate, logger)

	// Foreground scheduler for the engine session
	sched := scheduler.New(engineStore{store}, channel, bg, "engine", logger,
		scheduler.WithInterval(cfg.ResyncInterval))

	// Initial scheduling pass, then arm timers
	if result, err := builder.Run(ctx); err != nil {
		logger.Warn("Initial scheduling pass failed", "error", err)
	} else {
		logger.Info("Initial scheduling pass complete", "result", result.Summary())
	}
	sched.Init(ctx)
	defer sched.Dispose()

	// React to pick lifecycle events in real time
	go listener.Start(ctx, cfg.DatabaseURL, listener.Hooks{
		Published: func(ctx context.Context, betID int64) {
			if _, err := builder.Run(ctx); err != nil {
				logger.Warn("Scheduling pass for published pick failed", "bet_id", betID, "error", err)
				return
			}
			appCache.InvalidatePrefix("pending:")
			sched.ForceResync()
		},
		Cancelled: func(ctx context.Context, betID int64) {
			sched.HandleEventCancelled(ctx, betID)
			appCache.InvalidatePrefix("pending:")
		},
	}, logger)

	// Connectivity monitor: a restored connection forces a resync so
	// records missed while offline fire immediately.
	monitor := connectivity.New(func(ctx context.Context) error {
		return pool.Pool.Ping(ctx)
	}, logger, connectivity.WithInterval(cfg.ProbeInterval))
	monitor.OnReconnect(sched.ForceResync)
	go monitor.Run(ctx)

	// Maintenance tickers (sent-row cleanup, stale token sweep)
	go maintenance.Start(ctx, pool.Pool, maintenance.DefaultConfig(), logger)

	// HTTP API
	h := handler.New(pool.Pool, appCache, cfg, store, prefs, builder, sched, gate, monitor, tokens, fcm != nil)
	router := api.NewRouter(h)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting Leoncito Alert API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	bg.Teardown()
	logger.Info("Server stopped")
}
