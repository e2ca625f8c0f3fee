// Package maintenance runs periodic background tasks as Go tickers — the
// service is already persistent and long-running for LISTEN/NOTIFY, so
// scheduled housekeeping lives here instead of pg_cron.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	CleanupInterval    time.Duration // Aged-out sent notification rows
	TokenSweepInterval time.Duration // Stale push-token deactivation
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		CleanupInterval:    30 * time.Minute,
		TokenSweepInterval: 6 * time.Hour,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, pool *pgxpool.Pool, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"cleanup", cfg.CleanupInterval,
		"token_sweep", cfg.TokenSweepInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if cfg.CleanupInterval > 0 {
		t := time.NewTicker(cfg.CleanupInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { cleanup(ctx, pool, logger) })
	}

	if cfg.TokenSweepInterval > 0 {
		t := time.NewTicker(cfg.TokenSweepInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { sweepTokens(ctx, pool, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// cleanup ages out sent notification rows. Sent history stays visible in
// the admin view for 30 days, then goes. Unsent rows are never touched —
// cancellation is the only thing that deletes those.
func cleanup(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) {
	tag, err := pool.Exec(ctx, `
		DELETE FROM scheduled_notifications
		WHERE sent = true
		  AND sent_at < NOW() - INTERVAL '30 days'`)
	if err != nil {
		logger.Warn("Cleanup: failed to purge old notifications", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Cleanup: purged old notifications", "count", tag.RowsAffected())
	}
}

// sweepTokens deactivates push tokens that have not been refreshed in 90
// days. A token refresh happens on every app start, so a stale token is a
// dead install.
func sweepTokens(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) {
	tag, err := pool.Exec(ctx, `
		UPDATE push_tokens
		SET is_active = false, updated_at = NOW()
		WHERE is_active = true
		  AND updated_at < NOW() - INTERVAL '90 days'`)
	if err != nil {
		logger.Warn("Token sweep: failed", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Token sweep: deactivated stale tokens", "count", tag.RowsAffected())
	}
}
