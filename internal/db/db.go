// Package db provides a pgxpool-based connection pool with prepared
// statement registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JeffersonAlvarez16/leoncito/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers every statement the alert engine
// issues. Prepared statements eliminate parse overhead on every firing and
// resync.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Picks (read-only view of the betting subsystem)
		"list_upcoming_bets": `
			SELECT id, title, starts_at FROM bets
			WHERE status = 'published' AND starts_at > NOW()
			ORDER BY starts_at`,
		"bet_selections": `
			SELECT home_team, away_team, market FROM bet_selections
			WHERE bet_id = $1 ORDER BY id`,

		// Scheduled notifications. The partial unique index
		// ux_pending_alert(bet_id, user_id, channel) WHERE NOT sent backs
		// idempotent creation.
		"insert_scheduled_notification": `
			INSERT INTO scheduled_notifications
				(bet_id, user_id, channel, scheduled_time, title, body)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (bet_id, user_id, channel) WHERE NOT sent DO NOTHING`,
		"list_pending_notifications": `
			SELECT id, bet_id, user_id, channel, scheduled_time, sent, title, body, created_at
			FROM scheduled_notifications
			WHERE user_id = $1 AND sent = false
			ORDER BY scheduled_time`,
		"list_all_pending_notifications": `
			SELECT id, bet_id, user_id, channel, scheduled_time, sent, title, body, created_at
			FROM scheduled_notifications
			WHERE sent = false
			ORDER BY scheduled_time`,
		"mark_notification_sent": `
			UPDATE scheduled_notifications
			SET sent = true, sent_at = NOW()
			WHERE id = $1 AND sent = false`,
		"delete_bet_notifications": `
			DELETE FROM scheduled_notifications
			WHERE bet_id = $1 AND sent = false
			RETURNING id`,

		// Preferences (lazily created, all flags default true)
		"get_notification_preferences": `
			SELECT master, before_30min, before_5min, live
			FROM notification_preferences WHERE user_id = $1`,
		"insert_default_preferences": `
			INSERT INTO notification_preferences (user_id)
			VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		"upsert_notification_preferences": `
			INSERT INTO notification_preferences
				(user_id, master, before_30min, before_5min, live)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id) DO UPDATE SET
				master = EXCLUDED.master,
				before_30min = EXCLUDED.before_30min,
				before_5min = EXCLUDED.before_5min,
				live = EXCLUDED.live,
				updated_at = NOW()`,

		// Push tokens
		"get_user_push_tokens": `
			SELECT token FROM push_tokens
			WHERE user_id = $1 AND is_active = true`,
		"list_alert_recipients": `
			SELECT DISTINCT user_id FROM push_tokens
			WHERE is_active = true`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
