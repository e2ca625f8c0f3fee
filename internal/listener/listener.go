// Package listener provides a Postgres LISTEN/NOTIFY consumer for pick
// lifecycle events. It holds a dedicated pgx connection (not from the
// pool) listening on the `picks_changed` channel.
//
// A `published` event forces a scheduler resync so freshly inserted
// records arm without waiting for the next tick; a `cancelled` event
// removes the pick's pending records. Both are latency optimizations: the
// periodic resync remains the authority and covers any event missed while
// this consumer was disconnected.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	channel          = "picks_changed"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// PickEvent is the JSON payload from pg_notify('picks_changed', ...).
type PickEvent struct {
	Op    string `json:"op"` // "published" | "cancelled"
	BetID int64  `json:"bet_id"`
}

// Hooks receives decoded pick events.
type Hooks struct {
	// Published is called when a pick becomes eligible for scheduling.
	Published func(ctx context.Context, betID int64)
	// Cancelled is called when a pick is withdrawn.
	Cancelled func(ctx context.Context, betID int64)
}

// Start opens a dedicated connection and listens on the picks_changed
// channel. It reconnects automatically with capped exponential backoff.
// Blocks until ctx is cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, hooks Hooks, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, hooks, logger)
		if ctx.Err() != nil {
			logger.Info("Pick listener stopped (context cancelled)")
			return
		}

		logger.Error("Pick listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection
// drops or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, hooks Hooks, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Pick listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		var event PickEvent
		if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
			logger.Warn("Failed to parse pick event",
				"payload", notification.Payload, "error", err)
			continue
		}

		logger.Info("Pick event received", "op", event.Op, "bet_id", event.BetID)

		switch event.Op {
		case "published":
			if hooks.Published != nil {
				go hooks.Published(ctx, event.BetID)
			}
		case "cancelled":
			if hooks.Cancelled != nil {
				go hooks.Cancelled(ctx, event.BetID)
			}
		default:
			logger.Warn("Unknown pick event op", "op", event.Op)
		}
	}
}
