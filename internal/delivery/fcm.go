package delivery

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/api/option"

	"github.com/JeffersonAlvarez16/leoncito/internal/notifications"
)

// TokenSource resolves a user's active push tokens. One token per install.
type TokenSource interface {
	Tokens(ctx context.Context, userID string) ([]string, error)
}

// PGTokens reads active tokens from the push_tokens table.
type PGTokens struct {
	pool *pgxpool.Pool
}

func NewPGTokens(pool *pgxpool.Pool) *PGTokens {
	return &PGTokens{pool: pool}
}

func (s *PGTokens) Tokens(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, "get_user_push_tokens", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// FCMDisplayer shows notifications through Firebase Cloud Messaging.
// Nil-safe: when not configured, Display is a no-op.
type FCMDisplayer struct {
	client *messaging.Client
	tokens TokenSource
	logger *slog.Logger
}

// NewFCMDisplayer creates an FCM displayer from a service account
// credentials file. Returns nil if credentialsFile is empty (push
// disabled; the channel then falls back to the direct displayer).
func NewFCMDisplayer(ctx context.Context, credentialsFile string, tokens TokenSource, logger *slog.Logger) (*FCMDisplayer, error) {
	if credentialsFile == "" {
		return nil, nil
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("fcm client: %w", err)
	}
	return &FCMDisplayer{client: client, tokens: tokens, logger: logger}, nil
}

// Display sends the notification to each of the user's device tokens. The
// dedup tag rides as the collapse key on both platforms, so the tray
// replaces a same-tag notification instead of stacking it.
func (d *FCMDisplayer) Display(ctx context.Context, n notifications.ScheduledNotification) error {
	if d == nil {
		return nil
	}

	tokens, err := d.tokens.Tokens(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("tokens for %s: %w", n.UserID, err)
	}
	if len(tokens) == 0 {
		return fmt.Errorf("no active tokens for user %s", n.UserID)
	}

	tag := n.DedupTag()
	msgs := make([]*messaging.Message, 0, len(tokens))
	for _, token := range tokens {
		msgs = append(msgs, &messaging.Message{
			Token: token,
			Notification: &messaging.Notification{
				Title: n.Title,
				Body:  n.Body,
			},
			Data: map[string]string{
				"bet_id":  fmt.Sprintf("%d", n.BetID),
				"channel": string(n.Channel),
				"tag":     tag,
			},
			Android: &messaging.AndroidConfig{
				CollapseKey: tag,
				Priority:    "high",
			},
			APNS: &messaging.APNSConfig{
				Headers: map[string]string{
					"apns-collapse-id": tag,
				},
			},
		})
	}

	resp, err := d.client.SendEach(ctx, msgs)
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	if resp.FailureCount > 0 {
		d.logger.Warn("fcm partial failure",
			"tag", tag, "sent", resp.SuccessCount, "failed", resp.FailureCount)
	}
	return nil
}
