package notifications

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the durable, queryable home of scheduled notification records —
// the single source of truth across session restarts and across users.
//
// ListPending returns every sent=false record, elapsed ones included: a
// record whose scheduled time passed while the session was suspended still
// needs its catch-up firing, and the scheduler decides when that happens.
// MarkSent is idempotent; the second call on the same id is a no-op so the
// foreground/background firing race cannot double-mark.
type Store interface {
	// CreateMany inserts records in bulk. A conflicting unsent
	// (bet, user, channel) is left untouched, not duplicated. Returns the
	// number of rows actually inserted.
	CreateMany(ctx context.Context, records []ScheduledNotification) (int, error)

	// ListPending returns all unsent records for one user, ordered by
	// scheduled time.
	ListPending(ctx context.Context, userID string) ([]ScheduledNotification, error)

	// ListAllPending is the administrative all-users view. Read-only.
	ListAllPending(ctx context.Context) ([]ScheduledNotification, error)

	// MarkSent flips sent to true. Calling it twice, or on a deleted
	// record, succeeds with no further effect.
	MarkSent(ctx context.Context, id int64) error

	// DeleteByEvent removes the unsent records of a cancelled pick and
	// returns their ids so delivery-side timers can be cancelled too.
	// Sent history is retained for the admin view.
	DeleteByEvent(ctx context.Context, betID int64) ([]int64, error)
}

// --------------------------------------------------------------------------
// Postgres implementation
// --------------------------------------------------------------------------

// PGStore persists scheduled notifications in Postgres via the prepared
// statements registered in internal/db. Idempotent creation rides on the
// partial unique index over (bet_id, user_id, channel) WHERE NOT sent.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Postgres-backed store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) CreateMany(ctx context.Context, records []ScheduledNotification) (int, error) {
	inserted := 0
	for _, n := range records {
		tag, err := s.pool.Exec(ctx, "insert_scheduled_notification",
			n.BetID, n.UserID, string(n.Channel), n.ScheduledTime, n.Title, n.Body)
		if err != nil {
			return inserted, fmt.Errorf("insert notification bet=%d channel=%s: %w", n.BetID, n.Channel, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (s *PGStore) ListPending(ctx context.Context, userID string) ([]ScheduledNotification, error) {
	rows, err := s.pool.Query(ctx, "list_pending_notifications", userID)
	if err != nil {
		return nil, fmt.Errorf("list pending for %s: %w", userID, err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (s *PGStore) ListAllPending(ctx context.Context) ([]ScheduledNotification, error) {
	rows, err := s.pool.Query(ctx, "list_all_pending_notifications")
	if err != nil {
		return nil, fmt.Errorf("list all pending: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (s *PGStore) MarkSent(ctx context.Context, id int64) error {
	// The sent=false guard makes the second call (and a call on a deleted
	// row) affect zero rows, which is success here.
	if _, err := s.pool.Exec(ctx, "mark_notification_sent", id); err != nil {
		return fmt.Errorf("mark sent %d: %w", id, err)
	}
	return nil
}

func (s *PGStore) DeleteByEvent(ctx context.Context, betID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, "delete_bet_notifications", betID)
	if err != nil {
		return nil, fmt.Errorf("delete notifications for bet %d: %w", betID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan deleted id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type notificationRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanNotifications(rows notificationRows) ([]ScheduledNotification, error) {
	var result []ScheduledNotification
	for rows.Next() {
		var n ScheduledNotification
		var channel string
		if err := rows.Scan(&n.ID, &n.BetID, &n.UserID, &channel,
			&n.ScheduledTime, &n.Sent, &n.Title, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Channel = Channel(channel)
		result = append(result, n)
	}
	return result, rows.Err()
}
