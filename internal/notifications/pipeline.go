package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JeffersonAlvarez16/leoncito/internal/picks"
)

// RecipientSource lists the users eligible to receive alerts. The Postgres
// implementation derives this from active push-token registrations: one
// token per install, so a user without a token has nowhere to be notified.
type RecipientSource interface {
	ListRecipients(ctx context.Context) ([]string, error)
}

// PGRecipients reads recipients from the push_tokens table.
type PGRecipients struct {
	pool *pgxpool.Pool
}

func NewPGRecipients(pool *pgxpool.Pool) *PGRecipients {
	return &PGRecipients{pool: pool}
}

func (s *PGRecipients) ListRecipients(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "list_alert_recipients")
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// BuildResult tracks the outcome of one scheduling pass.
type BuildResult struct {
	Picks    int
	Users    int
	Created  int
	Duration time.Duration
}

// Summary returns a human-readable summary.
func (r *BuildResult) Summary() string {
	return fmt.Sprintf("picks=%d users=%d created=%d dur=%s",
		r.Picks, r.Users, r.Created, r.Duration.Round(time.Millisecond))
}

// Builder runs the bulk scheduling pass: every upcoming published pick,
// fanned out to every recipient whose preferences allow at least one
// channel, planned and persisted idempotently. Re-running the pass never
// duplicates pending records, so it is safe to trigger from the resync
// tick, the admin endpoint, and the CLI at once.
type Builder struct {
	source     picks.Source
	recipients RecipientSource
	prefs      PreferenceStore
	store      Store
	gate       *Gate
	logger     *slog.Logger

	now func() time.Time
}

// NewBuilder wires a scheduling pipeline.
func NewBuilder(source picks.Source, recipients RecipientSource, prefs PreferenceStore, store Store, gate *Gate, logger *slog.Logger) *Builder {
	return &Builder{
		source:     source,
		recipients: recipients,
		prefs:      prefs,
		store:      store,
		gate:       gate,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes one scheduling pass. Permission denied means zero records,
// regardless of preferences. Per-user failures are logged and skipped; the
// pass keeps going.
func (b *Builder) Run(ctx context.Context) (BuildResult, error) {
	start := b.now()
	var result BuildResult

	if !b.gate.Granted() {
		b.logger.Info("Scheduling skipped, permission not granted", "state", b.gate.State())
		result.Duration = b.now().Sub(start)
		return result, nil
	}

	upcoming, err := b.source.ListUpcoming(ctx)
	if err != nil {
		return result, fmt.Errorf("list upcoming picks: %w", err)
	}
	result.Picks = len(upcoming)
	if len(upcoming) == 0 {
		result.Duration = b.now().Sub(start)
		return result, nil
	}

	users, err := b.recipients.ListRecipients(ctx)
	if err != nil {
		return result, fmt.Errorf("list recipients: %w", err)
	}
	result.Users = len(users)

	now := b.now()
	for _, user := range users {
		prefs, err := b.prefs.Get(ctx, user)
		if err != nil {
			b.logger.Warn("get preferences failed", "user_id", user, "error", err)
			continue
		}
		if !prefs.AllowsAny() {
			continue
		}

		var batch []ScheduledNotification
		for _, p := range upcoming {
			for _, ft := range Plan(p, now, prefs) {
				title, body := RenderContent(p, ft.Channel)
				batch = append(batch, ScheduledNotification{
					BetID:         p.ID,
					UserID:        user,
					Channel:       ft.Channel,
					ScheduledTime: ft.At,
					Title:         title,
					Body:          body,
				})
			}
		}
		if len(batch) == 0 {
			continue
		}

		inserted, err := b.store.CreateMany(ctx, batch)
		if err != nil {
			b.logger.Warn("create notifications failed", "user_id", user, "error", err)
			continue
		}
		result.Created += inserted
	}

	result.Duration = b.now().Sub(start)
	b.logger.Info("Scheduling pass complete", "summary", result.Summary())
	return result, nil
}
