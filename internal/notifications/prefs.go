package notifications

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Preferences holds one user's master switch and per-channel opt-ins.
// Preferences gate future record creation only — flipping a flag never
// touches records that already exist.
type Preferences struct {
	UserID      string `json:"user_id"`
	Master      bool   `json:"master"`
	Before30Min bool   `json:"30min"`
	Before5Min  bool   `json:"5min"`
	Live        bool   `json:"live"`
}

// DefaultPreferences is the lazily-created first-read row: everything on.
func DefaultPreferences(userID string) Preferences {
	return Preferences{UserID: userID, Master: true, Before30Min: true, Before5Min: true, Live: true}
}

// Allows reports whether the flag for a single channel is set. The master
// switch is checked separately by the planner.
func (p Preferences) Allows(c Channel) bool {
	switch c {
	case Channel30Min:
		return p.Before30Min
	case Channel5Min:
		return p.Before5Min
	case ChannelLive:
		return p.Live
	}
	return false
}

// AllowsAny reports whether at least one channel would be scheduled.
func (p Preferences) AllowsAny() bool {
	return p.Master && (p.Before30Min || p.Before5Min || p.Live)
}

// PreferenceStore reads and persists per-user notification preferences.
// Get creates the row with all-true defaults on first access.
type PreferenceStore interface {
	Get(ctx context.Context, userID string) (Preferences, error)
	Put(ctx context.Context, prefs Preferences) error
}

// --------------------------------------------------------------------------
// Postgres implementation
// --------------------------------------------------------------------------

// PGPreferences is the Postgres-backed preference store.
type PGPreferences struct {
	pool *pgxpool.Pool
}

// NewPGPreferences creates a Postgres-backed preference store.
func NewPGPreferences(pool *pgxpool.Pool) *PGPreferences {
	return &PGPreferences{pool: pool}
}

// Get returns the user's preferences, inserting the all-true default row
// on first access.
func (s *PGPreferences) Get(ctx context.Context, userID string) (Preferences, error) {
	p := Preferences{UserID: userID}
	err := s.pool.QueryRow(ctx, "get_notification_preferences", userID).
		Scan(&p.Master, &p.Before30Min, &p.Before5Min, &p.Live)
	if err == nil {
		return p, nil
	}
	if err != pgx.ErrNoRows {
		return Preferences{}, fmt.Errorf("get preferences for %s: %w", userID, err)
	}

	defaults := DefaultPreferences(userID)
	// Concurrent first reads race benignly: the conflict clause keeps the
	// first row and both callers observe the same defaults.
	if _, err := s.pool.Exec(ctx, "insert_default_preferences", userID); err != nil {
		return Preferences{}, fmt.Errorf("create default preferences for %s: %w", userID, err)
	}
	return defaults, nil
}

// Put upserts the user's preference row.
func (s *PGPreferences) Put(ctx context.Context, prefs Preferences) error {
	_, err := s.pool.Exec(ctx, "upsert_notification_preferences",
		prefs.UserID, prefs.Master, prefs.Before30Min, prefs.Before5Min, prefs.Live)
	if err != nil {
		return fmt.Errorf("upsert preferences for %s: %w", prefs.UserID, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// In-memory implementation
// --------------------------------------------------------------------------

// MemPreferences is the in-memory preference store used by the degraded
// no-database fallback and by tests.
type MemPreferences struct {
	mu    sync.Mutex
	prefs map[string]Preferences
}

// NewMemPreferences creates an empty in-memory preference store.
func NewMemPreferences() *MemPreferences {
	return &MemPreferences{prefs: make(map[string]Preferences)}
}

func (s *MemPreferences) Get(ctx context.Context, userID string) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.prefs[userID]; ok {
		return p, nil
	}
	p := DefaultPreferences(userID)
	s.prefs[userID] = p
	return p, nil
}

func (s *MemPreferences) Put(ctx context.Context, prefs Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[prefs.UserID] = prefs
	return nil
}
