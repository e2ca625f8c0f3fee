// Package delivery owns the "show notification" primitive. A Channel
// routes a firing through the background delivery context when one is
// reachable and falls back to a direct display otherwise. Every display
// carries the record's dedup tag; same-tag displays replace each other, so
// the foreground/background firing race collapses to one visible alert.
package delivery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/JeffersonAlvarez16/leoncito/internal/background"
	"github.com/JeffersonAlvarez16/leoncito/internal/notifications"
)

// Displayer renders one notification. A display error is logged and not
// retried — a missed immediate display cannot be meaningfully replayed.
type Displayer interface {
	Display(ctx context.Context, n notifications.ScheduledNotification) error
}

// Backend is a background delivery context as seen from the channel: it may
// be torn down at any moment, so reachability is checked per firing.
type Backend interface {
	Reachable() bool
	Display(ctx context.Context, n notifications.ScheduledNotification) error
}

// Channel is the delivery entry point used by schedulers.
type Channel struct {
	background Backend
	direct     Displayer
	logger     *slog.Logger
}

// NewChannel creates a channel. background may be nil when no background
// context exists (degraded foreground-only mode).
func NewChannel(background Backend, direct Displayer, logger *slog.Logger) *Channel {
	return &Channel{background: background, direct: direct, logger: logger}
}

// Display shows one notification, preferring the background context. The
// reachability check races with teardown; losing that race just falls back
// to the direct path.
func (c *Channel) Display(ctx context.Context, n notifications.ScheduledNotification) {
	var err error
	if c.background != nil && c.background.Reachable() {
		err = c.background.Display(ctx, n)
		if errors.Is(err, background.ErrUnreachable) {
			err = c.direct.Display(ctx, n)
		}
	} else {
		err = c.direct.Display(ctx, n)
	}
	if err != nil {
		c.logger.Warn("display failed", "tag", n.DedupTag(), "error", err)
	}
}

// --------------------------------------------------------------------------
// Tag-based deduplication
// --------------------------------------------------------------------------

// DedupWindow is how long a displayed tag suppresses a repeat display.
// Long enough to absorb the foreground/background race and an offline
// MarkSent retry, short enough not to swallow a genuinely new alert cycle.
const DedupWindow = 2 * time.Minute

// Dedup wraps a Displayer with tag-replacement semantics: a second display
// of a tag seen within the window replaces the first instead of stacking a
// duplicate. This mirrors the native same-tag behavior of platform
// notification trays and is the primary dedup mechanism.
type Dedup struct {
	next Displayer

	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// NewDedup wraps next with tag deduplication.
func NewDedup(next Displayer) *Dedup {
	return &Dedup{next: next, seen: make(map[string]time.Time), now: time.Now}
}

func (d *Dedup) Display(ctx context.Context, n notifications.ScheduledNotification) error {
	tag := n.DedupTag()
	now := d.now()

	d.mu.Lock()
	last, dup := d.seen[tag]
	if dup && now.Sub(last) >= DedupWindow {
		dup = false
	}
	d.seen[tag] = now
	// Occasional sweep so the map does not grow with dead tags.
	if len(d.seen) > 256 {
		for t, at := range d.seen {
			if now.Sub(at) >= DedupWindow {
				delete(d.seen, t)
			}
		}
	}
	d.mu.Unlock()

	if dup {
		// Replacement: the earlier display already shows this tag.
		return nil
	}
	return d.next.Display(ctx, n)
}

// --------------------------------------------------------------------------
// Direct displayer
// --------------------------------------------------------------------------

// LogDisplayer renders notifications to the log. The direct fallback in
// development and in degraded mode when push is not configured.
type LogDisplayer struct {
	Logger *slog.Logger
}

func (d *LogDisplayer) Display(ctx context.Context, n notifications.ScheduledNotification) error {
	d.Logger.Info("notification",
		"tag", n.DedupTag(),
		"user_id", n.UserID,
		"title", n.Title,
		"body", n.Body)
	return nil
}
