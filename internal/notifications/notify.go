// Package notifications implements the pick alert engine core: fire-time
// planning, durable scheduled-notification records, per-user preferences,
// and the notification permission gate.
//
// Pipeline: upcoming picks → Plan → Store.CreateMany → foreground scheduler
// (arm timers) → delivery channel (fire) → Store.MarkSent.
package notifications

import (
	"fmt"
	"time"

	"github.com/JeffersonAlvarez16/leoncito/internal/picks"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// ResyncInterval is the foreground scheduler's repeating resync period.
// Freshly inserted records are picked up within one interval without a
// session restart.
const ResyncInterval = 60 * time.Second

// Channel identifies one of the three fixed alert offsets for a pick.
type Channel string

const (
	Channel30Min Channel = "30min"
	Channel5Min  Channel = "5min"
	ChannelLive  Channel = "live"
)

// AllChannels in firing order.
var AllChannels = []Channel{Channel30Min, Channel5Min, ChannelLive}

// Offset returns how long before kick-off this channel fires.
func (c Channel) Offset() time.Duration {
	switch c {
	case Channel30Min:
		return 30 * time.Minute
	case Channel5Min:
		return 5 * time.Minute
	default:
		return 0
	}
}

// Valid reports whether c is a known channel type.
func (c Channel) Valid() bool {
	switch c {
	case Channel30Min, Channel5Min, ChannelLive:
		return true
	}
	return false
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// ScheduledNotification is one durable row per (pick, user, channel).
// ScheduledTime is immutable after insert; Sent transitions false→true
// exactly once and is the only field mutated under normal operation.
// Title and Body are rendered at creation time so historical records stay
// reproducible even if the pick's display text later changes.
type ScheduledNotification struct {
	ID            int64     `json:"id"`
	BetID         int64     `json:"bet_id"`
	UserID        string    `json:"user_id"`
	Channel       Channel   `json:"channel"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Sent          bool      `json:"sent"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"created_at"`
}

// DedupTag derives the delivery-level deduplication tag. Two in-flight
// displays carrying the same tag collapse to a single visible notification,
// which is what makes the foreground/background firing race harmless.
func (n *ScheduledNotification) DedupTag() string {
	return DedupTag(n.BetID, n.Channel)
}

// DedupTag is deterministic over (bet, channel) so every execution context
// computes the same tag for the same logical alert.
func DedupTag(betID int64, c Channel) string {
	return fmt.Sprintf("bet-%d-%s", betID, c)
}

// FireTime is one planned future firing for a pick.
type FireTime struct {
	Channel Channel
	At      time.Time
}

// RenderContent produces the alert title and body for one channel of a
// pick. Text is fixed at record creation, never re-derived at fire time.
func RenderContent(p picks.Pick, c Channel) (title, body string) {
	switch c {
	case Channel30Min:
		return "⚽ Pick disponible en 30 min", fmt.Sprintf("%s - %s", p.Title, p.Market())
	case Channel5Min:
		return "🔥 ¡Pick empezando ya!", fmt.Sprintf("%s - Solo quedan 5 minutos", p.Title)
	default:
		return "🚨 ¡Partido en vivo!", fmt.Sprintf("%s - El pick está activo", p.Title)
	}
}
