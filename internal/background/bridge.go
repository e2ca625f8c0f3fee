package background

import (
	"context"
	"errors"

	"github.com/JeffersonAlvarez16/leoncito/internal/notifications"
)

// ErrUnreachable is returned when a display is requested while the context
// is torn down; the delivery channel then falls back to a direct display.
var ErrUnreachable = errors.New("background context unreachable")

// Display satisfies the delivery channel's backend: an immediate display
// routed through this context instead of a pre-armed timer.
func (c *Context) Display(ctx context.Context, n notifications.ScheduledNotification) error {
	c.mu.Lock()
	alive := c.alive
	c.mu.Unlock()
	if !alive {
		return ErrUnreachable
	}
	return c.shower.Show(ctx, toRecord(n))
}

// Schedule seeds one record from the foreground scheduler's resync.
func (c *Context) Schedule(n notifications.ScheduledNotification) {
	c.Post(Message{Type: MsgSchedule, Record: toRecord(n)})
}

// Cancel drops one record's timer after the store row was deleted.
func (c *Context) Cancel(id int64) {
	c.Post(Message{Type: MsgCancel, RecordID: id})
}

func toRecord(n notifications.ScheduledNotification) Record {
	return Record{
		ID:            n.ID,
		BetID:         n.BetID,
		UserID:        n.UserID,
		Channel:       string(n.Channel),
		ScheduledTime: n.ScheduledTime,
		Title:         n.Title,
		Body:          n.Body,
		DedupTag:      n.DedupTag(),
	}
}
