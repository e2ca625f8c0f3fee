package delivery

import (
	"context"

	"github.com/JeffersonAlvarez16/leoncito/internal/background"
	"github.com/JeffersonAlvarez16/leoncito/internal/notifications"
)

// BackgroundShower adapts the shared displayer chain to the background
// context's display primitive. Both execution contexts render through the
// same dedup registry, so a foreground catch-up and a background timer
// racing on one tag still collapse to a single visible notification.
type BackgroundShower struct {
	Displayer Displayer
}

func (s BackgroundShower) Show(ctx context.Context, r background.Record) error {
	return s.Displayer.Display(ctx, notifications.ScheduledNotification{
		ID:            r.ID,
		BetID:         r.BetID,
		UserID:        r.UserID,
		Channel:       notifications.Channel(r.Channel),
		ScheduledTime: r.ScheduledTime,
		Title:         r.Title,
		Body:          r.Body,
	})
}
