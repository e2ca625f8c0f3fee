package notifications

import (
	"time"

	"github.com/JeffersonAlvarez16/leoncito/internal/picks"
)

// Plan computes the still-future fire times for one pick, filtered by the
// user's preferences. Pure: the same inputs always yield the same plan.
//
// Each enabled channel contributes start-offset, included only when that
// instant is strictly after now. A pick that already kicked off yields an
// empty plan — a stale "30 minutes before" alert delivered after the window
// closed is worse than no alert, so elapsed offsets are never created.
// A pick with a zero start time is excluded the same way, never an error.
func Plan(p picks.Pick, now time.Time, prefs Preferences) []FireTime {
	if p.StartsAt.IsZero() || !p.StartsAt.After(now) {
		return nil
	}
	if !prefs.Master {
		return nil
	}

	var plan []FireTime
	for _, c := range AllChannels {
		if !prefs.Allows(c) {
			continue
		}
		at := p.StartsAt.Add(-c.Offset())
		if at.After(now) {
			plan = append(plan, FireTime{Channel: c, At: at})
		}
	}
	return plan
}
