// Package picks exposes the read-only view of published betting picks that
// the alert engine consumes. Pick administration (creation, editing,
// publishing, settlement) belongs to a separate subsystem — this package
// only answers which published picks still start in the future and what to
// call them in an alert.
package picks

import (
	"context"
	"time"
)

// Selection is one market line attached to a pick. Only display fields are
// carried; odds and stake live with the commerce subsystem.
type Selection struct {
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
	Market   string `json:"market"`
}

// Pick is a published bet with a scheduled kick-off.
type Pick struct {
	ID         int64       `json:"id"`
	Title      string      `json:"title"`
	StartsAt   time.Time   `json:"starts_at"`
	Selections []Selection `json:"selections"`
}

// Market returns the first selection's market, or a generic label when the
// pick has no selections attached yet.
func (p *Pick) Market() string {
	if len(p.Selections) > 0 && p.Selections[0].Market != "" {
		return p.Selections[0].Market
	}
	return "Nueva apuesta"
}

// Source lists picks that are eligible for alert scheduling: published,
// with a start time still in the future.
type Source interface {
	ListUpcoming(ctx context.Context) ([]Pick, error)
}
