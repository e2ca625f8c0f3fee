package picks

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSource reads published picks from Postgres via prepared statements.
type PGSource struct {
	pool *pgxpool.Pool
}

// NewPGSource creates a Postgres-backed pick source.
func NewPGSource(pool *pgxpool.Pool) *PGSource {
	return &PGSource{pool: pool}
}

// ListUpcoming returns published picks whose start time is in the future,
// ordered by start time, with their selections attached.
func (s *PGSource) ListUpcoming(ctx context.Context) ([]Pick, error) {
	rows, err := s.pool.Query(ctx, "list_upcoming_bets")
	if err != nil {
		return nil, fmt.Errorf("list upcoming bets: %w", err)
	}
	defer rows.Close()

	var result []Pick
	for rows.Next() {
		var p Pick
		if err := rows.Scan(&p.ID, &p.Title, &p.StartsAt); err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		sels, err := s.selections(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Selections = sels
	}
	return result, nil
}

func (s *PGSource) selections(ctx context.Context, betID int64) ([]Selection, error) {
	rows, err := s.pool.Query(ctx, "bet_selections", betID)
	if err != nil {
		return nil, fmt.Errorf("bet %d selections: %w", betID, err)
	}
	defer rows.Close()

	var sels []Selection
	for rows.Next() {
		var sel Selection
		if err := rows.Scan(&sel.HomeTeam, &sel.AwayTeam, &sel.Market); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		sels = append(sels, sel)
	}
	return sels, rows.Err()
}
