package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tendalyze/tendalyze/internal/store"
)

// FormationTendency aggregates one offense's plays out of one formation
type FormationTendency struct {
	Formation  string  `json:"formation"`
	Plays      int     `json:"plays"`
	Runs       int     `json:"runs"`
	Passes     int     `json:"passes"`
	TotalYards int     `json:"total_yards"`
	AvgYards   float64 `json:"avg_yards"`
	Share      float64 `json:"share"`
	RunPct     float64 `json:"run_pct"`
	PassPct    float64 `json:"pass_pct"`
}

// TeamGameTotals aggregates one team's offensive plays within a game
type TeamGameTotals struct {
	TeamID     int     `json:"team_id"`
	Plays      int     `json:"plays"`
	Runs       int     `json:"runs"`
	Passes     int     `json:"passes"`
	TotalYards int     `json:"total_yards"`
	AvgYards   float64 `json:"avg_yards"`
}

// Play types counted as runs and passes. Compared case-insensitively.
const (
	runTypes  = `('run', 'rush')`
	passTypes = `('pass')`
)

// StatsRepository runs aggregate queries over plays
type StatsRepository struct {
	q store.Querier
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *store.Database) *StatsRepository {
	return &StatsRepository{q: db.DB()}
}

// FormationTendencies groups an offense's plays by normalized formation.
// Season filters through games when valid. Plays without a normalized
// formation are grouped under "UNKNOWN".
func (r *StatsRepository) FormationTendencies(ctx context.Context, teamID int, season sql.NullInt32) ([]*FormationTendency, error) {
	query := `
		SELECT
			COALESCE(p.formation_norm, 'UNKNOWN') AS formation,
			COUNT(*) AS plays,
			COUNT(*) FILTER (WHERE LOWER(p.play_type) IN ` + runTypes + `) AS runs,
			COUNT(*) FILTER (WHERE LOWER(p.play_type) IN ` + passTypes + `) AS passes,
			COALESCE(SUM(p.yards_gained), 0) AS total_yards
		FROM plays p
		JOIN games g ON g.game_id = p.game_id
		WHERE p.offense_team_id = $1
			AND ($2::int IS NULL OR g.season = $2)
		GROUP BY 1
		ORDER BY plays DESC, formation
	`

	rows, err := r.q.QueryContext(ctx, query, teamID, season)
	if err != nil {
		return nil, fmt.Errorf("querying formation tendencies: %w", err)
	}
	defer rows.Close()

	var (
		out   []*FormationTendency
		total int
	)
	for rows.Next() {
		t := &FormationTendency{}
		if err := rows.Scan(&t.Formation, &t.Plays, &t.Runs, &t.Passes, &t.TotalYards); err != nil {
			return nil, fmt.Errorf("scanning formation tendency: %w", err)
		}
		total += t.Plays
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range out {
		t.AvgYards = ratio(t.TotalYards, t.Plays)
		t.Share = ratio(t.Plays, total)
		t.RunPct = ratio(t.Runs, t.Plays)
		t.PassPct = ratio(t.Passes, t.Plays)
	}

	return out, nil
}

// GameTeamTotals returns per-offense totals for one game
func (r *StatsRepository) GameTeamTotals(ctx context.Context, gameID int) ([]*TeamGameTotals, error) {
	query := `
		SELECT
			offense_team_id,
			COUNT(*) AS plays,
			COUNT(*) FILTER (WHERE LOWER(play_type) IN ` + runTypes + `) AS runs,
			COUNT(*) FILTER (WHERE LOWER(play_type) IN ` + passTypes + `) AS passes,
			COALESCE(SUM(yards_gained), 0) AS total_yards
		FROM plays
		WHERE game_id = $1
		GROUP BY offense_team_id
		ORDER BY offense_team_id
	`

	rows, err := r.q.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("querying game totals: %w", err)
	}
	defer rows.Close()

	var out []*TeamGameTotals
	for rows.Next() {
		t := &TeamGameTotals{}
		if err := rows.Scan(&t.TeamID, &t.Plays, &t.Runs, &t.Passes, &t.TotalYards); err != nil {
			return nil, fmt.Errorf("scanning game totals: %w", err)
		}
		t.AvgYards = ratio(t.TotalYards, t.Plays)
		out = append(out, t)
	}

	return out, rows.Err()
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
