package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tendalyze/tendalyze/internal/store"
)

const teamColumns = `team_id, team_name, mascot, city, state, division, region, district,
	team_code, created_at, updated_at`

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// TeamRepository handles team data access
type TeamRepository struct {
	q store.Querier
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *store.Database) *TeamRepository {
	return &TeamRepository{q: db.DB()}
}

// WithTx returns a copy of the repository bound to tx
func (r *TeamRepository) WithTx(tx *sql.Tx) *TeamRepository {
	return &TeamRepository{q: tx}
}

// GetAll returns all teams ordered by name
func (r *TeamRepository) GetAll(ctx context.Context) ([]*store.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams ORDER BY team_name, state, city`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying teams: %w", err)
	}
	defer rows.Close()

	var teams []*store.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		teams = append(teams, team)
	}

	return teams, rows.Err()
}

// GetByID finds a team by ID
func (r *TeamRepository) GetByID(ctx context.Context, teamID int) (*store.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE team_id = $1`

	team, err := scanTeam(r.q.QueryRowContext(ctx, query, teamID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("team %d: %w", teamID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying team: %w", err)
	}

	return team, nil
}

// GetByCode finds a team by its short code
func (r *TeamRepository) GetByCode(ctx context.Context, code string) (*store.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE team_code = $1`

	team, err := scanTeam(r.q.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("team code %q: %w", code, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying team: %w", err)
	}

	return team, nil
}

// GetByIdentity finds a team by its (name, city, state) identity. Null city
// or state match null.
func (r *TeamRepository) GetByIdentity(ctx context.Context, name string, city, state sql.NullString) (*store.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams
		WHERE team_name = $1
			AND city IS NOT DISTINCT FROM $2
			AND state IS NOT DISTINCT FROM $3`

	team, err := scanTeam(r.q.QueryRowContext(ctx, query, name, city, state))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("team %q (%s, %s): %w", name, city.String, state.String, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying team: %w", err)
	}

	return team, nil
}

// Create inserts a team and fills in its generated fields. A duplicate
// identity or code surfaces as the driver's unique violation.
func (r *TeamRepository) Create(ctx context.Context, team *store.Team) error {
	query := `
		INSERT INTO teams (team_name, mascot, city, state, division, region, district, team_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING team_id, created_at, updated_at
	`

	err := r.q.QueryRowContext(ctx, query,
		team.TeamName, team.Mascot, team.City, team.State,
		team.Division, team.Region, team.District, team.TeamCode,
	).Scan(&team.TeamID, &team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		return store.WrapWrite("inserting team", err)
	}

	return nil
}

// InsertIfAbsent inserts a team unless one with the same (name, city, state)
// already exists. It reports whether a row was written.
func (r *TeamRepository) InsertIfAbsent(ctx context.Context, team *store.Team) (bool, error) {
	query := `
		INSERT INTO teams (team_name, mascot, city, state, division, region, district, team_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT ON CONSTRAINT teams_unique_name_city_state
		DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query,
		team.TeamName, team.Mascot, team.City, team.State,
		team.Division, team.Region, team.District, team.TeamCode,
	)
	if err != nil {
		return false, store.WrapWrite("inserting team", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting team: %w", err)
	}

	return n == 1, nil
}

func scanTeam(s rowScanner) (*store.Team, error) {
	team := &store.Team{}
	err := s.Scan(
		&team.TeamID, &team.TeamName, &team.Mascot, &team.City, &team.State,
		&team.Division, &team.Region, &team.District, &team.TeamCode,
		&team.CreatedAt, &team.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return team, nil
}
