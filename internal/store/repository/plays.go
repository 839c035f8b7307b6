package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/tendalyze/tendalyze/internal/store"
)

const playColumns = `play_id, drive_id, game_id, offense_team_id, defense_team_id, quarter, clock,
	down, distance, yard_line, hash_mark, formation_raw, formation_norm, personnel,
	play_type, run_direction, pass_zone, yards_gained, result, created_at`

// PlayRepository handles play data access
type PlayRepository struct {
	q store.Querier
}

// NewPlayRepository creates a new play repository
func NewPlayRepository(db *store.Database) *PlayRepository {
	return &PlayRepository{q: db.DB()}
}

// WithTx returns a copy of the repository bound to tx
func (r *PlayRepository) WithTx(tx *sql.Tx) *PlayRepository {
	return &PlayRepository{q: tx}
}

// Create inserts a play and fills in PlayID and CreatedAt
func (r *PlayRepository) Create(ctx context.Context, play *store.Play) error {
	query := `
		INSERT INTO plays (drive_id, game_id, offense_team_id, defense_team_id, quarter, clock,
			down, distance, yard_line, hash_mark, formation_raw, formation_norm, personnel,
			play_type, run_direction, pass_zone, yards_gained, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING play_id, created_at
	`

	err := r.q.QueryRowContext(ctx, query,
		play.DriveID, play.GameID, play.OffenseTeamID, play.DefenseTeamID,
		play.Quarter, play.Clock, play.Down, play.Distance, play.YardLine, play.HashMark,
		play.FormationRaw, play.FormationNorm, play.Personnel, play.PlayType,
		play.RunDirection, play.PassZone, play.YardsGained, play.Result,
	).Scan(&play.PlayID, &play.CreatedAt)
	if err != nil {
		return store.WrapWrite("inserting play", err)
	}

	return nil
}

// GetByID finds a play by ID
func (r *PlayRepository) GetByID(ctx context.Context, playID int) (*store.Play, error) {
	query := `SELECT ` + playColumns + ` FROM plays WHERE play_id = $1`

	play, err := scanPlay(r.q.QueryRowContext(ctx, query, playID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("play %d: %w", playID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying play: %w", err)
	}

	return play, nil
}

// GetByGame returns every play of a game in snap order. Served by
// idx_plays_game_id.
func (r *PlayRepository) GetByGame(ctx context.Context, gameID int) ([]*store.Play, error) {
	query := `SELECT ` + playColumns + ` FROM plays WHERE game_id = $1 ORDER BY play_id`

	rows, err := r.q.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("querying plays: %w", err)
	}
	defer rows.Close()

	return scanPlays(rows)
}

// GetByDrive returns the plays of a drive in snap order
func (r *PlayRepository) GetByDrive(ctx context.Context, driveID int) ([]*store.Play, error) {
	query := `SELECT ` + playColumns + ` FROM plays WHERE drive_id = $1 ORDER BY play_id`

	rows, err := r.q.QueryContext(ctx, query, driveID)
	if err != nil {
		return nil, fmt.Errorf("querying drive plays: %w", err)
	}
	defer rows.Close()

	return scanPlays(rows)
}

// Count returns the number of rows in plays
func (r *PlayRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM plays`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting plays: %w", err)
	}
	return n, nil
}

// UnnormalizedFormation is a play whose formation_norm has not been derived yet
type UnnormalizedFormation struct {
	PlayID       int
	FormationRaw string
}

// ListUnnormalized returns up to limit plays that have a raw formation but no
// normalized one, lowest play_id first and strictly after afterID.
func (r *PlayRepository) ListUnnormalized(ctx context.Context, afterID, limit int) ([]UnnormalizedFormation, error) {
	query := `
		SELECT play_id, formation_raw
		FROM plays
		WHERE formation_norm IS NULL AND formation_raw IS NOT NULL AND play_id > $1
		ORDER BY play_id
		LIMIT $2
	`

	rows, err := r.q.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying unnormalized plays: %w", err)
	}
	defer rows.Close()

	var out []UnnormalizedFormation
	for rows.Next() {
		var u UnnormalizedFormation
		if err := rows.Scan(&u.PlayID, &u.FormationRaw); err != nil {
			return nil, fmt.Errorf("scanning unnormalized play: %w", err)
		}
		out = append(out, u)
	}

	return out, rows.Err()
}

// SetFormationNorms writes formation_norm for many plays in one statement.
// An empty norm is stored as NULL.
func (r *PlayRepository) SetFormationNorms(ctx context.Context, norms map[int]string) (int64, error) {
	if len(norms) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(norms))
	values := make([]string, 0, len(norms))
	for id, norm := range norms {
		ids = append(ids, int64(id))
		values = append(values, norm)
	}

	query := `
		UPDATE plays AS p
		SET formation_norm = NULLIF(v.norm, '')
		FROM unnest($1::int[], $2::text[]) AS v(id, norm)
		WHERE p.play_id = v.id
	`

	result, err := r.q.ExecContext(ctx, query, pq.Array(ids), pq.Array(values))
	if err != nil {
		return 0, store.WrapWrite("updating formation norms", err)
	}

	return result.RowsAffected()
}

// GetDetail joins a play with its drive, game and both teams in a single
// query. Drive is nil when the play has no drive.
func (r *PlayRepository) GetDetail(ctx context.Context, playID int) (*store.PlayDetail, error) {
	query := `
		SELECT
			p.play_id, p.drive_id, p.game_id, p.offense_team_id, p.defense_team_id, p.quarter, p.clock,
			p.down, p.distance, p.yard_line, p.hash_mark, p.formation_raw, p.formation_norm, p.personnel,
			p.play_type, p.run_direction, p.pass_zone, p.yards_gained, p.result, p.created_at,
			d.drive_id, d.game_id, d.offense_team_id, d.defense_team_id, d.start_quarter,
			d.start_clock, d.start_yard_line, d.end_yard_line, d.result, d.created_at,
			g.game_id, g.offense_team_id, g.defense_team_id, g.game_date, g.season, g.week,
			g.venue, g.source, g.created_at,
			o.team_id, o.team_name, o.mascot, o.city, o.state, o.division, o.region, o.district,
			o.team_code, o.created_at, o.updated_at,
			df.team_id, df.team_name, df.mascot, df.city, df.state, df.division, df.region, df.district,
			df.team_code, df.created_at, df.updated_at
		FROM plays p
		LEFT JOIN drives d ON d.drive_id = p.drive_id
		JOIN games g ON g.game_id = p.game_id
		JOIN teams o ON o.team_id = p.offense_team_id
		JOIN teams df ON df.team_id = p.defense_team_id
		WHERE p.play_id = $1
	`

	var (
		play    store.Play
		game    store.Game
		offense store.Team
		defense store.Team
		drive   store.Drive

		driveID, driveGameID, driveOffense, driveDefense sql.NullInt32
		driveCreatedAt                                   sql.NullTime
	)

	err := r.q.QueryRowContext(ctx, query, playID).Scan(
		&play.PlayID, &play.DriveID, &play.GameID, &play.OffenseTeamID, &play.DefenseTeamID,
		&play.Quarter, &play.Clock, &play.Down, &play.Distance, &play.YardLine, &play.HashMark,
		&play.FormationRaw, &play.FormationNorm, &play.Personnel, &play.PlayType,
		&play.RunDirection, &play.PassZone, &play.YardsGained, &play.Result, &play.CreatedAt,
		&driveID, &driveGameID, &driveOffense, &driveDefense, &drive.StartQuarter,
		&drive.StartClock, &drive.StartYardLine, &drive.EndYardLine, &drive.Result, &driveCreatedAt,
		&game.GameID, &game.OffenseTeamID, &game.DefenseTeamID, &game.GameDate, &game.Season,
		&game.Week, &game.Venue, &game.Source, &game.CreatedAt,
		&offense.TeamID, &offense.TeamName, &offense.Mascot, &offense.City, &offense.State,
		&offense.Division, &offense.Region, &offense.District, &offense.TeamCode,
		&offense.CreatedAt, &offense.UpdatedAt,
		&defense.TeamID, &defense.TeamName, &defense.Mascot, &defense.City, &defense.State,
		&defense.Division, &defense.Region, &defense.District, &defense.TeamCode,
		&defense.CreatedAt, &defense.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("play %d: %w", playID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying play detail: %w", err)
	}

	detail := &store.PlayDetail{
		Play:        &play,
		Game:        &game,
		OffenseTeam: &offense,
		DefenseTeam: &defense,
	}

	if driveID.Valid {
		drive.DriveID = int(driveID.Int32)
		drive.GameID = int(driveGameID.Int32)
		drive.OffenseTeamID = int(driveOffense.Int32)
		drive.DefenseTeamID = int(driveDefense.Int32)
		drive.CreatedAt = driveCreatedAt.Time
		detail.Drive = &drive
	}

	return detail, nil
}

func scanPlays(rows *sql.Rows) ([]*store.Play, error) {
	var plays []*store.Play
	for rows.Next() {
		play, err := scanPlay(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning play: %w", err)
		}
		plays = append(plays, play)
	}

	return plays, rows.Err()
}

func scanPlay(s rowScanner) (*store.Play, error) {
	play := &store.Play{}
	err := s.Scan(
		&play.PlayID, &play.DriveID, &play.GameID, &play.OffenseTeamID, &play.DefenseTeamID,
		&play.Quarter, &play.Clock, &play.Down, &play.Distance, &play.YardLine, &play.HashMark,
		&play.FormationRaw, &play.FormationNorm, &play.Personnel, &play.PlayType,
		&play.RunDirection, &play.PassZone, &play.YardsGained, &play.Result, &play.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return play, nil
}
