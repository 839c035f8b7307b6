package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tendalyze/tendalyze/internal/store"
)

const gameColumns = `game_id, offense_team_id, defense_team_id, game_date, season, week,
	venue, source, created_at`

// GameRepository handles game data access
type GameRepository struct {
	q store.Querier
}

// NewGameRepository creates a new game repository
func NewGameRepository(db *store.Database) *GameRepository {
	return &GameRepository{q: db.DB()}
}

// WithTx returns a copy of the repository bound to tx
func (r *GameRepository) WithTx(tx *sql.Tx) *GameRepository {
	return &GameRepository{q: tx}
}

// Create inserts a game and fills in GameID and CreatedAt
func (r *GameRepository) Create(ctx context.Context, game *store.Game) error {
	query := `
		INSERT INTO games (offense_team_id, defense_team_id, game_date, season, week, venue, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING game_id, created_at
	`

	err := r.q.QueryRowContext(ctx, query,
		game.OffenseTeamID, game.DefenseTeamID, game.GameDate,
		game.Season, game.Week, game.Venue, game.Source,
	).Scan(&game.GameID, &game.CreatedAt)
	if err != nil {
		return store.WrapWrite("inserting game", err)
	}

	return nil
}

// GetByID finds a game by its database ID
func (r *GameRepository) GetByID(ctx context.Context, gameID int) (*store.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE game_id = $1`

	game, err := scanGame(r.q.QueryRowContext(ctx, query, gameID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %d: %w", gameID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying game: %w", err)
	}

	return game, nil
}

// GetBySeasonWeek returns the games of one week of a season. Served by
// idx_games_season_week.
func (r *GameRepository) GetBySeasonWeek(ctx context.Context, season, week int) ([]*store.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games
		WHERE season = $1 AND week = $2
		ORDER BY game_date, game_id`

	rows, err := r.q.QueryContext(ctx, query, season, week)
	if err != nil {
		return nil, fmt.Errorf("querying games: %w", err)
	}
	defer rows.Close()

	return r.scanGames(rows)
}

// GetBySeason returns all games in a season
func (r *GameRepository) GetBySeason(ctx context.Context, season int) ([]*store.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games
		WHERE season = $1
		ORDER BY week, game_date, game_id`

	rows, err := r.q.QueryContext(ctx, query, season)
	if err != nil {
		return nil, fmt.Errorf("querying season games: %w", err)
	}
	defer rows.Close()

	return r.scanGames(rows)
}

// GetByTeam returns games a team took part in, newest first
func (r *GameRepository) GetByTeam(ctx context.Context, teamID int, limit int) ([]*store.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games
		WHERE offense_team_id = $1 OR defense_team_id = $1
		ORDER BY game_date DESC NULLS LAST, game_id DESC
		LIMIT $2`

	rows, err := r.q.QueryContext(ctx, query, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying team games: %w", err)
	}
	defer rows.Close()

	return r.scanGames(rows)
}

// scanGames scans multiple game rows
func (r *GameRepository) scanGames(rows *sql.Rows) ([]*store.Game, error) {
	var games []*store.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		games = append(games, game)
	}

	return games, rows.Err()
}

func scanGame(s rowScanner) (*store.Game, error) {
	game := &store.Game{}
	err := s.Scan(
		&game.GameID, &game.OffenseTeamID, &game.DefenseTeamID, &game.GameDate,
		&game.Season, &game.Week, &game.Venue, &game.Source, &game.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return game, nil
}
