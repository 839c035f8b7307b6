package service

import (
	"context"
	"fmt"

	"github.com/tendalyze/tendalyze/internal/store"
	"github.com/tendalyze/tendalyze/internal/store/repository"
)

// GameService handles game-related business logic
type GameService struct {
	gameRepo  *repository.GameRepository
	teamRepo  *repository.TeamRepository
	driveRepo *repository.DriveRepository
	playRepo  *repository.PlayRepository
	statsRepo *repository.StatsRepository
}

// NewGameService creates a new game service
func NewGameService(db *store.Database) *GameService {
	return &GameService{
		gameRepo:  repository.NewGameRepository(db),
		teamRepo:  repository.NewTeamRepository(db),
		driveRepo: repository.NewDriveRepository(db),
		playRepo:  repository.NewPlayRepository(db),
		statsRepo: repository.NewStatsRepository(db),
	}
}

// GamesBySeasonWeek retrieves the games of one season, optionally narrowed
// to a single week, with team details
func (s *GameService) GamesBySeasonWeek(ctx context.Context, season int, week *int) ([]*GameSummary, error) {
	var (
		games []*store.Game
		err   error
	)
	if week != nil {
		games, err = s.gameRepo.GetBySeasonWeek(ctx, season, *week)
	} else {
		games, err = s.gameRepo.GetBySeason(ctx, season)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching games: %w", err)
	}

	return s.enrichGamesWithTeams(ctx, games)
}

// TeamGames retrieves the most recent games a team played on either side
func (s *GameService) TeamGames(ctx context.Context, teamID int, limit int) ([]*GameSummary, error) {
	games, err := s.gameRepo.GetByTeam(ctx, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching team games: %w", err)
	}

	return s.enrichGamesWithTeams(ctx, games)
}

// Get retrieves a game by ID with team details
func (s *GameService) Get(ctx context.Context, gameID int) (*GameSummary, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching game: %w", err)
	}

	return s.enrichGame(ctx, game)
}

// Plays returns every play of a game in snap order
func (s *GameService) Plays(ctx context.Context, gameID int) ([]*store.Play, error) {
	if _, err := s.gameRepo.GetByID(ctx, gameID); err != nil {
		return nil, fmt.Errorf("fetching game: %w", err)
	}

	plays, err := s.playRepo.GetByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching plays: %w", err)
	}
	return plays, nil
}

// Drives returns every drive of a game with its plays
func (s *GameService) Drives(ctx context.Context, gameID int) ([]*DriveWithPlays, error) {
	if _, err := s.gameRepo.GetByID(ctx, gameID); err != nil {
		return nil, fmt.Errorf("fetching game: %w", err)
	}

	drives, err := s.driveRepo.GetByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching drives: %w", err)
	}

	out := make([]*DriveWithPlays, 0, len(drives))
	for _, d := range drives {
		plays, err := s.playRepo.GetByDrive(ctx, d.DriveID)
		if err != nil {
			return nil, fmt.Errorf("fetching plays for drive %d: %w", d.DriveID, err)
		}
		out = append(out, &DriveWithPlays{Drive: d, Plays: plays})
	}

	return out, nil
}

// Summary aggregates a game's plays per offense
func (s *GameService) Summary(ctx context.Context, gameID int) (*GameStatSummary, error) {
	game, err := s.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	totals, err := s.statsRepo.GameTeamTotals(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching game totals: %w", err)
	}

	summary := &GameStatSummary{GameSummary: game, Teams: totals}
	for _, t := range totals {
		summary.TotalPlays += t.Plays
	}
	return summary, nil
}

// Play returns one play joined with its drive, game and teams
func (s *GameService) Play(ctx context.Context, playID int) (*store.PlayDetail, error) {
	detail, err := s.playRepo.GetDetail(ctx, playID)
	if err != nil {
		return nil, fmt.Errorf("fetching play: %w", err)
	}
	return detail, nil
}

// enrichGamesWithTeams adds team details to games
func (s *GameService) enrichGamesWithTeams(ctx context.Context, games []*store.Game) ([]*GameSummary, error) {
	summaries := make([]*GameSummary, 0, len(games))

	for _, game := range games {
		summary, err := s.enrichGame(ctx, game)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func (s *GameService) enrichGame(ctx context.Context, game *store.Game) (*GameSummary, error) {
	offense, err := s.teamRepo.GetByID(ctx, game.OffenseTeamID)
	if err != nil {
		return nil, fmt.Errorf("fetching offense team for game %d: %w", game.GameID, err)
	}

	defense, err := s.teamRepo.GetByID(ctx, game.DefenseTeamID)
	if err != nil {
		return nil, fmt.Errorf("fetching defense team for game %d: %w", game.GameID, err)
	}

	return &GameSummary{
		Game:        game,
		OffenseTeam: offense,
		DefenseTeam: defense,
	}, nil
}

// GameSummary contains game details with team information
type GameSummary struct {
	Game        *store.Game `json:"game"`
	OffenseTeam *store.Team `json:"offense_team"`
	DefenseTeam *store.Team `json:"defense_team"`
}

// DriveWithPlays is a drive and the plays recorded in it
type DriveWithPlays struct {
	Drive *store.Drive  `json:"drive"`
	Plays []*store.Play `json:"plays"`
}

// GameStatSummary is a game with per-offense totals
type GameStatSummary struct {
	*GameSummary
	TotalPlays int                          `json:"total_plays"`
	Teams      []*repository.TeamGameTotals `json:"teams"`
}
