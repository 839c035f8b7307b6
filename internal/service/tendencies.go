package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tendalyze/tendalyze/internal/cache"
	"github.com/tendalyze/tendalyze/internal/store"
	"github.com/tendalyze/tendalyze/internal/store/repository"
)

// DefaultTendencyTTL is used when NewTendencyService is given a zero TTL
const DefaultTendencyTTL = 10 * time.Minute

// TendencyService builds formation tendency reports and caches them
type TendencyService struct {
	statsRepo *repository.StatsRepository
	teamRepo  *repository.TeamRepository
	cache     cache.Cache
	ttl       time.Duration
	logger    *zap.Logger
}

// NewTendencyService creates a new tendency service. A nil cache disables
// caching.
func NewTendencyService(db *store.Database, c cache.Cache, ttl time.Duration, logger *zap.Logger) *TendencyService {
	if c == nil {
		c = cache.Nop{}
	}
	if ttl <= 0 {
		ttl = DefaultTendencyTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TendencyService{
		statsRepo: repository.NewStatsRepository(db),
		teamRepo:  repository.NewTeamRepository(db),
		cache:     c,
		ttl:       ttl,
		logger:    logger,
	}
}

// TendencyReport is an offense's formation usage
type TendencyReport struct {
	Team        *store.Team                     `json:"team"`
	Season      *int                            `json:"season,omitempty"`
	TotalPlays  int                             `json:"total_plays"`
	Formations  []*repository.FormationTendency `json:"formations"`
	GeneratedAt time.Time                       `json:"generated_at"`
}

// TendencyKey returns the cache key for a team's report
func TendencyKey(teamID int, season *int) string {
	s := "all"
	if season != nil {
		s = strconv.Itoa(*season)
	}
	return fmt.Sprintf("%s%d:%s", cache.TendencyPrefix, teamID, s)
}

// Formations returns the formation tendencies of teamID on offense,
// restricted to one season when season is non-nil
func (s *TendencyService) Formations(ctx context.Context, teamID int, season *int) (*TendencyReport, error) {
	key := TendencyKey(teamID, season)

	var cached TendencyReport
	err := s.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("tendency cache read failed", zap.String("key", key), zap.Error(err))
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("fetching team: %w", err)
	}

	var seasonArg sql.NullInt32
	if season != nil {
		seasonArg = sql.NullInt32{Int32: int32(*season), Valid: true}
	}

	formations, err := s.statsRepo.FormationTendencies(ctx, teamID, seasonArg)
	if err != nil {
		return nil, fmt.Errorf("fetching formation tendencies: %w", err)
	}

	report := &TendencyReport{
		Team:        team,
		Season:      season,
		Formations:  formations,
		GeneratedAt: time.Now().UTC(),
	}
	for _, f := range formations {
		report.TotalPlays += f.Plays
	}

	if err := s.cache.SetJSON(ctx, key, report, s.ttl); err != nil {
		s.logger.Warn("tendency cache write failed", zap.String("key", key), zap.Error(err))
	}

	return report, nil
}
