package service

import (
	"context"
	"fmt"

	"github.com/tendalyze/tendalyze/internal/store"
	"github.com/tendalyze/tendalyze/internal/store/repository"
)

// TeamService handles team lookups
type TeamService struct {
	teamRepo *repository.TeamRepository
}

// NewTeamService creates a new team service
func NewTeamService(db *store.Database) *TeamService {
	return &TeamService{
		teamRepo: repository.NewTeamRepository(db),
	}
}

// List returns every team ordered by name
func (s *TeamService) List(ctx context.Context) ([]*store.Team, error) {
	teams, err := s.teamRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching teams: %w", err)
	}
	return teams, nil
}

// Get returns one team
func (s *TeamService) Get(ctx context.Context, teamID int) (*store.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("fetching team: %w", err)
	}
	return team, nil
}
