package etl

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tendalyze/tendalyze/internal/cache"
	"github.com/tendalyze/tendalyze/internal/metrics"
	"github.com/tendalyze/tendalyze/internal/store"
	"github.com/tendalyze/tendalyze/internal/store/repository"
	"github.com/tendalyze/tendalyze/internal/store/storetest"
)

const teamsCSV = `team_name,mascot,city,state,division,region,district,team_code
Lakeview,Lions,Lakeview,TX,5A,II,8,LKV
Central,Bobcats,Central,TX,5A,II,8,CEN
`

const hudlCSV = `PLAY #,DRIVE,QTR,DN,DIST,YARD LN,HASH,OFF FORM,PLAY TYPE,GN/LS,RESULT
1,1,1,1,10,-25,L,Gun Trips Rt,Run,4,Rush
2,1,1,2,6,-29,M,SG Trey Lt,Pass,12,Complete
3,1,1,1,10,-41,R,Gun Trips Rt,Pass,0,Incomplete
4,,1,,,,,Punt,Punt,,Punt
5,2,2,1,10,30,M,UC I Form,Run,3,Rush
6,2,2,2,7,33,L,,Run,-1,Rush
`

type recordingPublisher struct {
	mu     sync.Mutex
	events []store.IngestEvent
}

func (p *recordingPublisher) PublishIngest(_ context.Context, event store.IngestEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type recordingCache struct {
	prefixes []string
}

func (c *recordingCache) GetJSON(context.Context, string, any) error { return nil }

func (c *recordingCache) SetJSON(context.Context, string, any, time.Duration) error { return nil }

func (c *recordingCache) DeletePrefix(_ context.Context, prefix string) error {
	c.prefixes = append(c.prefixes, prefix)
	return nil
}

func newTestLoader(t *testing.T) (*Loader, *store.Database, *recordingPublisher, *recordingCache) {
	t.Helper()

	db := storetest.NewDatabase(t)
	pub := &recordingPublisher{}
	c := &recordingCache{}
	return NewLoader(db, pub, c, metrics.New(), zaptest.NewLogger(t)), db, pub, c
}

func loadTeams(t *testing.T, l *Loader) (*store.Team, *store.Team) {
	t.Helper()

	ctx := context.Background()
	_, _, err := l.LoadTeamsCSV(ctx, strings.NewReader(teamsCSV), nil)
	require.NoError(t, err)

	offense, err := l.ResolveTeam(ctx, TeamRef{Code: "LKV"})
	require.NoError(t, err)
	defense, err := l.ResolveTeam(ctx, TeamRef{Name: "Central", City: "Central", State: "TX"})
	require.NoError(t, err)
	return offense, defense
}

func TestLoadTeamsCSVSkipsExisting(t *testing.T) {
	l, _, pub, _ := newTestLoader(t)
	ctx := context.Background()

	inserted, skipped, err := l.LoadTeamsCSV(ctx, strings.NewReader(teamsCSV), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 0, skipped)

	inserted, skipped, err = l.LoadTeamsCSV(ctx, strings.NewReader(teamsCSV), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 2, skipped)

	require.Len(t, pub.events, 2)
	assert.Equal(t, store.IngestKindTeams, pub.events[1].Kind)
	assert.Equal(t, 2, pub.events[1].Skipped)
	assert.NotEmpty(t, pub.events[1].EventID)
}

func TestLoadTeamsCSVDuplicateCodeRollsBack(t *testing.T) {
	l, db, _, _ := newTestLoader(t)
	ctx := context.Background()

	input := "team_name,city,state,team_code\n" +
		"North,North,OK,DUP\n" +
		"South,South,OK,DUP\n"

	_, _, err := l.LoadTeamsCSV(ctx, strings.NewReader(input), nil)
	require.Error(t, err)
	assert.True(t, store.IsUniqueViolation(err))
	assert.ErrorIs(t, err, store.ErrUnique)

	teams, err := repository.NewTeamRepository(db).GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, teams)
}

func TestLoadTeamsCSVBlankLocationDedupes(t *testing.T) {
	l, db, _, _ := newTestLoader(t)
	ctx := context.Background()

	input := "team_name,mascot,city,state\n" +
		"North,,,\n" +
		"South,Owls,South,\n"

	inserted, skipped, err := l.LoadTeamsCSV(ctx, strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 0, skipped)

	inserted, skipped, err = l.LoadTeamsCSV(ctx, strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 2, skipped)

	teams, err := repository.NewTeamRepository(db).GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, teams, 2)

	north, err := l.ResolveTeam(ctx, TeamRef{Name: "North"})
	require.NoError(t, err)
	assert.False(t, north.City.Valid)
	assert.False(t, north.State.Valid)

	south, err := l.ResolveTeam(ctx, TeamRef{Name: "South", City: "South"})
	require.NoError(t, err)
	assert.Equal(t, "Owls", south.Mascot.String)
}

func TestLoadTeamsCSVRejectsBlankName(t *testing.T) {
	l, db, pub, _ := newTestLoader(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
	}{
		{"blank cell", "team_name,city,state\nNorth,North,OK\n  ,South,OK\n"},
		{"missing column", "city,state\nNorth,OK\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := l.LoadTeamsCSV(ctx, strings.NewReader(tt.input), nil)
			assert.ErrorIs(t, err, ErrInvalidCSV)
		})
	}

	teams, err := repository.NewTeamRepository(db).GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, teams)
	assert.Empty(t, pub.events)
}

func TestLoadHudlCSV(t *testing.T) {
	l, db, pub, c := newTestLoader(t)
	ctx := context.Background()
	offense, defense := loadTeams(t, l)

	season, week := 2024, 3
	result, err := l.LoadHudlCSV(ctx, strings.NewReader(hudlCSV), GameParams{
		OffenseTeamID: offense.TeamID,
		DefenseTeamID: defense.TeamID,
		Season:        &season,
		Week:          &week,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, result.Plays)
	assert.Equal(t, 2, result.Drives)

	game, err := repository.NewGameRepository(db).GetByID(ctx, result.GameID)
	require.NoError(t, err)
	assert.Equal(t, offense.TeamID, game.OffenseTeamID)
	assert.Equal(t, DefaultSource, game.Source.String)

	drives, err := repository.NewDriveRepository(db).GetByGame(ctx, result.GameID)
	require.NoError(t, err)
	require.Len(t, drives, 2)
	assert.Equal(t, int32(-25), drives[0].StartYardLine.Int32)
	assert.Equal(t, int32(-41), drives[0].EndYardLine.Int32)
	assert.Equal(t, "Incomplete", drives[0].Result.String)
	assert.Equal(t, int32(2), drives[1].StartQuarter.Int32)

	plays, err := repository.NewPlayRepository(db).GetByGame(ctx, result.GameID)
	require.NoError(t, err)
	require.Len(t, plays, 6)
	assert.False(t, plays[3].DriveID.Valid, "play without a drive number keeps a NULL drive")
	assert.Equal(t, int32(drives[1].DriveID), plays[4].DriveID.Int32)

	require.Len(t, pub.events, 2)
	assert.Equal(t, store.IngestKindHudl, pub.events[1].Kind)
	assert.Equal(t, result.GameID, pub.events[1].GameID)
	assert.Contains(t, c.prefixes, cache.TendencyPrefix)
}

func TestLoadHudlCSVSameTeam(t *testing.T) {
	l, db, _, _ := newTestLoader(t)
	ctx := context.Background()
	offense, _ := loadTeams(t, l)

	_, err := l.LoadHudlCSV(ctx, strings.NewReader(hudlCSV), GameParams{
		OffenseTeamID: offense.TeamID,
		DefenseTeamID: offense.TeamID,
	}, nil)
	require.ErrorIs(t, err, ErrSameTeam)

	n, err := repository.NewPlayRepository(db).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoadHudlCSVUnknownTeamRollsBack(t *testing.T) {
	l, db, _, _ := newTestLoader(t)
	ctx := context.Background()
	offense, _ := loadTeams(t, l)

	_, err := l.LoadHudlCSV(ctx, strings.NewReader(hudlCSV), GameParams{
		OffenseTeamID: offense.TeamID,
		DefenseTeamID: 9999,
	}, nil)
	require.Error(t, err)
	assert.True(t, store.IsForeignKeyViolation(err))

	games, err := repository.NewGameRepository(db).GetByTeam(ctx, offense.TeamID, 10)
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestNormalizeFormations(t *testing.T) {
	l, db, pub, c := newTestLoader(t)
	ctx := context.Background()
	offense, defense := loadTeams(t, l)

	result, err := l.LoadHudlCSV(ctx, strings.NewReader(hudlCSV), GameParams{
		OffenseTeamID: offense.TeamID,
		DefenseTeamID: defense.TeamID,
	}, nil)
	require.NoError(t, err)

	updated, err := l.NormalizeFormations(ctx, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, updated)
	require.NotEmpty(t, pub.events)
	assert.Equal(t, store.IngestKindNormalize, pub.events[len(pub.events)-1].Kind)

	plays, err := repository.NewPlayRepository(db).GetByGame(ctx, result.GameID)
	require.NoError(t, err)
	assert.Equal(t, "SHOTGUN TRIPS RIGHT", plays[0].FormationNorm.String)
	assert.Equal(t, "SHOTGUN TRIPS LEFT", plays[1].FormationNorm.String)
	assert.Equal(t, "UNDER CENTER I", plays[4].FormationNorm.String)
	assert.False(t, plays[5].FormationNorm.Valid)

	events, invalidations := len(pub.events), len(c.prefixes)

	again, err := l.NormalizeFormations(ctx, 2, nil)
	require.NoError(t, err)
	assert.Zero(t, again)
	assert.Len(t, pub.events, events, "an empty sweep publishes nothing")
	assert.Len(t, c.prefixes, invalidations, "an empty sweep keeps the cache")
}

func TestResolveTeamWithoutKey(t *testing.T) {
	l := &Loader{}
	_, err := l.ResolveTeam(context.Background(), TeamRef{})
	assert.ErrorIs(t, err, ErrNoTeamRef)
}
