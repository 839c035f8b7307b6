package repository

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendalyze/tendalyze/internal/store"
	"github.com/tendalyze/tendalyze/internal/store/storetest"
)

func text(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

func num(n int32) sql.NullInt32 { return sql.NullInt32{Int32: n, Valid: true} }

func createTeams(t *testing.T, db *store.Database) (*store.Team, *store.Team) {
	t.Helper()

	ctx := context.Background()
	repo := NewTeamRepository(db)

	home := &store.Team{TeamName: "Lakeview", City: text("Lakeview"), State: text("TX"), TeamCode: text("LKV")}
	away := &store.Team{TeamName: "Central", City: text("Central"), State: text("TX")}
	require.NoError(t, repo.Create(ctx, home))
	require.NoError(t, repo.Create(ctx, away))
	return home, away
}

func createGame(t *testing.T, db *store.Database, offense, defense *store.Team, season, week int32) *store.Game {
	t.Helper()

	game := &store.Game{
		OffenseTeamID: offense.TeamID,
		DefenseTeamID: defense.TeamID,
		GameDate:      sql.NullTime{Time: time.Date(2024, 9, 6, 0, 0, 0, 0, time.UTC), Valid: true},
		Season:        num(season),
		Week:          num(week),
		Source:        text("Hudl"),
	}
	require.NoError(t, NewGameRepository(db).Create(context.Background(), game))
	return game
}

func TestTeamIdentityIsUnique(t *testing.T) {
	db := storetest.NewDatabase(t)
	ctx := context.Background()
	repo := NewTeamRepository(db)

	createTeams(t, db)

	err := repo.Create(ctx, &store.Team{TeamName: "Lakeview", City: text("Lakeview"), State: text("TX")})
	require.Error(t, err)
	assert.True(t, store.IsUniqueViolation(err))
	assert.ErrorIs(t, err, store.ErrUnique)

	inserted, err := repo.InsertIfAbsent(ctx, &store.Team{TeamName: "Lakeview", City: text("Lakeview"), State: text("TX")})
	require.NoError(t, err)
	assert.False(t, inserted)

	byCode, err := repo.GetByCode(ctx, "LKV")
	require.NoError(t, err)
	assert.Equal(t, "Lakeview", byCode.TeamName)

	byIdentity, err := repo.GetByIdentity(ctx, "Central", text("Central"), text("TX"))
	require.NoError(t, err)
	assert.Equal(t, "Central", byIdentity.TeamName)

	_, err = repo.GetByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTeamIdentityWithNullLocation(t *testing.T) {
	db := storetest.NewDatabase(t)
	ctx := context.Background()
	repo := NewTeamRepository(db)

	first := &store.Team{TeamName: "North"}
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, &store.Team{TeamName: "North"})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnique)

	inserted, err := repo.InsertIfAbsent(ctx, &store.Team{TeamName: "North"})
	require.NoError(t, err)
	assert.False(t, inserted)

	// Same name, one location column set, is a different team
	inserted, err = repo.InsertIfAbsent(ctx, &store.Team{TeamName: "North", State: text("OK")})
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := repo.GetByIdentity(ctx, "North", sql.NullString{}, sql.NullString{})
	require.NoError(t, err)
	assert.Equal(t, first.TeamID, got.TeamID)

	withState, err := repo.GetByIdentity(ctx, "North", sql.NullString{}, text("OK"))
	require.NoError(t, err)
	assert.NotEqual(t, first.TeamID, withState.TeamID)
}

func TestPlayRequiresExistingGame(t *testing.T) {
	db := storetest.NewDatabase(t)
	ctx := context.Background()
	offense, defense := createTeams(t, db)

	err := NewPlayRepository(db).Create(ctx, &store.Play{
		GameID:        424242,
		OffenseTeamID: offense.TeamID,
		DefenseTeamID: defense.TeamID,
	})
	require.Error(t, err)
	assert.True(t, store.IsForeignKeyViolation(err))
	assert.ErrorIs(t, err, store.ErrForeignKey)
}

func TestPlayWithoutDrive(t *testing.T) {
	db := storetest.NewDatabase(t)
	ctx := context.Background()
	offense, defense := createTeams(t, db)
	game := createGame(t, db, offense, defense, 2024, 3)

	plays := NewPlayRepository(db)
	play := &store.Play{
		GameID:        game.GameID,
		OffenseTeamID: offense.TeamID,
		DefenseTeamID: defense.TeamID,
		FormationRaw:  text("Gun Trips Rt"),
	}
	require.NoError(t, plays.Create(ctx, play))
	assert.NotZero(t, play.PlayID)

	got, err := plays.GetByID(ctx, play.PlayID)
	require.NoError(t, err)
	assert.False(t, got.DriveID.Valid)
	assert.False(t, got.Quarter.Valid)
	assert.Equal(t, "Gun Trips Rt", got.FormationRaw.String)
}

func TestDriveTeamsMustMatchGame(t *testing.T) {
	db := storetest.NewDatabase(t)
	ctx := context.Background()
	offense, defense := createTeams(t, db)
	game := createGame(t, db, offense, defense, 2024, 3)

	third := &store.Team{TeamName: "Ridgeway", State: text("TX")}
	require.NoError(t, NewTeamRepository(db).Create(ctx, third))

	drives := NewDriveRepository(db)

	err := drives.Create(ctx, &store.Drive{GameID: game.GameID, OffenseTeamID: offense.TeamID, DefenseTeamID: third.TeamID})
	assert.ErrorIs(t, err, store.ErrDriveTeamMismatch)

	// Either team may have the ball
	flipped := &store.Drive{GameID: game.GameID, OffenseTeamID: defense.TeamID, DefenseTeamID: offense.TeamID}
	require.NoError(t, drives.Create(ctx, flipped))

	err = drives.Create(ctx, &store.Drive{GameID: 424242, OffenseTeamID: offense.TeamID, DefenseTeamID: defense.TeamID})
	require.Error(t, err)
	assert.True(t, store.IsForeignKeyViolation(err))
}

func TestGamesBySeasonWeekUsesIndex(t *testing.T) {
	db := storetest.NewDatabase(t)
	ctx := context.Background()
	offense, defense := createTeams(t, db)

	want := createGame(t, db, offense, defense, 2024, 3)
	createGame(t, db, offense, defense, 2024, 4)
	createGame(t, db, defense, offense, 2023, 3)

	games, err := NewGameRepository(db).GetBySeasonWeek(ctx, 2024, 3)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, want.GameID, games[0].GameID)

	conn, err := db.DB().Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.ExecContext(ctx, `SET enable_seqscan = off`)
	require.NoError(t, err)

	rows, err := conn.QueryContext(ctx, `EXPLAIN SELECT game_id FROM games WHERE season = 2024 AND week = 3`)
	require.NoError(t, err)
	defer rows.Close()

	var plan []string
	for rows.Next() {
		var line string
		require.NoError(t, rows.Scan(&line))
		plan = append(plan, line)
	}
	require.NoError(t, rows.Err())
	assert.Contains(t, strings.Join(plan, "\n"), "idx_games_season_week")
}

func TestGetDetailRoundTrip(t *testing.T) {
	db := storetest.NewDatabase(t)
	ctx := context.Background()
	offense, defense := createTeams(t, db)
	game := createGame(t, db, offense, defense, 2024, 3)

	drive := &store.Drive{
		GameID:        game.GameID,
		OffenseTeamID: offense.TeamID,
		DefenseTeamID: defense.TeamID,
		StartQuarter:  num(1),
		StartYardLine: num(-25),
		Result:        text("Touchdown"),
	}
	require.NoError(t, NewDriveRepository(db).Create(ctx, drive))

	play := &store.Play{
		DriveID:       num(int32(drive.DriveID)),
		GameID:        game.GameID,
		OffenseTeamID: offense.TeamID,
		DefenseTeamID: defense.TeamID,
		Quarter:       num(1),
		Down:          num(1),
		Distance:      num(10),
		YardLine:      num(-25),
		FormationNorm: text("SHOTGUN TRIPS RIGHT"),
		PlayType:      text("Pass"),
		YardsGained:   num(12),
	}
	plays := NewPlayRepository(db)
	require.NoError(t, plays.Create(ctx, play))

	detail, err := plays.GetDetail(ctx, play.PlayID)
	require.NoError(t, err)

	require.NotNil(t, detail.Drive)
	assert.Equal(t, drive.DriveID, detail.Drive.DriveID)
	assert.Equal(t, "Touchdown", detail.Drive.Result.String)
	assert.Equal(t, game.GameID, detail.Game.GameID)
	assert.Equal(t, int32(2024), detail.Game.Season.Int32)
	assert.Equal(t, "Lakeview", detail.OffenseTeam.TeamName)
	assert.Equal(t, "Central", detail.DefenseTeam.TeamName)
	assert.Equal(t, detail.Game.OffenseTeamID, detail.OffenseTeam.TeamID)
	assert.Equal(t, int32(12), detail.Play.YardsGained.Int32)

	_, err = plays.GetDetail(ctx, 424242)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFormationNormBatchUpdate(t *testing.T) {
	db := storetest.NewDatabase(t)
	ctx := context.Background()
	offense, defense := createTeams(t, db)
	game := createGame(t, db, offense, defense, 2024, 3)

	plays := NewPlayRepository(db)
	for _, raw := range []string{"Gun Trips Rt", "UC I", "??"} {
		require.NoError(t, plays.Create(ctx, &store.Play{
			GameID:        game.GameID,
			OffenseTeamID: offense.TeamID,
			DefenseTeamID: defense.TeamID,
			FormationRaw:  text(raw),
		}))
	}

	pending, err := plays.ListUnnormalized(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)

	n, err := plays.SetFormationNorms(ctx, map[int]string{
		pending[0].PlayID: "SHOTGUN TRIPS RIGHT",
		pending[1].PlayID: "UNDER CENTER I",
		pending[2].PlayID: "",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	pending, err = plays.ListUnnormalized(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1, "an empty norm stays NULL")
	assert.Equal(t, "??", pending[0].FormationRaw)

	stats := NewStatsRepository(db)
	tendencies, err := stats.FormationTendencies(ctx, offense.TeamID, sql.NullInt32{})
	require.NoError(t, err)
	assert.Len(t, tendencies, 3)
}
