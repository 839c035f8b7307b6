package etl

import (
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendalyze/tendalyze/internal/store"
)

func TestCanonicalHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"team_name", "team_name"},
		{"\ufeffTeam Name", "team_name"},
		{"  YARD LN ", "yard_line"},
		{"OFF FORM", "formation_raw"},
		{"GN/LS", "yards_gained"},
		{"DN", "down"},
		{"Play-Type", "play_type"},
		{"pass__zone", "pass_zone"},
		{"unknown column", "unknown_column"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, canonicalHeader(tt.in))
		})
	}
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, sql.NullInt32{Int32: 7, Valid: true}, parseInt(" 7 "))
	assert.Equal(t, sql.NullInt32{Int32: -3, Valid: true}, parseInt("-3"))
	assert.False(t, parseInt("").Valid)
	assert.False(t, parseInt("ten").Valid)
	assert.False(t, parseInt("4.5").Valid)
}

func TestNullString(t *testing.T) {
	assert.Equal(t, sql.NullString{String: "Trips Rt", Valid: true}, nullString(" Trips Rt "))
	assert.False(t, nullString("   ").Valid)
}

func TestNewDecoderEmptyFile(t *testing.T) {
	_, err := newDecoder(strings.NewReader(""))
	require.ErrorIs(t, err, ErrInvalidCSV)
	assert.Contains(t, err.Error(), "file is empty")
}

func TestDecodeHudlRows(t *testing.T) {
	input := "PLAY #,DRIVE,QTR,DN,DIST,YARD LN,HASH,OFF FORM,PLAY TYPE,GN/LS,RESULT\n" +
		"1,1,1,1,10,-25,L,Gun Trips Rt,Run,4,Rush\n" +
		"2,1,1,2,6,-29,M,,Pass,,Incomplete\n"

	dec, err := newDecoder(strings.NewReader(input))
	require.NoError(t, err)

	var rows []hudlRow
	for {
		var row hudlRow
		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}

	require.Len(t, rows, 2)

	first := rows[0].play(10, 20)
	assert.Equal(t, 10, first.OffenseTeamID)
	assert.Equal(t, 20, first.DefenseTeamID)
	assert.Equal(t, sql.NullInt32{Int32: -25, Valid: true}, first.YardLine)
	assert.Equal(t, sql.NullString{String: "Gun Trips Rt", Valid: true}, first.FormationRaw)
	assert.Equal(t, sql.NullInt32{Int32: 4, Valid: true}, first.YardsGained)
	assert.False(t, first.DriveID.Valid)

	second := rows[1].play(10, 20)
	assert.False(t, second.FormationRaw.Valid)
	assert.False(t, second.YardsGained.Valid)
	assert.Equal(t, "Incomplete", second.Result.String)
}

func TestGameParams(t *testing.T) {
	date := time.Date(2024, 9, 6, 0, 0, 0, 0, time.UTC)
	season, week := 2024, 3

	g := GameParams{
		OffenseTeamID: 1,
		DefenseTeamID: 2,
		GameDate:      &date,
		Season:        &season,
		Week:          &week,
	}.game()

	assert.Equal(t, sql.NullTime{Time: date, Valid: true}, g.GameDate)
	assert.Equal(t, int32(2024), g.Season.Int32)
	assert.Equal(t, int32(3), g.Week.Int32)
	assert.False(t, g.Venue.Valid)
	assert.Equal(t, DefaultSource, g.Source.String)

	bare := GameParams{OffenseTeamID: 1, DefenseTeamID: 2, Source: "manual"}.game()
	assert.False(t, bare.Season.Valid)
	assert.False(t, bare.GameDate.Valid)
	assert.Equal(t, "manual", bare.Source.String)
}

func TestPendingDriveSummary(t *testing.T) {
	game := &store.Game{GameID: 5, OffenseTeamID: 1, DefenseTeamID: 2}
	d := &pendingDrive{
		number: 3,
		plays: []*store.Play{
			{Quarter: parseInt("2"), Clock: nullString("8:14"), YardLine: parseInt("-20"), Result: nullString("Rush")},
			{Quarter: parseInt("2"), Clock: nullString("7:40"), YardLine: parseInt("-35"), Result: nullString("Complete")},
			{Quarter: parseInt("2"), Clock: nullString("7:02"), YardLine: parseInt("40"), Result: nullString("Punt")},
		},
	}

	drive := d.drive(game)
	assert.Equal(t, 5, drive.GameID)
	assert.Equal(t, 1, drive.OffenseTeamID)
	assert.Equal(t, 2, drive.DefenseTeamID)
	assert.Equal(t, int32(2), drive.StartQuarter.Int32)
	assert.Equal(t, "8:14", drive.StartClock.String)
	assert.Equal(t, int32(-20), drive.StartYardLine.Int32)
	assert.Equal(t, int32(40), drive.EndYardLine.Int32)
	assert.Equal(t, "Punt", drive.Result.String)
}
