package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHudlGameParams(t *testing.T) {
	cmd := &HudlCmd{Date: "2024-09-06", Season: 2024, Week: 3, Venue: "Home", Source: "Hudl"}

	params, err := cmd.gameParams(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, params.OffenseTeamID)
	assert.Equal(t, 2, params.DefenseTeamID)
	require.NotNil(t, params.GameDate)
	assert.Equal(t, "2024-09-06", params.GameDate.Format("2006-01-02"))
	require.NotNil(t, params.Season)
	assert.Equal(t, 2024, *params.Season)
	assert.Equal(t, "Home", params.Venue)

	params, err = (&HudlCmd{}).gameParams(1, 2)
	require.NoError(t, err)
	assert.Nil(t, params.GameDate)
	assert.Nil(t, params.Season)
	assert.Nil(t, params.Week)

	_, err = (&HudlCmd{Date: "09/06/2024"}).gameParams(1, 2)
	assert.Error(t, err)
}

func TestParseHudlCommand(t *testing.T) {
	file := filepath.Join(t.TempDir(), "game.csv")
	require.NoError(t, os.WriteFile(file, []byte("QTR\n1\n"), 0o600))

	parser, err := kong.New(&CLI, kong.Name(appName))
	require.NoError(t, err)

	ctx, err := parser.Parse([]string{
		"--database-url", "postgres://localhost/tendalyze",
		"hudl", file,
		"--offense-code", "LKV",
		"--defense-team-id", "4",
		"--season", "2024",
	})
	require.NoError(t, err)
	assert.Equal(t, "hudl <file>", ctx.Command())
	assert.Equal(t, "LKV", CLI.Hudl.OffenseCode)
	assert.Equal(t, 4, CLI.Hudl.DefenseTeamID)
	assert.Equal(t, "Hudl", CLI.Hudl.Source)

	_, err = parser.Parse([]string{
		"hudl", file,
		"--offense-code", "LKV",
		"--offense-team-id", "3",
	})
	assert.Error(t, err, "offense id and code are mutually exclusive")
}

func TestOpenRequiresDatabaseURL(t *testing.T) {
	_, err := (&Context{}).open()
	assert.ErrorIs(t, err, ErrDatabaseURLMissing)
}
