package store

import (
	"database/sql"
	"time"
)

// Team represents a football program. Identity is (name, city, state); the
// optional code is globally unique.
type Team struct {
	TeamID    int            `json:"team_id" db:"team_id"`
	TeamName  string         `json:"team_name" db:"team_name"`
	Mascot    sql.NullString `json:"mascot,omitempty" db:"mascot"`
	City      sql.NullString `json:"city,omitempty" db:"city"`
	State     sql.NullString `json:"state,omitempty" db:"state"`
	Division  sql.NullString `json:"division,omitempty" db:"division"`
	Region    sql.NullString `json:"region,omitempty" db:"region"`
	District  sql.NullString `json:"district,omitempty" db:"district"`
	TeamCode  sql.NullString `json:"team_code,omitempty" db:"team_code"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// Game represents one contest between an offense team and a defense team
type Game struct {
	GameID        int            `json:"game_id" db:"game_id"`
	OffenseTeamID int            `json:"offense_team_id" db:"offense_team_id"`
	DefenseTeamID int            `json:"defense_team_id" db:"defense_team_id"`
	GameDate      sql.NullTime   `json:"game_date,omitempty" db:"game_date"`
	Season        sql.NullInt32  `json:"season,omitempty" db:"season"`
	Week          sql.NullInt32  `json:"week,omitempty" db:"week"`
	Venue         sql.NullString `json:"venue,omitempty" db:"venue"`
	Source        sql.NullString `json:"source,omitempty" db:"source"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// Drive represents one possession within a game
type Drive struct {
	DriveID       int            `json:"drive_id" db:"drive_id"`
	GameID        int            `json:"game_id" db:"game_id"`
	OffenseTeamID int            `json:"offense_team_id" db:"offense_team_id"`
	DefenseTeamID int            `json:"defense_team_id" db:"defense_team_id"`
	StartQuarter  sql.NullInt32  `json:"start_quarter,omitempty" db:"start_quarter"`
	StartClock    sql.NullString `json:"start_clock,omitempty" db:"start_clock"`
	StartYardLine sql.NullInt32  `json:"start_yard_line,omitempty" db:"start_yard_line"`
	EndYardLine   sql.NullInt32  `json:"end_yard_line,omitempty" db:"end_yard_line"`
	Result        sql.NullString `json:"result,omitempty" db:"result"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// Play represents a single snap. DriveID is null when the drive was never
// resolved.
type Play struct {
	PlayID        int            `json:"play_id" db:"play_id"`
	DriveID       sql.NullInt32  `json:"drive_id,omitempty" db:"drive_id"`
	GameID        int            `json:"game_id" db:"game_id"`
	OffenseTeamID int            `json:"offense_team_id" db:"offense_team_id"`
	DefenseTeamID int            `json:"defense_team_id" db:"defense_team_id"`
	Quarter       sql.NullInt32  `json:"quarter,omitempty" db:"quarter"`
	Clock         sql.NullString `json:"clock,omitempty" db:"clock"`
	Down          sql.NullInt32  `json:"down,omitempty" db:"down"`
	Distance      sql.NullInt32  `json:"distance,omitempty" db:"distance"`
	YardLine      sql.NullInt32  `json:"yard_line,omitempty" db:"yard_line"`
	HashMark      sql.NullString `json:"hash_mark,omitempty" db:"hash_mark"`
	FormationRaw  sql.NullString `json:"formation_raw,omitempty" db:"formation_raw"`
	FormationNorm sql.NullString `json:"formation_norm,omitempty" db:"formation_norm"`
	Personnel     sql.NullString `json:"personnel,omitempty" db:"personnel"`
	PlayType      sql.NullString `json:"play_type,omitempty" db:"play_type"`
	RunDirection  sql.NullString `json:"run_direction,omitempty" db:"run_direction"`
	PassZone      sql.NullString `json:"pass_zone,omitempty" db:"pass_zone"`
	YardsGained   sql.NullInt32  `json:"yards_gained,omitempty" db:"yards_gained"`
	Result        sql.NullString `json:"result,omitempty" db:"result"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// PlayDetail is a play joined with its drive, game and both teams
type PlayDetail struct {
	Play        *Play  `json:"play"`
	Drive       *Drive `json:"drive,omitempty"`
	Game        *Game  `json:"game"`
	OffenseTeam *Team  `json:"offense_team"`
	DefenseTeam *Team  `json:"defense_team"`
}

// IngestKind names the kind of import that produced an IngestEvent
type IngestKind string

const (
	IngestKindTeams     IngestKind = "teams"
	IngestKindHudl      IngestKind = "hudl"
	IngestKindNormalize IngestKind = "normalize"
)

// IngestEvent is published after every completed import
type IngestEvent struct {
	EventID    string     `json:"event_id"`
	Kind       IngestKind `json:"kind"`
	GameID     int        `json:"game_id,omitempty"`
	Inserted   int        `json:"inserted"`
	Skipped    int        `json:"skipped,omitempty"`
	Drives     int        `json:"drives,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}
