package etl

import (
	"database/sql"
	"errors"
	"time"

	"github.com/tendalyze/tendalyze/internal/store"
)

var (
	// ErrSameTeam is returned when a game would pit a team against itself.
	ErrSameTeam = errors.New("offense and defense must be different teams")

	// ErrNoTeamRef is returned when a TeamRef names no lookup key.
	ErrNoTeamRef = errors.New("team reference requires an id, a code, or a name")

	// ErrInvalidCSV wraps every header or row decoding failure.
	ErrInvalidCSV = errors.New("invalid CSV")
)

// DefaultSource is recorded on games when GameParams.Source is empty.
const DefaultSource = "Hudl"

// GameParams describes the game a play-by-play file belongs to. Any game_id
// column in the file itself is ignored.
type GameParams struct {
	OffenseTeamID int
	DefenseTeamID int
	GameDate      *time.Time
	Season        *int
	Week          *int
	Venue         string
	Source        string
}

func (p GameParams) game() *store.Game {
	g := &store.Game{
		OffenseTeamID: p.OffenseTeamID,
		DefenseTeamID: p.DefenseTeamID,
		Venue:         nullString(p.Venue),
		Source:        nullString(p.Source),
	}
	if !g.Source.Valid {
		g.Source = sql.NullString{String: DefaultSource, Valid: true}
	}
	if p.GameDate != nil {
		g.GameDate = sql.NullTime{Time: *p.GameDate, Valid: true}
	}
	if p.Season != nil {
		g.Season = sql.NullInt32{Int32: int32(*p.Season), Valid: true}
	}
	if p.Week != nil {
		g.Week = sql.NullInt32{Int32: int32(*p.Week), Valid: true}
	}
	return g
}

// TeamRef identifies a team by ID, by code, or by (name, city, state), tried
// in that order.
type TeamRef struct {
	ID    int
	Code  string
	Name  string
	City  string
	State string
}

// Reporter receives lifecycle callbacks from the loader.
type Reporter interface {
	OnStart(kind store.IngestKind)
	OnProgress(message string, current int, total int)
	OnComplete(event store.IngestEvent)
	OnError(err error)
}

// HudlResult summarizes a play-by-play import.
type HudlResult struct {
	GameID int
	Plays  int
	Drives int
}
