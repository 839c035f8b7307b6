package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/tendalyze/tendalyze/internal/cache"
	"github.com/tendalyze/tendalyze/internal/etl"
	"github.com/tendalyze/tendalyze/internal/logging"
	"github.com/tendalyze/tendalyze/internal/metrics"
	"github.com/tendalyze/tendalyze/internal/publisher"
	"github.com/tendalyze/tendalyze/internal/store"
	"github.com/tendalyze/tendalyze/internal/store/repository"
)

// ErrDatabaseURLMissing is returned by commands that need the database when
// neither the flag nor the environment provides a URL.
var ErrDatabaseURLMissing = errors.New("database URL is not set (use --database-url or DATABASE_URL)")

// Context carries global flags into every command
type Context struct {
	DatabaseURL string
	LogLevel    string
	LogFormat   string
	RedisURL    string
	EnableRedis bool
}

// session is an open database plus the loader built on it
type session struct {
	db     *store.Database
	loader *etl.Loader
	logger *zap.Logger
	closer func()
}

func (c *Context) open() (*session, error) {
	if c.DatabaseURL == "" {
		return nil, ErrDatabaseURLMissing
	}

	logger, err := logging.New(c.LogLevel, c.LogFormat)
	if err != nil {
		return nil, err
	}

	db, err := store.NewDatabase(c.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	var (
		queryCache cache.Cache         = cache.Nop{}
		pub        publisher.Publisher = publisher.Nop{}
		closers    = []func(){func() { db.Close() }}
	)

	if c.EnableRedis {
		redisCache, err := cache.NewRedisCache(c.RedisURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func() { redisCache.Close() })
		queryCache = redisCache
		pub = publisher.NewRedisPublisher(redisCache.Client())
	}

	return &session{
		db:     db,
		loader: etl.NewLoader(db, pub, queryCache, metrics.New(), logger),
		logger: logger,
		closer: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			_ = logger.Sync()
		},
	}, nil
}

// MigrateCmd applies every embedded migration
type MigrateCmd struct{}

func (cmd *MigrateCmd) Run(ctx *Context) error {
	s, err := ctx.open()
	if err != nil {
		return err
	}
	defer s.closer()

	if err := s.db.RunMigrations(context.Background()); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	fmt.Println("✓ Database migrations applied")
	return nil
}

// CheckCmd verifies connectivity and reports the plays row count
type CheckCmd struct{}

func (cmd *CheckCmd) Run(ctx *Context) error {
	s, err := ctx.open()
	if err != nil {
		return err
	}
	defer s.closer()

	bg := context.Background()

	version, err := s.db.ServerVersion(bg)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Connected to PostgreSQL: %s\n", version)

	n, err := repository.NewPlayRepository(s.db).Count(bg)
	if err != nil {
		return err
	}
	fmt.Printf("✓ plays table has %d rows\n", n)
	return nil
}

// TeamsCmd loads a teams export
type TeamsCmd struct {
	File string `arg:"" type:"existingfile" help:"Teams CSV file"`
}

func (cmd *TeamsCmd) Run(ctx *Context) error {
	s, err := ctx.open()
	if err != nil {
		return err
	}
	defer s.closer()

	f, err := os.Open(cmd.File)
	if err != nil {
		return err
	}
	defer f.Close()

	inserted, skipped, err := s.loader.LoadTeamsCSV(context.Background(), f, &consoleReporter{})
	if err != nil {
		return fmt.Errorf("load teams: %w", err)
	}

	fmt.Printf("✓ Teams loaded: %d inserted, %d already present\n", inserted, skipped)
	return nil
}

// HudlCmd loads one game's play-by-play export
type HudlCmd struct {
	File string `arg:"" type:"existingfile" help:"Hudl play-by-play CSV file"`

	OffenseTeamID int    `help:"Offense team ID" xor:"offense"`
	OffenseCode   string `help:"Offense team code" xor:"offense"`
	DefenseTeamID int    `help:"Defense team ID" xor:"defense"`
	DefenseCode   string `help:"Defense team code" xor:"defense"`

	Date   string `help:"Game date (YYYY-MM-DD)"`
	Season int    `help:"Season year"`
	Week   int    `help:"Week number"`
	Venue  string `help:"Venue"`
	Source string `help:"Source label" default:"Hudl"`
}

func (cmd *HudlCmd) Run(ctx *Context) error {
	s, err := ctx.open()
	if err != nil {
		return err
	}
	defer s.closer()

	bg := context.Background()

	offense, err := s.loader.ResolveTeam(bg, etl.TeamRef{ID: cmd.OffenseTeamID, Code: cmd.OffenseCode})
	if err != nil {
		return fmt.Errorf("resolve offense team: %w", err)
	}
	defense, err := s.loader.ResolveTeam(bg, etl.TeamRef{ID: cmd.DefenseTeamID, Code: cmd.DefenseCode})
	if err != nil {
		return fmt.Errorf("resolve defense team: %w", err)
	}

	params, err := cmd.gameParams(offense.TeamID, defense.TeamID)
	if err != nil {
		return err
	}

	f, err := os.Open(cmd.File)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := s.loader.LoadHudlCSV(bg, f, params, &consoleReporter{})
	if err != nil {
		return fmt.Errorf("load play-by-play: %w", err)
	}

	fmt.Printf("✓ Game %d loaded: %s vs %s, %d plays in %d drives\n",
		result.GameID, offense.TeamName, defense.TeamName, result.Plays, result.Drives)
	return nil
}

func (cmd *HudlCmd) gameParams(offenseID, defenseID int) (etl.GameParams, error) {
	params := etl.GameParams{
		OffenseTeamID: offenseID,
		DefenseTeamID: defenseID,
		Venue:         cmd.Venue,
		Source:        cmd.Source,
	}

	if cmd.Date != "" {
		date, err := time.Parse("2006-01-02", cmd.Date)
		if err != nil {
			return params, fmt.Errorf("invalid date: %w", err)
		}
		params.GameDate = &date
	}
	if cmd.Season > 0 {
		season := cmd.Season
		params.Season = &season
	}
	if cmd.Week > 0 {
		week := cmd.Week
		params.Week = &week
	}

	return params, nil
}

// NormalizeCmd backfills formation_norm
type NormalizeCmd struct {
	BatchSize int `help:"Plays per update batch" default:"500"`
}

func (cmd *NormalizeCmd) Run(ctx *Context) error {
	s, err := ctx.open()
	if err != nil {
		return err
	}
	defer s.closer()

	updated, err := s.loader.NormalizeFormations(context.Background(), cmd.BatchSize, &consoleReporter{})
	if err != nil {
		return fmt.Errorf("normalize formations: %w", err)
	}

	fmt.Printf("✓ %d formations normalized\n", updated)
	return nil
}
