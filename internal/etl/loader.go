package etl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tendalyze/tendalyze/internal/cache"
	"github.com/tendalyze/tendalyze/internal/formation"
	"github.com/tendalyze/tendalyze/internal/metrics"
	"github.com/tendalyze/tendalyze/internal/publisher"
	"github.com/tendalyze/tendalyze/internal/store"
	"github.com/tendalyze/tendalyze/internal/store/repository"
)

// Loader writes CSV exports into the datastore. Each import runs in a single
// transaction in dependency order: game, then drives, then plays.
type Loader struct {
	db        *store.Database
	teams     *repository.TeamRepository
	games     *repository.GameRepository
	drives    *repository.DriveRepository
	plays     *repository.PlayRepository
	publisher publisher.Publisher
	cache     cache.Cache
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewLoader constructs a Loader. Nil publisher, cache, metrics or logger fall
// back to no-op implementations.
func NewLoader(db *store.Database, pub publisher.Publisher, c cache.Cache, m *metrics.Metrics, logger *zap.Logger) *Loader {
	if pub == nil {
		pub = publisher.Nop{}
	}
	if c == nil {
		c = cache.Nop{}
	}
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loader{
		db:        db,
		teams:     repository.NewTeamRepository(db),
		games:     repository.NewGameRepository(db),
		drives:    repository.NewDriveRepository(db),
		plays:     repository.NewPlayRepository(db),
		publisher: pub,
		cache:     c,
		metrics:   m,
		logger:    logger.With(zap.String("component", "etl")),
		now:       time.Now,
	}
}

// ResolveTeam finds a team by ID, code, or (name, city, state).
func (l *Loader) ResolveTeam(ctx context.Context, ref TeamRef) (*store.Team, error) {
	switch {
	case ref.ID > 0:
		return l.teams.GetByID(ctx, ref.ID)
	case ref.Code != "":
		return l.teams.GetByCode(ctx, ref.Code)
	case ref.Name != "":
		return l.teams.GetByIdentity(ctx, ref.Name, nullString(ref.City), nullString(ref.State))
	default:
		return nil, ErrNoTeamRef
	}
}

// LoadTeamsCSV inserts every team in r, skipping rows whose (name, city,
// state) already exists; blank city and state cells compare equal. A blank
// team_name fails with ErrInvalidCSV before anything is written. A duplicate
// team_code aborts the whole file with the driver's constraint error.
func (l *Loader) LoadTeamsCSV(ctx context.Context, r io.Reader, reporter Reporter) (inserted, skipped int, err error) {
	start := l.now()
	defer func() { l.metrics.ObserveIngest(string(store.IngestKindTeams), l.now().Sub(start), err) }()

	if reporter != nil {
		reporter.OnStart(store.IngestKindTeams)
	}

	dec, err := newDecoder(r)
	if err != nil {
		return 0, 0, l.fail(reporter, err)
	}

	var rows []teamRow
	for {
		var row teamRow
		if err := dec.Decode(&row); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return 0, 0, l.fail(reporter, fmt.Errorf("decoding team row %d: %w: %w", len(rows)+1, ErrInvalidCSV, err))
		}
		row.TeamName = strings.TrimSpace(row.TeamName)
		if row.TeamName == "" {
			return 0, 0, l.fail(reporter, fmt.Errorf("team row %d: team_name is blank: %w", len(rows)+1, ErrInvalidCSV))
		}
		rows = append(rows, row)
	}

	err = l.db.WithTx(ctx, func(tx *sql.Tx) error {
		teams := l.teams.WithTx(tx)
		for i, row := range rows {
			ok, err := teams.InsertIfAbsent(ctx, &store.Team{
				TeamName: row.TeamName,
				Mascot:   nullString(row.Mascot),
				City:     nullString(row.City),
				State:    nullString(row.State),
				Division: nullString(row.Division),
				Region:   nullString(row.Region),
				District: nullString(row.District),
				TeamCode: nullString(row.TeamCode),
			})
			if err != nil {
				return fmt.Errorf("team row %d: %w", i+1, err)
			}
			if ok {
				inserted++
			} else {
				skipped++
			}
			if reporter != nil {
				reporter.OnProgress("teams", i+1, len(rows))
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, l.fail(reporter, err)
	}

	l.metrics.AddRows("teams", inserted)
	l.logger.Info("✓ Teams loaded", zap.Int("inserted", inserted), zap.Int("skipped", skipped))

	l.complete(ctx, reporter, store.IngestEvent{
		Kind:     store.IngestKindTeams,
		Inserted: inserted,
		Skipped:  skipped,
	})

	return inserted, skipped, nil
}

// pendingDrive collects the plays sharing one drive number in the file.
type pendingDrive struct {
	number int32
	plays  []*store.Play
}

// LoadHudlCSV creates a game from params and loads the plays in r into it.
// Each distinct drive_id in the file becomes one drive of the new game; plays
// without a drive_id are stored with a NULL drive. Nothing is written if any
// row fails.
func (l *Loader) LoadHudlCSV(ctx context.Context, r io.Reader, params GameParams, reporter Reporter) (result HudlResult, err error) {
	start := l.now()
	defer func() { l.metrics.ObserveIngest(string(store.IngestKindHudl), l.now().Sub(start), err) }()

	if reporter != nil {
		reporter.OnStart(store.IngestKindHudl)
	}

	if params.OffenseTeamID == params.DefenseTeamID {
		return result, l.fail(reporter, fmt.Errorf("team %d: %w", params.OffenseTeamID, ErrSameTeam))
	}

	dec, err := newDecoder(r)
	if err != nil {
		return result, l.fail(reporter, err)
	}

	var (
		plays  []*store.Play
		drives []*pendingDrive
		byNum  = make(map[int32]*pendingDrive)
	)
	for {
		var row hudlRow
		if err := dec.Decode(&row); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return result, l.fail(reporter, fmt.Errorf("decoding play row %d: %w: %w", len(plays)+1, ErrInvalidCSV, err))
		}

		play := row.play(params.OffenseTeamID, params.DefenseTeamID)
		plays = append(plays, play)

		if num := parseInt(row.DriveID); num.Valid {
			d, ok := byNum[num.Int32]
			if !ok {
				d = &pendingDrive{number: num.Int32}
				byNum[num.Int32] = d
				drives = append(drives, d)
			}
			d.plays = append(d.plays, play)
		}
	}

	game := params.game()

	err = l.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := l.games.WithTx(tx).Create(ctx, game); err != nil {
			return err
		}

		driveRepo := l.drives.WithTx(tx)
		for _, d := range drives {
			drive := d.drive(game)
			if err := driveRepo.Create(ctx, drive); err != nil {
				return fmt.Errorf("drive %d: %w", d.number, err)
			}
			for _, p := range d.plays {
				p.DriveID = sql.NullInt32{Int32: int32(drive.DriveID), Valid: true}
			}
		}

		playRepo := l.plays.WithTx(tx)
		for i, p := range plays {
			p.GameID = game.GameID
			if err := playRepo.Create(ctx, p); err != nil {
				return fmt.Errorf("play row %d: %w", i+1, err)
			}
			if reporter != nil {
				reporter.OnProgress("plays", i+1, len(plays))
			}
		}
		return nil
	})
	if err != nil {
		return HudlResult{}, l.fail(reporter, err)
	}

	result = HudlResult{GameID: game.GameID, Plays: len(plays), Drives: len(drives)}

	l.metrics.AddRows("games", 1)
	l.metrics.AddRows("drives", result.Drives)
	l.metrics.AddRows("plays", result.Plays)
	l.logger.Info("✓ Play-by-play loaded",
		zap.Int("game_id", result.GameID),
		zap.Int("plays", result.Plays),
		zap.Int("drives", result.Drives),
	)

	l.complete(ctx, reporter, store.IngestEvent{
		Kind:     store.IngestKindHudl,
		GameID:   result.GameID,
		Inserted: result.Plays,
		Drives:   result.Drives,
	})

	return result, nil
}

// NormalizeFormations fills formation_norm for every play that has a raw
// formation but no normalized one, batchSize plays at a time. Plays whose raw
// label normalizes to nothing stay NULL. A run that updates nothing neither
// invalidates the cache nor publishes an event.
func (l *Loader) NormalizeFormations(ctx context.Context, batchSize int, reporter Reporter) (updated int, err error) {
	start := l.now()
	defer func() { l.metrics.ObserveIngest(string(store.IngestKindNormalize), l.now().Sub(start), err) }()

	if batchSize <= 0 {
		batchSize = 500
	}
	if reporter != nil {
		reporter.OnStart(store.IngestKindNormalize)
	}

	afterID := 0
	for {
		if err := ctx.Err(); err != nil {
			return updated, l.fail(reporter, err)
		}

		batch, err := l.plays.ListUnnormalized(ctx, afterID, batchSize)
		if err != nil {
			return updated, l.fail(reporter, err)
		}
		if len(batch) == 0 {
			break
		}

		norms := make(map[int]string, len(batch))
		for _, u := range batch {
			if n := formation.Normalize(u.FormationRaw); n != "" {
				norms[u.PlayID] = n
			}
			afterID = u.PlayID
		}

		n, err := l.plays.SetFormationNorms(ctx, norms)
		if err != nil {
			return updated, l.fail(reporter, err)
		}
		updated += int(n)

		if reporter != nil {
			reporter.OnProgress("formations", updated, 0)
		}
	}

	event := store.IngestEvent{Kind: store.IngestKindNormalize, Inserted: updated}

	// Nothing changed: keep the cache and stay quiet on the stream
	if updated == 0 {
		if reporter != nil {
			reporter.OnComplete(event)
		}
		return 0, nil
	}

	l.logger.Info("✓ Formations normalized", zap.Int("updated", updated))
	l.complete(ctx, reporter, event)

	return updated, nil
}

// complete stamps the event, invalidates cached reports, publishes the event
// and notifies the reporter. Cache and publish failures are logged only; the
// import itself has already committed.
func (l *Loader) complete(ctx context.Context, reporter Reporter, event store.IngestEvent) {
	event.EventID = uuid.NewString()
	event.OccurredAt = l.now().UTC()

	if err := l.cache.DeletePrefix(ctx, cache.TendencyPrefix); err != nil {
		l.logger.Warn("failed to invalidate tendency cache", zap.Error(err))
	}
	if err := l.publisher.PublishIngest(ctx, event); err != nil {
		l.logger.Warn("failed to publish ingest event", zap.String("event_id", event.EventID), zap.Error(err))
	}
	if reporter != nil {
		reporter.OnComplete(event)
	}
}

func (l *Loader) fail(reporter Reporter, err error) error {
	if reporter != nil {
		reporter.OnError(err)
	}
	l.logger.Error("import failed", zap.Error(err))
	return err
}

func (row hudlRow) play(offenseTeamID, defenseTeamID int) *store.Play {
	return &store.Play{
		OffenseTeamID: offenseTeamID,
		DefenseTeamID: defenseTeamID,
		Quarter:       parseInt(row.Quarter),
		Clock:         nullString(row.Clock),
		Down:          parseInt(row.Down),
		Distance:      parseInt(row.Distance),
		YardLine:      parseInt(row.YardLine),
		HashMark:      nullString(row.HashMark),
		FormationRaw:  nullString(row.FormationRaw),
		FormationNorm: nullString(row.FormationNorm),
		Personnel:     nullString(row.Personnel),
		PlayType:      nullString(row.PlayType),
		RunDirection:  nullString(row.RunDirection),
		PassZone:      nullString(row.PassZone),
		YardsGained:   parseInt(row.YardsGained),
		Result:        nullString(row.Result),
	}
}

// drive derives the drive row from its plays: start from the first snap, end
// yard line and result from the last.
func (d *pendingDrive) drive(game *store.Game) *store.Drive {
	first := d.plays[0]
	last := d.plays[len(d.plays)-1]

	return &store.Drive{
		GameID:        game.GameID,
		OffenseTeamID: game.OffenseTeamID,
		DefenseTeamID: game.DefenseTeamID,
		StartQuarter:  first.Quarter,
		StartClock:    first.Clock,
		StartYardLine: first.YardLine,
		EndYardLine:   last.YardLine,
		Result:        last.Result,
	}
}
