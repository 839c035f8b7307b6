package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tendalyze/tendalyze/internal/store"
)

const driveColumns = `drive_id, game_id, offense_team_id, defense_team_id, start_quarter,
	start_clock, start_yard_line, end_yard_line, result, created_at`

// DriveRepository handles drive data access
type DriveRepository struct {
	q store.Querier
}

// NewDriveRepository creates a new drive repository
func NewDriveRepository(db *store.Database) *DriveRepository {
	return &DriveRepository{q: db.DB()}
}

// WithTx returns a copy of the repository bound to tx
func (r *DriveRepository) WithTx(tx *sql.Tx) *DriveRepository {
	return &DriveRepository{q: tx}
}

// Create inserts a drive. The drive's offense and defense must be the two
// teams of its game, in either role; otherwise ErrDriveTeamMismatch is
// returned and nothing is written. A missing game surfaces as the driver's
// foreign key violation.
func (r *DriveRepository) Create(ctx context.Context, drive *store.Drive) error {
	if err := r.checkTeams(ctx, drive); err != nil {
		return err
	}

	query := `
		INSERT INTO drives (game_id, offense_team_id, defense_team_id, start_quarter,
			start_clock, start_yard_line, end_yard_line, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING drive_id, created_at
	`

	err := r.q.QueryRowContext(ctx, query,
		drive.GameID, drive.OffenseTeamID, drive.DefenseTeamID, drive.StartQuarter,
		drive.StartClock, drive.StartYardLine, drive.EndYardLine, drive.Result,
	).Scan(&drive.DriveID, &drive.CreatedAt)
	if err != nil {
		return store.WrapWrite("inserting drive", err)
	}

	return nil
}

func (r *DriveRepository) checkTeams(ctx context.Context, drive *store.Drive) error {
	var offense, defense int
	err := r.q.QueryRowContext(ctx,
		`SELECT offense_team_id, defense_team_id FROM games WHERE game_id = $1`, drive.GameID,
	).Scan(&offense, &defense)
	if errors.Is(err, sql.ErrNoRows) {
		// Let the insert raise the foreign key violation.
		return nil
	}
	if err != nil {
		return fmt.Errorf("querying game teams: %w", err)
	}

	matches := (drive.OffenseTeamID == offense && drive.DefenseTeamID == defense) ||
		(drive.OffenseTeamID == defense && drive.DefenseTeamID == offense)
	if !matches {
		return fmt.Errorf("drive teams %d/%d for game %d: %w",
			drive.OffenseTeamID, drive.DefenseTeamID, drive.GameID, store.ErrDriveTeamMismatch)
	}
	return nil
}

// GetByID finds a drive by ID
func (r *DriveRepository) GetByID(ctx context.Context, driveID int) (*store.Drive, error) {
	query := `SELECT ` + driveColumns + ` FROM drives WHERE drive_id = $1`

	drive, err := scanDrive(r.q.QueryRowContext(ctx, query, driveID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("drive %d: %w", driveID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying drive: %w", err)
	}

	return drive, nil
}

// GetByGame returns the drives of a game in insertion order
func (r *DriveRepository) GetByGame(ctx context.Context, gameID int) ([]*store.Drive, error) {
	query := `SELECT ` + driveColumns + ` FROM drives WHERE game_id = $1 ORDER BY drive_id`

	rows, err := r.q.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("querying drives: %w", err)
	}
	defer rows.Close()

	var drives []*store.Drive
	for rows.Next() {
		drive, err := scanDrive(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning drive: %w", err)
		}
		drives = append(drives, drive)
	}

	return drives, rows.Err()
}

func scanDrive(s rowScanner) (*store.Drive, error) {
	drive := &store.Drive{}
	err := s.Scan(
		&drive.DriveID, &drive.GameID, &drive.OffenseTeamID, &drive.DefenseTeamID,
		&drive.StartQuarter, &drive.StartClock, &drive.StartYardLine, &drive.EndYardLine,
		&drive.Result, &drive.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return drive, nil
}
