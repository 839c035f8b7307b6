package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDriveTeamMismatch is returned when a drive names teams that are not
	// the two teams of its game.
	ErrDriveTeamMismatch = errors.New("drive teams do not match game teams")

	// ErrForeignKey marks a write that referenced a missing row.
	ErrForeignKey = errors.New("foreign key violation")

	// ErrUnique marks a write that duplicated a unique key.
	ErrUnique = errors.New("unique violation")

	// ErrNotNull marks a write that left a mandatory column empty.
	ErrNotNull = errors.New("not null violation")
)

// SQLSTATE codes, class 23 (integrity constraint violation).
const (
	codeNotNullViolation    = "23502"
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
)

// ClassifyError maps a driver error onto ErrForeignKey, ErrUnique or
// ErrNotNull. It returns nil for anything else.
func ClassifyError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch string(pqErr.Code) {
	case codeForeignKeyViolation:
		return ErrForeignKey
	case codeUniqueViolation:
		return ErrUnique
	case codeNotNullViolation:
		return ErrNotNull
	default:
		return nil
	}
}

// IsForeignKeyViolation reports whether err is a referenced-row-missing error.
func IsForeignKeyViolation(err error) bool {
	return ClassifyError(err) == ErrForeignKey
}

// IsUniqueViolation reports whether err is a duplicate key error.
func IsUniqueViolation(err error) bool {
	return ClassifyError(err) == ErrUnique
}

// IsNotNullViolation reports whether err is a missing mandatory column error.
func IsNotNullViolation(err error) bool {
	return ClassifyError(err) == ErrNotNull
}

// ConstraintName returns the violated constraint, if the driver reported one.
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

// WrapWrite prefixes a failed write with msg. Integrity violations also carry
// the matching ErrForeignKey, ErrUnique or ErrNotNull, so callers can use
// errors.Is while the *pq.Error stays reachable through errors.As.
func WrapWrite(msg string, err error) error {
	if kind := ClassifyError(err); kind != nil {
		return fmt.Errorf("%s: %w: %w", msg, kind, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
