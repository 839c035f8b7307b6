package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"foreign key", &pq.Error{Code: "23503"}, ErrForeignKey},
		{"unique", &pq.Error{Code: "23505"}, ErrUnique},
		{"not null", &pq.Error{Code: "23502"}, ErrNotNull},
		{"wrapped", fmt.Errorf("inserting play: %w", &pq.Error{Code: "23503"}), ErrForeignKey},
		{"other sqlstate", &pq.Error{Code: "42P01"}, nil},
		{"not a driver error", errors.New("boom"), nil},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestViolationHelpers(t *testing.T) {
	fk := fmt.Errorf("inserting play: %w", &pq.Error{Code: "23503", Constraint: "plays_game_id_fkey"})

	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(fk))
	assert.False(t, IsNotNullViolation(fk))
	assert.Equal(t, "plays_game_id_fkey", ConstraintName(fk))
	assert.Empty(t, ConstraintName(errors.New("boom")))
}

func TestWrapWrite(t *testing.T) {
	t.Run("constraint violation", func(t *testing.T) {
		driverErr := &pq.Error{Code: "23505", Constraint: "teams_team_code_key"}
		err := WrapWrite("inserting team", driverErr)

		assert.ErrorIs(t, err, ErrUnique)
		assert.NotErrorIs(t, err, ErrForeignKey)
		assert.True(t, IsUniqueViolation(err))
		assert.Equal(t, "teams_team_code_key", ConstraintName(err))

		var pqErr *pq.Error
		assert.ErrorAs(t, err, &pqErr)
		assert.Contains(t, err.Error(), "inserting team: unique violation")
	})

	t.Run("other error", func(t *testing.T) {
		err := WrapWrite("inserting game", errors.New("connection reset"))

		assert.NotErrorIs(t, err, ErrUnique)
		assert.NotErrorIs(t, err, ErrForeignKey)
		assert.NotErrorIs(t, err, ErrNotNull)
		assert.Equal(t, "inserting game: connection reset", err.Error())
	})
}
