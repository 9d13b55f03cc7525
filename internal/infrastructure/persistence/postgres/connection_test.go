package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "secret"
	cfg.ConnectTimeout = 5 * time.Second

	assert.Equal(t,
		"host=localhost port=5432 dbname=internhub user=internhub password=secret sslmode=disable connect_timeout=5",
		cfg.DSN())
}

func TestErrorHelpers(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: constraintSupervisionActiveStudent}
	foreignKey := &pgconn.PgError{Code: "23503", ConstraintName: "supervisions_tutor_id_fkey"}
	wrapped := fmt.Errorf("insert: %w", unique)

	tests := []struct {
		name       string
		err        error
		unique     bool
		foreignKey bool
		noRows     bool
		constraint string
	}{
		{name: "unique", err: unique, unique: true, constraint: constraintSupervisionActiveStudent},
		{name: "wrapped unique", err: wrapped, unique: true, constraint: constraintSupervisionActiveStudent},
		{name: "foreign key", err: foreignKey, foreignKey: true},
		{name: "no rows", err: fmt.Errorf("get: %w", pgx.ErrNoRows), noRows: true},
		{name: "other", err: errors.New("boom")},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, IsUniqueViolation(tt.err))
			assert.Equal(t, tt.foreignKey, IsForeignKeyViolation(tt.err))
			assert.Equal(t, tt.noRows, IsNoRows(tt.err))
			assert.Equal(t, tt.constraint, ViolatedConstraint(tt.err))
		})
	}
}

func TestNullDate(t *testing.T) {
	assert.Nil(t, nullDate(time.Time{}))

	d := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	got := nullDate(d)
	if assert.NotNil(t, got) {
		assert.Equal(t, d, *got)
	}
}
