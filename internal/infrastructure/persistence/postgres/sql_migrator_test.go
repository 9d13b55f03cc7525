package postgres

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMigrations = []Migration{
	{Version: 1, Name: "one", UpSQL: "CREATE TABLE one (id INT)", DownSQL: "DROP TABLE one"},
	{Version: 2, Name: "two", UpSQL: "CREATE TABLE two (id INT)", DownSQL: "DROP TABLE two"},
}

func newMockMigrator(t *testing.T) (*SQLMigrator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLMigratorWithMigrations(db, testMigrations), mock
}

func expectTable(mock sqlmock.Sqlmock, applied map[int]time.Time) {
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"version", "applied_at"})
	for _, v := range []int{1, 2} {
		if at, ok := applied[v]; ok {
			rows.AddRow(v, at)
		}
	}
	mock.ExpectQuery(regexp.QuoteMeta(selectMigrationsSQL)).WillReturnRows(rows)
}

func TestSQLMigrator_UpAppliesPendingInOrder(t *testing.T) {
	m, mock := newMockMigrator(t)
	expectTable(mock, nil)

	for _, mig := range testMigrations {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(mig.UpSQL)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").
			WithArgs(mig.Version, mig.Name).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	done, err := m.Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, done)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMigrator_UpSkipsApplied(t *testing.T) {
	m, mock := newMockMigrator(t)
	expectTable(mock, map[int]time.Time{1: time.Now()})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(testMigrations[1].UpSQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(2, "two").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	done, err := m.Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2}, done)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMigrator_UpRollsBackFailedMigration(t *testing.T) {
	m, mock := newMockMigrator(t)
	expectTable(mock, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(testMigrations[0].UpSQL)).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	done, err := m.Up(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMigrationFailed)
	assert.Empty(t, done)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMigrator_DownNewestFirst(t *testing.T) {
	m, mock := newMockMigrator(t)
	now := time.Now()
	expectTable(mock, map[int]time.Time{1: now, 2: now})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(testMigrations[1].DownSQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM schema_migrations").WithArgs(2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	done, err := m.Down(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, done)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMigrator_DownZeroIsNoop(t *testing.T) {
	m, mock := newMockMigrator(t)

	done, err := m.Down(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, done)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMigrator_Status(t *testing.T) {
	m, mock := newMockMigrator(t)
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	expectTable(mock, map[int]time.Time{1: at})

	status, err := m.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.True(t, status[0].IsApplied)
	assert.Equal(t, at, status[0].AppliedAt)
	assert.False(t, status[1].IsApplied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMigrations_Ordered(t *testing.T) {
	migs := GetMigrations()
	require.NotEmpty(t, migs)

	for i, mig := range migs {
		assert.Equal(t, i+1, mig.Version)
		assert.NotEmpty(t, mig.UpSQL, mig.Name)
		assert.NotEmpty(t, mig.DownSQL, mig.Name)
	}
}

func TestGetMigrations_DeclaresWorkflowConstraints(t *testing.T) {
	var all strings.Builder
	for _, mig := range GetMigrations() {
		all.WriteString(mig.UpSQL)
	}
	sql := all.String()

	for _, name := range []string{
		"uq_applications_student_offer",
		"uq_agreements_application",
		constraintSupervisionAgreement,
		constraintSupervisionActiveStudent,
	} {
		assert.Contains(t, sql, name)
	}
}
