package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registers the "postgres" driver for database/sql.
	_ "github.com/lib/pq"
)

// SQLMigrator runs the embedded migrations over database/sql. cmd/migrate
// uses it so schema changes do not need the pgx pool.
type SQLMigrator struct {
	plan migrationPlan
}

// OpenSQL opens a database/sql handle with the lib/pq driver and pings it.
func OpenSQL(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// NewSQLMigrator creates a migrator over db with the embedded migrations.
func NewSQLMigrator(db *sql.DB) *SQLMigrator {
	return NewSQLMigratorWithMigrations(db, GetMigrations())
}

// NewSQLMigratorWithMigrations creates a migrator with custom migrations.
func NewSQLMigratorWithMigrations(db *sql.DB, migrations []Migration) *SQLMigrator {
	return &SQLMigrator{plan: migrationPlan{exec: sqlExecutor{db: db}, migrations: migrations}}
}

// Up applies all pending migrations and returns the applied versions.
func (m *SQLMigrator) Up(ctx context.Context) ([]int, error) {
	return m.plan.up(ctx)
}

// Down rolls back the latest n applied migrations.
func (m *SQLMigrator) Down(ctx context.Context, n int) ([]int, error) {
	if n <= 0 {
		return nil, nil
	}
	return m.plan.down(ctx, n)
}

// Status reports every known migration and whether it is applied.
func (m *SQLMigrator) Status(ctx context.Context) ([]Migration, error) {
	return m.plan.status(ctx)
}

type sqlExecutor struct {
	db *sql.DB
}

func (e sqlExecutor) exec(ctx context.Context, query string, args ...any) error {
	_, err := e.db.ExecContext(ctx, query, args...)
	return err
}

func (e sqlExecutor) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := e.db.QueryContext(ctx, selectMigrationsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

func (e sqlExecutor) inTx(ctx context.Context, fn func(exec func(string, ...any) error) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	err = fn(func(query string, args ...any) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit error: %w", err)
	}
	return nil
}
