package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION SUPPORT
// ══════════════════════════════════════════════════════════════════════════════

// migrationsTable records applied versions.
const migrationsTable = "schema_migrations"

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// migrationExecutor is the driver-specific part of a migrator: pgx in the
// services, database/sql in the CLI.
type migrationExecutor interface {
	exec(ctx context.Context, query string, args ...any) error
	applied(ctx context.Context) (map[int]time.Time, error)
	inTx(ctx context.Context, fn func(exec func(query string, args ...any) error) error) error
}

var (
	createMigrationsTableSQL = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`, migrationsTable)
	selectMigrationsSQL = fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", migrationsTable)
	insertMigrationSQL  = fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", migrationsTable)
	deleteMigrationSQL  = fmt.Sprintf("DELETE FROM %s WHERE version = $1", migrationsTable)
)

// migrationPlan holds the ordered migrations and runs them on an executor.
type migrationPlan struct {
	exec       migrationExecutor
	migrations []Migration
}

func (p migrationPlan) ensureTable(ctx context.Context) error {
	if err := p.exec.exec(ctx, createMigrationsTableSQL); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// up applies pending migrations in version order, each in its own tx, and
// returns the versions it applied.
func (p migrationPlan) up(ctx context.Context) ([]int, error) {
	if err := p.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := p.exec.applied(ctx)
	if err != nil {
		return nil, err
	}

	var done []int
	for _, mig := range p.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		if mig.UpSQL == "" {
			return done, fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := p.exec.inTx(ctx, func(exec func(string, ...any) error) error {
			if err := exec(mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			return exec(insertMigrationSQL, mig.Version, mig.Name)
		})
		if err != nil {
			return done, fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
		done = append(done, mig.Version)
	}
	return done, nil
}

// down rolls back the latest n applied migrations, newest first.
func (p migrationPlan) down(ctx context.Context, n int) ([]int, error) {
	if err := p.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := p.exec.applied(ctx)
	if err != nil {
		return nil, err
	}

	var done []int
	for i := len(p.migrations) - 1; i >= 0 && len(done) < n; i-- {
		mig := p.migrations[i]
		if _, ok := applied[mig.Version]; !ok {
			continue
		}
		if mig.DownSQL == "" {
			return done, fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := p.exec.inTx(ctx, func(exec func(string, ...any) error) error {
			if err := exec(mig.DownSQL); err != nil {
				return fmt.Errorf("failed to rollback migration %d: %w", mig.Version, err)
			}
			return exec(deleteMigrationSQL, mig.Version)
		})
		if err != nil {
			return done, fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
		done = append(done, mig.Version)
	}
	return done, nil
}

func (p migrationPlan) status(ctx context.Context) ([]Migration, error) {
	if err := p.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := p.exec.applied(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(p.migrations))
	copy(result, p.migrations)
	for i := range result {
		if at, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = at
		}
	}
	return result, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// pgx migrator
// ─────────────────────────────────────────────────────────────────────────────

// Migrator applies the embedded migrations through the pgx pool. The api and
// worker binaries run it at startup.
type Migrator struct {
	plan migrationPlan
}

// NewMigrator creates a new migrator with embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return NewMigratorWithMigrations(conn, GetMigrations())
}

// NewMigratorWithMigrations creates a migrator with custom migrations.
func NewMigratorWithMigrations(conn *Connection, migrations []Migration) *Migrator {
	return &Migrator{plan: migrationPlan{exec: pgxExecutor{conn: conn}, migrations: migrations}}
}

// Migrate applies all pending migrations and returns the applied versions.
func (m *Migrator) Migrate(ctx context.Context) ([]int, error) {
	return m.plan.up(ctx)
}

// Rollback rolls back the last applied migration.
func (m *Migrator) Rollback(ctx context.Context) error {
	_, err := m.plan.down(ctx, 1)
	return err
}

// Status returns the migration status.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	return m.plan.status(ctx)
}

type pgxExecutor struct {
	conn *Connection
}

func (e pgxExecutor) exec(ctx context.Context, query string, args ...any) error {
	_, err := e.conn.Exec(ctx, query, args...)
	return err
}

func (e pgxExecutor) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := e.conn.Query(ctx, selectMigrationsSQL)
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

func (e pgxExecutor) inTx(ctx context.Context, fn func(exec func(string, ...any) error) error) error {
	return e.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(func(query string, args ...any) error {
			_, err := tx.Exec(ctx, query, args...)
			return err
		})
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_accounts_and_offers",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_applications_and_agreements",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_supervisions",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "create_notifications",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: ACCOUNTS AND OFFERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS accounts (
    id UUID PRIMARY KEY,
    role VARCHAR(20) NOT NULL,
    display_name VARCHAR(200) NOT NULL,
    email VARCHAR(320) NOT NULL DEFAULT '',
    program VARCHAR(200) NOT NULL DEFAULT '',
    level VARCHAR(50) NOT NULL DEFAULT '',
    legal_name VARCHAR(200) NOT NULL DEFAULT '',
    sector VARCHAR(100) NOT NULL DEFAULT '',
    department VARCHAR(200) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_role CHECK (role IN ('STUDENT', 'COMPANY', 'TUTOR', 'ADMIN'))
);

CREATE INDEX IF NOT EXISTS idx_accounts_role ON accounts(role);

CREATE TABLE IF NOT EXISTS offers (
    id UUID PRIMARY KEY,
    company_id UUID NOT NULL REFERENCES accounts(id),
    title VARCHAR(300) NOT NULL,
    status VARCHAR(30) NOT NULL DEFAULT 'PENDING_VALIDATION',
    start_date DATE,
    end_date DATE,
    expiry DATE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_offer_status CHECK (status IN ('PENDING_VALIDATION', 'VALIDATED', 'REJECTED', 'CLOSED')),
    CONSTRAINT valid_offer_period CHECK (start_date IS NULL OR end_date IS NULL OR end_date >= start_date)
);

CREATE INDEX IF NOT EXISTS idx_offers_company_id ON offers(company_id);
`

const migration001Down = `
DROP TABLE IF EXISTS offers;
DROP TABLE IF EXISTS accounts;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: APPLICATIONS AND AGREEMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS applications (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL REFERENCES accounts(id),
    offer_id UUID NOT NULL REFERENCES offers(id),
    motivation TEXT NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    submitted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    rejection_comment TEXT,
    decided_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT uq_applications_student_offer UNIQUE (student_id, offer_id),
    CONSTRAINT valid_application_status CHECK (status IN ('PENDING', 'ACCEPTED', 'REJECTED')),
    CONSTRAINT decided_when_final CHECK ((status = 'PENDING') = (decided_at IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_applications_student ON applications(student_id, submitted_at DESC);
CREATE INDEX IF NOT EXISTS idx_applications_offer ON applications(offer_id, submitted_at DESC);

CREATE TABLE IF NOT EXISTS agreements (
    id UUID PRIMARY KEY,
    application_id UUID NOT NULL REFERENCES applications(id),
    student_id UUID NOT NULL REFERENCES accounts(id),
    company_id UUID NOT NULL REFERENCES accounts(id),
    offer_id UUID NOT NULL REFERENCES offers(id),
    start_date DATE,
    end_date DATE,
    status VARCHAR(30) NOT NULL DEFAULT 'DRAFT',
    student_signed BOOLEAN NOT NULL DEFAULT FALSE,
    company_signed BOOLEAN NOT NULL DEFAULT FALSE,
    admin_signed BOOLEAN NOT NULL DEFAULT FALSE,
    document_ref TEXT,
    signed_at TIMESTAMP WITH TIME ZONE,
    archived_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_agreements_application UNIQUE (application_id),
    CONSTRAINT valid_agreement_status CHECK (status IN ('DRAFT', 'PENDING_SIGNATURES', 'SIGNED', 'ARCHIVED')),

    -- status is a function of the three flags
    CONSTRAINT status_matches_signatures CHECK (
        (status = 'DRAFT' AND NOT (student_signed OR company_signed OR admin_signed))
        OR (status = 'PENDING_SIGNATURES'
            AND (student_signed::int + company_signed::int + admin_signed::int) BETWEEN 1 AND 2)
        OR (status IN ('SIGNED', 'ARCHIVED') AND student_signed AND company_signed AND admin_signed)
    ),
    CONSTRAINT document_only_when_signed CHECK (document_ref IS NULL OR status IN ('SIGNED', 'ARCHIVED'))
);

CREATE INDEX IF NOT EXISTS idx_agreements_student ON agreements(student_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_agreements_company ON agreements(company_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_agreements_status ON agreements(status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_agreements_awaiting_document ON agreements(signed_at)
    WHERE status = 'SIGNED' AND document_ref IS NULL;
`

const migration002Down = `
DROP TABLE IF EXISTS agreements;
DROP TABLE IF EXISTS applications;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: SUPERVISIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS supervisions (
    id UUID PRIMARY KEY,
    agreement_id UUID NOT NULL REFERENCES agreements(id),
    student_id UUID NOT NULL REFERENCES accounts(id),
    tutor_id UUID NOT NULL REFERENCES accounts(id),
    assigned_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    progress VARCHAR(20) NOT NULL DEFAULT 'NOT_STARTED',
    notes TEXT,
    last_visit DATE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_supervisions_agreement UNIQUE (agreement_id),
    CONSTRAINT valid_progress CHECK (progress IN ('NOT_STARTED', 'IN_PROGRESS', 'COMPLETED'))
);

-- one internship in progress per student
CREATE UNIQUE INDEX IF NOT EXISTS uq_supervisions_active_student ON supervisions(student_id)
    WHERE progress <> 'COMPLETED';

CREATE INDEX IF NOT EXISTS idx_supervisions_tutor_active ON supervisions(tutor_id)
    WHERE progress <> 'COMPLETED';
CREATE INDEX IF NOT EXISTS idx_supervisions_tutor ON supervisions(tutor_id, assigned_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS supervisions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: NOTIFICATIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
CREATE TABLE IF NOT EXISTS notifications (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    message VARCHAR(1000) NOT NULL,
    category VARCHAR(20) NOT NULL,
    action_link TEXT NOT NULL DEFAULT '',
    read BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    read_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT valid_category CHECK (category IN ('APPLICATION', 'AGREEMENT', 'OFFER', 'SUPERVISION'))
);

CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(user_id) WHERE NOT read;
CREATE INDEX IF NOT EXISTS idx_notifications_read_created ON notifications(created_at) WHERE read;
`

const migration004Down = `
DROP TABLE IF EXISTS notifications;
`
