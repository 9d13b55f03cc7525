package postgres

import (
	"context"
	"fmt"

	"github.com/internhub/internhub/internal/domain/shared"
	"github.com/internhub/internhub/internal/domain/supervision"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUPERVISION REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Constraint names from migration 003.
const (
	constraintSupervisionAgreement     = "uq_supervisions_agreement"
	constraintSupervisionActiveStudent = "uq_supervisions_active_student"
)

// SupervisionRepository implements supervision.Repository for PostgreSQL.
type SupervisionRepository struct {
	q Querier
}

// NewSupervisionRepository creates a repository bound to a connection or a tx.
func NewSupervisionRepository(q Querier) *SupervisionRepository {
	return &SupervisionRepository{q: q}
}

const supervisionColumns = `id, agreement_id, student_id, tutor_id, assigned_at, progress, notes, last_visit, updated_at`

// Create inserts a supervision and maps the two unique keys to their domain
// errors.
func (r *SupervisionRepository) Create(ctx context.Context, s *supervision.Supervision) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO supervisions (`+supervisionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, s.ID, s.AgreementID, s.StudentID, s.TutorID, s.AssignedAt, string(s.Progress), s.Notes, s.LastVisit, s.UpdatedAt)
	if err != nil {
		switch ViolatedConstraint(err) {
		case constraintSupervisionAgreement:
			return supervision.ErrAlreadyAssigned
		case constraintSupervisionActiveStudent:
			return supervision.ErrStudentAlreadyActive
		}
		return fmt.Errorf("failed to create supervision: %w", err)
	}
	return nil
}

// GetByID returns the supervision or supervision.ErrNotFound.
func (r *SupervisionRepository) GetByID(ctx context.Context, id string) (*supervision.Supervision, error) {
	return scanSupervision(r.q.QueryRow(ctx, `SELECT `+supervisionColumns+` FROM supervisions WHERE id = $1`, id))
}

// GetByIDForUpdate locks the row until the surrounding tx ends.
func (r *SupervisionRepository) GetByIDForUpdate(ctx context.Context, id string) (*supervision.Supervision, error) {
	return scanSupervision(r.q.QueryRow(ctx, `SELECT `+supervisionColumns+` FROM supervisions WHERE id = $1 FOR UPDATE`, id))
}

// ExistsForAgreement reports whether the agreement already has a tutor.
func (r *SupervisionRepository) ExistsForAgreement(ctx context.Context, agreementID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM supervisions WHERE agreement_id = $1)`, agreementID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check supervision existence: %w", err)
	}
	return exists, nil
}

// GetByAgreementID returns the supervision of an agreement.
func (r *SupervisionRepository) GetByAgreementID(ctx context.Context, agreementID string) (*supervision.Supervision, error) {
	return scanSupervision(r.q.QueryRow(ctx, `SELECT `+supervisionColumns+` FROM supervisions WHERE agreement_id = $1`, agreementID))
}

// CountActiveByTutor counts the tutor's supervisions that are not COMPLETED.
func (r *SupervisionRepository) CountActiveByTutor(ctx context.Context, tutorID string) (int, error) {
	return r.countActive(ctx, "tutor_id", tutorID)
}

// CountActiveByStudent counts the student's supervisions that are not COMPLETED.
func (r *SupervisionRepository) CountActiveByStudent(ctx context.Context, studentID string) (int, error) {
	return r.countActive(ctx, "student_id", studentID)
}

func (r *SupervisionRepository) countActive(ctx context.Context, column, id string) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM supervisions WHERE `+column+` = $1 AND progress <> 'COMPLETED'
	`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active supervisions: %w", err)
	}
	return count, nil
}

// GetActiveByStudent returns the student's active supervision.
func (r *SupervisionRepository) GetActiveByStudent(ctx context.Context, studentID string) (*supervision.Supervision, error) {
	return scanSupervision(r.q.QueryRow(ctx, `
		SELECT `+supervisionColumns+`
		FROM supervisions
		WHERE student_id = $1 AND progress <> 'COMPLETED'
	`, studentID))
}

// Update persists progress, notes and last visit.
func (r *SupervisionRepository) Update(ctx context.Context, s *supervision.Supervision) error {
	result, err := r.q.Exec(ctx, `
		UPDATE supervisions SET
			progress = $1,
			notes = $2,
			last_visit = $3,
			updated_at = $4
		WHERE id = $5
	`, string(s.Progress), s.Notes, s.LastVisit, s.UpdatedAt, s.ID)
	if err != nil {
		if ViolatedConstraint(err) == constraintSupervisionActiveStudent {
			return supervision.ErrStudentAlreadyActive
		}
		return fmt.Errorf("failed to update supervision: %w", err)
	}
	if result.RowsAffected() == 0 {
		return supervision.ErrNotFound
	}
	return nil
}

// ListAll pages every supervision, newest first.
func (r *SupervisionRepository) ListAll(ctx context.Context, page shared.PageRequest) ([]*supervision.Supervision, int, error) {
	return r.list(ctx, "TRUE", nil, page)
}

// ListByTutor pages a tutor's supervisions, newest first.
func (r *SupervisionRepository) ListByTutor(ctx context.Context, tutorID string, page shared.PageRequest) ([]*supervision.Supervision, int, error) {
	return r.list(ctx, "tutor_id = $1", []any{tutorID}, page)
}

func (r *SupervisionRepository) list(ctx context.Context, where string, args []any, page shared.PageRequest) ([]*supervision.Supervision, int, error) {
	page = page.Normalize()

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM supervisions WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count supervisions: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`
		SELECT %s
		FROM supervisions
		WHERE %s
		ORDER BY assigned_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, supervisionColumns, where, n+1, n+2)

	rows, err := r.q.Query(ctx, query, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list supervisions: %w", err)
	}
	defer rows.Close()

	var list []*supervision.Supervision
	for rows.Next() {
		s, err := scanSupervision(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating supervisions: %w", err)
	}
	return list, total, nil
}

func scanSupervision(row pgx.Row) (*supervision.Supervision, error) {
	var (
		s        supervision.Supervision
		progress string
	)
	err := row.Scan(&s.ID, &s.AgreementID, &s.StudentID, &s.TutorID, &s.AssignedAt, &progress, &s.Notes, &s.LastVisit, &s.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, supervision.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan supervision: %w", err)
	}
	s.Progress = supervision.Progress(progress)
	return &s, nil
}
