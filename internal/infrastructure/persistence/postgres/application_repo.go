package postgres

import (
	"context"
	"fmt"

	"github.com/internhub/internhub/internal/domain/application"
	"github.com/internhub/internhub/internal/domain/offer"
	"github.com/internhub/internhub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ApplicationRepository implements application.Repository for PostgreSQL.
type ApplicationRepository struct {
	q Querier
}

// NewApplicationRepository creates a repository bound to a connection or a tx.
func NewApplicationRepository(q Querier) *ApplicationRepository {
	return &ApplicationRepository{q: q}
}

const applicationColumns = `id, student_id, offer_id, motivation, status, submitted_at, rejection_comment, decided_at`

// Create inserts a pending application.
func (r *ApplicationRepository) Create(ctx context.Context, a *application.Application) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.StudentID, a.OfferID, a.Motivation, string(a.Status), a.SubmittedAt, a.RejectionComment, a.DecidedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return application.ErrDuplicate
		}
		if IsForeignKeyViolation(err) {
			return offer.ErrNotFound
		}
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

// GetByID returns the application or application.ErrNotFound.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*application.Application, error) {
	row := r.q.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	return scanApplication(row)
}

// GetByIDForUpdate locks the row until the surrounding tx ends.
func (r *ApplicationRepository) GetByIDForUpdate(ctx context.Context, id string) (*application.Application, error) {
	row := r.q.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1 FOR UPDATE`, id)
	return scanApplication(row)
}

// ExistsForStudentAndOffer checks the (student, offer) key.
func (r *ApplicationRepository) ExistsForStudentAndOffer(ctx context.Context, studentID, offerID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM applications WHERE student_id = $1 AND offer_id = $2)
	`, studentID, offerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check application existence: %w", err)
	}
	return exists, nil
}

// Update persists the decision fields.
func (r *ApplicationRepository) Update(ctx context.Context, a *application.Application) error {
	result, err := r.q.Exec(ctx, `
		UPDATE applications SET
			status = $1,
			rejection_comment = $2,
			decided_at = $3
		WHERE id = $4
	`, string(a.Status), a.RejectionComment, a.DecidedAt, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	if result.RowsAffected() == 0 {
		return application.ErrNotFound
	}
	return nil
}

// Delete removes a pending application.
func (r *ApplicationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	if result.RowsAffected() == 0 {
		return application.ErrNotFound
	}
	return nil
}

// ListByStudent pages a student's applications, newest first.
func (r *ApplicationRepository) ListByStudent(ctx context.Context, studentID string, page shared.PageRequest) ([]*application.Application, int, error) {
	return r.list(ctx, "student_id", studentID, page)
}

// ListByOffer pages an offer's applications, newest first.
func (r *ApplicationRepository) ListByOffer(ctx context.Context, offerID string, page shared.PageRequest) ([]*application.Application, int, error) {
	return r.list(ctx, "offer_id", offerID, page)
}

// list is shared by the two listings; column is never caller input.
func (r *ApplicationRepository) list(ctx context.Context, column, value string, page shared.PageRequest) ([]*application.Application, int, error) {
	page = page.Normalize()

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM applications WHERE `+column+` = $1`, value).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE `+column+` = $1
		ORDER BY submitted_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, value, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	apps := make([]*application.Application, 0, page.Limit)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating applications: %w", err)
	}
	return apps, total, nil
}

func scanApplication(row pgx.Row) (*application.Application, error) {
	var (
		a      application.Application
		status string
	)
	err := row.Scan(&a.ID, &a.StudentID, &a.OfferID, &a.Motivation, &status, &a.SubmittedAt, &a.RejectionComment, &a.DecidedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, application.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan application: %w", err)
	}
	a.Status = application.Status(status)
	return &a, nil
}
