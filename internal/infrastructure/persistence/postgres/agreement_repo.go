package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// AGREEMENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// AgreementRepository implements agreement.Repository for PostgreSQL.
type AgreementRepository struct {
	q Querier
}

// NewAgreementRepository creates a repository bound to a connection or a tx.
func NewAgreementRepository(q Querier) *AgreementRepository {
	return &AgreementRepository{q: q}
}

const agreementColumns = `id, application_id, student_id, company_id, offer_id, start_date, end_date,
	status, student_signed, company_signed, admin_signed, document_ref,
	signed_at, archived_at, created_at, updated_at`

// Create inserts an agreement. The application_id key makes provisioning
// idempotent: a lost race inserts nothing and reports ErrAlreadyExists.
func (r *AgreementRepository) Create(ctx context.Context, a *agreement.Agreement) error {
	result, err := r.q.Exec(ctx, `
		INSERT INTO agreements (`+agreementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (application_id) DO NOTHING
	`,
		a.ID, a.ApplicationID, a.StudentID, a.CompanyID, a.OfferID,
		nullDate(a.StartDate), nullDate(a.EndDate),
		string(a.Status), a.StudentSigned, a.CompanySigned, a.AdminSigned, a.DocumentRef,
		a.SignedAt, a.ArchivedAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return agreement.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create agreement: %w", err)
	}
	if result.RowsAffected() == 0 {
		return agreement.ErrAlreadyExists
	}
	return nil
}

// GetByID returns the agreement or agreement.ErrNotFound.
func (r *AgreementRepository) GetByID(ctx context.Context, id string) (*agreement.Agreement, error) {
	return scanAgreement(r.q.QueryRow(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE id = $1`, id))
}

// GetByIDForUpdate locks the row until the surrounding tx ends.
func (r *AgreementRepository) GetByIDForUpdate(ctx context.Context, id string) (*agreement.Agreement, error) {
	return scanAgreement(r.q.QueryRow(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE id = $1 FOR UPDATE`, id))
}

// GetByApplicationID returns the agreement of an application.
func (r *AgreementRepository) GetByApplicationID(ctx context.Context, applicationID string) (*agreement.Agreement, error) {
	return scanAgreement(r.q.QueryRow(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE application_id = $1`, applicationID))
}

// Update persists status, flags, document and timestamps.
func (r *AgreementRepository) Update(ctx context.Context, a *agreement.Agreement) error {
	result, err := r.q.Exec(ctx, `
		UPDATE agreements SET
			status = $1,
			student_signed = $2,
			company_signed = $3,
			admin_signed = $4,
			document_ref = $5,
			signed_at = $6,
			archived_at = $7,
			updated_at = $8
		WHERE id = $9
	`,
		string(a.Status), a.StudentSigned, a.CompanySigned, a.AdminSigned, a.DocumentRef,
		a.SignedAt, a.ArchivedAt, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update agreement: %w", err)
	}
	if result.RowsAffected() == 0 {
		return agreement.ErrNotFound
	}
	return nil
}

// ListByStudent pages a student's agreements, newest first.
func (r *AgreementRepository) ListByStudent(ctx context.Context, studentID string, page shared.PageRequest) ([]*agreement.Agreement, int, error) {
	return r.list(ctx, "student_id = $1", []any{studentID}, page)
}

// ListByCompany pages a company's agreements, newest first.
func (r *AgreementRepository) ListByCompany(ctx context.Context, companyID string, page shared.PageRequest) ([]*agreement.Agreement, int, error) {
	return r.list(ctx, "company_id = $1", []any{companyID}, page)
}

// ListAll pages every agreement, optionally filtered by status.
func (r *AgreementRepository) ListAll(ctx context.Context, status *agreement.Status, page shared.PageRequest) ([]*agreement.Agreement, int, error) {
	if status != nil {
		return r.list(ctx, "status = $1", []any{string(*status)}, page)
	}
	return r.list(ctx, "TRUE", nil, page)
}

// ListAwaitingDocument returns SIGNED agreements without a document, oldest
// signature first.
func (r *AgreementRepository) ListAwaitingDocument(ctx context.Context, limit int) ([]*agreement.Agreement, error) {
	if limit <= 0 {
		limit = shared.DefaultPageSize
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+agreementColumns+`
		FROM agreements
		WHERE status = 'SIGNED' AND document_ref IS NULL
		ORDER BY signed_at ASC, id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list agreements awaiting document: %w", err)
	}
	defer rows.Close()
	return scanAgreements(rows)
}

// list runs a filtered, paged listing. where is a fixed fragment whose
// placeholders start at $1; limit and offset follow the filter args.
func (r *AgreementRepository) list(ctx context.Context, where string, args []any, page shared.PageRequest) ([]*agreement.Agreement, int, error) {
	page = page.Normalize()

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM agreements WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count agreements: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`
		SELECT %s
		FROM agreements
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, agreementColumns, where, n+1, n+2)

	rows, err := r.q.Query(ctx, query, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list agreements: %w", err)
	}
	defer rows.Close()

	list, err := scanAgreements(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func scanAgreements(rows pgx.Rows) ([]*agreement.Agreement, error) {
	var list []*agreement.Agreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agreements: %w", err)
	}
	return list, nil
}

func scanAgreement(row pgx.Row) (*agreement.Agreement, error) {
	var (
		a                  agreement.Agreement
		status             string
		startDate, endDate *time.Time
	)
	err := row.Scan(
		&a.ID, &a.ApplicationID, &a.StudentID, &a.CompanyID, &a.OfferID, &startDate, &endDate,
		&status, &a.StudentSigned, &a.CompanySigned, &a.AdminSigned, &a.DocumentRef,
		&a.SignedAt, &a.ArchivedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, agreement.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan agreement: %w", err)
	}
	a.Status = agreement.Status(status)
	if startDate != nil {
		a.StartDate = *startDate
	}
	if endDate != nil {
		a.EndDate = *endDate
	}
	return &a, nil
}
