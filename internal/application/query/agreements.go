package query

import (
	"context"
	"fmt"

	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AGREEMENT QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// GetAgreementQuery reads one agreement.
type GetAgreementQuery struct {
	Caller      account.Principal
	AgreementID string
}

// ListAgreementsQuery lists agreements by owner. Exactly one of StudentID and
// CompanyID is used by the matching method; ListAll reads Status instead.
type ListAgreementsQuery struct {
	Caller    account.Principal
	StudentID string
	CompanyID string
	Status    *agreement.Status
	Page      shared.PageRequest
}

// AgreementQueries answers agreement reads.
type AgreementQueries struct {
	source Source
}

// NewAgreementQueries creates a new AgreementQueries.
func NewAgreementQueries(source Source) *AgreementQueries {
	return &AgreementQueries{source: source}
}

// Get is allowed for the parties, admins and the assigned tutor.
func (q *AgreementQueries) Get(ctx context.Context, qry GetAgreementQuery) (*AgreementDTO, error) {
	if err := qry.Caller.Validate(); err != nil {
		return nil, err
	}
	r := q.source.Repositories()

	a, err := r.Agreements.GetByID(ctx, qry.AgreementID)
	if err != nil {
		return nil, fmt.Errorf("get_agreement: %w", err)
	}

	allowed := qry.Caller.IsAdmin() || a.IsParty(qry.Caller.UserID)
	if !allowed && qry.Caller.Is(account.RoleTutor) {
		s, err := r.Supervisions.GetByAgreementID(ctx, a.ID)
		switch {
		case err == nil:
			allowed = s.TutorID == qry.Caller.UserID
		case !shared.IsNotFound(err):
			return nil, fmt.Errorf("get_agreement: %w", err)
		}
	}
	if !allowed {
		return nil, fmt.Errorf("get_agreement: %w", agreement.ErrNotParty)
	}

	dto := NewAgreementDTO(a)
	return &dto, nil
}

// ListByStudent is allowed for that student and admins.
func (q *AgreementQueries) ListByStudent(ctx context.Context, qry ListAgreementsQuery) (shared.Page[AgreementDTO], error) {
	if err := selfOrAdmin(qry.Caller, account.RoleStudent, qry.StudentID, "agreement", "ListByStudent"); err != nil {
		return shared.Page[AgreementDTO]{}, err
	}
	req := qry.Page.Normalize()

	items, total, err := q.source.Repositories().Agreements.ListByStudent(ctx, qry.StudentID, req)
	if err != nil {
		return shared.Page[AgreementDTO]{}, fmt.Errorf("list_agreements_by_student: %w", err)
	}
	return pageOf(items, total, req, NewAgreementDTO), nil
}

// ListByCompany is allowed for that company and admins.
func (q *AgreementQueries) ListByCompany(ctx context.Context, qry ListAgreementsQuery) (shared.Page[AgreementDTO], error) {
	if err := selfOrAdmin(qry.Caller, account.RoleCompany, qry.CompanyID, "agreement", "ListByCompany"); err != nil {
		return shared.Page[AgreementDTO]{}, err
	}
	req := qry.Page.Normalize()

	items, total, err := q.source.Repositories().Agreements.ListByCompany(ctx, qry.CompanyID, req)
	if err != nil {
		return shared.Page[AgreementDTO]{}, fmt.Errorf("list_agreements_by_company: %w", err)
	}
	return pageOf(items, total, req, NewAgreementDTO), nil
}

// ListAll is admin-only.
func (q *AgreementQueries) ListAll(ctx context.Context, qry ListAgreementsQuery) (shared.Page[AgreementDTO], error) {
	if !qry.Caller.IsAdmin() {
		return shared.Page[AgreementDTO]{}, forbidden("agreement", "ListAll")
	}
	req := qry.Page.Normalize()

	items, total, err := q.source.Repositories().Agreements.ListAll(ctx, qry.Status, req)
	if err != nil {
		return shared.Page[AgreementDTO]{}, fmt.Errorf("list_agreements: %w", err)
	}
	return pageOf(items, total, req, NewAgreementDTO), nil
}
