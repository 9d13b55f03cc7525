package query

import (
	"context"
	"fmt"

	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// GetApplicationQuery reads one application.
type GetApplicationQuery struct {
	Caller        account.Principal
	ApplicationID string
}

// ListApplicationsByStudentQuery lists a student's applications.
type ListApplicationsByStudentQuery struct {
	Caller    account.Principal
	StudentID string
	Page      shared.PageRequest
}

// ListApplicationsByOfferQuery lists the applications to one offer.
type ListApplicationsByOfferQuery struct {
	Caller  account.Principal
	OfferID string
	Page    shared.PageRequest
}

// ApplicationQueries answers application reads.
type ApplicationQueries struct {
	source Source
}

// NewApplicationQueries creates a new ApplicationQueries.
func NewApplicationQueries(source Source) *ApplicationQueries {
	return &ApplicationQueries{source: source}
}

// Get is allowed for the applicant, the offer's company and admins.
func (q *ApplicationQueries) Get(ctx context.Context, qry GetApplicationQuery) (*ApplicationDTO, error) {
	if err := qry.Caller.Validate(); err != nil {
		return nil, err
	}
	r := q.source.Repositories()

	app, err := r.Applications.GetByID(ctx, qry.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("get_application: %w", err)
	}

	allowed := qry.Caller.IsAdmin() || app.SubmittedBy(qry.Caller.UserID)
	if !allowed && qry.Caller.Is(account.RoleCompany) {
		off, err := r.Offers.Get(ctx, app.OfferID)
		if err != nil {
			return nil, fmt.Errorf("get_application: %w", err)
		}
		allowed = off.OwnedBy(qry.Caller.UserID)
	}
	if !allowed {
		return nil, fmt.Errorf("get_application: %w", forbidden("application", "Get"))
	}

	dto := NewApplicationDTO(app)
	return &dto, nil
}

// ListByStudent is allowed for that student and admins.
func (q *ApplicationQueries) ListByStudent(ctx context.Context, qry ListApplicationsByStudentQuery) (shared.Page[ApplicationDTO], error) {
	if err := selfOrAdmin(qry.Caller, account.RoleStudent, qry.StudentID, "application", "ListByStudent"); err != nil {
		return shared.Page[ApplicationDTO]{}, err
	}
	req := qry.Page.Normalize()

	items, total, err := q.source.Repositories().Applications.ListByStudent(ctx, qry.StudentID, req)
	if err != nil {
		return shared.Page[ApplicationDTO]{}, fmt.Errorf("list_applications_by_student: %w", err)
	}
	return pageOf(items, total, req, NewApplicationDTO), nil
}

// ListByOffer is allowed for the owning company and admins.
func (q *ApplicationQueries) ListByOffer(ctx context.Context, qry ListApplicationsByOfferQuery) (shared.Page[ApplicationDTO], error) {
	if err := qry.Caller.Validate(); err != nil {
		return shared.Page[ApplicationDTO]{}, err
	}
	r := q.source.Repositories()

	off, err := r.Offers.Get(ctx, qry.OfferID)
	if err != nil {
		return shared.Page[ApplicationDTO]{}, fmt.Errorf("list_applications_by_offer: %w", err)
	}
	if !qry.Caller.IsAdmin() && !(qry.Caller.Is(account.RoleCompany) && off.OwnedBy(qry.Caller.UserID)) {
		return shared.Page[ApplicationDTO]{}, forbidden("application", "ListByOffer")
	}
	req := qry.Page.Normalize()

	items, total, err := r.Applications.ListByOffer(ctx, off.ID, req)
	if err != nil {
		return shared.Page[ApplicationDTO]{}, fmt.Errorf("list_applications_by_offer: %w", err)
	}
	return pageOf(items, total, req, NewApplicationDTO), nil
}
