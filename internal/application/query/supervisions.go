package query

import (
	"context"
	"fmt"

	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUPERVISION QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// GetSupervisionQuery reads one supervision.
type GetSupervisionQuery struct {
	Caller        account.Principal
	SupervisionID string
}

// ListSupervisionsQuery lists supervisions. TutorID is read by ListByTutor.
type ListSupervisionsQuery struct {
	Caller  account.Principal
	TutorID string
	Page    shared.PageRequest
}

// ActiveSupervisionQuery reads a student's current supervision.
type ActiveSupervisionQuery struct {
	Caller    account.Principal
	StudentID string
}

// SupervisionQueries answers supervision reads.
type SupervisionQueries struct {
	source Source
}

// NewSupervisionQueries creates a new SupervisionQueries.
func NewSupervisionQueries(source Source) *SupervisionQueries {
	return &SupervisionQueries{source: source}
}

// Get is allowed for the tutor, the student and admins.
func (q *SupervisionQueries) Get(ctx context.Context, qry GetSupervisionQuery) (*SupervisionDTO, error) {
	if err := qry.Caller.Validate(); err != nil {
		return nil, err
	}

	s, err := q.source.Repositories().Supervisions.GetByID(ctx, qry.SupervisionID)
	if err != nil {
		return nil, fmt.Errorf("get_supervision: %w", err)
	}
	if !qry.Caller.IsAdmin() && qry.Caller.UserID != s.TutorID && qry.Caller.UserID != s.StudentID {
		return nil, fmt.Errorf("get_supervision: %w", forbidden("supervision", "Get"))
	}

	dto := NewSupervisionDTO(s)
	return &dto, nil
}

// ListAll is admin-only.
func (q *SupervisionQueries) ListAll(ctx context.Context, qry ListSupervisionsQuery) (shared.Page[SupervisionDTO], error) {
	if !qry.Caller.IsAdmin() {
		return shared.Page[SupervisionDTO]{}, forbidden("supervision", "ListAll")
	}
	req := qry.Page.Normalize()

	items, total, err := q.source.Repositories().Supervisions.ListAll(ctx, req)
	if err != nil {
		return shared.Page[SupervisionDTO]{}, fmt.Errorf("list_supervisions: %w", err)
	}
	return pageOf(items, total, req, NewSupervisionDTO), nil
}

// ListByTutor is allowed for that tutor and admins.
func (q *SupervisionQueries) ListByTutor(ctx context.Context, qry ListSupervisionsQuery) (shared.Page[SupervisionDTO], error) {
	if err := selfOrAdmin(qry.Caller, account.RoleTutor, qry.TutorID, "supervision", "ListByTutor"); err != nil {
		return shared.Page[SupervisionDTO]{}, err
	}
	req := qry.Page.Normalize()

	items, total, err := q.source.Repositories().Supervisions.ListByTutor(ctx, qry.TutorID, req)
	if err != nil {
		return shared.Page[SupervisionDTO]{}, fmt.Errorf("list_supervisions_by_tutor: %w", err)
	}
	return pageOf(items, total, req, NewSupervisionDTO), nil
}

// ActiveForStudent is allowed for the student and admins. Absence is reported
// with false, not an error.
func (q *SupervisionQueries) ActiveForStudent(ctx context.Context, qry ActiveSupervisionQuery) (*SupervisionDTO, bool, error) {
	if err := selfOrAdmin(qry.Caller, account.RoleStudent, qry.StudentID, "supervision", "GetActive"); err != nil {
		return nil, false, err
	}

	s, err := q.source.Repositories().Supervisions.GetActiveByStudent(ctx, qry.StudentID)
	if shared.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get_active_supervision: %w", err)
	}

	dto := NewSupervisionDTO(s)
	return &dto, true, nil
}
