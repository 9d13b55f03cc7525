// Package query contains read operations (CQRS - Queries).
//
// Every query authorizes the caller against the rows it returns and maps
// entities to JSON-friendly DTOs. Listings are paged.
package query

import (
	"time"

	"github.com/internhub/internhub/internal/application/uow"
	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/application"
	"github.com/internhub/internhub/internal/domain/shared"
	"github.com/internhub/internhub/internal/domain/supervision"
)

// Source is where queries read committed state from.
type Source interface {
	Repositories() uow.Repositories
}

// ══════════════════════════════════════════════════════════════════════════════
// DTOs
// ══════════════════════════════════════════════════════════════════════════════

// ApplicationDTO is the read model of an application.
type ApplicationDTO struct {
	ID               string     `json:"id"`
	StudentID        string     `json:"student_id"`
	OfferID          string     `json:"offer_id"`
	Motivation       string     `json:"motivation,omitempty"`
	Status           string     `json:"status"`
	SubmittedAt      time.Time  `json:"submitted_at"`
	RejectionComment *string    `json:"rejection_comment,omitempty"`
	DecidedAt        *time.Time `json:"decided_at,omitempty"`
}

// NewApplicationDTO maps an application.
func NewApplicationDTO(a *application.Application) ApplicationDTO {
	return ApplicationDTO{
		ID:               a.ID,
		StudentID:        a.StudentID,
		OfferID:          a.OfferID,
		Motivation:       a.Motivation,
		Status:           string(a.Status),
		SubmittedAt:      a.SubmittedAt,
		RejectionComment: a.RejectionComment,
		DecidedAt:        a.DecidedAt,
	}
}

// AgreementDTO is the read model of an agreement.
type AgreementDTO struct {
	ID            string `json:"id"`
	ApplicationID string `json:"application_id"`
	StudentID     string `json:"student_id"`
	CompanyID     string `json:"company_id"`
	OfferID       string `json:"offer_id"`
	StartDate     string `json:"start_date,omitempty"`
	EndDate       string `json:"end_date,omitempty"`
	Status        string `json:"status"`

	// ─────────────────────────────────────────────────────────────────────────
	// Signatures
	// ─────────────────────────────────────────────────────────────────────────

	StudentSigned bool       `json:"student_signed"`
	CompanySigned bool       `json:"company_signed"`
	AdminSigned   bool       `json:"admin_signed"`
	SignedAt      *time.Time `json:"signed_at,omitempty"`

	DocumentRef *string    `json:"document_ref,omitempty"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewAgreementDTO maps an agreement. Dates are rendered as calendar days.
func NewAgreementDTO(a *agreement.Agreement) AgreementDTO {
	return AgreementDTO{
		ID:            a.ID,
		ApplicationID: a.ApplicationID,
		StudentID:     a.StudentID,
		CompanyID:     a.CompanyID,
		OfferID:       a.OfferID,
		StartDate:     formatDate(a.StartDate),
		EndDate:       formatDate(a.EndDate),
		Status:        string(a.Status),
		StudentSigned: a.StudentSigned,
		CompanySigned: a.CompanySigned,
		AdminSigned:   a.AdminSigned,
		SignedAt:      a.SignedAt,
		DocumentRef:   a.DocumentRef,
		ArchivedAt:    a.ArchivedAt,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// SupervisionDTO is the read model of a supervision.
type SupervisionDTO struct {
	ID          string     `json:"id"`
	AgreementID string     `json:"agreement_id"`
	StudentID   string     `json:"student_id"`
	TutorID     string     `json:"tutor_id"`
	AssignedAt  time.Time  `json:"assigned_at"`
	Progress    string     `json:"progress"`
	Notes       *string    `json:"notes,omitempty"`
	LastVisit   *time.Time `json:"last_visit,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewSupervisionDTO maps a supervision.
func NewSupervisionDTO(s *supervision.Supervision) SupervisionDTO {
	return SupervisionDTO{
		ID:          s.ID,
		AgreementID: s.AgreementID,
		StudentID:   s.StudentID,
		TutorID:     s.TutorID,
		AssignedAt:  s.AssignedAt,
		Progress:    string(s.Progress),
		Notes:       s.Notes,
		LastVisit:   s.LastVisit,
		UpdatedAt:   s.UpdatedAt,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func forbidden(domain, op string) error {
	return shared.Forbidden(domain, op, "caller may not read this resource")
}

// selfOrAdmin allows a caller to read their own listing.
func selfOrAdmin(caller account.Principal, role account.Role, userID, domain, op string) error {
	if caller.IsAdmin() || (caller.Is(role) && caller.UserID == userID) {
		return nil
	}
	return forbidden(domain, op)
}

func pageOf[T, U any](items []T, total int, req shared.PageRequest, fn func(T) U) shared.Page[U] {
	return shared.MapPage(shared.NewPage(items, total, req), fn)
}
