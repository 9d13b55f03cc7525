// Package application owns the student's request to join an internship offer
// and its one-shot decision.
package application

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/internhub/internhub/internal/domain/shared"
)

// MaxMotivationLength bounds the free-text motivation letter.
const MaxMotivationLength = 5000

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the decision state of an application.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

// IsValid checks the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// IsDecided reports whether the company has already answered.
func (s Status) IsDecided() bool {
	return s == StatusAccepted || s == StatusRejected
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrNotFound          = shared.NewDomainError("application", "Get", shared.ErrNotFound, "application not found")
	ErrDuplicate         = shared.NewDomainError("application", "Submit", shared.ErrConflict, "student already applied to this offer")
	ErrAlreadyDecided    = shared.NewDomainError("application", "Decide", shared.ErrInvalidState, "application has already been decided")
	ErrNotWithdrawable   = shared.NewDomainError("application", "Withdraw", shared.ErrInvalidState, "only pending applications can be withdrawn")
	ErrStudentsOnly      = shared.NewDomainError("application", "Submit", shared.ErrForbidden, "only students can apply")
	ErrNotApplicant      = shared.NewDomainError("application", "Authorize", shared.ErrForbidden, "application belongs to another student")
	ErrMotivationTooLong = shared.NewDomainError("application", "Validate", shared.ErrInvalidInput, "motivation is too long")
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Application is a student's candidacy for one offer.
type Application struct {
	ID               string
	StudentID        string
	OfferID          string
	Motivation       string
	SubmittedAt      time.Time
	Status           Status
	RejectionComment *string
	DecidedAt        *time.Time
}

// NewApplicationParams holds the inputs of NewApplication.
type NewApplicationParams struct {
	ID         string
	StudentID  string
	OfferID    string
	Motivation string
	Now        time.Time
}

// NewApplication creates a pending application.
func NewApplication(p NewApplicationParams) (*Application, error) {
	if !shared.IsValidID(p.ID) || !shared.IsValidID(p.StudentID) || !shared.IsValidID(p.OfferID) {
		return nil, shared.InvalidInput("application", "New", "invalid identifier")
	}
	motivation := strings.TrimSpace(p.Motivation)
	if utf8.RuneCountInString(motivation) > MaxMotivationLength {
		return nil, ErrMotivationTooLong
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}

	return &Application{
		ID:          p.ID,
		StudentID:   p.StudentID,
		OfferID:     p.OfferID,
		Motivation:  motivation,
		SubmittedAt: now.UTC(),
		Status:      StatusPending,
	}, nil
}

// SubmittedBy reports whether studentID submitted the application.
func (a *Application) SubmittedBy(studentID string) bool {
	return a.StudentID == studentID
}

// Accept moves a pending application to ACCEPTED.
func (a *Application) Accept(now time.Time) error {
	if a.Status != StatusPending {
		return ErrAlreadyDecided
	}
	decided := now.UTC()
	a.Status = StatusAccepted
	a.DecidedAt = &decided
	return nil
}

// Reject moves a pending application to REJECTED and keeps the comment.
func (a *Application) Reject(now time.Time, comment *string) error {
	if a.Status != StatusPending {
		return ErrAlreadyDecided
	}
	decided := now.UTC()
	a.Status = StatusRejected
	a.DecidedAt = &decided
	if comment != nil {
		c := strings.TrimSpace(*comment)
		if c != "" {
			a.RejectionComment = &c
		}
	}
	return nil
}

// CheckWithdrawable fails unless the application is still pending. Decided
// applications are part of the record and are never deleted.
func (a *Application) CheckWithdrawable() error {
	if a.Status != StatusPending {
		return ErrNotWithdrawable
	}
	return nil
}
