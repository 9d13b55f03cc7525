// Package offer is the read-only view of internship postings that the
// workflow needs. Posting CRUD lives elsewhere.
package offer

import (
	"context"
	"time"

	"github.com/internhub/internhub/internal/domain/shared"
)

// Status is the publication status of an offer.
type Status string

const (
	StatusPendingValidation Status = "PENDING_VALIDATION"
	StatusValidated         Status = "VALIDATED"
	StatusRejected          Status = "REJECTED"
	StatusClosed            Status = "CLOSED"
)

// IsValid checks the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusPendingValidation, StatusValidated, StatusRejected, StatusClosed:
		return true
	}
	return false
}

// Offer is an internship posting owned by a company.
type Offer struct {
	ID        string
	CompanyID string
	Title     string
	Status    Status
	StartDate time.Time
	EndDate   time.Time

	// Expiry is the last calendar day applications are accepted. Nil means
	// the offer never expires.
	Expiry *time.Time
}

// IsExpired reports whether the expiry day is strictly before now's day.
func (o *Offer) IsExpired(now time.Time) bool {
	if o.Expiry == nil {
		return false
	}
	return shared.DateOf(*o.Expiry).Before(shared.DateOf(now))
}

// AcceptsApplications reports whether a student may apply right now.
func (o *Offer) AcceptsApplications(now time.Time) bool {
	return o.Status == StatusValidated && !o.IsExpired(now)
}

// OwnedBy reports whether companyID owns the offer.
func (o *Offer) OwnedBy(companyID string) bool {
	return o.CompanyID == companyID
}

// Period returns the internship dates.
func (o *Offer) Period() shared.DateRange {
	return shared.DateRange{Start: o.StartDate, End: o.EndDate}
}

// Errors.
var (
	ErrNotFound = shared.NewDomainError("offer", "Get", shared.ErrNotFound, "offer not found")
	ErrNotOpen  = shared.NewDomainError("offer", "Apply", shared.ErrInvalidState, "offer is not validated")
	ErrExpired  = shared.NewDomainError("offer", "Apply", shared.ErrInvalidState, "offer has expired")
	ErrNotOwner = shared.NewDomainError("offer", "Authorize", shared.ErrForbidden, "offer belongs to another company")
)

// CheckOpen returns ErrNotOpen or ErrExpired when the offer cannot take
// applications.
func (o *Offer) CheckOpen(now time.Time) error {
	if o.Status != StatusValidated {
		return ErrNotOpen
	}
	if o.IsExpired(now) {
		return ErrExpired
	}
	return nil
}

// Store is the posting store contract.
type Store interface {
	// Get returns the offer or ErrNotFound.
	Get(ctx context.Context, id string) (*Offer, error)
}
