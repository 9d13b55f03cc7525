package agreement

import (
	"context"
	"time"
)

// Snapshot is everything the renderer needs to print an agreement.
type Snapshot struct {
	AgreementID   string    `json:"agreement_id"`
	ApplicationID string    `json:"application_id"`
	OfferID       string    `json:"offer_id"`
	OfferTitle    string    `json:"offer_title"`
	StudentID     string    `json:"student_id"`
	StudentName   string    `json:"student_name"`
	CompanyID     string    `json:"company_id"`
	CompanyName   string    `json:"company_name"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	SignedAt      time.Time `json:"signed_at"`
}

// SnapshotOf copies the agreement fields into a snapshot. Names and titles
// are filled in by the caller.
func SnapshotOf(a *Agreement) Snapshot {
	s := Snapshot{
		AgreementID:   a.ID,
		ApplicationID: a.ApplicationID,
		OfferID:       a.OfferID,
		StudentID:     a.StudentID,
		CompanyID:     a.CompanyID,
		StartDate:     a.StartDate,
		EndDate:       a.EndDate,
	}
	if a.SignedAt != nil {
		s.SignedAt = *a.SignedAt
	}
	return s
}

// DocumentRenderer produces the printable agreement and returns a reference
// to the stored document. Failures may be transient.
type DocumentRenderer interface {
	Render(ctx context.Context, snapshot Snapshot) (string, error)
}
