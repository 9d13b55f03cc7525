package agreement

import (
	"strings"
	"time"

	"github.com/internhub/internhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the lifecycle state of an agreement.
type Status string

const (
	StatusDraft             Status = "DRAFT"
	StatusPendingSignatures Status = "PENDING_SIGNATURES"
	StatusSigned            Status = "SIGNED"
	StatusArchived          Status = "ARCHIVED"
)

// IsValid checks the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPendingSignatures, StatusSigned, StatusArchived:
		return true
	}
	return false
}

// ParseStatus parses a status filter.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", shared.InvalidInput("agreement", "ParseStatus", "unknown agreement status "+s)
	}
	return st, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PARTIES AND SIGNATURES
// ══════════════════════════════════════════════════════════════════════════════

// Party is one of the three signatories.
type Party string

const (
	PartyStudent Party = "STUDENT"
	PartyCompany Party = "COMPANY"
	PartyAdmin   Party = "ADMIN"
)

// IsValid checks the party is known.
func (p Party) IsValid() bool {
	return p == PartyStudent || p == PartyCompany || p == PartyAdmin
}

// ParseParty parses a party name case-insensitively.
func ParseParty(s string) (Party, error) {
	p := Party(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", shared.InvalidInput("agreement", "ParseParty", "unknown signing party "+s)
	}
	return p, nil
}

// Signatures are the three independent signature flags.
type Signatures struct {
	Student bool
	Company bool
	Admin   bool
}

// Count returns how many parties have signed.
func (s Signatures) Count() int {
	n := 0
	for _, v := range []bool{s.Student, s.Company, s.Admin} {
		if v {
			n++
		}
	}
	return n
}

// Has reports whether the party has signed.
func (s Signatures) Has(p Party) bool {
	switch p {
	case PartyStudent:
		return s.Student
	case PartyCompany:
		return s.Company
	case PartyAdmin:
		return s.Admin
	}
	return false
}

// With returns a copy with the party's flag set.
func (s Signatures) With(p Party) Signatures {
	switch p {
	case PartyStudent:
		s.Student = true
	case PartyCompany:
		s.Company = true
	case PartyAdmin:
		s.Admin = true
	}
	return s
}

// DeriveStatus maps signature flags to the agreement status. It never
// returns ARCHIVED.
func DeriveStatus(s Signatures) Status {
	switch s.Count() {
	case 0:
		return StatusDraft
	case 3:
		return StatusSigned
	default:
		return StatusPendingSignatures
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrNotFound      = shared.NewDomainError("agreement", "Get", shared.ErrNotFound, "agreement not found")
	ErrAlreadyExists = shared.NewDomainError("agreement", "Create", shared.ErrConflict, "agreement already exists for this application")
	ErrAlreadySigned = shared.NewDomainError("agreement", "Sign", shared.ErrConflict, "already signed")
	ErrArchived      = shared.NewDomainError("agreement", "Sign", shared.ErrInvalidState, "agreement is archived")
	ErrNotSigned     = shared.NewDomainError("agreement", "CheckSigned", shared.ErrInvalidState, "agreement is not fully signed")
	ErrNotParty      = shared.NewDomainError("agreement", "Authorize", shared.ErrForbidden, "caller is not a party to this agreement")
	ErrInvalidPeriod = shared.NewDomainError("agreement", "New", shared.ErrInvalidInput, "internship end date is before its start date")
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Agreement is the contract between a student, a company and the
// administration. Party ids are copied from the application and the offer at
// creation so authorization never needs a join.
type Agreement struct {
	ID            string
	ApplicationID string
	StudentID     string
	CompanyID     string
	OfferID       string
	StartDate     time.Time
	EndDate       time.Time
	Status        Status
	StudentSigned bool
	CompanySigned bool
	AdminSigned   bool
	DocumentRef   *string
	SignedAt      *time.Time
	ArchivedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewAgreementParams holds the inputs of NewAgreement.
type NewAgreementParams struct {
	ID            string
	ApplicationID string
	StudentID     string
	CompanyID     string
	OfferID       string
	Period        shared.DateRange
	Now           time.Time
}

// NewAgreement creates an unsigned DRAFT agreement.
func NewAgreement(p NewAgreementParams) (*Agreement, error) {
	for _, id := range []string{p.ID, p.ApplicationID, p.StudentID, p.CompanyID, p.OfferID} {
		if !shared.IsValidID(id) {
			return nil, shared.InvalidInput("agreement", "New", "invalid identifier")
		}
	}
	if !p.Period.Start.IsZero() && !p.Period.End.IsZero() && p.Period.End.Before(p.Period.Start) {
		return nil, ErrInvalidPeriod
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	a := &Agreement{
		ID:            p.ID,
		ApplicationID: p.ApplicationID,
		StudentID:     p.StudentID,
		CompanyID:     p.CompanyID,
		OfferID:       p.OfferID,
		StartDate:     p.Period.Start,
		EndDate:       p.Period.End,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	a.Status = DeriveStatus(a.Signatures())
	return a, nil
}

// Signatures returns the current flags.
func (a *Agreement) Signatures() Signatures {
	return Signatures{Student: a.StudentSigned, Company: a.CompanySigned, Admin: a.AdminSigned}
}

func (a *Agreement) setSignatures(s Signatures) {
	a.StudentSigned = s.Student
	a.CompanySigned = s.Company
	a.AdminSigned = s.Admin
}

// Sign records the party's signature and recomputes the status. It reports
// whether this signature completed the agreement.
func (a *Agreement) Sign(p Party, now time.Time) (completed bool, err error) {
	if !p.IsValid() {
		return false, shared.InvalidInput("agreement", "Sign", "unknown signing party")
	}
	if a.Status == StatusArchived {
		return false, ErrArchived
	}
	sigs := a.Signatures()
	if sigs.Has(p) {
		return false, ErrAlreadySigned
	}

	sigs = sigs.With(p)
	a.setSignatures(sigs)
	a.Status = DeriveStatus(sigs)
	a.UpdatedAt = now.UTC()

	if a.Status == StatusSigned && a.SignedAt == nil {
		signedAt := now.UTC()
		a.SignedAt = &signedAt
		return true, nil
	}
	return false, nil
}

// AttachDocument stores the rendered document reference.
func (a *Agreement) AttachDocument(ref string, now time.Time) error {
	if a.Status != StatusSigned {
		return ErrNotSigned
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return shared.InvalidInput("agreement", "AttachDocument", "empty document reference")
	}
	a.DocumentRef = &ref
	a.UpdatedAt = now.UTC()
	return nil
}

// HasDocument reports whether a document reference is stored.
func (a *Agreement) HasDocument() bool {
	return a.DocumentRef != nil && *a.DocumentRef != ""
}

// NeedsDocument reports whether the agreement is signed but has no document.
func (a *Agreement) NeedsDocument() bool {
	return a.Status == StatusSigned && !a.HasDocument()
}

// CheckSigned fails with ErrNotSigned unless the status is SIGNED.
func (a *Agreement) CheckSigned() error {
	if a.Status != StatusSigned {
		return ErrNotSigned
	}
	return nil
}

// Archive moves a SIGNED agreement to the terminal ARCHIVED state.
func (a *Agreement) Archive(now time.Time) error {
	if a.Status != StatusSigned {
		return shared.NewDomainError("agreement", "Archive", shared.ErrInvalidState, "only signed agreements can be archived")
	}
	at := now.UTC()
	a.Status = StatusArchived
	a.ArchivedAt = &at
	a.UpdatedAt = at
	return nil
}

// IsParty reports whether userID is the student or the company.
func (a *Agreement) IsParty(userID string) bool {
	return a.StudentID == userID || a.CompanyID == userID
}

// Consistent checks the stored status against the flags. ARCHIVED requires
// all three signatures.
func (a *Agreement) Consistent() bool {
	derived := DeriveStatus(a.Signatures())
	if a.Status == StatusArchived {
		return derived == StatusSigned
	}
	return a.Status == derived
}
