// Package supervision tracks the tutor follow-up of a signed internship.
package supervision

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/internhub/internhub/internal/domain/shared"
)

const (
	// MaxActivePerTutor is the capacity bound: how many supervisions that are
	// not COMPLETED a tutor may hold at once.
	MaxActivePerTutor = 10

	// MaxActivePerStudent is the single active internship rule.
	MaxActivePerStudent = 1

	// MaxNotesLength bounds the tutor's notes.
	MaxNotesLength = 10000
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// Progress is the follow-up state reported by the tutor.
type Progress string

const (
	ProgressNotStarted Progress = "NOT_STARTED"
	ProgressInProgress Progress = "IN_PROGRESS"
	ProgressCompleted  Progress = "COMPLETED"
)

// IsValid checks the value is known.
func (p Progress) IsValid() bool {
	switch p {
	case ProgressNotStarted, ProgressInProgress, ProgressCompleted:
		return true
	}
	return false
}

// IsActive reports whether the supervision still counts against capacity.
func (p Progress) IsActive() bool {
	return p != ProgressCompleted
}

// ParseProgress parses a progress value. Unknown values are InvalidInput.
func ParseProgress(s string) (Progress, error) {
	p := Progress(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", shared.InvalidInput("supervision", "ParseProgress", "unknown progress state "+s)
	}
	return p, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrNotFound             = shared.NewDomainError("supervision", "Get", shared.ErrNotFound, "supervision not found")
	ErrAlreadyAssigned      = shared.NewDomainError("supervision", "Assign", shared.ErrConflict, "agreement already has a tutor")
	ErrTutorAtCapacity      = shared.NewDomainError("supervision", "Assign", shared.ErrConflict, "tutor at capacity")
	ErrStudentAlreadyActive = shared.NewDomainError("supervision", "Assign", shared.ErrConflict, "student already has active internship")
	ErrNotTutor             = shared.NewDomainError("supervision", "Assign", shared.ErrInvalidInput, "account is not a tutor")
	ErrNotAssignedTutor     = shared.NewDomainError("supervision", "Update", shared.ErrForbidden, "caller is not the assigned tutor")
	ErrNotesTooLong         = shared.NewDomainError("supervision", "Update", shared.ErrInvalidInput, "notes are too long")
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Supervision links a signed agreement to its academic tutor.
type Supervision struct {
	ID          string
	AgreementID string
	StudentID   string
	TutorID     string
	AssignedAt  time.Time
	Progress    Progress
	Notes       *string
	LastVisit   *time.Time
	UpdatedAt   time.Time
}

// NewSupervisionParams holds the inputs of NewSupervision.
type NewSupervisionParams struct {
	ID          string
	AgreementID string
	StudentID   string
	TutorID     string
	Now         time.Time
}

// NewSupervision creates a NOT_STARTED supervision.
func NewSupervision(p NewSupervisionParams) (*Supervision, error) {
	for _, id := range []string{p.ID, p.AgreementID, p.StudentID, p.TutorID} {
		if !shared.IsValidID(id) {
			return nil, shared.InvalidInput("supervision", "New", "invalid identifier")
		}
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return &Supervision{
		ID:          p.ID,
		AgreementID: p.AgreementID,
		StudentID:   p.StudentID,
		TutorID:     p.TutorID,
		AssignedAt:  now,
		Progress:    ProgressNotStarted,
		UpdatedAt:   now,
	}, nil
}

// IsActive reports whether the supervision counts against capacity.
func (s *Supervision) IsActive() bool {
	return s.Progress.IsActive()
}

// Update is a partial change; nil fields are left untouched.
type Update struct {
	Progress  *Progress
	Notes     *string
	LastVisit *time.Time
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.Progress == nil && u.Notes == nil && u.LastVisit == nil
}

// Reopens reports whether applying u moves a COMPLETED supervision back to
// an active state, which occupies capacity again.
func (s *Supervision) Reopens(u Update) bool {
	return !s.IsActive() && u.Progress != nil && u.Progress.IsActive()
}

// Apply applies a partial update.
func (s *Supervision) Apply(u Update, now time.Time) error {
	if u.Progress != nil && !u.Progress.IsValid() {
		return shared.InvalidInput("supervision", "Update", "unknown progress state")
	}
	if u.Notes != nil && utf8.RuneCountInString(*u.Notes) > MaxNotesLength {
		return ErrNotesTooLong
	}

	if u.Progress != nil {
		s.Progress = *u.Progress
	}
	if u.Notes != nil {
		notes := *u.Notes
		s.Notes = &notes
	}
	if u.LastVisit != nil {
		visit := u.LastVisit.UTC()
		s.LastVisit = &visit
	}
	s.UpdatedAt = now.UTC()
	return nil
}

// CheckCapacity validates both occupancy bounds before an assignment.
func CheckCapacity(tutorActive, studentActive int) error {
	if tutorActive >= MaxActivePerTutor {
		return ErrTutorAtCapacity
	}
	if studentActive >= MaxActivePerStudent {
		return ErrStudentAlreadyActive
	}
	return nil
}
