package supervision

import (
	"context"

	"github.com/internhub/internhub/internal/domain/shared"
)

// Repository persists supervisions.
type Repository interface {
	// Create inserts a supervision. A second supervision for the same
	// agreement fails with ErrAlreadyAssigned; a second active one for the
	// same student fails with ErrStudentAlreadyActive.
	Create(ctx context.Context, s *Supervision) error

	// GetByID returns the supervision or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Supervision, error)

	// GetByIDForUpdate is GetByID plus a row lock.
	GetByIDForUpdate(ctx context.Context, id string) (*Supervision, error)

	// ExistsForAgreement reports whether the agreement already has a tutor.
	ExistsForAgreement(ctx context.Context, agreementID string) (bool, error)

	// GetByAgreementID returns the supervision of an agreement or ErrNotFound.
	GetByAgreementID(ctx context.Context, agreementID string) (*Supervision, error)

	// CountActiveByTutor counts the tutor's supervisions that are not COMPLETED.
	CountActiveByTutor(ctx context.Context, tutorID string) (int, error)

	// CountActiveByStudent counts the student's supervisions that are not COMPLETED.
	CountActiveByStudent(ctx context.Context, studentID string) (int, error)

	// GetActiveByStudent returns the student's active supervision or ErrNotFound.
	GetActiveByStudent(ctx context.Context, studentID string) (*Supervision, error)

	// Update persists progress, notes and last visit.
	Update(ctx context.Context, s *Supervision) error

	// ListAll pages every supervision, newest first.
	ListAll(ctx context.Context, page shared.PageRequest) ([]*Supervision, int, error)

	// ListByTutor pages a tutor's supervisions, newest first.
	ListByTutor(ctx context.Context, tutorID string, page shared.PageRequest) ([]*Supervision, int, error)
}
