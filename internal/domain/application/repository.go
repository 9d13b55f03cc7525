package application

import (
	"context"

	"github.com/internhub/internhub/internal/domain/shared"
)

// Repository persists applications. Implementations bound to a transaction
// honour the row locks taken by the ForUpdate methods until commit.
type Repository interface {
	// Create inserts a new application. A second application for the same
	// (student, offer) pair fails with ErrDuplicate.
	Create(ctx context.Context, app *Application) error

	// GetByID returns the application or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Application, error)

	// GetByIDForUpdate is GetByID plus a row lock.
	GetByIDForUpdate(ctx context.Context, id string) (*Application, error)

	// ExistsForStudentAndOffer checks the uniqueness key.
	ExistsForStudentAndOffer(ctx context.Context, studentID, offerID string) (bool, error)

	// Update persists the decision fields.
	Update(ctx context.Context, app *Application) error

	// Delete removes a pending application.
	Delete(ctx context.Context, id string) error

	// ListByStudent returns one page of a student's applications, newest first,
	// and the total count.
	ListByStudent(ctx context.Context, studentID string, page shared.PageRequest) ([]*Application, int, error)

	// ListByOffer returns one page of an offer's applications, newest first,
	// and the total count.
	ListByOffer(ctx context.Context, offerID string, page shared.PageRequest) ([]*Application, int, error)
}
