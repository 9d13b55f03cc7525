package agreement

import (
	"context"

	"github.com/internhub/internhub/internal/domain/shared"
)

// Repository persists agreements.
type Repository interface {
	// Create inserts an agreement. A second agreement for the same
	// application fails with ErrAlreadyExists.
	Create(ctx context.Context, a *Agreement) error

	// GetByID returns the agreement or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Agreement, error)

	// GetByIDForUpdate is GetByID plus a row lock.
	GetByIDForUpdate(ctx context.Context, id string) (*Agreement, error)

	// GetByApplicationID returns the agreement of an application or ErrNotFound.
	GetByApplicationID(ctx context.Context, applicationID string) (*Agreement, error)

	// Update persists status, flags, document and timestamps.
	Update(ctx context.Context, a *Agreement) error

	// ListByStudent pages a student's agreements, newest first.
	ListByStudent(ctx context.Context, studentID string, page shared.PageRequest) ([]*Agreement, int, error)

	// ListByCompany pages a company's agreements, newest first.
	ListByCompany(ctx context.Context, companyID string, page shared.PageRequest) ([]*Agreement, int, error)

	// ListAll pages every agreement, optionally filtered by status.
	ListAll(ctx context.Context, status *Status, page shared.PageRequest) ([]*Agreement, int, error)

	// ListAwaitingDocument returns SIGNED agreements without a document,
	// oldest signature first.
	ListAwaitingDocument(ctx context.Context, limit int) ([]*Agreement, error)
}
