package notification

import (
	"context"
	"time"

	"github.com/internhub/internhub/internal/domain/shared"
)

// Repository persists notifications.
type Repository interface {
	Save(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id NotificationID) (*Notification, error)

	// ListByRecipient pages a user's notifications, newest first.
	ListByRecipient(ctx context.Context, userID RecipientID, page shared.PageRequest) ([]*Notification, int, error)

	CountUnread(ctx context.Context, userID RecipientID) (int, error)
	MarkRead(ctx context.Context, id NotificationID, at time.Time) error

	// MarkAllRead marks every unread notification of the user and returns
	// how many changed.
	MarkAllRead(ctx context.Context, userID RecipientID, at time.Time) (int, error)

	// DeleteReadBefore purges read notifications created before cutoff.
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// UnreadCounter is a fast path for unread badge counts. Implementations may
// lose data; the repository stays the source of truth.
type UnreadCounter interface {
	Increment(ctx context.Context, userID RecipientID) error
	Get(ctx context.Context, userID RecipientID) (int, bool, error)
	Set(ctx context.Context, userID RecipientID, count int) error
	// Warm sets the count only when no value is present.
	Warm(ctx context.Context, userID RecipientID, count int) error
	Reset(ctx context.Context, userID RecipientID) error
}

// Sink is the fire-and-forget notification contract used by the workflow.
// Notify never returns an error; failures are logged by the implementation.
type Sink interface {
	Notify(ctx context.Context, userID, message string, category Category, actionLink string)
}
