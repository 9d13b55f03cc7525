package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/notification"
	"github.com/internhub/internhub/internal/domain/shared"
)

// NotificationDTO is the read model of a notification.
type NotificationDTO struct {
	ID         string     `json:"id"`
	Message    string     `json:"message"`
	Category   string     `json:"category"`
	ActionLink string     `json:"action_link,omitempty"`
	Read       bool       `json:"read"`
	CreatedAt  time.Time  `json:"created_at"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

// NewNotificationDTO maps a notification.
func NewNotificationDTO(n *notification.Notification) NotificationDTO {
	return NotificationDTO{
		ID:         n.ID.String(),
		Message:    n.Message,
		Category:   string(n.Category),
		ActionLink: n.ActionLink,
		Read:       n.Read,
		CreatedAt:  n.CreatedAt,
		ReadAt:     n.ReadAt,
	}
}

// NotificationQueries answers a caller's notification reads. A caller only
// ever sees their own notifications.
type NotificationQueries struct {
	repo    notification.Repository
	counter notification.UnreadCounter
	logger  *slog.Logger
}

// NewNotificationQueries creates a new NotificationQueries. counter may be nil.
func NewNotificationQueries(repo notification.Repository, counter notification.UnreadCounter, logger *slog.Logger) *NotificationQueries {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationQueries{repo: repo, counter: counter, logger: logger}
}

// List pages the caller's notifications, newest first.
func (q *NotificationQueries) List(ctx context.Context, caller account.Principal, page shared.PageRequest) (shared.Page[NotificationDTO], error) {
	if err := caller.Validate(); err != nil {
		return shared.Page[NotificationDTO]{}, err
	}
	req := page.Normalize()

	items, total, err := q.repo.ListByRecipient(ctx, notification.RecipientID(caller.UserID), req)
	if err != nil {
		return shared.Page[NotificationDTO]{}, fmt.Errorf("list_notifications: %w", err)
	}
	return pageOf(items, total, req, NewNotificationDTO), nil
}

// UnreadCount serves from the counter when it holds a value and falls back to
// the repository, warming the counter on the way.
func (q *NotificationQueries) UnreadCount(ctx context.Context, caller account.Principal) (int, error) {
	if err := caller.Validate(); err != nil {
		return 0, err
	}
	userID := notification.RecipientID(caller.UserID)

	if q.counter != nil {
		n, ok, err := q.counter.Get(ctx, userID)
		if err == nil && ok {
			return n, nil
		}
		if err != nil {
			q.logger.WarnContext(ctx, "unread counter read failed", "user_id", userID, "error", err)
		}
	}

	n, err := q.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count_unread_notifications: %w", err)
	}

	if q.counter != nil {
		if err := q.counter.Warm(ctx, userID, n); err != nil {
			q.logger.WarnContext(ctx, "unread counter warm-up failed", "user_id", userID, "error", err)
		}
	}
	return n, nil
}
