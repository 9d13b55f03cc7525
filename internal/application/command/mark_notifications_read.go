package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/notification"
)

// MarkNotificationReadCommand marks one notification as read.
type MarkNotificationReadCommand struct {
	Caller         account.Principal
	NotificationID string
}

// MarkAllNotificationsReadCommand marks every notification of the caller.
type MarkAllNotificationsReadCommand struct {
	Caller account.Principal
}

// NotificationReadHandler handles both read commands. Notifications live
// outside the workflow unit of work.
type NotificationReadHandler struct {
	repo    notification.Repository
	counter notification.UnreadCounter
	clock   Clock
	logger  *slog.Logger
}

// NewNotificationReadHandler creates a new NotificationReadHandler. counter
// may be nil.
func NewNotificationReadHandler(repo notification.Repository, counter notification.UnreadCounter, clock Clock, logger *slog.Logger) *NotificationReadHandler {
	if clock == nil {
		clock = SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationReadHandler{repo: repo, counter: counter, clock: clock, logger: logger}
}

// MarkRead marks a single notification. Only its recipient may do this.
func (h *NotificationReadHandler) MarkRead(ctx context.Context, cmd MarkNotificationReadCommand) error {
	if err := cmd.Caller.Validate(); err != nil {
		return fmt.Errorf("mark_notification_read: %w", err)
	}
	if err := requireID("notification", "MarkRead", "notification_id", cmd.NotificationID); err != nil {
		return fmt.Errorf("mark_notification_read: %w", err)
	}

	n, err := h.repo.GetByID(ctx, notification.NotificationID(cmd.NotificationID))
	if err != nil {
		return fmt.Errorf("mark_notification_read: %w", err)
	}
	if !n.BelongsTo(cmd.Caller.UserID) {
		return fmt.Errorf("mark_notification_read: %w", notification.ErrNotRecipient)
	}
	if n.Read {
		return nil
	}

	if err := h.repo.MarkRead(ctx, n.ID, h.clock()); err != nil {
		return fmt.Errorf("mark_notification_read: %w", err)
	}
	h.invalidate(ctx, n.UserID)
	return nil
}

// MarkAllRead marks every unread notification of the caller and returns how
// many changed.
func (h *NotificationReadHandler) MarkAllRead(ctx context.Context, cmd MarkAllNotificationsReadCommand) (int, error) {
	if err := cmd.Caller.Validate(); err != nil {
		return 0, fmt.Errorf("mark_all_notifications_read: %w", err)
	}

	userID := notification.RecipientID(cmd.Caller.UserID)
	changed, err := h.repo.MarkAllRead(ctx, userID, h.clock())
	if err != nil {
		return 0, fmt.Errorf("mark_all_notifications_read: %w", err)
	}
	if h.counter != nil {
		if err := h.counter.Set(ctx, userID, 0); err != nil {
			h.logger.WarnContext(ctx, "unread counter reset failed", "user_id", userID, "error", err)
		}
	}
	return changed, nil
}

// invalidate drops the cached count; the next read recounts from the store.
func (h *NotificationReadHandler) invalidate(ctx context.Context, userID notification.RecipientID) {
	if h.counter == nil {
		return
	}
	if err := h.counter.Reset(ctx, userID); err != nil {
		h.logger.WarnContext(ctx, "unread counter invalidation failed", "user_id", userID, "error", err)
	}
}
