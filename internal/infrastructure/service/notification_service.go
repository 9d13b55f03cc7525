// Package service holds small adapters that bind domain ports to
// infrastructure: id generation and the notification sink.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/internhub/internhub/internal/domain/notification"
	"github.com/internhub/internhub/internal/domain/shared"
)

// IDGeneratorImpl implements shared.IDGenerator with random UUIDs.
type IDGeneratorImpl struct{}

// NewIDGenerator creates a UUID generator.
func NewIDGenerator() *IDGeneratorImpl {
	return &IDGeneratorImpl{}
}

// NewID returns a new random UUID.
func (g *IDGeneratorImpl) NewID() string {
	return uuid.New().String()
}

var _ shared.IDGenerator = (*IDGeneratorImpl)(nil)

// NotificationService is the notification.Sink used by the event handlers.
// It persists the row, then bumps the unread counter. Nothing it does can
// fail the caller.
type NotificationService struct {
	repo    notification.Repository
	counter notification.UnreadCounter
	ids     shared.IDGenerator
	now     func() time.Time
	logger  *slog.Logger
}

var _ notification.Sink = (*NotificationService)(nil)

// NewNotificationService creates the sink. counter may be nil when Redis is
// not configured.
func NewNotificationService(repo notification.Repository, counter notification.UnreadCounter, ids shared.IDGenerator, logger *slog.Logger) *NotificationService {
	if ids == nil {
		ids = NewIDGenerator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{
		repo:    repo,
		counter: counter,
		ids:     ids,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger.With("component", "notification_service"),
	}
}

// Notify stores one notification for userID.
func (s *NotificationService) Notify(ctx context.Context, userID, message string, category notification.Category, actionLink string) {
	n, err := notification.NewNotification(notification.NewNotificationParams{
		ID:         s.ids.NewID(),
		UserID:     userID,
		Message:    message,
		Category:   category,
		ActionLink: actionLink,
		Now:        s.now(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "notification rejected", "user_id", userID, "category", category, "error", err)
		return
	}

	if err := s.repo.Save(ctx, n); err != nil {
		s.logger.ErrorContext(ctx, "failed to save notification", "user_id", userID, "category", category, "error", err)
		return
	}

	if s.counter != nil {
		if err := s.counter.Increment(ctx, n.UserID); err != nil {
			s.logger.WarnContext(ctx, "failed to bump unread counter", "user_id", userID, "error", err)
		}
	}

	s.logger.DebugContext(ctx, "notification stored", "notification_id", n.ID, "user_id", userID, "category", category)
}
