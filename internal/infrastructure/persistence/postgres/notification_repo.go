package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/internhub/internhub/internal/domain/notification"
	"github.com/internhub/internhub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// NotificationRepository implements notification.Repository. Notifications
// never join a workflow transaction, so it always runs on the pool.
type NotificationRepository struct {
	conn *Connection
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(conn *Connection) *NotificationRepository {
	return &NotificationRepository{conn: conn}
}

const notificationColumns = `id, user_id, message, category, action_link, read, created_at, read_at`

// Save inserts or updates a notification.
func (r *NotificationRepository) Save(ctx context.Context, n *notification.Notification) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			read = EXCLUDED.read,
			read_at = EXCLUDED.read_at
	`, string(n.ID), string(n.UserID), n.Message, string(n.Category), n.ActionLink, n.Read, n.CreatedAt, n.ReadAt)
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	return nil
}

// GetByID returns the notification or notification.ErrNotFound.
func (r *NotificationRepository) GetByID(ctx context.Context, id notification.NotificationID) (*notification.Notification, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, string(id))
	return scanNotification(row)
}

// ListByRecipient pages a user's notifications, newest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, userID notification.RecipientID, page shared.PageRequest) ([]*notification.Notification, int, error) {
	page = page.Normalize()

	var total int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, string(userID)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	rows, err := r.conn.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, string(userID), page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var list []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating notifications: %w", err)
	}
	return list, total, nil
}

// CountUnread counts a user's unread notifications.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID notification.RecipientID) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, string(userID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification read. Already-read rows keep their read_at.
func (r *NotificationRepository) MarkRead(ctx context.Context, id notification.NotificationID, at time.Time) error {
	result, err := r.conn.Exec(ctx, `
		UPDATE notifications SET read = TRUE, read_at = COALESCE(read_at, $1)
		WHERE id = $2
	`, at, string(id))
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return notification.ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of the user.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID notification.RecipientID, at time.Time) (int, error) {
	result, err := r.conn.Exec(ctx, `
		UPDATE notifications SET read = TRUE, read_at = $1
		WHERE user_id = $2 AND NOT read
	`, at, string(userID))
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// DeleteReadBefore purges read notifications created before cutoff.
func (r *NotificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.conn.Exec(ctx, `DELETE FROM notifications WHERE read AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var (
		n                    notification.Notification
		id, userID, category string
	)
	err := row.Scan(&id, &userID, &n.Message, &category, &n.ActionLink, &n.Read, &n.CreatedAt, &n.ReadAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, notification.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}
	n.ID = notification.NotificationID(id)
	n.UserID = notification.RecipientID(userID)
	n.Category = notification.Category(category)
	return &n, nil
}
