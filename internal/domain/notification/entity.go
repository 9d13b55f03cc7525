// Package notification contains the in-app notifications sent to workflow
// participants. Notifications are a side channel: losing one never affects
// the state of an application, agreement or supervision.
package notification

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/internhub/internhub/internal/domain/shared"
)

// MaxMessageLength bounds a notification message.
const MaxMessageLength = 1000

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// NotificationID is the unique identifier of a notification.
type NotificationID string

// IsValid checks the ID is not empty.
func (id NotificationID) IsValid() bool {
	return len(id) > 0
}

// String returns the string representation of the ID.
func (id NotificationID) String() string {
	return string(id)
}

// RecipientID identifies the account that receives a notification.
type RecipientID string

// IsValid checks the recipient is a well-formed account id.
func (id RecipientID) IsValid() bool {
	return shared.IsValidID(string(id))
}

// String returns the string representation of the recipient ID.
func (id RecipientID) String() string {
	return string(id)
}

// ══════════════════════════════════════════════════════════════════════════════
// CATEGORY
// ══════════════════════════════════════════════════════════════════════════════

// Category groups notifications by the workflow object they refer to.
type Category string

const (
	CategoryApplication Category = "APPLICATION"
	CategoryAgreement   Category = "AGREEMENT"
	CategoryOffer       Category = "OFFER"
	CategorySupervision Category = "SUPERVISION"
)

// IsValid checks the category is known.
func (c Category) IsValid() bool {
	switch c {
	case CategoryApplication, CategoryAgreement, CategoryOffer, CategorySupervision:
		return true
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrNotFound        = shared.NewDomainError("notification", "Get", shared.ErrNotFound, "notification not found")
	ErrNotRecipient    = shared.NewDomainError("notification", "MarkRead", shared.ErrForbidden, "notification belongs to another user")
	ErrInvalidCategory = shared.NewDomainError("notification", "Validate", shared.ErrInvalidInput, "invalid notification category")
	ErrEmptyMessage    = shared.NewDomainError("notification", "Validate", shared.ErrInvalidInput, "notification message is empty")
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Notification is one in-app message.
type Notification struct {
	ID         NotificationID
	UserID     RecipientID
	Message    string
	Category   Category
	ActionLink string
	Read       bool
	CreatedAt  time.Time
	ReadAt     *time.Time
}

// NewNotificationParams holds the inputs of NewNotification.
type NewNotificationParams struct {
	ID         string
	UserID     string
	Message    string
	Category   Category
	ActionLink string
	Now        time.Time
}

// NewNotification creates an unread notification. Messages longer than
// MaxMessageLength are truncated.
func NewNotification(p NewNotificationParams) (*Notification, error) {
	if !NotificationID(p.ID).IsValid() || !RecipientID(p.UserID).IsValid() {
		return nil, shared.InvalidInput("notification", "New", "invalid identifier")
	}
	if !p.Category.IsValid() {
		return nil, ErrInvalidCategory
	}
	msg := strings.TrimSpace(p.Message)
	if msg == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(msg) > MaxMessageLength {
		msg = string([]rune(msg)[:MaxMessageLength])
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}

	return &Notification{
		ID:         NotificationID(p.ID),
		UserID:     RecipientID(p.UserID),
		Message:    msg,
		Category:   p.Category,
		ActionLink: p.ActionLink,
		CreatedAt:  now.UTC(),
	}, nil
}

// MarkRead marks the notification as read. It is idempotent.
func (n *Notification) MarkRead(now time.Time) {
	if n.Read {
		return
	}
	at := now.UTC()
	n.Read = true
	n.ReadAt = &at
}

// BelongsTo reports whether userID is the recipient.
func (n *Notification) BelongsTo(userID string) bool {
	return string(n.UserID) == userID
}
