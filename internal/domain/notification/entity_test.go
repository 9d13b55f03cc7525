package notification

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/internhub/internal/domain/shared"
)

const testUser = "d1d1d1d1-0000-4000-8000-000000000001"

func TestNewNotification(t *testing.T) {
	n, err := NewNotification(NewNotificationParams{
		ID:         "n-1",
		UserID:     testUser,
		Message:    "  Your application was accepted  ",
		Category:   CategoryApplication,
		ActionLink: "/applications/42",
	})
	require.NoError(t, err)
	assert.Equal(t, "Your application was accepted", n.Message)
	assert.False(t, n.Read)
	assert.True(t, n.BelongsTo(testUser))
}

func TestNewNotificationValidation(t *testing.T) {
	_, err := NewNotification(NewNotificationParams{ID: "n", UserID: testUser, Message: "x", Category: "EMAIL"})
	assert.ErrorIs(t, err, ErrInvalidCategory)

	_, err = NewNotification(NewNotificationParams{ID: "n", UserID: testUser, Message: "  ", Category: CategoryOffer})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = NewNotification(NewNotificationParams{ID: "n", UserID: "bob", Message: "x", Category: CategoryOffer})
	assert.True(t, shared.IsInvalidInput(err))

	n, err := NewNotification(NewNotificationParams{
		ID: "n", UserID: testUser, Message: strings.Repeat("é", MaxMessageLength+10), Category: CategoryOffer,
	})
	require.NoError(t, err)
	assert.Len(t, []rune(n.Message), MaxMessageLength)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	n, err := NewNotification(NewNotificationParams{ID: "n", UserID: testUser, Message: "hi", Category: CategoryAgreement})
	require.NoError(t, err)

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n.MarkRead(first)
	n.MarkRead(first.Add(time.Hour))

	assert.True(t, n.Read)
	assert.Equal(t, first, *n.ReadAt)
}
