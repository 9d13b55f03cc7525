package command_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/internhub/internal/application/command"
	"github.com/internhub/internhub/internal/domain/notification"
	"github.com/internhub/internhub/internal/domain/shared"
)

func TestNotificationRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	repo := f.store.Notifications()

	var ids []string
	for i, msg := range []string{"one", "two", "three"} {
		n, err := notification.NewNotification(notification.NewNotificationParams{
			ID:       f.deps.IDs.NewID(),
			UserID:   studentID,
			Message:  msg,
			Category: notification.CategoryAgreement,
			Now:      f.now.Add(-time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, n))
		ids = append(ids, string(n.ID))
	}

	h := command.NewNotificationReadHandler(repo, nil, f.deps.Clock, nil)

	err := h.MarkRead(ctx, command.MarkNotificationReadCommand{Caller: asCompany, NotificationID: ids[0]})
	assert.True(t, shared.IsForbidden(err))

	require.NoError(t, h.MarkRead(ctx, command.MarkNotificationReadCommand{Caller: asStudent, NotificationID: ids[0]}))
	require.NoError(t, h.MarkRead(ctx, command.MarkNotificationReadCommand{Caller: asStudent, NotificationID: ids[0]}))

	unread, err := repo.CountUnread(ctx, notification.RecipientID(studentID))
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	changed, err := h.MarkAllRead(ctx, command.MarkAllNotificationsReadCommand{Caller: asStudent})
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	unread, err = repo.CountUnread(ctx, notification.RecipientID(studentID))
	require.NoError(t, err)
	assert.Zero(t, unread)
}
