package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/internhub/internal/domain/notification"
	"github.com/internhub/internhub/internal/domain/shared"
	"github.com/internhub/internhub/internal/infrastructure/persistence/memory"
)

const recipient = "10000000-0000-0000-0000-000000000001"

type fixedIDs struct{ n int }

func (g *fixedIDs) NewID() string {
	g.n++
	return fmt.Sprintf("60000000-0000-0000-0000-%012d", g.n)
}

type countingCounter struct {
	increments int
	err        error
}

func (c *countingCounter) Increment(context.Context, notification.RecipientID) error {
	c.increments++
	return c.err
}
func (c *countingCounter) Get(context.Context, notification.RecipientID) (int, bool, error) {
	return 0, false, nil
}
func (c *countingCounter) Set(context.Context, notification.RecipientID, int) error  { return nil }
func (c *countingCounter) Warm(context.Context, notification.RecipientID, int) error { return nil }
func (c *countingCounter) Reset(context.Context, notification.RecipientID) error     { return nil }

type failingRepo struct{ notification.Repository }

func (failingRepo) Save(context.Context, *notification.Notification) error {
	return errors.New("database unavailable")
}

func TestIDGenerator_NewID(t *testing.T) {
	g := NewIDGenerator()
	a, b := g.NewID(), g.NewID()

	assert.True(t, shared.IsValidID(a))
	assert.NotEqual(t, a, b)
}

func TestNotificationService_Notify(t *testing.T) {
	repo := memory.New().Notifications()
	counter := &countingCounter{}
	svc := NewNotificationService(repo, counter, &fixedIDs{}, nil)
	svc.now = func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	svc.Notify(ctx, recipient, "Your application was accepted", notification.CategoryApplication, "/applications/1")

	list, total, err := repo.ListByRecipient(ctx, recipient, shared.DefaultPageRequest())
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "Your application was accepted", list[0].Message)
	assert.Equal(t, "/applications/1", list[0].ActionLink)
	assert.False(t, list[0].Read)
	assert.Equal(t, 1, counter.increments)
}

func TestNotificationService_SwallowsFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid input", func(t *testing.T) {
		repo := memory.New().Notifications()
		counter := &countingCounter{}
		svc := NewNotificationService(repo, counter, &fixedIDs{}, nil)

		svc.Notify(ctx, recipient, "   ", notification.CategoryAgreement, "")
		svc.Notify(ctx, "not-a-uuid", "hello", notification.CategoryAgreement, "")

		_, total, err := repo.ListByRecipient(ctx, recipient, shared.DefaultPageRequest())
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Zero(t, counter.increments)
	})

	t.Run("save fails", func(t *testing.T) {
		counter := &countingCounter{}
		svc := NewNotificationService(failingRepo{}, counter, &fixedIDs{}, nil)

		assert.NotPanics(t, func() {
			svc.Notify(ctx, recipient, "hello", notification.CategoryAgreement, "")
		})
		assert.Zero(t, counter.increments)
	})

	t.Run("counter fails", func(t *testing.T) {
		repo := memory.New().Notifications()
		svc := NewNotificationService(repo, &countingCounter{err: errors.New("redis down")}, &fixedIDs{}, nil)

		svc.Notify(ctx, recipient, "hello", notification.CategorySupervision, "")

		n, err := repo.CountUnread(ctx, recipient)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("no counter", func(t *testing.T) {
		repo := memory.New().Notifications()
		svc := NewNotificationService(repo, nil, nil, nil)

		svc.Notify(ctx, recipient, "hello", notification.CategoryOffer, "")

		n, err := repo.CountUnread(ctx, recipient)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}
