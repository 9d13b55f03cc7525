package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/internhub/internhub/internal/domain/notification"
)

// counterStore is the part of Cache the counter needs.
type counterStore interface {
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key string, value string, ttl time.Duration) error
	SetStringIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	IncrIfExists(ctx context.Context, key string) (int64, bool, error)
}

// NotificationCounter implements notification.UnreadCounter. A missing key
// means "unknown"; callers fall back to Postgres and warm it with Warm.
type NotificationCounter struct {
	store counterStore
	ttl   time.Duration
}

var _ notification.UnreadCounter = (*NotificationCounter)(nil)

// NewNotificationCounter creates a counter over cache.
func NewNotificationCounter(cache *Cache) *NotificationCounter {
	return newNotificationCounter(cache, TTLUnreadCount)
}

func newNotificationCounter(store counterStore, ttl time.Duration) *NotificationCounter {
	return &NotificationCounter{store: store, ttl: ttl}
}

// Increment bumps a warm counter. A cold counter stays cold.
func (c *NotificationCounter) Increment(ctx context.Context, userID notification.RecipientID) error {
	if _, _, err := c.store.IncrIfExists(ctx, UnreadKey(userID.String())); err != nil {
		return fmt.Errorf("increment unread counter: %w", err)
	}
	return nil
}

// Get returns the cached count and whether it was present.
func (c *NotificationCounter) Get(ctx context.Context, userID notification.RecipientID) (int, bool, error) {
	raw, err := c.store.GetString(ctx, UnreadKey(userID.String()))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get unread counter: %w", err)
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		// A corrupt value is treated as a miss and dropped.
		_ = c.store.Delete(ctx, UnreadKey(userID.String()))
		return 0, false, nil
	}
	return n, true, nil
}

// Set warms the counter with an authoritative count.
func (c *NotificationCounter) Set(ctx context.Context, userID notification.RecipientID, count int) error {
	if count < 0 {
		count = 0
	}
	if err := c.store.SetString(ctx, UnreadKey(userID.String()), strconv.Itoa(count), c.ttl); err != nil {
		return fmt.Errorf("set unread counter: %w", err)
	}
	return nil
}

// Warm seeds a cold counter with a count read from Postgres. A value written
// in the meantime by Increment or Set is kept.
func (c *NotificationCounter) Warm(ctx context.Context, userID notification.RecipientID, count int) error {
	if count < 0 {
		count = 0
	}
	if _, err := c.store.SetStringIfAbsent(ctx, UnreadKey(userID.String()), strconv.Itoa(count), c.ttl); err != nil {
		return fmt.Errorf("warm unread counter: %w", err)
	}
	return nil
}

// Reset drops the counter so the next read recounts from Postgres.
func (c *NotificationCounter) Reset(ctx context.Context, userID notification.RecipientID) error {
	if err := c.store.Delete(ctx, UnreadKey(userID.String())); err != nil {
		return fmt.Errorf("reset unread counter: %w", err)
	}
	return nil
}
