package memory

import (
	"context"
	"time"

	"github.com/internhub/internhub/internal/domain/notification"
	"github.com/internhub/internhub/internal/domain/shared"
)

type notificationRepo struct{ access access }

var _ notification.Repository = (*notificationRepo)(nil)

func (r *notificationRepo) Save(_ context.Context, n *notification.Notification) error {
	return r.access(true, func(st *state) error {
		st.notifications[n.ID] = *n
		return nil
	})
}

func (r *notificationRepo) GetByID(_ context.Context, id notification.NotificationID) (*notification.Notification, error) {
	var out *notification.Notification
	err := r.access(false, func(st *state) error {
		v, ok := st.notifications[id]
		if !ok {
			return notification.ErrNotFound
		}
		out = &v
		return nil
	})
	return out, err
}

func (r *notificationRepo) ListByRecipient(_ context.Context, userID notification.RecipientID, req shared.PageRequest) ([]*notification.Notification, int, error) {
	var (
		items []*notification.Notification
		total int
	)
	err := r.access(false, func(st *state) error {
		var all []*notification.Notification
		for _, n := range st.notifications {
			if n.UserID == userID {
				v := n
				all = append(all, &v)
			}
		}
		newestFirst(all,
			func(n *notification.Notification) time.Time { return n.CreatedAt },
			func(n *notification.Notification) string { return n.ID.String() },
		)
		items, total = page(all, req)
		return nil
	})
	return items, total, err
}

func (r *notificationRepo) CountUnread(_ context.Context, userID notification.RecipientID) (int, error) {
	var n int
	err := r.access(false, func(st *state) error {
		for _, v := range st.notifications {
			if v.UserID == userID && !v.Read {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *notificationRepo) MarkRead(_ context.Context, id notification.NotificationID, at time.Time) error {
	return r.access(true, func(st *state) error {
		v, ok := st.notifications[id]
		if !ok {
			return notification.ErrNotFound
		}
		v.MarkRead(at)
		st.notifications[id] = v
		return nil
	})
}

func (r *notificationRepo) MarkAllRead(_ context.Context, userID notification.RecipientID, at time.Time) (int, error) {
	var changed int
	err := r.access(true, func(st *state) error {
		for id, v := range st.notifications {
			if v.UserID == userID && !v.Read {
				v.MarkRead(at)
				st.notifications[id] = v
				changed++
			}
		}
		return nil
	})
	return changed, err
}

func (r *notificationRepo) DeleteReadBefore(_ context.Context, cutoff time.Time) (int, error) {
	var deleted int
	err := r.access(true, func(st *state) error {
		for id, v := range st.notifications {
			if v.Read && v.CreatedAt.Before(cutoff) {
				delete(st.notifications, id)
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}
