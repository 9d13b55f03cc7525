package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ReadNotificationPurger deletes old read notifications.
type ReadNotificationPurger interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// PurgeReadNotificationsJob deletes read notifications older than the
// retention window. Unread notifications are kept regardless of age.
type PurgeReadNotificationsJob struct {
	repo      ReadNotificationPurger
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewPurgeReadNotificationsJob creates the housekeeping job.
func NewPurgeReadNotificationsJob(repo ReadNotificationPurger, retention time.Duration, logger *slog.Logger) *PurgeReadNotificationsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &PurgeReadNotificationsJob{
		repo:      repo,
		retention: retention,
		logger:    logger.With("job", "purge_read_notifications"),
		now:       time.Now,
	}
}

// Name returns the job name.
func (j *PurgeReadNotificationsJob) Name() string {
	return "purge_read_notifications"
}

// Description returns a human-readable description.
func (j *PurgeReadNotificationsJob) Description() string {
	return "Deletes read notifications past the retention window"
}

// Run executes the purge.
func (j *PurgeReadNotificationsJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)

	n, err := j.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete read notifications: %w", err)
	}

	j.logger.Info("read notifications purged", "deleted", n, "cutoff", cutoff.Format(time.RFC3339))
	return nil
}
