package command

import (
	"context"
	"fmt"
	"time"

	"github.com/internhub/internhub/internal/application/uow"
	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/shared"
	"github.com/internhub/internhub/internal/domain/supervision"
)

// UpdateProgressCommand is a partial tutor update; nil fields are kept.
type UpdateProgressCommand struct {
	Caller        account.Principal
	SupervisionID string
	Progress      *string
	Notes         *string
	LastVisit     *time.Time
}

// Validate validates the command.
func (c UpdateProgressCommand) Validate() error {
	if err := c.Caller.Validate(); err != nil {
		return err
	}
	return requireID("supervision", "Update", "supervision_id", c.SupervisionID)
}

func (c UpdateProgressCommand) toUpdate() (supervision.Update, error) {
	u := supervision.Update{Notes: c.Notes, LastVisit: c.LastVisit}
	if c.Progress != nil {
		p, err := supervision.ParseProgress(*c.Progress)
		if err != nil {
			return supervision.Update{}, err
		}
		u.Progress = &p
	}
	return u, nil
}

// UpdateProgressHandler handles UpdateProgressCommand.
type UpdateProgressHandler struct {
	deps Deps
}

// NewUpdateProgressHandler creates a new UpdateProgressHandler.
func NewUpdateProgressHandler(deps Deps) *UpdateProgressHandler {
	return &UpdateProgressHandler{deps: deps.withDefaults()}
}

// Handle executes the command. An update with no fields returns the
// supervision unchanged. Reopening a COMPLETED supervision takes the tutor
// and student locks in the same order as AssignTutor and rechecks capacity.
func (h *UpdateProgressHandler) Handle(ctx context.Context, cmd UpdateProgressCommand) (*supervision.Supervision, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_progress: %w", err)
	}
	update, err := cmd.toUpdate()
	if err != nil {
		return nil, fmt.Errorf("update_progress: %w", err)
	}

	var (
		updated *supervision.Supervision
		events  []shared.Event
	)
	err = h.deps.UoW.WithinTx(ctx, func(ctx context.Context, r uow.Repositories) error {
		s, err := r.Supervisions.GetByIDForUpdate(ctx, cmd.SupervisionID)
		if err != nil {
			return err
		}
		if s.TutorID != cmd.Caller.UserID {
			return supervision.ErrNotAssignedTutor
		}
		updated = s
		if update.IsEmpty() {
			return nil
		}

		if s.Reopens(update) {
			if err := checkReopenCapacity(ctx, r, s); err != nil {
				return err
			}
		}
		if err := s.Apply(update, h.deps.Clock()); err != nil {
			return err
		}
		if err := r.Supervisions.Update(ctx, s); err != nil {
			return err
		}
		events = append(events, supervision.NewProgressUpdatedEvent(s))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update_progress: %w", err)
	}

	if len(events) > 0 {
		h.deps.Metrics.Transition("supervision", "updated")
		h.deps.publish(ctx, events)
	}
	return updated, nil
}

func checkReopenCapacity(ctx context.Context, r uow.Repositories, s *supervision.Supervision) error {
	if _, err := r.Accounts.GetForUpdate(ctx, s.TutorID); err != nil {
		return err
	}
	tutorActive, err := r.Supervisions.CountActiveByTutor(ctx, s.TutorID)
	if err != nil {
		return err
	}
	if _, err := r.Accounts.GetForUpdate(ctx, s.StudentID); err != nil {
		return err
	}
	studentActive, err := r.Supervisions.CountActiveByStudent(ctx, s.StudentID)
	if err != nil {
		return err
	}
	return supervision.CheckCapacity(tutorActive, studentActive)
}
