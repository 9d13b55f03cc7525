package command

import (
	"context"
	"fmt"

	"github.com/internhub/internhub/internal/application/uow"
	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/shared"
	"github.com/internhub/internhub/internal/domain/supervision"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGN TUTOR COMMAND
// Locks are taken in a fixed order: agreement, tutor account, student account.
// Every check runs before the insert.
// ══════════════════════════════════════════════════════════════════════════════

// AssignTutorCommand attaches a tutor to a signed agreement.
type AssignTutorCommand struct {
	Caller      account.Principal
	AgreementID string
	TutorID     string
}

// Validate validates the command.
func (c AssignTutorCommand) Validate() error {
	if err := c.Caller.Validate(); err != nil {
		return err
	}
	if err := requireID("supervision", "Assign", "agreement_id", c.AgreementID); err != nil {
		return err
	}
	return requireID("supervision", "Assign", "tutor_id", c.TutorID)
}

// AssignTutorResult contains the new supervision.
type AssignTutorResult struct {
	Supervision *supervision.Supervision
	Events      []shared.Event
}

// AssignTutorHandler handles AssignTutorCommand.
type AssignTutorHandler struct {
	deps Deps
}

// NewAssignTutorHandler creates a new AssignTutorHandler.
func NewAssignTutorHandler(deps Deps) *AssignTutorHandler {
	return &AssignTutorHandler{deps: deps.withDefaults()}
}

// Handle executes the command.
func (h *AssignTutorHandler) Handle(ctx context.Context, cmd AssignTutorCommand) (*AssignTutorResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("assign_tutor: %w", err)
	}
	if err := requireRole(cmd.Caller, "supervision", "Assign", account.RoleAdmin); err != nil {
		return nil, fmt.Errorf("assign_tutor: %w", err)
	}

	now := h.deps.Clock()
	result := &AssignTutorResult{}

	err := h.deps.UoW.WithinTx(ctx, func(ctx context.Context, r uow.Repositories) error {
		// 1. Agreement
		a, err := r.Agreements.GetByIDForUpdate(ctx, cmd.AgreementID)
		if err != nil {
			return err
		}
		if err := a.CheckSigned(); err != nil {
			return err
		}

		// 2. One supervision per agreement
		assigned, err := r.Supervisions.ExistsForAgreement(ctx, a.ID)
		if err != nil {
			return err
		}
		if assigned {
			return supervision.ErrAlreadyAssigned
		}

		// 3. Tutor
		tutor, err := r.Accounts.GetForUpdate(ctx, cmd.TutorID)
		if err != nil {
			return err
		}
		if tutor.Role() != account.RoleTutor {
			return supervision.ErrNotTutor
		}
		tutorActive, err := r.Supervisions.CountActiveByTutor(ctx, tutor.ID())
		if err != nil {
			return err
		}
		if err := supervision.CheckCapacity(tutorActive, 0); err != nil {
			return err
		}

		// 4. Student
		if _, err := r.Accounts.GetForUpdate(ctx, a.StudentID); err != nil {
			return err
		}
		studentActive, err := r.Supervisions.CountActiveByStudent(ctx, a.StudentID)
		if err != nil {
			return err
		}
		if err := supervision.CheckCapacity(tutorActive, studentActive); err != nil {
			return err
		}

		// 5. Insert
		s, err := supervision.NewSupervision(supervision.NewSupervisionParams{
			ID:          h.deps.IDs.NewID(),
			AgreementID: a.ID,
			StudentID:   a.StudentID,
			TutorID:     tutor.ID(),
			Now:         now,
		})
		if err != nil {
			return err
		}
		if err := r.Supervisions.Create(ctx, s); err != nil {
			return err
		}

		result.Supervision = s
		result.Events = append(result.Events, supervision.NewTutorAssignedEvent(s))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("assign_tutor: %w", err)
	}

	h.deps.Metrics.Transition("supervision", "assigned")
	h.deps.publish(ctx, result.Events)
	return result, nil
}
