package command

import (
	"context"
	"fmt"

	"github.com/internhub/internhub/internal/application/uow"
	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/application"
	"github.com/internhub/internhub/internal/domain/shared"
)

// WithdrawApplicationCommand deletes a pending application.
type WithdrawApplicationCommand struct {
	Caller        account.Principal
	ApplicationID string
}

// Validate validates the command.
func (c WithdrawApplicationCommand) Validate() error {
	if err := c.Caller.Validate(); err != nil {
		return err
	}
	return requireID("application", "Withdraw", "application_id", c.ApplicationID)
}

// WithdrawApplicationHandler handles WithdrawApplicationCommand.
type WithdrawApplicationHandler struct {
	deps Deps
}

// NewWithdrawApplicationHandler creates a new WithdrawApplicationHandler.
func NewWithdrawApplicationHandler(deps Deps) *WithdrawApplicationHandler {
	return &WithdrawApplicationHandler{deps: deps.withDefaults()}
}

// Handle executes the command. Only the applicant may withdraw, and only
// while the application is pending.
func (h *WithdrawApplicationHandler) Handle(ctx context.Context, cmd WithdrawApplicationCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("withdraw_application: %w", err)
	}
	if err := requireRole(cmd.Caller, "application", "Withdraw", account.RoleStudent); err != nil {
		return fmt.Errorf("withdraw_application: %w", err)
	}

	var events []shared.Event
	err := h.deps.UoW.WithinTx(ctx, func(ctx context.Context, r uow.Repositories) error {
		app, err := r.Applications.GetByIDForUpdate(ctx, cmd.ApplicationID)
		if err != nil {
			return err
		}
		if !app.SubmittedBy(cmd.Caller.UserID) {
			return application.ErrNotApplicant
		}
		if err := app.CheckWithdrawable(); err != nil {
			return err
		}
		if err := r.Applications.Delete(ctx, app.ID); err != nil {
			return err
		}
		events = append(events, application.NewWithdrawnEvent(app))
		return nil
	})
	if err != nil {
		return fmt.Errorf("withdraw_application: %w", err)
	}

	h.deps.Metrics.Transition("application", "withdrawn")
	h.deps.publish(ctx, events)
	return nil
}
