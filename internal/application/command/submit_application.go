package command

import (
	"context"
	"fmt"

	"github.com/internhub/internhub/internal/application/uow"
	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/application"
	"github.com/internhub/internhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT APPLICATION COMMAND
// A student applies to a validated, non-expired offer. One application per
// (student, offer) pair.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitApplicationCommand contains the data to apply to an offer.
type SubmitApplicationCommand struct {
	Caller     account.Principal
	OfferID    string
	Motivation string
}

// Validate validates the command.
func (c SubmitApplicationCommand) Validate() error {
	if err := c.Caller.Validate(); err != nil {
		return err
	}
	return requireID("application", "Submit", "offer_id", c.OfferID)
}

// SubmitApplicationResult contains the created application.
type SubmitApplicationResult struct {
	Application *application.Application
	Events      []shared.Event
}

// SubmitApplicationHandler handles SubmitApplicationCommand.
type SubmitApplicationHandler struct {
	deps Deps
}

// NewSubmitApplicationHandler creates a new SubmitApplicationHandler.
func NewSubmitApplicationHandler(deps Deps) *SubmitApplicationHandler {
	return &SubmitApplicationHandler{deps: deps.withDefaults()}
}

// Handle executes the command.
func (h *SubmitApplicationHandler) Handle(ctx context.Context, cmd SubmitApplicationCommand) (*SubmitApplicationResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("submit_application: %w", err)
	}
	if !cmd.Caller.Is(account.RoleStudent) {
		return nil, fmt.Errorf("submit_application: %w", application.ErrStudentsOnly)
	}

	now := h.deps.Clock()
	result := &SubmitApplicationResult{}

	err := h.deps.UoW.WithinTx(ctx, func(ctx context.Context, r uow.Repositories) error {
		off, err := r.Offers.Get(ctx, cmd.OfferID)
		if err != nil {
			return err
		}
		if err := off.CheckOpen(now); err != nil {
			return err
		}

		exists, err := r.Applications.ExistsForStudentAndOffer(ctx, cmd.Caller.UserID, off.ID)
		if err != nil {
			return err
		}
		if exists {
			return application.ErrDuplicate
		}

		app, err := application.NewApplication(application.NewApplicationParams{
			ID:         h.deps.IDs.NewID(),
			StudentID:  cmd.Caller.UserID,
			OfferID:    off.ID,
			Motivation: cmd.Motivation,
			Now:        now,
		})
		if err != nil {
			return err
		}
		if err := r.Applications.Create(ctx, app); err != nil {
			return err
		}

		result.Application = app
		result.Events = append(result.Events, application.NewSubmittedEvent(app, off.CompanyID))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("submit_application: %w", err)
	}

	h.deps.Metrics.Transition("application", "submitted")
	h.deps.publish(ctx, result.Events)
	return result, nil
}
