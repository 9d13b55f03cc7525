package command

import (
	"context"
	"fmt"

	"github.com/internhub/internhub/internal/application/uow"
	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/application"
	"github.com/internhub/internhub/internal/domain/offer"
	"github.com/internhub/internhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCEPT / REJECT APPLICATION COMMANDS
// The company owning the offer decides a pending application exactly once.
// Acceptance provisions the agreement inside the same transaction.
// ══════════════════════════════════════════════════════════════════════════════

// AcceptApplicationCommand accepts an application.
type AcceptApplicationCommand struct {
	Caller        account.Principal
	ApplicationID string
}

// Validate validates the command.
func (c AcceptApplicationCommand) Validate() error {
	if err := c.Caller.Validate(); err != nil {
		return err
	}
	return requireID("application", "Accept", "application_id", c.ApplicationID)
}

// AcceptApplicationResult holds the decided application and its agreement.
type AcceptApplicationResult struct {
	Application *application.Application
	Agreement   *agreement.Agreement
	// AgreementCreated is false when the agreement already existed.
	AgreementCreated bool
	Events           []shared.Event
}

// RejectApplicationCommand rejects an application.
type RejectApplicationCommand struct {
	Caller        account.Principal
	ApplicationID string
	Comment       *string
}

// Validate validates the command.
func (c RejectApplicationCommand) Validate() error {
	if err := c.Caller.Validate(); err != nil {
		return err
	}
	return requireID("application", "Reject", "application_id", c.ApplicationID)
}

// RejectApplicationResult holds the decided application.
type RejectApplicationResult struct {
	Application *application.Application
	Events      []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// AcceptApplicationHandler handles AcceptApplicationCommand.
type AcceptApplicationHandler struct {
	deps        Deps
	provisioner *AgreementProvisioner
}

// NewAcceptApplicationHandler creates a new AcceptApplicationHandler.
func NewAcceptApplicationHandler(deps Deps, provisioner *AgreementProvisioner) *AcceptApplicationHandler {
	return &AcceptApplicationHandler{deps: deps.withDefaults(), provisioner: provisioner}
}

// Handle executes the command.
func (h *AcceptApplicationHandler) Handle(ctx context.Context, cmd AcceptApplicationCommand) (*AcceptApplicationResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("accept_application: %w", err)
	}
	if err := requireRole(cmd.Caller, "application", "Accept", account.RoleCompany); err != nil {
		return nil, fmt.Errorf("accept_application: %w", err)
	}

	now := h.deps.Clock()
	result := &AcceptApplicationResult{}

	err := h.deps.UoW.WithinTx(ctx, func(ctx context.Context, r uow.Repositories) error {
		app, off, err := loadForDecision(ctx, r, cmd.ApplicationID, cmd.Caller)
		if err != nil {
			return err
		}
		if err := app.Accept(now); err != nil {
			return err
		}
		if err := r.Applications.Update(ctx, app); err != nil {
			return err
		}

		accepted := application.NewAcceptedEvent(app, off.CompanyID)
		agr, created, err := h.provisioner.OnApplicationAccepted(ctx, r, accepted)
		if err != nil {
			return fmt.Errorf("provision agreement: %w", err)
		}

		result.Application = app
		result.Agreement = agr
		result.AgreementCreated = created
		result.Events = append(result.Events, accepted)
		if created {
			result.Events = append(result.Events, agreement.NewCreatedEvent(agr))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("accept_application: %w", err)
	}

	h.deps.Metrics.Transition("application", "accepted")
	if result.AgreementCreated {
		h.deps.Metrics.Transition("agreement", "created")
	}
	h.deps.publish(ctx, result.Events)
	return result, nil
}

// RejectApplicationHandler handles RejectApplicationCommand.
type RejectApplicationHandler struct {
	deps Deps
}

// NewRejectApplicationHandler creates a new RejectApplicationHandler.
func NewRejectApplicationHandler(deps Deps) *RejectApplicationHandler {
	return &RejectApplicationHandler{deps: deps.withDefaults()}
}

// Handle executes the command.
func (h *RejectApplicationHandler) Handle(ctx context.Context, cmd RejectApplicationCommand) (*RejectApplicationResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("reject_application: %w", err)
	}
	if err := requireRole(cmd.Caller, "application", "Reject", account.RoleCompany); err != nil {
		return nil, fmt.Errorf("reject_application: %w", err)
	}

	now := h.deps.Clock()
	result := &RejectApplicationResult{}

	err := h.deps.UoW.WithinTx(ctx, func(ctx context.Context, r uow.Repositories) error {
		app, off, err := loadForDecision(ctx, r, cmd.ApplicationID, cmd.Caller)
		if err != nil {
			return err
		}
		if err := app.Reject(now, cmd.Comment); err != nil {
			return err
		}
		if err := r.Applications.Update(ctx, app); err != nil {
			return err
		}

		result.Application = app
		result.Events = append(result.Events, application.NewRejectedEvent(app, off.CompanyID))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reject_application: %w", err)
	}

	h.deps.Metrics.Transition("application", "rejected")
	h.deps.publish(ctx, result.Events)
	return result, nil
}

// loadForDecision locks the application and checks the caller owns its offer.
func loadForDecision(ctx context.Context, r uow.Repositories, applicationID string, caller account.Principal) (*application.Application, *offer.Offer, error) {
	app, err := r.Applications.GetByIDForUpdate(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	off, err := r.Offers.Get(ctx, app.OfferID)
	if err != nil {
		return nil, nil, err
	}
	if !off.OwnedBy(caller.UserID) {
		return nil, nil, offer.ErrNotOwner
	}
	return app, off, nil
}
