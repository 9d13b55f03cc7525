package command

import (
	"context"
	"fmt"

	"github.com/internhub/internhub/internal/application/uow"
	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/shared"
)

// ArchiveAgreementCommand closes a signed agreement for good.
type ArchiveAgreementCommand struct {
	Caller      account.Principal
	AgreementID string
}

// Validate validates the command.
func (c ArchiveAgreementCommand) Validate() error {
	if err := c.Caller.Validate(); err != nil {
		return err
	}
	return requireID("agreement", "Archive", "agreement_id", c.AgreementID)
}

// ArchiveAgreementHandler handles ArchiveAgreementCommand.
type ArchiveAgreementHandler struct {
	deps Deps
}

// NewArchiveAgreementHandler creates a new ArchiveAgreementHandler.
func NewArchiveAgreementHandler(deps Deps) *ArchiveAgreementHandler {
	return &ArchiveAgreementHandler{deps: deps.withDefaults()}
}

// Handle executes the command.
func (h *ArchiveAgreementHandler) Handle(ctx context.Context, cmd ArchiveAgreementCommand) (*agreement.Agreement, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("archive_agreement: %w", err)
	}
	if err := requireRole(cmd.Caller, "agreement", "Archive", account.RoleAdmin); err != nil {
		return nil, fmt.Errorf("archive_agreement: %w", err)
	}

	var (
		archived *agreement.Agreement
		events   []shared.Event
	)
	err := h.deps.UoW.WithinTx(ctx, func(ctx context.Context, r uow.Repositories) error {
		a, err := r.Agreements.GetByIDForUpdate(ctx, cmd.AgreementID)
		if err != nil {
			return err
		}
		if err := a.Archive(h.deps.Clock()); err != nil {
			return err
		}
		if err := r.Agreements.Update(ctx, a); err != nil {
			return err
		}
		archived = a
		events = append(events, agreement.NewArchivedEvent(a))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("archive_agreement: %w", err)
	}

	h.deps.Metrics.Transition("agreement", "archived")
	h.deps.publish(ctx, events)
	return archived, nil
}
