package command

import (
	"context"
	"fmt"

	"github.com/internhub/internhub/internal/application/uow"
	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SIGN AGREEMENT COMMAND
// Each party signs once. The first transition to SIGNED triggers document
// rendering after commit; a render failure never fails the signature.
// ══════════════════════════════════════════════════════════════════════════════

// SignAgreementCommand signs an agreement as one party.
type SignAgreementCommand struct {
	Caller      account.Principal
	AgreementID string
	Party       agreement.Party
}

// Validate validates the command.
func (c SignAgreementCommand) Validate() error {
	if err := c.Caller.Validate(); err != nil {
		return err
	}
	if !c.Party.IsValid() {
		return shared.InvalidInput("agreement", "Sign", "party must be STUDENT, COMPANY or ADMIN")
	}
	return requireID("agreement", "Sign", "agreement_id", c.AgreementID)
}

// SignAgreementResult contains the agreement after signing.
type SignAgreementResult struct {
	Agreement *agreement.Agreement

	// Completed is true when this signature moved the agreement to SIGNED.
	Completed bool

	// RenderError is set when the document could not be produced. The
	// signature itself is committed.
	RenderError error

	Events []shared.Event
}

// SignAgreementHandler handles SignAgreementCommand.
type SignAgreementHandler struct {
	deps      Deps
	documents documentGenerator
}

// NewSignAgreementHandler creates a new SignAgreementHandler. renderer may be
// nil, in which case documents are left for the sweep job.
func NewSignAgreementHandler(deps Deps, renderer agreement.DocumentRenderer) *SignAgreementHandler {
	deps = deps.withDefaults()
	return &SignAgreementHandler{
		deps:      deps,
		documents: documentGenerator{deps: deps, renderer: renderer},
	}
}

// Handle executes the command.
func (h *SignAgreementHandler) Handle(ctx context.Context, cmd SignAgreementCommand) (*SignAgreementResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("sign_agreement: %w", err)
	}

	now := h.deps.Clock()
	result := &SignAgreementResult{}

	err := h.deps.UoW.WithinTx(ctx, func(ctx context.Context, r uow.Repositories) error {
		a, err := r.Agreements.GetByIDForUpdate(ctx, cmd.AgreementID)
		if err != nil {
			return err
		}
		if err := authorizeSigner(cmd.Caller, a, cmd.Party); err != nil {
			return err
		}

		completed, err := a.Sign(cmd.Party, now)
		if err != nil {
			return err
		}
		if err := r.Agreements.Update(ctx, a); err != nil {
			return err
		}

		result.Agreement = a
		result.Completed = completed
		result.Events = append(result.Events, agreement.NewSignedEvent(a, cmd.Party))
		if completed {
			result.Events = append(result.Events, agreement.NewFullySignedEvent(a))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sign_agreement: %w", err)
	}

	h.deps.Metrics.Transition("agreement", "signed")
	if result.Completed {
		h.deps.Metrics.Transition("agreement", "fully_signed")
		h.renderAfterCommit(ctx, result)
	}

	h.deps.publish(ctx, result.Events)
	return result, nil
}

func (h *SignAgreementHandler) renderAfterCommit(ctx context.Context, result *SignAgreementResult) {
	id := result.Agreement.ID

	stored, rendered, err := h.documents.generate(ctx, id, false)
	h.deps.Metrics.DocumentRender(renderOutcome(rendered, err))
	if err != nil {
		h.deps.Logger.ErrorContext(ctx, "document rendering failed after signing",
			"agreement_id", id,
			"error", err,
		)
		result.RenderError = err
		result.Events = append(result.Events, agreement.NewDocumentRenderFailedEvent(id, err))
		return
	}

	result.Agreement = stored
	if rendered {
		result.Events = append(result.Events, agreement.NewDocumentGeneratedEvent(id, *stored.DocumentRef))
	}
}

// authorizeSigner checks the caller may sign as the given party.
func authorizeSigner(caller account.Principal, a *agreement.Agreement, p agreement.Party) error {
	var ok bool
	switch p {
	case agreement.PartyStudent:
		ok = caller.UserID == a.StudentID
	case agreement.PartyCompany:
		ok = caller.UserID == a.CompanyID
	case agreement.PartyAdmin:
		ok = caller.IsAdmin()
	}
	if !ok {
		return shared.Forbidden("agreement", "Sign", "caller may not sign as "+string(p))
	}
	return nil
}
