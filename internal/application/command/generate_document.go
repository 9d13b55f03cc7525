package command

import (
	"context"
	"fmt"

	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/shared"
)

// GenerateDocumentCommand (re)renders the document of a signed agreement.
type GenerateDocumentCommand struct {
	Caller      account.Principal
	AgreementID string

	// Regenerate forces a new render even when a document exists.
	Regenerate bool
}

// Validate validates the command.
func (c GenerateDocumentCommand) Validate() error {
	if err := c.Caller.Validate(); err != nil {
		return err
	}
	return requireID("agreement", "GenerateDocument", "agreement_id", c.AgreementID)
}

// GenerateDocumentResult contains the stored reference.
type GenerateDocumentResult struct {
	Agreement   *agreement.Agreement
	DocumentRef string
	Rendered    bool
	Events      []shared.Event
}

// GenerateDocumentHandler handles GenerateDocumentCommand.
type GenerateDocumentHandler struct {
	deps      Deps
	documents documentGenerator
}

// NewGenerateDocumentHandler creates a new GenerateDocumentHandler.
func NewGenerateDocumentHandler(deps Deps, renderer agreement.DocumentRenderer) *GenerateDocumentHandler {
	deps = deps.withDefaults()
	return &GenerateDocumentHandler{
		deps:      deps,
		documents: documentGenerator{deps: deps, renderer: renderer},
	}
}

// Handle executes the command. Renderer failures are returned as
// ErrServiceUnavailable; they are not published, callers retry.
func (h *GenerateDocumentHandler) Handle(ctx context.Context, cmd GenerateDocumentCommand) (*GenerateDocumentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("generate_document: %w", err)
	}

	a, err := h.deps.UoW.Repositories().Agreements.GetByID(ctx, cmd.AgreementID)
	if err != nil {
		return nil, fmt.Errorf("generate_document: %w", err)
	}
	if !cmd.Caller.IsAdmin() && !a.IsParty(cmd.Caller.UserID) {
		return nil, fmt.Errorf("generate_document: %w", agreement.ErrNotParty)
	}

	stored, rendered, err := h.documents.generate(ctx, a.ID, cmd.Regenerate)
	if rendered || err != nil {
		h.deps.Metrics.DocumentRender(renderOutcome(rendered, err))
	}
	if err != nil {
		return nil, fmt.Errorf("generate_document: %w", err)
	}

	result := &GenerateDocumentResult{
		Agreement:   stored,
		DocumentRef: *stored.DocumentRef,
		Rendered:    rendered,
	}
	if rendered {
		result.Events = append(result.Events, agreement.NewDocumentGeneratedEvent(stored.ID, result.DocumentRef))
		h.deps.publish(ctx, result.Events)
	}
	return result, nil
}
