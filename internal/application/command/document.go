package command

import (
	"context"

	"github.com/internhub/internhub/internal/application/uow"
	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/shared"
)

// ErrRendererUnavailable is returned when no renderer is configured or the
// renderer call failed.
var ErrRendererUnavailable = shared.NewDomainError("agreement", "Render", shared.ErrServiceUnavailable, "document renderer unavailable")

// documentGenerator renders a signed agreement outside any transaction and
// stores the reference in a short follow-up transaction.
type documentGenerator struct {
	deps     Deps
	renderer agreement.DocumentRenderer
}

// generate renders the agreement unless it already has a document and
// regenerate is false. It returns the agreement as stored afterwards and
// whether the renderer was called.
func (g documentGenerator) generate(ctx context.Context, agreementID string, regenerate bool) (*agreement.Agreement, bool, error) {
	repos := g.deps.UoW.Repositories()

	a, err := repos.Agreements.GetByID(ctx, agreementID)
	if err != nil {
		return nil, false, err
	}
	if err := a.CheckSigned(); err != nil {
		return nil, false, err
	}
	if a.HasDocument() && !regenerate {
		return a, false, nil
	}
	if g.renderer == nil {
		return nil, false, ErrRendererUnavailable
	}

	ref, err := g.renderer.Render(ctx, g.snapshot(ctx, repos, a))
	if err != nil {
		return nil, true, shared.WrapError("agreement", "Render", shared.ErrServiceUnavailable, "document rendering failed", err)
	}

	var stored *agreement.Agreement
	err = g.deps.UoW.WithinTx(ctx, func(ctx context.Context, r uow.Repositories) error {
		locked, err := r.Agreements.GetByIDForUpdate(ctx, agreementID)
		if err != nil {
			return err
		}
		// Archived while rendering; the document is no longer attachable.
		if err := locked.CheckSigned(); err != nil {
			return err
		}
		if locked.HasDocument() && !regenerate {
			stored = locked
			return nil
		}
		if err := locked.AttachDocument(ref, g.deps.Clock()); err != nil {
			return err
		}
		if err := r.Agreements.Update(ctx, locked); err != nil {
			return err
		}
		stored = locked
		return nil
	})
	if err != nil {
		return nil, true, err
	}
	return stored, true, nil
}

// snapshot fills display names. Missing names do not block rendering.
func (g documentGenerator) snapshot(ctx context.Context, repos uow.Repositories, a *agreement.Agreement) agreement.Snapshot {
	snap := agreement.SnapshotOf(a)

	if off, err := repos.Offers.Get(ctx, a.OfferID); err == nil {
		snap.OfferTitle = off.Title
	} else {
		g.deps.Logger.WarnContext(ctx, "offer lookup for document failed", "agreement_id", a.ID, "error", err)
	}
	if acc, err := repos.Accounts.Get(ctx, a.StudentID); err == nil {
		snap.StudentName = acc.DisplayName()
	}
	if acc, err := repos.Accounts.Get(ctx, a.CompanyID); err == nil {
		snap.CompanyName = acc.DisplayName()
	}
	return snap
}

func renderOutcome(rendered bool, err error) string {
	switch {
	case err != nil:
		return "failure"
	case rendered:
		return "success"
	default:
		return "skipped"
	}
}

