package command

import (
	"context"
	"errors"

	"github.com/internhub/internhub/internal/application/uow"
	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/application"
	"github.com/internhub/internhub/internal/domain/shared"
)

// AgreementProvisioner reacts to an accepted application by creating its
// agreement. It runs inside the accepting transaction, never on the bus: an
// accepted application without an agreement must not be observable.
type AgreementProvisioner struct {
	ids   shared.IDGenerator
	clock Clock
}

// NewAgreementProvisioner creates a new AgreementProvisioner.
func NewAgreementProvisioner(ids shared.IDGenerator, clock Clock) *AgreementProvisioner {
	if clock == nil {
		clock = SystemClock
	}
	return &AgreementProvisioner{ids: ids, clock: clock}
}

// OnApplicationAccepted returns the agreement for the application, creating
// it when missing. created is false when an agreement already existed.
func (p *AgreementProvisioner) OnApplicationAccepted(ctx context.Context, r uow.Repositories, e application.AcceptedEvent) (a *agreement.Agreement, created bool, err error) {
	existing, err := r.Agreements.GetByApplicationID(ctx, e.AggregateID())
	switch {
	case err == nil:
		return existing, false, nil
	case !shared.IsNotFound(err):
		return nil, false, err
	}

	off, err := r.Offers.Get(ctx, e.OfferID)
	if err != nil {
		return nil, false, err
	}

	a, err = agreement.NewAgreement(agreement.NewAgreementParams{
		ID:            p.ids.NewID(),
		ApplicationID: e.AggregateID(),
		StudentID:     e.StudentID,
		CompanyID:     off.CompanyID,
		OfferID:       off.ID,
		Period:        off.Period(),
		Now:           p.clock(),
	})
	if err != nil {
		return nil, false, err
	}

	if err := r.Agreements.Create(ctx, a); err != nil {
		if errors.Is(err, agreement.ErrAlreadyExists) {
			existing, getErr := r.Agreements.GetByApplicationID(ctx, e.AggregateID())
			return existing, false, getErr
		}
		return nil, false, err
	}
	return a, true, nil
}
