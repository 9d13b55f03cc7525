// Package uow defines the unit of work every workflow mutation runs in.
package uow

import (
	"context"

	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/application"
	"github.com/internhub/internhub/internal/domain/offer"
	"github.com/internhub/internhub/internal/domain/supervision"
)

// Repositories is the set of stores a workflow operation can touch. Inside
// WithinTx they are bound to the transaction; from Runner.Repositories they
// read committed data without locks.
type Repositories struct {
	Applications application.Repository
	Agreements   agreement.Repository
	Supervisions supervision.Repository
	Offers       offer.Store
	Accounts     account.Directory
}

// TxFunc is the body of a unit of work.
type TxFunc func(ctx context.Context, repos Repositories) error

// Runner executes units of work. A TxFunc that returns an error leaves the
// store unchanged; one that returns nil commits every write it made.
type Runner interface {
	WithinTx(ctx context.Context, fn TxFunc) error
	Repositories() Repositories
}
