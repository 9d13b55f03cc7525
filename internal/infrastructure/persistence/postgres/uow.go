package postgres

import (
	"context"

	"github.com/internhub/internhub/internal/application/uow"

	"github.com/jackc/pgx/v5"
)

// UnitOfWork implements uow.Runner on top of Connection.WithTx. Row locks
// are taken by the ForUpdate repository methods and held until commit.
type UnitOfWork struct {
	conn *Connection
	opts TxOptions
}

// NewUnitOfWork creates a runner that uses read-committed transactions.
func NewUnitOfWork(conn *Connection) *UnitOfWork {
	return &UnitOfWork{conn: conn, opts: DefaultTxOptions()}
}

// WithinTx runs fn in one transaction. Any error rolls everything back.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn uow.TxFunc) error {
	return u.conn.WithTx(ctx, u.opts, func(tx pgx.Tx) error {
		return fn(ctx, repositoriesOn(tx))
	})
}

// Repositories returns lock-free repositories reading committed data.
func (u *UnitOfWork) Repositories() uow.Repositories {
	return repositoriesOn(u.conn)
}

func repositoriesOn(q Querier) uow.Repositories {
	return uow.Repositories{
		Applications: NewApplicationRepository(q),
		Agreements:   NewAgreementRepository(q),
		Supervisions: NewSupervisionRepository(q),
		Offers:       NewOfferStore(q),
		Accounts:     NewAccountDirectory(q),
	}
}
