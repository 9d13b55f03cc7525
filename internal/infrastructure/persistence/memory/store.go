// Package memory is an in-memory implementation of the repositories and the
// unit of work. It is safe for concurrent use and is intended for tests and
// local development.
//
// Transactions are serialized by a single writer lock. Each transaction
// mutates a private copy of the state that replaces the live state on commit,
// so a failing transaction leaves nothing behind.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/internhub/internhub/internal/application/uow"
	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/application"
	"github.com/internhub/internhub/internal/domain/notification"
	"github.com/internhub/internhub/internal/domain/offer"
	"github.com/internhub/internhub/internal/domain/shared"
	"github.com/internhub/internhub/internal/domain/supervision"
)

type state struct {
	accounts      map[string]account.Account
	offers        map[string]offer.Offer
	applications  map[string]application.Application
	agreements    map[string]agreement.Agreement
	supervisions  map[string]supervision.Supervision
	notifications map[notification.NotificationID]notification.Notification
}

func newState() *state {
	return &state{
		accounts:      make(map[string]account.Account),
		offers:        make(map[string]offer.Offer),
		applications:  make(map[string]application.Application),
		agreements:    make(map[string]agreement.Agreement),
		supervisions:  make(map[string]supervision.Supervision),
		notifications: make(map[notification.NotificationID]notification.Notification),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.offers {
		c.offers[k] = v
	}
	for k, v := range s.applications {
		c.applications[k] = v
	}
	for k, v := range s.agreements {
		c.agreements[k] = v
	}
	for k, v := range s.supervisions {
		c.supervisions[k] = v
	}
	for k, v := range s.notifications {
		c.notifications[k] = v
	}
	return c
}

// Store holds every table.
type Store struct {
	txMu   sync.Mutex   // one writer at a time
	dataMu sync.RWMutex // guards data pointer swaps and direct reads
	data   *state
}

var _ uow.Runner = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{data: newState()}
}

// access runs fn against a state. write selects exclusive access.
type access func(write bool, fn func(st *state) error) error

func (s *Store) direct(write bool, fn func(st *state) error) error {
	if write {
		s.txMu.Lock()
		defer s.txMu.Unlock()
		s.dataMu.Lock()
		defer s.dataMu.Unlock()
		return fn(s.data)
	}
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	return fn(s.data)
}

// WithinTx implements uow.Runner.
func (s *Store) WithinTx(ctx context.Context, fn uow.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.dataMu.RLock()
	working := s.data.clone()
	s.dataMu.RUnlock()

	tx := func(_ bool, fn func(st *state) error) error { return fn(working) }
	if err := fn(ctx, repositories(tx)); err != nil {
		return err
	}

	s.dataMu.Lock()
	s.data = working
	s.dataMu.Unlock()
	return nil
}

// Repositories implements uow.Runner. Each call is its own transaction.
func (s *Store) Repositories() uow.Repositories {
	return repositories(s.direct)
}

// Notifications returns the notification repository.
func (s *Store) Notifications() notification.Repository {
	return &notificationRepo{access: s.direct}
}

func repositories(a access) uow.Repositories {
	return uow.Repositories{
		Applications: &applicationRepo{access: a},
		Agreements:   &agreementRepo{access: a},
		Supervisions: &supervisionRepo{access: a},
		Offers:       &offerStore{access: a},
		Accounts:     &directory{access: a},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SEEDING
// ══════════════════════════════════════════════════════════════════════════════

// PutAccount inserts or replaces an account.
func (s *Store) PutAccount(a account.Account) {
	_ = s.direct(true, func(st *state) error {
		st.accounts[a.ID()] = a
		return nil
	})
}

// PutOffer inserts or replaces an offer.
func (s *Store) PutOffer(o offer.Offer) {
	_ = s.direct(true, func(st *state) error {
		st.offers[o.ID] = o
		return nil
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY AND OFFERS
// ══════════════════════════════════════════════════════════════════════════════

type directory struct{ access access }

func (d *directory) Get(_ context.Context, id string) (account.Account, error) {
	var acc account.Account
	err := d.access(false, func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return account.ErrNotFound
		}
		acc = a
		return nil
	})
	return acc, err
}

// GetForUpdate is Get; transactions are already exclusive.
func (d *directory) GetForUpdate(ctx context.Context, id string) (account.Account, error) {
	return d.Get(ctx, id)
}

type offerStore struct{ access access }

func (o *offerStore) Get(_ context.Context, id string) (*offer.Offer, error) {
	var out *offer.Offer
	err := o.access(false, func(st *state) error {
		v, ok := st.offers[id]
		if !ok {
			return offer.ErrNotFound
		}
		out = &v
		return nil
	})
	return out, err
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// newestFirst sorts by timestamp descending with the id as tie breaker.
func newestFirst[T any](items []T, at func(T) time.Time, id func(T) string) {
	sort.Slice(items, func(i, j int) bool {
		ti, tj := at(items[i]), at(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return id(items[i]) > id(items[j])
	})
}

// page applies the request to a sorted slice and returns the window and total.
func page[T any](all []T, req shared.PageRequest) ([]T, int) {
	return shared.Slice(all, req.Normalize()), len(all)
}
