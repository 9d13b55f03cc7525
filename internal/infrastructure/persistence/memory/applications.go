package memory

import (
	"context"
	"time"

	"github.com/internhub/internhub/internal/domain/application"
	"github.com/internhub/internhub/internal/domain/shared"
)

type applicationRepo struct{ access access }

var _ application.Repository = (*applicationRepo)(nil)

func (r *applicationRepo) Create(_ context.Context, app *application.Application) error {
	return r.access(true, func(st *state) error {
		if _, ok := st.applications[app.ID]; ok {
			return application.ErrDuplicate
		}
		for _, existing := range st.applications {
			if existing.StudentID == app.StudentID && existing.OfferID == app.OfferID {
				return application.ErrDuplicate
			}
		}
		st.applications[app.ID] = *app
		return nil
	})
}

func (r *applicationRepo) GetByID(_ context.Context, id string) (*application.Application, error) {
	var out *application.Application
	err := r.access(false, func(st *state) error {
		v, ok := st.applications[id]
		if !ok {
			return application.ErrNotFound
		}
		out = &v
		return nil
	})
	return out, err
}

func (r *applicationRepo) GetByIDForUpdate(ctx context.Context, id string) (*application.Application, error) {
	return r.GetByID(ctx, id)
}

func (r *applicationRepo) ExistsForStudentAndOffer(_ context.Context, studentID, offerID string) (bool, error) {
	var found bool
	err := r.access(false, func(st *state) error {
		for _, a := range st.applications {
			if a.StudentID == studentID && a.OfferID == offerID {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *applicationRepo) Update(_ context.Context, app *application.Application) error {
	return r.access(true, func(st *state) error {
		if _, ok := st.applications[app.ID]; !ok {
			return application.ErrNotFound
		}
		st.applications[app.ID] = *app
		return nil
	})
}

func (r *applicationRepo) Delete(_ context.Context, id string) error {
	return r.access(true, func(st *state) error {
		if _, ok := st.applications[id]; !ok {
			return application.ErrNotFound
		}
		delete(st.applications, id)
		return nil
	})
}

func (r *applicationRepo) ListByStudent(_ context.Context, studentID string, req shared.PageRequest) ([]*application.Application, int, error) {
	return r.list(req, func(a application.Application) bool { return a.StudentID == studentID })
}

func (r *applicationRepo) ListByOffer(_ context.Context, offerID string, req shared.PageRequest) ([]*application.Application, int, error) {
	return r.list(req, func(a application.Application) bool { return a.OfferID == offerID })
}

func (r *applicationRepo) list(req shared.PageRequest, keep func(application.Application) bool) ([]*application.Application, int, error) {
	var (
		items []*application.Application
		total int
	)
	err := r.access(false, func(st *state) error {
		var all []*application.Application
		for _, a := range st.applications {
			if keep(a) {
				v := a
				all = append(all, &v)
			}
		}
		newestFirst(all,
			func(a *application.Application) time.Time { return a.SubmittedAt },
			func(a *application.Application) string { return a.ID },
		)
		items, total = page(all, req)
		return nil
	})
	return items, total, err
}
