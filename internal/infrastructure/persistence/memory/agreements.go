package memory

import (
	"context"
	"time"

	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/shared"
)

type agreementRepo struct{ access access }

var _ agreement.Repository = (*agreementRepo)(nil)

func (r *agreementRepo) Create(_ context.Context, a *agreement.Agreement) error {
	return r.access(true, func(st *state) error {
		for _, existing := range st.agreements {
			if existing.ApplicationID == a.ApplicationID || existing.ID == a.ID {
				return agreement.ErrAlreadyExists
			}
		}
		st.agreements[a.ID] = *a
		return nil
	})
}

func (r *agreementRepo) GetByID(_ context.Context, id string) (*agreement.Agreement, error) {
	var out *agreement.Agreement
	err := r.access(false, func(st *state) error {
		v, ok := st.agreements[id]
		if !ok {
			return agreement.ErrNotFound
		}
		out = &v
		return nil
	})
	return out, err
}

func (r *agreementRepo) GetByIDForUpdate(ctx context.Context, id string) (*agreement.Agreement, error) {
	return r.GetByID(ctx, id)
}

func (r *agreementRepo) GetByApplicationID(_ context.Context, applicationID string) (*agreement.Agreement, error) {
	var out *agreement.Agreement
	err := r.access(false, func(st *state) error {
		for _, a := range st.agreements {
			if a.ApplicationID == applicationID {
				v := a
				out = &v
				return nil
			}
		}
		return agreement.ErrNotFound
	})
	return out, err
}

func (r *agreementRepo) Update(_ context.Context, a *agreement.Agreement) error {
	return r.access(true, func(st *state) error {
		if _, ok := st.agreements[a.ID]; !ok {
			return agreement.ErrNotFound
		}
		st.agreements[a.ID] = *a
		return nil
	})
}

func (r *agreementRepo) ListByStudent(_ context.Context, studentID string, req shared.PageRequest) ([]*agreement.Agreement, int, error) {
	return r.list(req, func(a agreement.Agreement) bool { return a.StudentID == studentID })
}

func (r *agreementRepo) ListByCompany(_ context.Context, companyID string, req shared.PageRequest) ([]*agreement.Agreement, int, error) {
	return r.list(req, func(a agreement.Agreement) bool { return a.CompanyID == companyID })
}

func (r *agreementRepo) ListAll(_ context.Context, status *agreement.Status, req shared.PageRequest) ([]*agreement.Agreement, int, error) {
	return r.list(req, func(a agreement.Agreement) bool { return status == nil || a.Status == *status })
}

func (r *agreementRepo) ListAwaitingDocument(_ context.Context, limit int) ([]*agreement.Agreement, error) {
	var out []*agreement.Agreement
	err := r.access(false, func(st *state) error {
		for _, a := range st.agreements {
			if a.NeedsDocument() {
				v := a
				out = append(out, &v)
			}
		}
		newestFirst(out, signedAt, func(a *agreement.Agreement) string { return a.ID })
		// oldest signature first
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (r *agreementRepo) list(req shared.PageRequest, keep func(agreement.Agreement) bool) ([]*agreement.Agreement, int, error) {
	var (
		items []*agreement.Agreement
		total int
	)
	err := r.access(false, func(st *state) error {
		var all []*agreement.Agreement
		for _, a := range st.agreements {
			if keep(a) {
				v := a
				all = append(all, &v)
			}
		}
		newestFirst(all,
			func(a *agreement.Agreement) time.Time { return a.CreatedAt },
			func(a *agreement.Agreement) string { return a.ID },
		)
		items, total = page(all, req)
		return nil
	})
	return items, total, err
}

func signedAt(a *agreement.Agreement) time.Time {
	if a.SignedAt == nil {
		return time.Time{}
	}
	return *a.SignedAt
}
