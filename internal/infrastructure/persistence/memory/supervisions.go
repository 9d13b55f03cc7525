package memory

import (
	"context"
	"time"

	"github.com/internhub/internhub/internal/domain/shared"
	"github.com/internhub/internhub/internal/domain/supervision"
)

type supervisionRepo struct{ access access }

var _ supervision.Repository = (*supervisionRepo)(nil)

// Create enforces the same unique keys as the Postgres schema.
func (r *supervisionRepo) Create(_ context.Context, s *supervision.Supervision) error {
	return r.access(true, func(st *state) error {
		for _, existing := range st.supervisions {
			if existing.AgreementID == s.AgreementID || existing.ID == s.ID {
				return supervision.ErrAlreadyAssigned
			}
			if s.IsActive() && existing.IsActive() && existing.StudentID == s.StudentID {
				return supervision.ErrStudentAlreadyActive
			}
		}
		st.supervisions[s.ID] = *s
		return nil
	})
}

func (r *supervisionRepo) GetByID(_ context.Context, id string) (*supervision.Supervision, error) {
	return r.find(func(s supervision.Supervision) bool { return s.ID == id })
}

func (r *supervisionRepo) GetByIDForUpdate(ctx context.Context, id string) (*supervision.Supervision, error) {
	return r.GetByID(ctx, id)
}

func (r *supervisionRepo) ExistsForAgreement(ctx context.Context, agreementID string) (bool, error) {
	_, err := r.GetByAgreementID(ctx, agreementID)
	switch {
	case err == nil:
		return true, nil
	case shared.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

func (r *supervisionRepo) GetByAgreementID(_ context.Context, agreementID string) (*supervision.Supervision, error) {
	return r.find(func(s supervision.Supervision) bool { return s.AgreementID == agreementID })
}

func (r *supervisionRepo) CountActiveByTutor(_ context.Context, tutorID string) (int, error) {
	return r.count(func(s supervision.Supervision) bool { return s.TutorID == tutorID && s.IsActive() })
}

func (r *supervisionRepo) CountActiveByStudent(_ context.Context, studentID string) (int, error) {
	return r.count(func(s supervision.Supervision) bool { return s.StudentID == studentID && s.IsActive() })
}

func (r *supervisionRepo) GetActiveByStudent(_ context.Context, studentID string) (*supervision.Supervision, error) {
	return r.find(func(s supervision.Supervision) bool { return s.StudentID == studentID && s.IsActive() })
}

func (r *supervisionRepo) Update(_ context.Context, s *supervision.Supervision) error {
	return r.access(true, func(st *state) error {
		if _, ok := st.supervisions[s.ID]; !ok {
			return supervision.ErrNotFound
		}
		if s.IsActive() {
			for _, other := range st.supervisions {
				if other.ID != s.ID && other.StudentID == s.StudentID && other.IsActive() {
					return supervision.ErrStudentAlreadyActive
				}
			}
		}
		st.supervisions[s.ID] = *s
		return nil
	})
}

func (r *supervisionRepo) ListAll(_ context.Context, req shared.PageRequest) ([]*supervision.Supervision, int, error) {
	return r.list(req, func(supervision.Supervision) bool { return true })
}

func (r *supervisionRepo) ListByTutor(_ context.Context, tutorID string, req shared.PageRequest) ([]*supervision.Supervision, int, error) {
	return r.list(req, func(s supervision.Supervision) bool { return s.TutorID == tutorID })
}

func (r *supervisionRepo) find(match func(supervision.Supervision) bool) (*supervision.Supervision, error) {
	var out *supervision.Supervision
	err := r.access(false, func(st *state) error {
		for _, s := range st.supervisions {
			if match(s) {
				v := s
				out = &v
				return nil
			}
		}
		return supervision.ErrNotFound
	})
	return out, err
}

func (r *supervisionRepo) count(match func(supervision.Supervision) bool) (int, error) {
	var n int
	err := r.access(false, func(st *state) error {
		for _, s := range st.supervisions {
			if match(s) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *supervisionRepo) list(req shared.PageRequest, keep func(supervision.Supervision) bool) ([]*supervision.Supervision, int, error) {
	var (
		items []*supervision.Supervision
		total int
	)
	err := r.access(false, func(st *state) error {
		var all []*supervision.Supervision
		for _, s := range st.supervisions {
			if keep(s) {
				v := s
				all = append(all, &v)
			}
		}
		newestFirst(all,
			func(s *supervision.Supervision) time.Time { return s.AssignedAt },
			func(s *supervision.Supervision) string { return s.ID },
		)
		items, total = page(all, req)
		return nil
	})
	return items, total, err
}
