package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/internhub/internal/application/uow"
	"github.com/internhub/internhub/internal/domain/application"
	"github.com/internhub/internhub/internal/domain/shared"
	"github.com/internhub/internhub/internal/domain/supervision"
)

const (
	studentID = "11111111-1111-1111-1111-111111111111"
	offerID   = "22222222-2222-2222-2222-222222222222"
	appID     = "33333333-3333-3333-3333-333333333333"
)

func newApp(t *testing.T, id string, at time.Time) *application.Application {
	t.Helper()
	app, err := application.NewApplication(application.NewApplicationParams{
		ID: id, StudentID: studentID, OfferID: offerID, Now: at,
	})
	require.NoError(t, err)
	return app
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, r uow.Repositories) error {
		require.NoError(t, r.Applications.Create(ctx, newApp(t, appID, time.Now())))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Repositories().Applications.GetByID(ctx, appID)
	assert.True(t, shared.IsNotFound(err))
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.WithinTx(ctx, func(ctx context.Context, r uow.Repositories) error {
		return r.Applications.Create(ctx, newApp(t, appID, time.Now()))
	})
	require.NoError(t, err)

	got, err := s.Repositories().Applications.GetByID(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusPending, got.Status)
}

func TestApplications_UniquePerStudentAndOffer(t *testing.T) {
	ctx := context.Background()
	repo := New().Repositories().Applications

	require.NoError(t, repo.Create(ctx, newApp(t, appID, time.Now())))
	err := repo.Create(ctx, newApp(t, "44444444-4444-4444-4444-444444444444", time.Now()))
	assert.True(t, shared.IsConflict(err))
}

func TestApplications_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	ids := []string{
		"a0000000-0000-0000-0000-000000000001",
		"a0000000-0000-0000-0000-000000000002",
		"a0000000-0000-0000-0000-000000000003",
	}
	for i, id := range ids {
		app, err := application.NewApplication(application.NewApplicationParams{
			ID: id, StudentID: studentID, OfferID: id, Now: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
		require.NoError(t, s.Repositories().Applications.Create(ctx, app))
	}

	items, total, err := s.Repositories().Applications.ListByStudent(ctx, studentID, shared.PageRequest{Offset: 0, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, ids[2], items[0].ID)
	assert.Equal(t, ids[1], items[1].ID)
}

func TestSupervisions_OneActivePerStudent(t *testing.T) {
	ctx := context.Background()
	repo := New().Repositories().Supervisions

	first, err := supervision.NewSupervision(supervision.NewSupervisionParams{
		ID:          "b0000000-0000-0000-0000-000000000001",
		AgreementID: "c0000000-0000-0000-0000-000000000001",
		StudentID:   studentID,
		TutorID:     "d0000000-0000-0000-0000-000000000001",
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, first))

	second, err := supervision.NewSupervision(supervision.NewSupervisionParams{
		ID:          "b0000000-0000-0000-0000-000000000002",
		AgreementID: "c0000000-0000-0000-0000-000000000002",
		StudentID:   studentID,
		TutorID:     "d0000000-0000-0000-0000-000000000001",
	})
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, second), supervision.ErrStudentAlreadyActive)

	completed := supervision.ProgressCompleted
	require.NoError(t, first.Apply(supervision.Update{Progress: &completed}, time.Now()))
	require.NoError(t, repo.Update(ctx, first))
	assert.NoError(t, repo.Create(ctx, second))
}
