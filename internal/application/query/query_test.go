package query_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/internhub/internal/application/query"
	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/application"
	"github.com/internhub/internhub/internal/domain/notification"
	"github.com/internhub/internhub/internal/domain/offer"
	"github.com/internhub/internhub/internal/domain/shared"
	"github.com/internhub/internhub/internal/domain/supervision"
	"github.com/internhub/internhub/internal/infrastructure/persistence/memory"
)

const (
	studentID = "10000000-0000-0000-0000-000000000001"
	companyID = "20000000-0000-0000-0000-000000000001"
	otherCoID = "20000000-0000-0000-0000-000000000002"
	tutorID   = "30000000-0000-0000-0000-000000000001"
	adminID   = "40000000-0000-0000-0000-000000000001"
	offerID   = "50000000-0000-0000-0000-000000000001"
	appID     = "60000000-0000-0000-0000-000000000001"
	agrID     = "70000000-0000-0000-0000-000000000001"
	supID     = "80000000-0000-0000-0000-000000000001"
)

var (
	asStudent = account.Principal{UserID: studentID, Role: account.RoleStudent}
	asCompany = account.Principal{UserID: companyID, Role: account.RoleCompany}
	asOtherCo = account.Principal{UserID: otherCoID, Role: account.RoleCompany}
	asTutor   = account.Principal{UserID: tutorID, Role: account.RoleTutor}
	asAdmin   = account.Principal{UserID: adminID, Role: account.RoleAdmin}
)

// seed stores one application, its agreement and a supervision.
func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	s := memory.New()
	s.PutOffer(offer.Offer{ID: offerID, CompanyID: companyID, Status: offer.StatusValidated})

	app, err := application.NewApplication(application.NewApplicationParams{ID: appID, StudentID: studentID, OfferID: offerID, Now: now})
	require.NoError(t, err)
	require.NoError(t, app.Accept(now))
	require.NoError(t, s.Repositories().Applications.Create(ctx, app))

	a, err := agreement.NewAgreement(agreement.NewAgreementParams{
		ID: agrID, ApplicationID: appID, StudentID: studentID, CompanyID: companyID, OfferID: offerID, Now: now,
	})
	require.NoError(t, err)
	for _, p := range []agreement.Party{agreement.PartyStudent, agreement.PartyCompany, agreement.PartyAdmin} {
		_, err := a.Sign(p, now)
		require.NoError(t, err)
	}
	require.NoError(t, s.Repositories().Agreements.Create(ctx, a))

	sup, err := supervision.NewSupervision(supervision.NewSupervisionParams{
		ID: supID, AgreementID: agrID, StudentID: studentID, TutorID: tutorID, Now: now,
	})
	require.NoError(t, err)
	require.NoError(t, s.Repositories().Supervisions.Create(ctx, sup))
	return s
}

func TestApplicationQueries_Authorization(t *testing.T) {
	ctx := context.Background()
	q := query.NewApplicationQueries(seed(t))

	tests := []struct {
		name    string
		caller  account.Principal
		allowed bool
	}{
		{"applicant", asStudent, true},
		{"owning company", asCompany, true},
		{"admin", asAdmin, true},
		{"other company", asOtherCo, false},
		{"tutor", asTutor, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dto, err := q.Get(ctx, query.GetApplicationQuery{Caller: tt.caller, ApplicationID: appID})
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, "ACCEPTED", dto.Status)
				return
			}
			assert.True(t, shared.IsForbidden(err))
		})
	}

	_, err := q.ListByOffer(ctx, query.ListApplicationsByOfferQuery{Caller: asOtherCo, OfferID: offerID})
	assert.True(t, shared.IsForbidden(err))

	page, err := q.ListByOffer(ctx, query.ListApplicationsByOfferQuery{Caller: asCompany, OfferID: offerID})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, shared.DefaultPageSize, page.Limit)

	_, err = q.ListByStudent(ctx, query.ListApplicationsByStudentQuery{Caller: asCompany, StudentID: studentID})
	assert.True(t, shared.IsForbidden(err))
}

func TestAgreementQueries(t *testing.T) {
	ctx := context.Background()
	q := query.NewAgreementQueries(seed(t))

	for _, caller := range []account.Principal{asStudent, asCompany, asAdmin, asTutor} {
		dto, err := q.Get(ctx, query.GetAgreementQuery{Caller: caller, AgreementID: agrID})
		require.NoError(t, err, caller.Role)
		assert.Equal(t, "SIGNED", dto.Status)
	}

	_, err := q.Get(ctx, query.GetAgreementQuery{Caller: asOtherCo, AgreementID: agrID})
	assert.True(t, shared.IsForbidden(err))

	_, err = q.ListAll(ctx, query.ListAgreementsQuery{Caller: asCompany})
	assert.True(t, shared.IsForbidden(err))

	signed := agreement.StatusSigned
	page, err := q.ListAll(ctx, query.ListAgreementsQuery{Caller: asAdmin, Status: &signed})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	draft := agreement.StatusDraft
	page, err = q.ListAll(ctx, query.ListAgreementsQuery{Caller: asAdmin, Status: &draft})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.NotNil(t, page.Items)

	page, err = q.ListByCompany(ctx, query.ListAgreementsQuery{Caller: asCompany, CompanyID: companyID})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestSupervisionQueries(t *testing.T) {
	ctx := context.Background()
	q := query.NewSupervisionQueries(seed(t))

	dto, ok, err := q.ActiveForStudent(ctx, query.ActiveSupervisionQuery{Caller: asStudent, StudentID: studentID})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, supID, dto.ID)

	dto, ok, err = q.ActiveForStudent(ctx, query.ActiveSupervisionQuery{Caller: asAdmin, StudentID: "10000000-0000-0000-0000-000000000002"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, dto)

	_, _, err = q.ActiveForStudent(ctx, query.ActiveSupervisionQuery{Caller: asCompany, StudentID: studentID})
	assert.True(t, shared.IsForbidden(err))

	_, err = q.Get(ctx, query.GetSupervisionQuery{Caller: asCompany, SupervisionID: supID})
	assert.True(t, shared.IsForbidden(err))

	page, err := q.ListByTutor(ctx, query.ListSupervisionsQuery{Caller: asTutor, TutorID: tutorID})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	_, err = q.ListAll(ctx, query.ListSupervisionsQuery{Caller: asTutor})
	assert.True(t, shared.IsForbidden(err))
}

func TestPaging(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("61000000-0000-0000-0000-%012d", i)
		app, err := application.NewApplication(application.NewApplicationParams{
			ID: id, StudentID: studentID, OfferID: fmt.Sprintf("51000000-0000-0000-0000-%012d", i), Now: now.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		require.NoError(t, s.Repositories().Applications.Create(ctx, app))
	}
	q := query.NewApplicationQueries(s)

	first, err := q.ListByStudent(ctx, query.ListApplicationsByStudentQuery{Caller: asStudent, StudentID: studentID})
	require.NoError(t, err)
	assert.Len(t, first.Items, shared.DefaultPageSize)
	assert.Equal(t, 25, first.Total)
	assert.True(t, first.HasMore)

	second, err := q.ListByStudent(ctx, query.ListApplicationsByStudentQuery{
		Caller: asStudent, StudentID: studentID, Page: shared.PageRequest{Offset: 20, Limit: 500},
	})
	require.NoError(t, err)
	assert.Len(t, second.Items, 5)
	assert.Equal(t, shared.MaxPageSize, second.Limit)
	assert.False(t, second.HasMore)
}

type mapCounter struct {
	values map[notification.RecipientID]int
	// onMiss runs after a miss is reported, standing in for a concurrent writer.
	onMiss func()
}

func (m *mapCounter) Increment(_ context.Context, id notification.RecipientID) error {
	m.values[id]++
	return nil
}

func (m *mapCounter) Get(_ context.Context, id notification.RecipientID) (int, bool, error) {
	v, ok := m.values[id]
	if !ok && m.onMiss != nil {
		m.onMiss()
	}
	return v, ok, nil
}

func (m *mapCounter) Set(_ context.Context, id notification.RecipientID, n int) error {
	m.values[id] = n
	return nil
}

func (m *mapCounter) Warm(_ context.Context, id notification.RecipientID, n int) error {
	if _, ok := m.values[id]; !ok {
		m.values[id] = n
	}
	return nil
}

func (m *mapCounter) Reset(_ context.Context, id notification.RecipientID) error {
	delete(m.values, id)
	return nil
}

func TestNotificationQueries_UnreadCount(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	repo := s.Notifications()
	for i := 0; i < 3; i++ {
		n, err := notification.NewNotification(notification.NewNotificationParams{
			ID:       fmt.Sprintf("71000000-0000-0000-0000-%012d", i),
			UserID:   studentID,
			Message:  "hello",
			Category: notification.CategoryApplication,
		})
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, n))
	}

	counter := &mapCounter{values: map[notification.RecipientID]int{}}
	q := query.NewNotificationQueries(repo, counter, nil)

	n, err := q.UnreadCount(ctx, asStudent)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, counter.values[notification.RecipientID(studentID)])

	counter.values[notification.RecipientID(studentID)] = 7
	n, err = q.UnreadCount(ctx, asStudent)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	page, err := q.List(ctx, asCompany, shared.PageRequest{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestNotificationQueries_UnreadCountKeepsConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	repo := s.Notifications()
	n, err := notification.NewNotification(notification.NewNotificationParams{
		ID:       "72000000-0000-0000-0000-000000000001",
		UserID:   studentID,
		Message:  "hello",
		Category: notification.CategoryApplication,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, n))

	id := notification.RecipientID(studentID)
	counter := &mapCounter{values: map[notification.RecipientID]int{}}
	counter.onMiss = func() { counter.values[id] = 0 }
	q := query.NewNotificationQueries(repo, counter, nil)

	got, err := q.UnreadCount(ctx, asStudent)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Equal(t, 0, counter.values[id], "the warm-up does not overwrite a value written after the miss")
}
