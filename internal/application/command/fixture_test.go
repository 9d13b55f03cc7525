package command_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/internhub/internhub/internal/application/command"
	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/offer"
	"github.com/internhub/internhub/internal/domain/shared"
	"github.com/internhub/internhub/internal/infrastructure/persistence/memory"
)

var (
	studentID = "10000000-0000-0000-0000-000000000001"
	companyID = "20000000-0000-0000-0000-000000000001"
	otherCoID = "20000000-0000-0000-0000-000000000002"
	tutorID   = "30000000-0000-0000-0000-000000000001"
	adminID   = "40000000-0000-0000-0000-000000000001"
	offerID   = "50000000-0000-0000-0000-000000000001"

	asStudent = account.Principal{UserID: studentID, Role: account.RoleStudent}
	asCompany = account.Principal{UserID: companyID, Role: account.RoleCompany}
	asOtherCo = account.Principal{UserID: otherCoID, Role: account.RoleCompany}
	asTutor   = account.Principal{UserID: tutorID, Role: account.RoleTutor}
	asAdmin   = account.Principal{UserID: adminID, Role: account.RoleAdmin}
)

// seqIDs yields deterministic UUIDs.
type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("90000000-0000-0000-0000-%012d", g.n)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type countingMetrics struct {
	mu          sync.Mutex
	renders     map[string]int
	transitions map[string]int
}

func (m *countingMetrics) Transition(entity, action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transitions == nil {
		m.transitions = make(map[string]int)
	}
	m.transitions[entity+"."+action]++
}

func (m *countingMetrics) transitionCount(entity, action string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitions[entity+"."+action]
}

func (m *countingMetrics) DocumentRender(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renders == nil {
		m.renders = make(map[string]int)
	}
	m.renders[outcome]++
}

func (m *countingMetrics) count(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renders[outcome]
}

type stubRenderer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *stubRenderer) Render(_ context.Context, s agreement.Snapshot) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	return fmt.Sprintf("documents/%s-v%d.pdf", s.AgreementID, r.calls), nil
}

func (r *stubRenderer) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *stubRenderer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fixture struct {
	store     *memory.Store
	deps      command.Deps
	publisher *recordingPublisher
	metrics   *countingMetrics
	renderer  *stubRenderer
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	f := &fixture{
		store:     memory.New(),
		publisher: &recordingPublisher{},
		metrics:   &countingMetrics{},
		renderer:  &stubRenderer{},
		now:       now,
	}
	f.deps = command.Deps{
		UoW:       f.store,
		Publisher: f.publisher,
		IDs:       &seqIDs{},
		Clock:     func() time.Time { return f.now },
		Metrics:   f.metrics,
	}

	f.store.PutAccount(account.Student{Identity: account.Identity{UserID: studentID, Name: "Ada Student"}})
	f.store.PutAccount(account.Company{Identity: account.Identity{UserID: companyID, Name: "Acme"}})
	f.store.PutAccount(account.Company{Identity: account.Identity{UserID: otherCoID, Name: "Globex"}})
	f.store.PutAccount(account.Tutor{Identity: account.Identity{UserID: tutorID, Name: "Prof Tutor"}})
	f.store.PutAccount(account.Admin{Identity: account.Identity{UserID: adminID, Name: "Admin"}})

	expiry := now.AddDate(0, 1, 0)
	f.store.PutOffer(offer.Offer{
		ID:        offerID,
		CompanyID: companyID,
		Title:     "Backend intern",
		Status:    offer.StatusValidated,
		StartDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		Expiry:    &expiry,
	})
	return f
}

func (f *fixture) submit(t *testing.T, caller account.Principal, offerID string) string {
	t.Helper()
	res, err := command.NewSubmitApplicationHandler(f.deps).Handle(context.Background(), command.SubmitApplicationCommand{
		Caller:  caller,
		OfferID: offerID,
	})
	require.NoError(t, err)
	return res.Application.ID
}

func (f *fixture) accept(t *testing.T, applicationID string) *agreement.Agreement {
	t.Helper()
	h := command.NewAcceptApplicationHandler(f.deps, command.NewAgreementProvisioner(f.deps.IDs, f.deps.Clock))
	res, err := h.Handle(context.Background(), command.AcceptApplicationCommand{
		Caller:        asCompany,
		ApplicationID: applicationID,
	})
	require.NoError(t, err)
	return res.Agreement
}

func (f *fixture) sign(caller account.Principal, agreementID string, p agreement.Party) (*command.SignAgreementResult, error) {
	return command.NewSignAgreementHandler(f.deps, f.renderer).Handle(context.Background(), command.SignAgreementCommand{
		Caller:      caller,
		AgreementID: agreementID,
		Party:       p,
	})
}

// signedAgreement drives a fresh application all the way to SIGNED.
func (f *fixture) signedAgreement(t *testing.T) *agreement.Agreement {
	t.Helper()
	a := f.accept(t, f.submit(t, asStudent, offerID))

	_, err := f.sign(asStudent, a.ID, agreement.PartyStudent)
	require.NoError(t, err)
	_, err = f.sign(asCompany, a.ID, agreement.PartyCompany)
	require.NoError(t, err)
	res, err := f.sign(asAdmin, a.ID, agreement.PartyAdmin)
	require.NoError(t, err)
	require.Equal(t, agreement.StatusSigned, res.Agreement.Status)
	return res.Agreement
}
