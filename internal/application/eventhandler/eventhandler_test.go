package eventhandler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/internhub/internal/application/command"
	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/application"
	"github.com/internhub/internhub/internal/domain/notification"
	"github.com/internhub/internhub/internal/domain/shared"
)

type sent struct {
	to       string
	category notification.Category
	link     string
}

type recordingSink struct {
	mu   sync.Mutex
	sent []sent
}

func (s *recordingSink) Notify(_ context.Context, userID, _ string, category notification.Category, link string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sent{userID, category, link})
}

func (s *recordingSink) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, m := range s.sent {
		out = append(out, m.to)
	}
	return out
}

const (
	studentID = "10000000-0000-0000-0000-000000000001"
	companyID = "20000000-0000-0000-0000-000000000001"
	offerID   = "50000000-0000-0000-0000-000000000001"
	appID     = "60000000-0000-0000-0000-000000000001"
	agrID     = "70000000-0000-0000-0000-000000000001"
)

func testAgreement(t *testing.T) *agreement.Agreement {
	t.Helper()
	a, err := agreement.NewAgreement(agreement.NewAgreementParams{
		ID: agrID, ApplicationID: appID, StudentID: studentID, CompanyID: companyID, OfferID: offerID,
	})
	require.NoError(t, err)
	return a
}

func TestNotifyParties_Recipients(t *testing.T) {
	app := &application.Application{ID: appID, StudentID: studentID, OfferID: offerID}
	a := testAgreement(t)

	tests := []struct {
		name  string
		event shared.Event
		want  []string
	}{
		{"submitted goes to company", application.NewSubmittedEvent(app, companyID), []string{companyID}},
		{"accepted goes to student", application.NewAcceptedEvent(app, companyID), []string{studentID}},
		{"rejected goes to student", application.NewRejectedEvent(app, companyID), []string{studentID}},
		{"created goes to both", agreement.NewCreatedEvent(a), []string{studentID, companyID}},
		{"student signature goes to company", agreement.NewSignedEvent(a, agreement.PartyStudent), []string{companyID}},
		{"company signature goes to student", agreement.NewSignedEvent(a, agreement.PartyCompany), []string{studentID}},
		{"admin signature goes to both", agreement.NewSignedEvent(a, agreement.PartyAdmin), []string{studentID, companyID}},
		{"fully signed goes to both", agreement.NewFullySignedEvent(a), []string{studentID, companyID}},
		{"archived is silent", agreement.NewArchivedEvent(a), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			require.NoError(t, NewNotifyParties(sink, nil).Handle(tt.event))
			assert.ElementsMatch(t, tt.want, sink.recipients())
		})
	}
}

func TestNotifyParties_GenericEventFromEnvelope(t *testing.T) {
	sink := &recordingSink{}
	event := shared.GenericEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventApplicationAccepted, appID),
		Data: map[string]interface{}{
			"application_id": appID,
			"student_id":     studentID,
		},
	}

	require.NoError(t, NewNotifyParties(sink, nil).Handle(event))
	require.Len(t, sink.sent, 1)
	assert.Equal(t, studentID, sink.sent[0].to)
	assert.Equal(t, notification.CategoryApplication, sink.sent[0].category)
	assert.Equal(t, "/applications/"+appID, sink.sent[0].link)
}

type flakyGenerator struct {
	mu       sync.Mutex
	failures int
	calls    int
	err      error
}

func (g *flakyGenerator) Handle(_ context.Context, cmd command.GenerateDocumentCommand) (*command.GenerateDocumentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.calls <= g.failures {
		return nil, g.err
	}
	return &command.GenerateDocumentResult{DocumentRef: "documents/" + cmd.AgreementID + ".pdf"}, nil
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Timeout: time.Second}
}

func TestRetryDocumentRender(t *testing.T) {
	event := agreement.NewDocumentRenderFailedEvent(agrID, errors.New("down"))

	t.Run("retries transient failures", func(t *testing.T) {
		gen := &flakyGenerator{failures: 2, err: command.ErrRendererUnavailable}
		require.NoError(t, NewRetryDocumentRender(gen, fastRetry(), nil).Handle(event))
		assert.Equal(t, 3, gen.calls)
	})

	t.Run("stops on a workflow error", func(t *testing.T) {
		gen := &flakyGenerator{failures: 5, err: agreement.ErrNotSigned}
		require.NoError(t, NewRetryDocumentRender(gen, fastRetry(), nil).Handle(event))
		assert.Equal(t, 1, gen.calls)
	})

	t.Run("ignores other events", func(t *testing.T) {
		gen := &flakyGenerator{}
		require.NoError(t, NewRetryDocumentRender(gen, fastRetry(), nil).Handle(agreement.NewFullySignedEvent(testAgreement(t))))
		assert.Zero(t, gen.calls)
	})
}

func TestRetryDocumentRender_StopEndsRetryLoop(t *testing.T) {
	gen := &flakyGenerator{failures: 100, err: command.ErrRendererUnavailable}
	h := NewRetryDocumentRender(gen, RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Hour,
		MaxDelay:     time.Hour,
		Timeout:      time.Hour,
	}, nil)

	done := make(chan error, 1)
	go func() { done <- h.Handle(agreement.NewDocumentRenderFailedEvent(agrID, errors.New("down"))) }()

	require.Eventually(t, func() bool {
		gen.mu.Lock()
		defer gen.mu.Unlock()
		return gen.calls == 1
	}, time.Second, 5*time.Millisecond)

	h.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("retry loop still running after Stop")
	}

	require.NoError(t, h.Handle(agreement.NewDocumentRenderFailedEvent(agrID, errors.New("down"))))
	gen.mu.Lock()
	defer gen.mu.Unlock()
	assert.Equal(t, 1, gen.calls, "no attempts after Stop")
}
