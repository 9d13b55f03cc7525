package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/internhub/internal/application/command"
	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/shared"
)

type fakeLister struct {
	agreements []*agreement.Agreement
	limit      int
	err        error
}

func (f *fakeLister) ListAwaitingDocument(_ context.Context, limit int) ([]*agreement.Agreement, error) {
	f.limit = limit
	return f.agreements, f.err
}

type fakeGenerator struct {
	calls   []command.GenerateDocumentCommand
	results map[string]error
	skipped map[string]bool
}

func (f *fakeGenerator) Handle(_ context.Context, cmd command.GenerateDocumentCommand) (*command.GenerateDocumentResult, error) {
	f.calls = append(f.calls, cmd)
	if err := f.results[cmd.AgreementID]; err != nil {
		return nil, err
	}
	return &command.GenerateDocumentResult{DocumentRef: "doc-" + cmd.AgreementID, Rendered: !f.skipped[cmd.AgreementID]}, nil
}

func TestRenderPendingDocumentsJob_RendersEveryAgreement(t *testing.T) {
	lister := &fakeLister{agreements: []*agreement.Agreement{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}}}
	gen := &fakeGenerator{skipped: map[string]bool{"a3": true}}
	job := NewRenderPendingDocumentsJob(lister, gen, RenderPendingDocumentsConfig{BatchSize: 10}, nil)

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 10, lister.limit)
	require.Len(t, gen.calls, 3)
	for _, c := range gen.calls {
		assert.Equal(t, account.SystemPrincipal, c.Caller)
		assert.False(t, c.Regenerate)
	}

	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 3, stats.Found)
	assert.Equal(t, 2, stats.Rendered)
	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, stats.Failed)
}

func TestRenderPendingDocumentsJob_ContinuesPastFailures(t *testing.T) {
	unavailable := shared.WrapError("agreement", "GenerateDocument", shared.ErrServiceUnavailable, "renderer down", nil)
	lister := &fakeLister{agreements: []*agreement.Agreement{{ID: "a1"}, {ID: "a2"}}}
	gen := &fakeGenerator{results: map[string]error{"a1": unavailable}}
	job := NewRenderPendingDocumentsJob(lister, gen, DefaultRenderPendingDocumentsConfig(), nil)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	assert.Len(t, gen.calls, 2)

	stats := job.LastStats()
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Rendered)
}

func TestRenderPendingDocumentsJob_ListFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("db down")}
	gen := &fakeGenerator{}
	job := NewRenderPendingDocumentsJob(lister, gen, DefaultRenderPendingDocumentsConfig(), nil)

	assert.Error(t, job.Run(context.Background()))
	assert.Empty(t, gen.calls)
	assert.Equal(t, "render_pending_documents", job.Name())
}

type fakePurger struct {
	cutoff time.Time
	n      int
	err    error
}

func (f *fakePurger) DeleteReadBefore(_ context.Context, cutoff time.Time) (int, error) {
	f.cutoff = cutoff
	return f.n, f.err
}

func TestPurgeReadNotificationsJob_UsesRetention(t *testing.T) {
	repo := &fakePurger{n: 4}
	job := NewPurgeReadNotificationsJob(repo, 30*24*time.Hour, nil)
	now := time.Date(2026, 10, 15, 3, 30, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-30*24*time.Hour), repo.cutoff)
	assert.Equal(t, "purge_read_notifications", job.Name())
}

func TestPurgeReadNotificationsJob_PropagatesErrors(t *testing.T) {
	job := NewPurgeReadNotificationsJob(&fakePurger{err: errors.New("db down")}, 0, nil)
	assert.Error(t, job.Run(context.Background()))
	assert.Equal(t, 90*24*time.Hour, job.retention)
}
