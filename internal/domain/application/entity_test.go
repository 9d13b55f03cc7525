package application

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/internhub/internal/domain/shared"
)

const (
	testAppID     = "0b7f8a52-8d5e-4c36-9d6f-0f6a3c1b2a10"
	testStudentID = "5f0c2c1e-3f7e-4a7b-8a39-7f0a1d9e2b11"
	testOfferID   = "c3d1e0a4-9b2f-4f6e-8d7c-5a4b3c2d1e12"
)

func newPending(t *testing.T) *Application {
	t.Helper()
	app, err := NewApplication(NewApplicationParams{
		ID:         testAppID,
		StudentID:  testStudentID,
		OfferID:    testOfferID,
		Motivation: "  I would love to join the data team.  ",
		Now:        time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return app
}

func TestNewApplication(t *testing.T) {
	app := newPending(t)

	assert.Equal(t, StatusPending, app.Status)
	assert.Equal(t, "I would love to join the data team.", app.Motivation)
	assert.Nil(t, app.DecidedAt)
	assert.True(t, app.SubmittedBy(testStudentID))

	_, err := NewApplication(NewApplicationParams{ID: "bad", StudentID: testStudentID, OfferID: testOfferID})
	assert.True(t, shared.IsInvalidInput(err))

	_, err = NewApplication(NewApplicationParams{
		ID: testAppID, StudentID: testStudentID, OfferID: testOfferID,
		Motivation: strings.Repeat("a", MaxMotivationLength+1),
	})
	assert.ErrorIs(t, err, ErrMotivationTooLong)
}

func TestApplicationDecisionHappensOnce(t *testing.T) {
	now := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

	t.Run("accept", func(t *testing.T) {
		app := newPending(t)
		require.NoError(t, app.Accept(now))
		assert.Equal(t, StatusAccepted, app.Status)
		require.NotNil(t, app.DecidedAt)

		assert.ErrorIs(t, app.Accept(now), ErrAlreadyDecided)
		assert.ErrorIs(t, app.Reject(now, nil), ErrAlreadyDecided)
		assert.True(t, shared.IsInvalidState(app.CheckWithdrawable()))
	})

	t.Run("reject keeps comment", func(t *testing.T) {
		app := newPending(t)
		comment := " profile does not match "
		require.NoError(t, app.Reject(now, &comment))
		assert.Equal(t, StatusRejected, app.Status)
		require.NotNil(t, app.RejectionComment)
		assert.Equal(t, "profile does not match", *app.RejectionComment)

		assert.ErrorIs(t, app.Accept(now), ErrAlreadyDecided)
	})

	t.Run("blank comment is dropped", func(t *testing.T) {
		app := newPending(t)
		blank := "   "
		require.NoError(t, app.Reject(now, &blank))
		assert.Nil(t, app.RejectionComment)
	})
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusPending.IsValid())
	assert.False(t, Status("EN_ATTENTE").IsValid())
	assert.False(t, StatusPending.IsDecided())
	assert.True(t, StatusAccepted.IsDecided())
	assert.True(t, StatusRejected.IsDecided())
}
