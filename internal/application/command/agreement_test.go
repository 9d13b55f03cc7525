package command_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/internhub/internal/application/command"
	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/shared"
)

func TestSignAgreement_FullFlow(t *testing.T) {
	f := newFixture(t)
	a := f.accept(t, f.submit(t, asStudent, offerID))

	res, err := f.sign(asStudent, a.ID, agreement.PartyStudent)
	require.NoError(t, err)
	assert.Equal(t, agreement.StatusPendingSignatures, res.Agreement.Status)

	res, err = f.sign(asCompany, a.ID, agreement.PartyCompany)
	require.NoError(t, err)
	assert.Equal(t, agreement.StatusPendingSignatures, res.Agreement.Status)
	assert.False(t, res.Completed)

	res, err = f.sign(asAdmin, a.ID, agreement.PartyAdmin)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, agreement.StatusSigned, res.Agreement.Status)
	assert.NotNil(t, res.Agreement.SignedAt)
	require.True(t, res.Agreement.HasDocument())
	assert.Equal(t, 1, f.renderer.callCount())
	assert.Equal(t, 1, f.metrics.count("success"))
	assert.Contains(t, f.publisher.types(), shared.EventDocumentGenerated)
}

func TestSignAgreement_Rules(t *testing.T) {
	f := newFixture(t)
	a := f.accept(t, f.submit(t, asStudent, offerID))

	tests := []struct {
		name   string
		caller func() (*command.SignAgreementResult, error)
		check  func(error) bool
	}{
		{
			name:   "company cannot sign as student",
			caller: func() (*command.SignAgreementResult, error) { return f.sign(asCompany, a.ID, agreement.PartyStudent) },
			check:  shared.IsForbidden,
		},
		{
			name:   "other company cannot sign",
			caller: func() (*command.SignAgreementResult, error) { return f.sign(asOtherCo, a.ID, agreement.PartyCompany) },
			check:  shared.IsForbidden,
		},
		{
			name:   "student cannot sign as admin",
			caller: func() (*command.SignAgreementResult, error) { return f.sign(asStudent, a.ID, agreement.PartyAdmin) },
			check:  shared.IsForbidden,
		},
		{
			name:   "unknown agreement",
			caller: func() (*command.SignAgreementResult, error) { return f.sign(asAdmin, "60000000-0000-0000-0000-000000000000", agreement.PartyAdmin) },
			check:  shared.IsNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.caller()
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}

	_, err := f.sign(asStudent, a.ID, agreement.PartyStudent)
	require.NoError(t, err)
	_, err = f.sign(asStudent, a.ID, agreement.PartyStudent)
	assert.ErrorIs(t, err, agreement.ErrAlreadySigned)
}

func TestSignAgreement_RenderFailureDoesNotFailSigning(t *testing.T) {
	f := newFixture(t)
	f.renderer.fail(errors.New("renderer down"))

	a := f.signedAgreement(t)
	assert.Equal(t, agreement.StatusSigned, a.Status)
	assert.False(t, a.HasDocument())
	assert.Equal(t, 1, f.metrics.count("failure"))
	assert.Contains(t, f.publisher.types(), shared.EventDocumentRenderFailed)

	stored, err := f.store.Repositories().Agreements.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, agreement.StatusSigned, stored.Status)
	assert.True(t, stored.NeedsDocument())
}

func TestSignAgreement_ArchivedRejectsSignature(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.signedAgreement(t)

	_, err := command.NewArchiveAgreementHandler(f.deps).Handle(ctx, command.ArchiveAgreementCommand{Caller: asAdmin, AgreementID: a.ID})
	require.NoError(t, err)

	_, err = f.sign(asStudent, a.ID, agreement.PartyStudent)
	assert.True(t, shared.IsInvalidState(err))
}

func TestGenerateDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the existing reference without rendering", func(t *testing.T) {
		f := newFixture(t)
		a := f.signedAgreement(t)
		calls := f.renderer.callCount()

		res, err := command.NewGenerateDocumentHandler(f.deps, f.renderer).Handle(ctx, command.GenerateDocumentCommand{
			Caller:      asStudent,
			AgreementID: a.ID,
		})
		require.NoError(t, err)
		assert.False(t, res.Rendered)
		assert.Equal(t, *a.DocumentRef, res.DocumentRef)
		assert.Equal(t, calls, f.renderer.callCount())
	})

	t.Run("regenerate forces a new render", func(t *testing.T) {
		f := newFixture(t)
		a := f.signedAgreement(t)

		res, err := command.NewGenerateDocumentHandler(f.deps, f.renderer).Handle(ctx, command.GenerateDocumentCommand{
			Caller:      asAdmin,
			AgreementID: a.ID,
			Regenerate:  true,
		})
		require.NoError(t, err)
		assert.True(t, res.Rendered)
		assert.NotEqual(t, *a.DocumentRef, res.DocumentRef)
	})

	t.Run("requires a signed agreement", func(t *testing.T) {
		f := newFixture(t)
		a := f.accept(t, f.submit(t, asStudent, offerID))

		_, err := command.NewGenerateDocumentHandler(f.deps, f.renderer).Handle(ctx, command.GenerateDocumentCommand{
			Caller:      asAdmin,
			AgreementID: a.ID,
		})
		assert.True(t, shared.IsInvalidState(err))
		assert.Zero(t, f.renderer.callCount())
	})

	t.Run("non party is forbidden", func(t *testing.T) {
		f := newFixture(t)
		a := f.signedAgreement(t)

		_, err := command.NewGenerateDocumentHandler(f.deps, f.renderer).Handle(ctx, command.GenerateDocumentCommand{
			Caller:      asOtherCo,
			AgreementID: a.ID,
		})
		assert.True(t, shared.IsForbidden(err))
	})

	t.Run("renderer failure is service unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.renderer.fail(errors.New("timeout"))
		a := f.signedAgreement(t)

		_, err := command.NewGenerateDocumentHandler(f.deps, f.renderer).Handle(ctx, command.GenerateDocumentCommand{
			Caller:      asAdmin,
			AgreementID: a.ID,
		})
		assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	})
}

func TestArchiveAgreement(t *testing.T) {
	ctx := context.Background()

	t.Run("admin archives a signed agreement", func(t *testing.T) {
		f := newFixture(t)
		a := f.signedAgreement(t)

		archived, err := command.NewArchiveAgreementHandler(f.deps).Handle(ctx, command.ArchiveAgreementCommand{Caller: asAdmin, AgreementID: a.ID})
		require.NoError(t, err)
		assert.Equal(t, agreement.StatusArchived, archived.Status)
		assert.NotNil(t, archived.ArchivedAt)

		_, err = command.NewArchiveAgreementHandler(f.deps).Handle(ctx, command.ArchiveAgreementCommand{Caller: asAdmin, AgreementID: a.ID})
		assert.True(t, shared.IsInvalidState(err))
	})

	t.Run("draft cannot be archived", func(t *testing.T) {
		f := newFixture(t)
		a := f.accept(t, f.submit(t, asStudent, offerID))

		_, err := command.NewArchiveAgreementHandler(f.deps).Handle(ctx, command.ArchiveAgreementCommand{Caller: asAdmin, AgreementID: a.ID})
		assert.True(t, shared.IsInvalidState(err))
	})

	t.Run("company is forbidden", func(t *testing.T) {
		f := newFixture(t)
		a := f.signedAgreement(t)

		_, err := command.NewArchiveAgreementHandler(f.deps).Handle(ctx, command.ArchiveAgreementCommand{Caller: asCompany, AgreementID: a.ID})
		assert.True(t, shared.IsForbidden(err))
	})
}
