package renderer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/shared"
)

func testSnapshot() agreement.Snapshot {
	return agreement.Snapshot{
		AgreementID:   "agr-1",
		ApplicationID: "app-1",
		OfferID:       "off-1",
		OfferTitle:    "Backend intern",
		StudentID:     "stu-1",
		StudentName:   "Student One",
		CompanyID:     "com-1",
		CompanyName:   "Acme",
	}
}

func newTestClient(url string) *Client {
	cfg := DefaultClientConfig(url)
	cfg.APIKey = "secret"
	cfg.Timeout = 2 * time.Second
	cfg.RequestsPerSecond = 0
	return NewClient(cfg)
}

func TestClient_Render_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, RenderPath, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req renderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "agr-1", req.Agreement.AgreementID)
		assert.Equal(t, "Acme", req.Agreement.CompanyName)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(renderResponse{DocumentRef: "docs/agr-1.pdf"})
	}))
	defer srv.Close()

	ref, err := newTestClient(srv.URL).Render(context.Background(), testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "docs/agr-1.pdf", ref)
}

func TestClient_Render_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(renderResponse{DocumentRef: "docs/ok.pdf"})
	}))
	defer srv.Close()

	ref, err := newTestClient(srv.URL).Render(context.Background(), testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "docs/ok.pdf", ref)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Render_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: "missing dates"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Render(context.Background(), testSnapshot())
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.StatusCode)
	assert.Equal(t, "missing dates", statusErr.Message)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.False(t, shared.IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, c.Status().Healthy)
}

func TestClient_Render_ExhaustedRetriesAreUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Render(context.Background(), testSnapshot())
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	assert.True(t, shared.IsRetryable(err))
}

func TestClient_Render_RateLimitedMapsToKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Render(context.Background(), testSnapshot())
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrRateLimited)
	assert.NotErrorIs(t, err, shared.ErrInvalidInput)
}

func TestClient_Render_EmptyReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"document_ref":"  "}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Render(context.Background(), testSnapshot())
	assert.ErrorIs(t, err, ErrEmptyReference)
}

func TestClient_Render_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Render(context.Background(), testSnapshot())
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
}

func TestStatusError_Is(t *testing.T) {
	tests := []struct {
		code      int
		kind      error
		wantMatch bool
	}{
		{http.StatusTooManyRequests, shared.ErrRateLimited, true},
		{http.StatusInternalServerError, shared.ErrServiceUnavailable, true},
		{http.StatusBadRequest, shared.ErrInvalidInput, true},
		{http.StatusBadRequest, shared.ErrServiceUnavailable, false},
		{http.StatusTooManyRequests, shared.ErrInvalidInput, false},
	}
	for _, tt := range tests {
		err := &StatusError{StatusCode: tt.code}
		assert.Equal(t, tt.wantMatch, err.Is(tt.kind), "code %d", tt.code)
	}
}

func TestUnconfigured_ReportsUnavailable(t *testing.T) {
	ref, err := Unconfigured{}.Render(context.Background(), testSnapshot())
	assert.Empty(t, ref)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
}
