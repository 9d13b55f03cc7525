package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/internhub/internal/domain/shared"
	"github.com/internhub/internhub/pkg/circuitbreaker"
)

func TestMetrics_WorkflowCounters(t *testing.T) {
	m := New()

	m.Transition("agreement", "signed")
	m.Transition("agreement", "signed")
	m.DocumentRender("failure")
	m.EventHandled(shared.EventType("agreement.signed"), 10*time.Millisecond, nil)
	m.EventHandled(shared.EventType("agreement.signed"), 10*time.Millisecond, errors.New("boom"))
	m.JobFinished("purge_read_notifications", time.Second, nil)
	m.BreakerStateChanged("document-renderer", circuitbreaker.StateClosed, circuitbreaker.StateOpen)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("agreement", "signed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renders.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsHandled.WithLabelValues("agreement.signed", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsHandled.WithLabelValues("agreement.signed", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("purge_read_notifications", "ok")))
	assert.Equal(t, float64(circuitbreaker.StateOpen), testutil.ToFloat64(m.breakerState.WithLabelValues("document-renderer")))
}

func TestMetrics_MiddlewareUsesRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/agreements/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agreements/"+id, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/agreements/{id}", "418")))
	assert.Zero(t, testutil.ToFloat64(m.httpInFlight))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "internhub_http_requests_total")
}
