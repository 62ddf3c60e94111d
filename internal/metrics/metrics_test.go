package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ms-booking/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ReconcileOutcome("matched")
	m.ReconcileOutcome("matched")
	m.LotterySpin("p10", true)

	n, err := testutil.GatherAndCount(reg, "reconcile_transactions_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `reconcile_transactions_total{outcome="matched"} 2`)
	assert.Contains(t, rec.Body.String(), `lottery_spins_total{demoted="true",prize="p10"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.BookingAttempt("ok")
	m.DispatchFailed()

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMiddlewarePreservesFlusher(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	var flushable bool
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, flushable = w.(http.Flusher)
		w.(http.Flusher).Flush()
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream", nil))
	assert.True(t, flushable)
	assert.True(t, rec.Flushed)
}
