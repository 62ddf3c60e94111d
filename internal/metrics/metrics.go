package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the business counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	bookingsTotal     *prometheus.CounterVec
	reconcileOutcomes *prometheus.CounterVec
	dispatchFailures  prometheus.Counter
	lotterySpins      *prometheus.CounterVec
	checkInsTotal     *prometheus.CounterVec
	httpRequestsTotal *prometheus.CounterVec
}

// New registers the counters on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		bookingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_attempts_total",
				Help: "Booking attempts by result",
			},
			[]string{"result"},
		),
		reconcileOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconcile_transactions_total",
				Help: "Reconciled bank transactions by outcome",
			},
			[]string{"outcome"},
		),
		dispatchFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "reconcile_dispatch_failures_total",
				Help: "Side-effect dispatch failures after a booking was marked paid",
			},
		),
		lotterySpins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_spins_total",
				Help: "Lottery spins by prize and whether the result was demoted",
			},
			[]string{"prize", "demoted"},
		),
		checkInsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkin_attempts_total",
				Help: "Check-in attempts by result",
			},
			[]string{"result"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
	}
}

func (m *Metrics) BookingAttempt(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ReconcileOutcome(outcome string) {
	if m == nil {
		return
	}
	m.reconcileOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) DispatchFailed() {
	if m == nil {
		return
	}
	m.dispatchFailures.Inc()
}

func (m *Metrics) LotterySpin(prizeID string, demoted bool) {
	if m == nil {
		return
	}
	m.lotterySpins.WithLabelValues(prizeID, strconv.FormatBool(demoted)).Inc()
}

func (m *Metrics) CheckIn(result string) {
	if m == nil {
		return
	}
	m.checkInsTotal.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming handlers working behind the middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Middleware counts requests by method and status code.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if m != nil {
			m.httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		}
	})
}
