package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/booking/booking_api"
	"ms-booking/internal/checkin"
	"ms-booking/internal/checkin/checkin_api"
	"ms-booking/internal/coupon"
	"ms-booking/internal/coupon/coupon_api"
	"ms-booking/internal/ledger/ledgertest"
	"ms-booking/internal/logger"
	"ms-booking/internal/lottery"
	"ms-booking/internal/lottery/lottery_api"
	"ms-booking/internal/metrics"
	"ms-booking/internal/profile"
	"ms-booking/internal/reconcile"
	"ms-booking/internal/reconcile/reconcile_api"
	"ms-booking/internal/sse"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	db := ledgertest.NewDB(t)
	log := logger.NewWithWriter(io.Discard)

	allocator, err := lottery.NewAllocator(db, lottery.DefaultPrizes(), []string{"alice"}, log)
	require.NoError(t, err)

	bookingService := booking.NewService(db, nil, log)
	h := handlers{
		Booking: booking_api.NewHandler(
			bookingService,
			&booking.TripAdmin{Store: db, Profiles: &profile.Chain{Fallback: profile.NewMemoryLookup(nil)}, Logger: log},
			log,
		),
		Reconcile: reconcile_api.NewHandler(reconcile.NewEngine(db, nil, log), nil, "hook-secret", log),
		Lottery:   lottery_api.NewHandler(allocator, log),
		Checkin:   checkin_api.NewHandler(checkin.NewGate(db, nil, log), log),
		Coupon:    coupon_api.NewHandler(coupon.NewService(db, log), log),
		Payments:  sse.NewPaymentStreamHandler(bookingService, sse.NewPaymentEmitter(), log),
	}
	return newRouter(h, auth.NewHMACVerifier(testSecret), []string{"root"}, metrics.New(prometheus.NewRegistry()), log)
}

func bearer(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func request(r http.Handler, method, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	r := testRouter(t)

	assert.Equal(t, http.StatusUnauthorized, request(r, http.MethodGet, "/api/admin/lottery/results", "").Code)
	assert.Equal(t, http.StatusForbidden, request(r, http.MethodGet, "/api/admin/lottery/results", bearer(t, "alice")).Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/admin/lottery/results", bearer(t, "root")).Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, http.MethodGet, "/api/trips", "Bearer not-a-jwt").Code)
}

func TestPublicRoutes(t *testing.T) {
	r := testRouter(t)

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/trips", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/coupons/NOPE", "").Code)
	assert.Equal(t, http.StatusNotFound, request(r, http.MethodGet, "/api/bookings/BUSZZZZ0000", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, http.MethodPost, "/api/webhooks/bank", "").Code)

	// Spinning needs a signed-in, allow-listed user.
	assert.Equal(t, http.StatusUnauthorized, request(r, http.MethodPost, "/api/lottery/spin", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodPost, "/api/lottery/spin", bearer(t, "alice")).Code)

	rec := request(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
