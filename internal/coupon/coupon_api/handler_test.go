package coupon_api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ms-booking/internal/coupon"
	"ms-booking/internal/coupon/coupon_api"
	"ms-booking/internal/ledger/ledgertest"
	"ms-booking/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionThenCheck(t *testing.T) {
	log := logger.NewWithWriter(io.Discard)
	h := coupon_api.NewHandler(coupon.NewService(ledgertest.NewDB(t), log), log)
	r := chi.NewRouter()
	r.Get("/api/coupons/{code}", h.Check)
	r.Post("/api/admin/coupons", h.Provision)

	body := `{"coupons":[{"code":"TET10A","discount_value":10},{"code":"TET10B","discount_value":10}]}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/coupons", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/coupons", strings.NewReader(body)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/coupons", strings.NewReader(`{"coupons":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/coupons/tet10a", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status coupon.CouponStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "TET10A", status.Code)
	assert.Equal(t, coupon.StatusNotYetActivated, status.Status)
}
