package booking_api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ms-booking/internal/booking"
	"ms-booking/internal/booking/booking_api"
	"ms-booking/internal/ledger"
	"ms-booking/internal/ledger/ledgertest"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/profile"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, capacity int) (*ledger.DB, http.Handler) {
	t.Helper()
	db := ledgertest.NewDB(t)
	require.NoError(t, db.CreateTrip(context.Background(), &models.Trip{
		ID:        "trip-1",
		Name:      "Da Nang - Hoi An",
		Capacity:  capacity,
		SaleState: models.SaleOpen,
		Price:     decimal.NewFromInt(120000),
	}))

	log := logger.NewWithWriter(io.Discard)
	svc := booking.NewService(db, nil, log)
	trips := &booking.TripAdmin{
		Store:    db,
		Profiles: &profile.Chain{Fallback: profile.NewMemoryLookup(map[string]string{"u1": "Lan"})},
		Logger:   log,
	}
	h := booking_api.NewHandler(svc, trips, log)

	r := chi.NewRouter()
	r.Post("/api/bookings", h.CreateBooking)
	r.Get("/api/bookings/{reference}", h.GetPaymentView)
	r.Get("/api/trips", h.ListTrips)
	r.Post("/api/admin/trips", h.CreateTrip)
	r.Put("/api/admin/trips/sale-state", h.UpdateSaleState)
	r.Delete("/api/admin/trips/{tripId}", h.DeleteTrip)
	r.Get("/api/admin/trips/{tripId}/bookings", h.ListTripBookings)
	return db, r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const bookingBody = `{"trip_id":"trip-1","contact":{"full_name":"Le Thi B","phone":"0987654321"}}`

func TestCreateBookingThenView(t *testing.T) {
	_, h := setup(t, 1)

	rec := do(h, http.MethodPost, "/api/bookings", bookingBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp models.BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.BookingPending, resp.Status)
	assert.True(t, resp.AmountDue.Equal(decimal.NewFromInt(120000)))

	rec = do(h, http.MethodGet, "/api/bookings/"+resp.PaymentReference, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view booking.PaymentView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, booking.StatePending, view.State)
	assert.Equal(t, "Da Nang - Hoi An", view.Trip.Name)

	rec = do(h, http.MethodGet, "/api/bookings/"+strings.ToLower(resp.PaymentReference), "")
	assert.Equal(t, http.StatusOK, rec.Code, "references are matched case-insensitively")

	rec = do(h, http.MethodPost, "/api/bookings", bookingBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateBookingInputErrors(t *testing.T) {
	_, h := setup(t, 5)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/bookings", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/bookings",
		`{"trip_id":"trip-1","contact":{"full_name":"X","phone":"123"}}`).Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/api/bookings",
		`{"trip_id":"trip-9","contact":{"full_name":"X","phone":"0987654321"}}`).Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/bookings/BUSUNKNOWN1", "").Code)
}

func TestAdminTripLifecycle(t *testing.T) {
	db, h := setup(t, 5)

	rec := do(h, http.MethodPost, "/api/admin/trips", `{"id":"trip-2","name":"Hue - Da Nang","capacity":40,"price":"90000"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	trip, err := db.GetTripByID(context.Background(), "trip-2")
	require.NoError(t, err)
	assert.Equal(t, models.SalePaused, trip.SaleState)

	rec = do(h, http.MethodPut, "/api/admin/trips/sale-state", `{"trip_ids":["trip-1","trip-2"],"sale_state":"PAUSED"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":2}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPut, "/api/admin/trips/sale-state", `{"trip_ids":["trip-1"],"sale_state":"CLOSED"}`).Code)

	assert.Equal(t, http.StatusConflict, do(h, http.MethodPost, "/api/bookings", bookingBody).Code)

	rec = do(h, http.MethodGet, "/api/trips", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var trips []models.Trip
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trips))
	assert.Len(t, trips, 2)
}

func TestDeleteTripNeedsCascade(t *testing.T) {
	_, h := setup(t, 5)
	require.Equal(t, http.StatusCreated, do(h, http.MethodPost, "/api/bookings", bookingBody).Code)

	assert.Equal(t, http.StatusConflict, do(h, http.MethodDelete, "/api/admin/trips/trip-1", "").Code)
	assert.Equal(t, http.StatusNoContent, do(h, http.MethodDelete, "/api/admin/trips/trip-1?cascade=true", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodDelete, "/api/admin/trips/trip-1?cascade=true", "").Code)
}

func TestListTripBookingsResolvesNames(t *testing.T) {
	db, h := setup(t, 5)
	ctx := context.Background()

	svc := booking.NewService(db, nil, logger.NewWithWriter(io.Discard))
	_, err := svc.CreateBooking(ctx, models.BookingRequest{
		TripID:  "trip-1",
		Contact: models.Contact{FullName: "Pham C", Phone: "0351234567"},
	}, booking.Caller{UserID: "u1"})
	require.NoError(t, err)

	rec := do(h, http.MethodGet, "/api/admin/trips/trip-1/bookings", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []booking.AdminBooking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Lan", rows[0].UserName)
	assert.Equal(t, booking.StatePending, rows[0].PaymentState)
}
