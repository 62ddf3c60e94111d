package booking_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/ledger"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *booking.Service
	Trips   *booking.TripAdmin
	Logger  *logger.Logger
}

func NewHandler(service *booking.Service, trips *booking.TripAdmin, log *logger.Logger) *Handler {
	return &Handler{Service: service, Trips: trips, Logger: log}
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateBooking: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	caller := booking.Caller{
		UserID:     auth.UserID(r.Context()),
		IssuedAt:   auth.IssuedAt(r.Context()),
		RemoteAddr: remoteHost(r),
	}

	b, err := h.Service.CreateBooking(r.Context(), req, caller)
	if err != nil {
		status := bookingErrorStatus(err)
		if status >= http.StatusInternalServerError {
			h.Logger.Error("API", fmt.Sprintf("CreateBooking: trip %s: %v", req.TripID, err))
			http.Error(w, "Could not create booking", status)
			return
		}
		h.Logger.Info("API", fmt.Sprintf("CreateBooking: trip %s rejected: %v", req.TripID, err))
		http.Error(w, err.Error(), status)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, models.BookingResponse{
		BookingID:        b.ID,
		PaymentReference: b.PaymentReference,
		AmountDue:        b.AmountDue,
		Status:           b.Status,
		ExpiresAt:        booking.ExpiresAt(b),
	})
}

func (h *Handler) GetPaymentView(w http.ResponseWriter, r *http.Request) {
	reference := booking.NormalizeReference(chi.URLParam(r, "reference"))

	view, err := h.Service.GetPaymentView(r.Context(), reference)
	if errors.Is(err, booking.ErrBookingNotFound) {
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPaymentView: %v", err))
		http.Error(w, "Could not load booking", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) ListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.Trips.ListTrips(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListTrips: %v", err))
		http.Error(w, "Could not list trips", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, trips)
}

func (h *Handler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var trip models.Trip
	if err := json.NewDecoder(r.Body).Decode(&trip); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Trips.CreateTrip(r.Context(), &trip); err != nil {
		if errors.Is(err, booking.ErrInvalidTrip) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("CreateTrip: %v", err))
		http.Error(w, "Could not create trip", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, trip)
}

func (h *Handler) UpdateSaleState(w http.ResponseWriter, r *http.Request) {
	var req models.SaleStateUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	n, err := h.Trips.UpdateSaleState(r.Context(), req)
	if err != nil {
		if errors.Is(err, booking.ErrInvalidTrip) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("UpdateSaleState: %v", err))
		http.Error(w, "Could not update sale state", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

func (h *Handler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripId")
	cascade, _ := strconv.ParseBool(r.URL.Query().Get("cascade"))

	err := h.Trips.DeleteTrip(r.Context(), tripID, cascade)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, booking.ErrTripNotFound):
		http.Error(w, "Trip not found", http.StatusNotFound)
	case errors.Is(err, ledger.ErrTripHasBookings):
		http.Error(w, "Trip has bookings; pass cascade=true to delete them too", http.StatusConflict)
	default:
		h.Logger.Error("API", fmt.Sprintf("DeleteTrip: %s: %v", tripID, err))
		http.Error(w, "Could not delete trip", http.StatusInternalServerError)
	}
}

func (h *Handler) ListTripBookings(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripId")
	rows, err := h.Trips.ListTripBookings(r.Context(), tripID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListTripBookings: %v", err))
		http.Error(w, "Could not list bookings", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, rows)
}

func bookingErrorStatus(err error) int {
	switch {
	case errors.Is(err, booking.ErrInvalidContact):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrTripNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrSaleClosed), errors.Is(err, booking.ErrSoldOut):
		return http.StatusConflict
	case errors.Is(err, booking.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
