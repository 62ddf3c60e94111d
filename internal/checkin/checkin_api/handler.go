package checkin_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ms-booking/internal/checkin"
	"ms-booking/internal/logger"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Gate   *checkin.Gate
	Logger *logger.Logger
}

func NewHandler(gate *checkin.Gate, log *logger.Logger) *Handler {
	return &Handler{Gate: gate, Logger: log}
}

type scanRequest struct {
	Payload string `json:"payload"`
}

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	reference := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "reference")))
	record, err := h.Gate.CheckIn(r.Context(), reference)
	if err != nil {
		h.fail(w, reference, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Payload == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	record, err := h.Gate.Scan(r.Context(), req.Payload)
	if err != nil {
		h.fail(w, "scan", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) TicketPNG(w http.ResponseWriter, r *http.Request) {
	reference := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "reference")))
	png, err := h.Gate.TicketPNG(r.Context(), reference)
	if err != nil {
		h.fail(w, reference, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) fail(w http.ResponseWriter, reference string, err error) {
	switch {
	case errors.Is(err, checkin.ErrBookingNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, checkin.ErrNotPaid), errors.Is(err, checkin.ErrCancelled):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, checkin.ErrInvalidTicket):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, checkin.ErrScanDisabled):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		h.Logger.Error("API", fmt.Sprintf("check-in %s: %v", reference, err))
		http.Error(w, "Check-in failed", http.StatusInternalServerError)
	}
}
