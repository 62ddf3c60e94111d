package coupon_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-booking/internal/coupon"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *coupon.Service
	Logger  *logger.Logger
}

func NewHandler(service *coupon.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	status, err := h.Service.Check(r.Context(), code)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("coupon check %s: %v", code, err))
		http.Error(w, "Could not check coupon", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, status)
}

type provisionRequest struct {
	Coupons []models.Coupon `json:"coupons"`
}

func (h *Handler) Provision(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	n, err := h.Service.Provision(r.Context(), req.Coupons)
	switch {
	case errors.Is(err, coupon.ErrInvalidBatch):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, coupon.ErrDuplicateCode):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.Logger.Error("API", fmt.Sprintf("coupon provisioning: %v", err))
		http.Error(w, "Could not store coupons", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]int{"created": n})
}
