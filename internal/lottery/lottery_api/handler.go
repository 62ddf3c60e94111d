package lottery_api

import (
	"errors"
	"fmt"
	"net/http"

	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/lottery"
	"ms-booking/internal/utils"
)

type Handler struct {
	Allocator *lottery.Allocator
	Logger    *logger.Logger
}

func NewHandler(allocator *lottery.Allocator, log *logger.Logger) *Handler {
	return &Handler{Allocator: allocator, Logger: log}
}

func (h *Handler) Spin(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	result, err := h.Allocator.Spin(r.Context(), userID)
	switch {
	case errors.Is(err, lottery.ErrNotAuthenticated):
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	case errors.Is(err, lottery.ErrNotAllowed):
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	case err != nil:
		h.Logger.Error("API", fmt.Sprintf("Spin: user %s: %v", userID, err))
		http.Error(w, "Lottery unavailable, try again", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Prizes(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, h.Allocator.Prizes())
}

// MyResults returns the caller's own spins.
func (h *Handler) MyResults(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	h.results(w, r, userID)
}

// AllResults is the admin audit view.
func (h *Handler) AllResults(w http.ResponseWriter, r *http.Request) {
	h.results(w, r, r.URL.Query().Get("user_id"))
}

func (h *Handler) results(w http.ResponseWriter, r *http.Request, userID string) {
	rows, err := h.Allocator.History(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("lottery results: %v", err))
		http.Error(w, "Could not load results", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, rows)
}
