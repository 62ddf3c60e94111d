package reconcile_api

import (
	"crypto/subtle"
	"fmt"
	"io"
	"net/http"

	"ms-booking/internal/logger"
	"ms-booking/internal/reconcile"
	"ms-booking/internal/utils"
)

const (
	SecretHeader = "Secure-Token"
	maxBodyBytes = 1 << 20
)

type Handler struct {
	Engine        *reconcile.Engine
	Source        reconcile.Source
	WebhookSecret string
	Logger        *logger.Logger
}

func NewHandler(engine *reconcile.Engine, source reconcile.Source, secret string, log *logger.Logger) *Handler {
	return &Handler{Engine: engine, Source: source, WebhookSecret: secret, Logger: log}
}

// BankWebhook authenticates the push before reading the body. Once the batch
// parses the answer is 200 with the report; store failures show up as ERROR
// entries and are replayed by the next sync.
func (h *Handler) BankWebhook(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		h.Logger.LogSecurity("WEBHOOK", fmt.Sprintf("rejected bank webhook from %s", r.RemoteAddr))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	batch, err := reconcile.ParseBatch(body)
	if err != nil {
		h.Logger.Warn("WEBHOOK", fmt.Sprintf("BankWebhook: %v", err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.Engine.Reconcile(r.Context(), batch)
	if err != nil {
		h.Logger.Error("WEBHOOK", fmt.Sprintf("BankWebhook: %v", err))
	}
	utils.WriteJSON(w, http.StatusOK, report)
}

// Sync is the operator-triggered pull.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	if h.Source == nil {
		http.Error(w, "bank sync is not configured", http.StatusServiceUnavailable)
		return
	}

	report, err := h.Engine.Sync(r.Context(), h.Source)
	if report == nil && err != nil {
		h.Logger.Error("API", fmt.Sprintf("Sync: %v", err))
		http.Error(w, "Bank sync failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Sync: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, report)
		return
	}
	utils.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) authorized(r *http.Request) bool {
	got := r.Header.Get(SecretHeader)
	if h.WebhookSecret == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.WebhookSecret)) == 1
}
