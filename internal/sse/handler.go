package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ms-booking/internal/booking"
	"ms-booking/internal/logger"

	"github.com/go-chi/chi/v5"
)

type viewSource interface {
	GetPaymentView(ctx context.Context, reference string) (*booking.PaymentView, error)
}

// PaymentStreamHandler lets the payment page wait for the bank transfer
// instead of polling. The stream ends once the booking leaves PENDING.
type PaymentStreamHandler struct {
	Views   viewSource
	Emitter *PaymentEmitter
	Logger  *logger.Logger
}

func NewPaymentStreamHandler(views viewSource, emitter *PaymentEmitter, log *logger.Logger) *PaymentStreamHandler {
	return &PaymentStreamHandler{Views: views, Emitter: emitter, Logger: log}
}

func (h *PaymentStreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	reference := booking.NormalizeReference(chi.URLParam(r, "reference"))
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// Subscribe before the first read so a confirmation between the two is not lost.
	paid := h.Emitter.Subscribe(ctx, reference)

	view, err := h.Views.GetPaymentView(ctx, reference)
	if errors.Is(err, booking.ErrBookingNotFound) {
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("SSE", fmt.Sprintf("payment stream %s: %v", reference, err))
		http.Error(w, "Could not load booking", http.StatusInternalServerError)
		return
	}

	// The server write timeout is shorter than the hold window.
	http.NewResponseController(w).SetWriteDeadline(time.Time{})
	setupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if !h.send(w, flusher, view) || view.State != booking.StatePending {
		return
	}
	h.Logger.Debug("SSE", fmt.Sprintf("client waiting on %s", reference))

	expiry := time.NewTimer(time.Until(view.ExpiresAt) + time.Second)
	defer expiry.Stop()

	select {
	case _, ok := <-paid:
		if !ok {
			return
		}
	case <-expiry.C:
	case <-ctx.Done():
		return
	}

	view, err = h.Views.GetPaymentView(ctx, reference)
	if err != nil {
		h.Logger.Error("SSE", fmt.Sprintf("payment stream %s: %v", reference, err))
		return
	}
	h.send(w, flusher, view)
}

func (h *PaymentStreamHandler) send(w http.ResponseWriter, flusher http.Flusher, view *booking.PaymentView) bool {
	data, err := json.Marshal(view)
	if err != nil {
		h.Logger.Error("SSE", fmt.Sprintf("failed to serialize payment view: %v", err))
		return false
	}
	if _, err := fmt.Fprintf(w, "event: payment\ndata: %s\n\n", data); err != nil {
		return false
	}
	flusher.Flush()
	return true
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
