package sse

import (
	"context"
	"sync"
	"time"

	"ms-booking/internal/models"
)

// PaidEvent is pushed to clients waiting on a payment reference.
type PaidEvent struct {
	Reference string    `json:"payment_reference"`
	BookingID string    `json:"booking_id"`
	PaidAt    time.Time `json:"paid_at"`
}

// PaymentEmitter fans payment confirmations out to SSE clients keyed by
// payment reference. It is a notify sink, so delivery is best-effort.
type PaymentEmitter struct {
	mu      sync.RWMutex
	clients map[string][]chan PaidEvent
}

func NewPaymentEmitter() *PaymentEmitter {
	return &PaymentEmitter{clients: make(map[string][]chan PaidEvent)}
}

// Subscribe returns a channel that receives the confirmation for reference.
// The channel is closed once ctx is done.
func (e *PaymentEmitter) Subscribe(ctx context.Context, reference string) <-chan PaidEvent {
	ch := make(chan PaidEvent, 1)

	e.mu.Lock()
	e.clients[reference] = append(e.clients[reference], ch)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(reference, ch)
	}()
	return ch
}

func (e *PaymentEmitter) BookingPaid(_ context.Context, b *models.Booking, _ *models.Trip) error {
	event := PaidEvent{Reference: b.PaymentReference, BookingID: b.ID}
	if b.PaidAt != nil {
		event.PaidAt = *b.PaidAt
	}

	// Sends happen under the read lock so remove cannot close a channel mid-send.
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ch := range e.clients[b.PaymentReference] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (e *PaymentEmitter) remove(reference string, ch chan PaidEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[reference]
	for i, c := range clients {
		if c == ch {
			e.clients[reference] = append(clients[:i], clients[i+1:]...)
			close(ch)
			break
		}
	}
	if len(e.clients[reference]) == 0 {
		delete(e.clients, reference)
	}
}

func (e *PaymentEmitter) ClientCount(reference string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[reference])
}
