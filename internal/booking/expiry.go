package booking

import (
	"time"

	"ms-booking/internal/models"

	"github.com/shopspring/decimal"
)

// HoldWindow is how long a PENDING booking is presented as payable.
const HoldWindow = 10 * time.Minute

type PaymentState string

const (
	StatePending   PaymentState = "PENDING"
	StatePaid      PaymentState = "PAID"
	StateExpired   PaymentState = "EXPIRED"
	StateCancelled PaymentState = "CANCELLED"
)

func ExpiresAt(b *models.Booking) time.Time {
	return b.CreatedAt.Add(HoldWindow)
}

// PaymentStateOf derives the state shown to the customer. Expiry is evaluated
// at read time only; the stored status and the trip capacity are untouched.
func PaymentStateOf(b *models.Booking, now time.Time) PaymentState {
	switch b.Status {
	case models.BookingPaid:
		return StatePaid
	case models.BookingCancelled:
		return StateCancelled
	}
	if now.Sub(b.CreatedAt) > HoldWindow {
		return StateExpired
	}
	return StatePending
}

type TripSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DepartureAt time.Time `json:"departure_at,omitempty"`
}

type PaymentView struct {
	Reference        string          `json:"reference"`
	AmountDue        decimal.Decimal `json:"amount_due"`
	State            PaymentState    `json:"state"`
	ExpiresAt        time.Time       `json:"expires_at"`
	SecondsRemaining int64           `json:"seconds_remaining"`
	CheckedIn        bool            `json:"checked_in"`
	Trip             *TripSummary    `json:"trip,omitempty"`
}

func NewPaymentView(b *models.Booking, trip *models.Trip, now time.Time) *PaymentView {
	view := &PaymentView{
		Reference: b.PaymentReference,
		AmountDue: b.AmountDue,
		State:     PaymentStateOf(b, now),
		ExpiresAt: ExpiresAt(b),
		CheckedIn: b.CheckInAt != nil,
	}
	if view.State == StatePending {
		view.SecondsRemaining = int64(view.ExpiresAt.Sub(now) / time.Second)
	}
	if trip != nil {
		view.Trip = &TripSummary{ID: trip.ID, Name: trip.Name, DepartureAt: trip.DepartureAt}
	}
	return view
}
