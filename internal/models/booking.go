package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingPaid      BookingStatus = "PAID"
	BookingCancelled BookingStatus = "CANCELLED"
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID                string          `bun:"id,pk" json:"id"`
	TripID            string          `bun:"trip_id,notnull" json:"trip_id"`
	UserID            *string         `bun:"user_id" json:"user_id,omitempty"`
	PaymentReference  string          `bun:"payment_reference,unique,notnull" json:"payment_reference"`
	AmountDue         decimal.Decimal `bun:"amount_due,type:decimal(12,2),notnull" json:"amount_due"`
	Status            BookingStatus   `bun:"status,notnull" json:"status"`
	CreatedAt         time.Time       `bun:"created_at,notnull" json:"created_at"`
	PaidAt            *time.Time      `bun:"paid_at" json:"paid_at,omitempty"`
	CheckInAt         *time.Time      `bun:"check_in_at" json:"check_in_at,omitempty"`
	FullName          string          `bun:"full_name,notnull" json:"full_name"`
	Phone             string          `bun:"phone,notnull" json:"phone"`
	Email             string          `bun:"email" json:"email,omitempty"`
	Notes             string          `bun:"notes" json:"notes,omitempty"`
	SeatPreference    string          `bun:"seat_preference" json:"seat_preference,omitempty"`
	ClientFingerprint string          `bun:"client_fingerprint" json:"-"`
}

type Contact struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"required,vnmobile"`
	Email    string `json:"email" validate:"omitempty,email"`
	Notes    string `json:"notes" validate:"max=500"`
}

// BookingRequest is the body of POST /api/bookings.
type BookingRequest struct {
	TripID            string  `json:"trip_id"`
	Contact           Contact `json:"contact"`
	SeatPreference    string  `json:"seat_preference"`
	ClientFingerprint string  `json:"client_fingerprint"`
}

type BookingResponse struct {
	BookingID        string          `json:"booking_id"`
	PaymentReference string          `json:"payment_reference"`
	AmountDue        decimal.Decimal `json:"amount_due"`
	Status           BookingStatus   `json:"status"`
	ExpiresAt        time.Time       `json:"expires_at"`
}
