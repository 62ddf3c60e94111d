package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/ticketqr"

	"github.com/shopspring/decimal"
)

var ErrNoCodec = errors.New("ticket QR codec is not configured")

type Publisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// TicketIssued is consumed by the mailer that sends the boarding pass.
type TicketIssued struct {
	EventType   string          `json:"event_type"`
	BookingID   string          `json:"booking_id"`
	Reference   string          `json:"payment_reference"`
	TripID      string          `json:"trip_id"`
	TripName    string          `json:"trip_name,omitempty"`
	DepartureAt *time.Time      `json:"departure_at,omitempty"`
	FullName    string          `json:"full_name"`
	Phone       string          `json:"phone"`
	Email       string          `json:"email,omitempty"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	QRPayload   string          `json:"qr_payload"`
	QRPNG       string          `json:"qr_png_base64"`
}

type TicketPublisher struct {
	Publisher Publisher
	Topic     string
	Codec     *ticketqr.Codec
	QRSize    int
	Logger    *logger.Logger
}

func (p *TicketPublisher) BookingPaid(ctx context.Context, b *models.Booking, trip *models.Trip) error {
	if p.Codec == nil {
		return ErrNoCodec
	}
	payload, err := p.Codec.Seal(ticketqr.Claim{Reference: b.PaymentReference, BookingID: b.ID, TripID: b.TripID})
	if err != nil {
		return fmt.Errorf("failed to seal ticket payload: %w", err)
	}
	png, err := ticketqr.PNG(payload, p.QRSize)
	if err != nil {
		return fmt.Errorf("failed to render ticket QR: %w", err)
	}

	event := TicketIssued{
		EventType:  "ticket.issued",
		BookingID:  b.ID,
		Reference:  b.PaymentReference,
		TripID:     b.TripID,
		FullName:   b.FullName,
		Phone:      b.Phone,
		Email:      b.Email,
		AmountPaid: b.AmountDue,
		PaidAt:     b.PaidAt,
		QRPayload:  payload,
		QRPNG:      base64.StdEncoding.EncodeToString(png),
	}
	if trip != nil {
		event.TripName = trip.Name
		if !trip.DepartureAt.IsZero() {
			dep := trip.DepartureAt
			event.DepartureAt = &dep
		}
	}

	if err := p.Publisher.Publish(ctx, p.Topic, b.ID, event); err != nil {
		return err
	}
	p.Logger.LogBooking("TICKET", b.PaymentReference, "ticket.issued published")
	return nil
}
