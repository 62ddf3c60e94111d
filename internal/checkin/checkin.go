package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/metrics"
	"ms-booking/internal/models"
	"ms-booking/internal/ticketqr"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrNotPaid         = errors.New("booking has not been paid")
	ErrCancelled       = errors.New("booking was cancelled")
	ErrInvalidTicket   = errors.New("ticket could not be verified")
	ErrScanDisabled    = errors.New("ticket scanning is not configured")
)

type Store interface {
	ListBookingsByReference(ctx context.Context, reference string) ([]models.Booking, error)
	SetCheckIn(ctx context.Context, id string, at time.Time) error
}

type CheckInRecord struct {
	Reference        string    `json:"payment_reference"`
	BookingID        string    `json:"booking_id"`
	TripID           string    `json:"trip_id"`
	FullName         string    `json:"full_name"`
	CheckInAt        time.Time `json:"check_in_at"`
	AlreadyCheckedIn bool      `json:"already_checked_in"`
}

type Gate struct {
	Store   Store
	Codec   *ticketqr.Codec
	QRSize  int
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func NewGate(store Store, codec *ticketqr.Codec, log *logger.Logger) *Gate {
	return &Gate{Store: store, Codec: codec, QRSize: 256, Logger: log, Now: time.Now}
}

// CheckIn admits the holder of reference once. A second attempt reports the
// original admission time instead of stamping again.
func (g *Gate) CheckIn(ctx context.Context, reference string) (*CheckInRecord, error) {
	bookings, err := g.Store.ListBookingsByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking %s: %w", reference, err)
	}
	if len(bookings) == 0 {
		g.Metrics.CheckIn("not_found")
		return nil, ErrBookingNotFound
	}

	b := bookings[0]
	for _, candidate := range bookings {
		if candidate.CheckInAt == nil {
			b = candidate
			break
		}
	}

	switch b.Status {
	case models.BookingPending:
		g.Metrics.CheckIn("not_paid")
		return nil, ErrNotPaid
	case models.BookingCancelled:
		g.Metrics.CheckIn("cancelled")
		return nil, ErrCancelled
	}

	record := &CheckInRecord{
		Reference: b.PaymentReference,
		BookingID: b.ID,
		TripID:    b.TripID,
		FullName:  b.FullName,
	}
	if b.CheckInAt != nil {
		record.CheckInAt = *b.CheckInAt
		record.AlreadyCheckedIn = true
		g.Metrics.CheckIn("repeat")
		g.Logger.Warn("CHECKIN", fmt.Sprintf("%s already admitted at %s", reference, b.CheckInAt.Format(time.RFC3339)))
		return record, nil
	}

	now := g.Now().UTC()
	if err := g.Store.SetCheckIn(ctx, b.ID, now); err != nil {
		return nil, fmt.Errorf("failed to check in %s: %w", reference, err)
	}
	record.CheckInAt = now
	g.Metrics.CheckIn("admitted")
	g.Logger.LogBooking("CHECKIN", reference, "passenger admitted")
	return record, nil
}

// Scan opens a sealed QR payload and checks in the booking it names.
func (g *Gate) Scan(ctx context.Context, payload string) (*CheckInRecord, error) {
	if g.Codec == nil {
		return nil, ErrScanDisabled
	}
	claim, err := g.Codec.Open(payload)
	if err != nil {
		g.Logger.LogSecurity("CHECKIN", fmt.Sprintf("unreadable ticket presented: %v", err))
		g.Metrics.CheckIn("invalid_ticket")
		return nil, ErrInvalidTicket
	}
	record, err := g.CheckIn(ctx, claim.Reference)
	if err != nil {
		return nil, err
	}
	if record.BookingID != claim.BookingID {
		g.Logger.LogSecurity("CHECKIN", fmt.Sprintf("ticket for %s names booking %s, ledger has %s", claim.Reference, claim.BookingID, record.BookingID))
	}
	return record, nil
}

// TicketPNG renders the boarding QR for a paid booking.
func (g *Gate) TicketPNG(ctx context.Context, reference string) ([]byte, error) {
	if g.Codec == nil {
		return nil, ErrScanDisabled
	}
	bookings, err := g.Store.ListBookingsByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking %s: %w", reference, err)
	}
	if len(bookings) == 0 {
		return nil, ErrBookingNotFound
	}
	b := bookings[0]
	switch b.Status {
	case models.BookingPending:
		return nil, ErrNotPaid
	case models.BookingCancelled:
		return nil, ErrCancelled
	}
	payload, err := g.Codec.Seal(ticketqr.Claim{Reference: b.PaymentReference, BookingID: b.ID, TripID: b.TripID})
	if err != nil {
		return nil, err
	}
	return ticketqr.PNG(payload, g.QRSize)
}
