package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/ledger"
	"ms-booking/internal/logger"
	"ms-booking/internal/metrics"
	"ms-booking/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrTripNotFound    = errors.New("trip not found")
	ErrSaleClosed      = errors.New("sale is closed for this trip")
	ErrSoldOut         = errors.New("trip is sold out")
	ErrInvalidContact  = errors.New("invalid contact details")
	ErrRateLimited     = errors.New("too many booking attempts")
	ErrBookingNotFound = errors.New("booking not found")
)

const maxReferenceAttempts = 5

type Store interface {
	GetTripByID(ctx context.Context, id string) (*models.Trip, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	ReserveSeatAndCreateBooking(ctx context.Context, booking *models.Booking) (bool, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
}

// Caller describes who is booking, as seen by the HTTP layer.
type Caller struct {
	UserID     string
	IssuedAt   time.Time
	RemoteAddr string
}

type Service struct {
	Store         Store
	Throttle      Throttle
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
	LoginCooldown time.Duration
	Now           func() time.Time
	NewReference  func() (string, error)

	validate *validator.Validate
}

func NewService(store Store, throttle Throttle, log *logger.Logger) *Service {
	return &Service{
		Store:        store,
		Throttle:     throttle,
		Logger:       log,
		Now:          time.Now,
		NewReference: NewReference,
		validate:     newValidator(),
	}
}

// CreateBooking validates the request, applies the anti-abuse gates, and
// reserves one seat together with a PENDING booking.
func (s *Service) CreateBooking(ctx context.Context, req models.BookingRequest, caller Caller) (*models.Booking, error) {
	contact := normalizeContact(req.Contact)
	if err := s.validate.Struct(contact); err != nil {
		s.Metrics.BookingAttempt("invalid")
		return nil, fmt.Errorf("%w: %s", ErrInvalidContact, describeValidation(err))
	}

	if err := s.checkAbuse(ctx, req, caller); err != nil {
		s.Metrics.BookingAttempt("rate_limited")
		return nil, err
	}

	trip, err := s.Store.GetTripByID(ctx, req.TripID)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, ErrTripNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trip %s: %w", req.TripID, err)
	}
	if trip.SaleState != models.SaleOpen {
		s.Metrics.BookingAttempt("sale_closed")
		return nil, ErrSaleClosed
	}
	if trip.Capacity <= 0 {
		s.Metrics.BookingAttempt("sold_out")
		return nil, ErrSoldOut
	}

	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		reference, err := s.NewReference()
		if err != nil {
			return nil, fmt.Errorf("failed to generate payment reference: %w", err)
		}
		exists, err := s.Store.ReferenceExists(ctx, reference)
		if err != nil {
			return nil, fmt.Errorf("failed to check payment reference: %w", err)
		}
		if exists {
			s.Logger.Warn("BOOKING", fmt.Sprintf("reference %s already taken, attempt %d", reference, attempt))
			continue
		}

		booking := &models.Booking{
			ID:                uuid.New().String(),
			TripID:            trip.ID,
			PaymentReference:  reference,
			AmountDue:         trip.Price,
			Status:            models.BookingPending,
			CreatedAt:         s.Now().UTC(),
			FullName:          contact.FullName,
			Phone:             contact.Phone,
			Email:             contact.Email,
			Notes:             contact.Notes,
			SeatPreference:    req.SeatPreference,
			ClientFingerprint: req.ClientFingerprint,
		}
		if caller.UserID != "" {
			uid := caller.UserID
			booking.UserID = &uid
		}

		ok, err := s.Store.ReserveSeatAndCreateBooking(ctx, booking)
		if errors.Is(err, ledger.ErrDuplicateReference) {
			s.Logger.Warn("BOOKING", fmt.Sprintf("reference %s collided on insert, attempt %d", reference, attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to store booking: %w", err)
		}
		if !ok {
			s.Metrics.BookingAttempt("sold_out")
			return nil, ErrSoldOut
		}

		s.Metrics.BookingAttempt("created")
		s.Logger.LogBooking("CREATE", reference, fmt.Sprintf("pending booking %s on trip %s", booking.ID, trip.ID))
		return booking, nil
	}

	return nil, fmt.Errorf("could not allocate a unique payment reference after %d attempts", maxReferenceAttempts)
}

func (s *Service) checkAbuse(ctx context.Context, req models.BookingRequest, caller Caller) error {
	if caller.UserID != "" && s.LoginCooldown > 0 && !caller.IssuedAt.IsZero() {
		if age := s.Now().Sub(caller.IssuedAt); age < s.LoginCooldown {
			s.Logger.LogSecurity("COOLDOWN", fmt.Sprintf("user %s booked %s after login", caller.UserID, age.Round(time.Second)))
			return fmt.Errorf("%w: please wait a moment after signing in", ErrRateLimited)
		}
	}

	key := req.ClientFingerprint
	if key == "" {
		key = caller.RemoteAddr
	}
	if s.Throttle == nil || key == "" {
		return nil
	}

	allowed, err := s.Throttle.Allow(ctx, key)
	if err != nil {
		s.Logger.Warn("BOOKING", fmt.Sprintf("throttle unavailable, allowing %s: %v", key, err))
		return nil
	}
	if !allowed {
		s.Logger.LogSecurity("THROTTLE", fmt.Sprintf("source %s exceeded booking limit", key))
		return fmt.Errorf("%w: too many attempts from this device", ErrRateLimited)
	}
	return nil
}

// GetPaymentView returns what the payment page shows for a reference.
func (s *Service) GetPaymentView(ctx context.Context, reference string) (*PaymentView, error) {
	b, err := s.Store.GetBookingByReference(ctx, reference)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking %s: %w", reference, err)
	}

	trip, err := s.Store.GetTripByID(ctx, b.TripID)
	if err != nil {
		s.Logger.Warn("BOOKING", fmt.Sprintf("trip %s for %s not loaded: %v", b.TripID, reference, err))
		trip = nil
	}
	return NewPaymentView(b, trip, s.Now()), nil
}
