package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-booking/internal/ledger"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/profile"
)

var ErrInvalidTrip = errors.New("invalid trip")

type TripStore interface {
	CreateTrip(ctx context.Context, trip *models.Trip) error
	ListTrips(ctx context.Context) ([]models.Trip, error)
	UpdateSaleState(ctx context.Context, tripIDs []string, state models.SaleState) (int64, error)
	DeleteTrip(ctx context.Context, id string, cascade bool) error
	ListBookingsByTrip(ctx context.Context, tripID string) ([]models.Booking, error)
}

// TripAdmin covers the operator surface: trip setup, sale switches and
// per-trip booking lists.
type TripAdmin struct {
	Store    TripStore
	Profiles profile.Lookup
	Logger   *logger.Logger
	Now      func() time.Time
}

type AdminBooking struct {
	models.Booking
	UserName     string       `json:"user_name,omitempty"`
	PaymentState PaymentState `json:"payment_state"`
}

func (a *TripAdmin) ListTrips(ctx context.Context) ([]models.Trip, error) {
	trips, err := a.Store.ListTrips(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	return trips, nil
}

func (a *TripAdmin) CreateTrip(ctx context.Context, trip *models.Trip) error {
	trip.ID = strings.TrimSpace(trip.ID)
	trip.Name = strings.TrimSpace(trip.Name)
	switch {
	case trip.ID == "" || trip.Name == "":
		return fmt.Errorf("%w: id and name are required", ErrInvalidTrip)
	case trip.Capacity < 0:
		return fmt.Errorf("%w: capacity must not be negative", ErrInvalidTrip)
	case trip.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrInvalidTrip)
	}
	if trip.SaleState == "" {
		trip.SaleState = models.SalePaused
	}
	if !trip.SaleState.Valid() {
		return fmt.Errorf("%w: unknown sale state %q", ErrInvalidTrip, trip.SaleState)
	}

	if err := a.Store.CreateTrip(ctx, trip); err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}
	a.Logger.Info("ADMIN", fmt.Sprintf("trip %s created with %d seats", trip.ID, trip.Capacity))
	return nil
}

// UpdateSaleState switches sale on or off for many trips at once.
func (a *TripAdmin) UpdateSaleState(ctx context.Context, req models.SaleStateUpdateRequest) (int64, error) {
	if len(req.TripIDs) == 0 || !req.SaleState.Valid() {
		return 0, fmt.Errorf("%w: trip_ids and a valid sale_state are required", ErrInvalidTrip)
	}
	n, err := a.Store.UpdateSaleState(ctx, req.TripIDs, req.SaleState)
	if err != nil {
		return 0, fmt.Errorf("failed to update sale state: %w", err)
	}
	a.Logger.Info("ADMIN", fmt.Sprintf("sale state %s applied to %d trips", req.SaleState, n))
	return n, nil
}

func (a *TripAdmin) DeleteTrip(ctx context.Context, id string, cascade bool) error {
	err := a.Store.DeleteTrip(ctx, id, cascade)
	if errors.Is(err, ledger.ErrNotFound) {
		return ErrTripNotFound
	}
	if err != nil {
		return err
	}
	a.Logger.Warn("ADMIN", fmt.Sprintf("trip %s deleted (cascade=%t)", id, cascade))
	return nil
}

func (a *TripAdmin) ListTripBookings(ctx context.Context, tripID string) ([]AdminBooking, error) {
	bookings, err := a.Store.ListBookingsByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings for trip %s: %w", tripID, err)
	}

	now := time.Now()
	if a.Now != nil {
		now = a.Now()
	}
	out := make([]AdminBooking, 0, len(bookings))
	for i := range bookings {
		row := AdminBooking{
			Booking:      bookings[i],
			PaymentState: PaymentStateOf(&bookings[i], now),
		}
		if a.Profiles != nil && bookings[i].UserID != nil {
			if name, ok := a.Profiles.DisplayName(ctx, *bookings[i].UserID); ok {
				row.UserName = name
			}
		}
		out = append(out, row)
	}
	return out, nil
}
