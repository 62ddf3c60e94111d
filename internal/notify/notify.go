// Package notify fans a confirmed payment out to the ticket-issued event
// stream and the operator spreadsheet.
package notify

import (
	"context"
	"errors"
	"fmt"

	"ms-booking/internal/models"
)

type Dispatcher interface {
	BookingPaid(ctx context.Context, booking *models.Booking, trip *models.Trip) error
}

// Multi runs every dispatcher and joins their errors. One failing sink does
// not stop the others.
type Multi []Dispatcher

func (m Multi) BookingPaid(ctx context.Context, booking *models.Booking, trip *models.Trip) error {
	var errs []error
	for _, d := range m {
		if err := safely(ctx, d, booking, trip); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", d, err))
		}
	}
	return errors.Join(errs...)
}

// safely calls d and turns a panic into an error.
func safely(ctx context.Context, d Dispatcher, booking *models.Booking, trip *models.Trip) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatcher panicked: %v", r)
		}
	}()
	return d.BookingPaid(ctx, booking, trip)
}
