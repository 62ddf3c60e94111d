package ledger

import (
	"context"
	"time"

	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

func (d *DB) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Booking)(nil)).
		Where("payment_reference = ?", reference).
		Exists(ctx)
}

// ReserveSeatAndCreateBooking decrements the trip capacity where capacity > 0
// and inserts the booking only when that guard matched. It returns false when
// the trip had no seat left. Both writes share one transaction, so a reference
// collision on insert also gives the seat back.
func (d *DB) ReserveSeatAndCreateBooking(ctx context.Context, booking *models.Booking) (bool, error) {
	reserved := false
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Trip)(nil)).
			Set("capacity = capacity - 1").
			Where("id = ?", booking.TripID).
			Where("capacity > 0").
			Exec(ctx)
		if err != nil {
			return err
		}
		ok, err := affected(res)
		if err != nil || !ok {
			return err
		}

		if _, err := tx.NewInsert().Model(booking).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateReference
			}
			return err
		}
		reserved = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return reserved, nil
}

// GetBookingByReference returns the oldest booking carrying the reference.
func (d *DB) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Where("payment_reference = ?", reference).
		Order("created_at").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &booking, nil
}

func (d *DB) ListBookingsByReference(ctx context.Context, reference string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Where("payment_reference = ?", reference).
		Order("created_at").
		Scan(ctx)
	return bookings, err
}

func (d *DB) ListBookingsByTrip(ctx context.Context, tripID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Where("trip_id = ?", tripID).
		Order("created_at").
		Scan(ctx)
	return bookings, err
}

// MarkBookingPaid flips PENDING to PAID. False means another writer got there
// first or the booking is no longer pending.
func (d *DB) MarkBookingPaid(ctx context.Context, id string, paidAt time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("status = ?", models.BookingPaid).
		Set("paid_at = ?", paidAt).
		Where("id = ?", id).
		Where("status = ?", models.BookingPending).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// SetCheckIn stamps check_in_at without a guard.
func (d *DB) SetCheckIn(ctx context.Context, id string, at time.Time) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("check_in_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
