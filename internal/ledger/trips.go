package ledger

import (
	"context"

	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

func (d *DB) CreateTrip(ctx context.Context, trip *models.Trip) error {
	_, err := d.Bun.NewInsert().Model(trip).Exec(ctx)
	return err
}

func (d *DB) GetTripByID(ctx context.Context, id string) (*models.Trip, error) {
	var trip models.Trip
	err := d.Bun.NewSelect().
		Model(&trip).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &trip, nil
}

func (d *DB) ListTrips(ctx context.Context) ([]models.Trip, error) {
	var trips []models.Trip
	err := d.Bun.NewSelect().
		Model(&trips).
		Order("departure_at", "id").
		Scan(ctx)
	return trips, err
}

// UpdateSaleState is the administrative bulk switch. Capacity is never touched.
func (d *DB) UpdateSaleState(ctx context.Context, tripIDs []string, state models.SaleState) (int64, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Trip)(nil)).
		Set("sale_state = ?", state).
		Where("id IN (?)", bun.In(tripIDs)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteTrip refuses to orphan bookings unless cascade is requested.
func (d *DB) DeleteTrip(ctx context.Context, id string, cascade bool) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		count, err := tx.NewSelect().
			Model((*models.Booking)(nil)).
			Where("trip_id = ?", id).
			Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 && !cascade {
			return ErrTripHasBookings
		}
		if count > 0 {
			if _, err := tx.NewDelete().
				Model((*models.Booking)(nil)).
				Where("trip_id = ?", id).
				Exec(ctx); err != nil {
				return err
			}
		}
		res, err := tx.NewDelete().
			Model((*models.Trip)(nil)).
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
	})
}
