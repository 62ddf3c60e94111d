package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"ms-booking/internal/models"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

var (
	ErrNotFound           = errors.New("ledger: record not found")
	ErrDuplicateReference = errors.New("ledger: payment reference already exists")
	ErrTripHasBookings    = errors.New("ledger: trip still has bookings")
	ErrDuplicateCoupon    = errors.New("ledger: coupon code already exists")
)

// DB is the only place that touches the relational store. Every method is a
// typed accessor; guarded writes report whether their predicate matched.
type DB struct {
	Bun *bun.DB
}

// CreateSchema creates the ledger tables if they are missing. Production
// databases are migrated with cmd/migrate; this is used by tests and local runs.
func (d *DB) CreateSchema(ctx context.Context) error {
	tables := []interface{}{
		(*models.Trip)(nil),
		(*models.Booking)(nil),
		(*models.Coupon)(nil),
		(*models.LotteryResult)(nil),
	}
	for _, m := range tables {
		if _, err := d.Bun.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	_, err := d.Bun.NewCreateIndex().
		Model((*models.Booking)(nil)).
		Index("idx_bookings_trip_id").
		Column("trip_id").
		IfNotExists().
		Exec(ctx)
	return err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
