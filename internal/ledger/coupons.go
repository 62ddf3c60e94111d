package ledger

import (
	"context"

	"ms-booking/internal/models"
)

func (d *DB) InsertCoupons(ctx context.Context, coupons []models.Coupon) error {
	if len(coupons) == 0 {
		return nil
	}
	_, err := d.Bun.NewInsert().Model(&coupons).Exec(ctx)
	if isUniqueViolation(err) {
		return ErrDuplicateCoupon
	}
	return err
}

func (d *DB) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := d.Bun.NewSelect().
		Model(&coupon).
		Where("code = ?", code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &coupon, nil
}

// ListAvailableCoupons returns up to limit unused, unassigned coupons.
func (d *DB) ListAvailableCoupons(ctx context.Context, limit int) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := d.Bun.NewSelect().
		Model(&coupons).
		Where("is_used = ?", false).
		Where("assigned_to IS NULL").
		Order("code").
		Limit(limit).
		Scan(ctx)
	return coupons, err
}

// ReserveCoupon assigns the coupon to holder only if nobody holds it yet.
func (d *DB) ReserveCoupon(ctx context.Context, code, holder string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Coupon)(nil)).
		Set("assigned_to = ?", holder).
		Where("code = ?", code).
		Where("assigned_to IS NULL").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (d *DB) AppendLotteryResult(ctx context.Context, result *models.LotteryResult) error {
	_, err := d.Bun.NewInsert().Model(result).Exec(ctx)
	return err
}

func (d *DB) ListLotteryResults(ctx context.Context, userID string) ([]models.LotteryResult, error) {
	var results []models.LotteryResult
	q := d.Bun.NewSelect().Model(&results).Order("id")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	err := q.Scan(ctx)
	return results, err
}
