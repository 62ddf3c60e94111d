package models

import (
	"time"

	"github.com/uptrace/bun"
)

// LotteryResult is the append-only audit row written for every spin.
type LotteryResult struct {
	bun.BaseModel `bun:"table:lottery_results"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID     string    `bun:"user_id,notnull" json:"user_id"`
	PrizeID    string    `bun:"prize_id,notnull" json:"prize_id"`
	CouponCode *string   `bun:"coupon_code" json:"coupon_code"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"created_at"`
}
