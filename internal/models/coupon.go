package models

import "github.com/uptrace/bun"

// Coupon is a pre-provisioned reward unit. AssignedTo is the reservation flag.
type Coupon struct {
	bun.BaseModel `bun:"table:coupons"`

	Code          string  `bun:"code,pk" json:"code"`
	DiscountValue int     `bun:"discount_value,notnull" json:"discount_value"`
	IsUsed        bool    `bun:"is_used,notnull" json:"is_used"`
	AssignedTo    *string `bun:"assigned_to" json:"assigned_to,omitempty"`
}
