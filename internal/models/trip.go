package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type SaleState string

const (
	SaleOpen   SaleState = "OPEN"
	SalePaused SaleState = "PAUSED"
)

func (s SaleState) Valid() bool {
	return s == SaleOpen || s == SalePaused
}

// Trip is a sale unit. Capacity is the authoritative remaining-seat counter.
type Trip struct {
	bun.BaseModel `bun:"table:trips"`

	ID          string          `bun:"id,pk" json:"id"`
	Name        string          `bun:"name,notnull" json:"name"`
	DepartureAt time.Time       `bun:"departure_at,nullzero" json:"departure_at,omitempty"`
	Capacity    int             `bun:"capacity,notnull" json:"capacity"`
	SaleState   SaleState       `bun:"sale_state,notnull" json:"sale_state"`
	Price       decimal.Decimal `bun:"price,type:decimal(12,2),notnull" json:"price"`
}

type SaleStateUpdateRequest struct {
	TripIDs   []string  `json:"trip_ids"`
	SaleState SaleState `json:"sale_state"`
}
