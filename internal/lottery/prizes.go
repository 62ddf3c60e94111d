package lottery

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var ErrInvalidPrizeTable = errors.New("invalid prize table")

// Prize is one wheel segment. TierValue 0 means no coupon is attached.
type Prize struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Weight    float64 `json:"weight"`
	TierValue int     `json:"tier_value"`
}

func (p Prize) HasCoupon() bool {
	return p.TierValue > 0
}

var fallbackConsolation = Prize{ID: "consolation", Label: "Better luck next time", Weight: 1}

func DefaultPrizes() []Prize {
	return []Prize{
		{ID: "discount-50", Label: "50% off your next trip", Weight: 2, TierValue: 50},
		{ID: "discount-30", Label: "30% off your next trip", Weight: 5, TierValue: 30},
		{ID: "discount-20", Label: "20% off your next trip", Weight: 10, TierValue: 20},
		{ID: "discount-10", Label: "10% off your next trip", Weight: 20, TierValue: 10},
		{ID: "discount-5", Label: "5% off your next trip", Weight: 30, TierValue: 5},
		{ID: "consolation", Label: "Better luck next time", Weight: 33},
	}
}

// LoadPrizes reads a JSON array of prizes from path, or returns the default
// table when path is empty.
func LoadPrizes(path string) ([]Prize, error) {
	if path == "" {
		return DefaultPrizes(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prize table: %w", err)
	}
	var prizes []Prize
	if err := json.Unmarshal(data, &prizes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrizeTable, err)
	}
	if err := ValidatePrizes(prizes); err != nil {
		return nil, err
	}
	return prizes, nil
}

func ValidatePrizes(prizes []Prize) error {
	if len(prizes) == 0 {
		return fmt.Errorf("%w: no prizes", ErrInvalidPrizeTable)
	}
	seen := make(map[string]struct{}, len(prizes))
	for _, p := range prizes {
		if p.ID == "" {
			return fmt.Errorf("%w: prize without id", ErrInvalidPrizeTable)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate prize id %q", ErrInvalidPrizeTable, p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Weight <= 0 {
			return fmt.Errorf("%w: prize %q needs a positive weight", ErrInvalidPrizeTable, p.ID)
		}
		if p.TierValue < 0 {
			return fmt.Errorf("%w: prize %q has a negative tier", ErrInvalidPrizeTable, p.ID)
		}
	}
	return nil
}

// consolationOf returns the first coupon-less prize, or a built-in one.
func consolationOf(prizes []Prize) Prize {
	for _, p := range prizes {
		if !p.HasCoupon() {
			return p
		}
	}
	return fallbackConsolation
}
