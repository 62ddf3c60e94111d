package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ms-booking/internal/ledger"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidBatch  = errors.New("invalid coupon batch")
	ErrDuplicateCode = errors.New("coupon code already exists")
)

type Status string

const (
	StatusNotFound        Status = "not_found"
	StatusAlreadyUsed     Status = "already_used"
	StatusNotYetActivated Status = "not_yet_activated"
	StatusValid           Status = "valid"
)

type Store interface {
	GetCoupon(ctx context.Context, code string) (*models.Coupon, error)
	InsertCoupons(ctx context.Context, coupons []models.Coupon) error
}

// CouponStatus is what a redemption desk sees for a typed code. DiscountValue
// is only set when Status is valid.
type CouponStatus struct {
	Code          string `json:"code"`
	Status        Status `json:"status"`
	DiscountValue int    `json:"discount_value,omitempty"`
}

type provisionRequest struct {
	Coupons []provisionItem `validate:"required,min=1,max=1000,dive"`
}

type provisionItem struct {
	Code          string `validate:"required,max=32,printascii"`
	DiscountValue int    `validate:"min=1,max=100"`
}

type Service struct {
	Store    Store
	Logger   *logger.Logger
	validate *validator.Validate
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{Store: store, Logger: log, validate: validator.New()}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Check reports the redemption status of code. It never writes.
func (s *Service) Check(ctx context.Context, code string) (*CouponStatus, error) {
	code = normalizeCode(code)
	result := &CouponStatus{Code: code}
	if code == "" {
		result.Status = StatusNotFound
		return result, nil
	}

	c, err := s.Store.GetCoupon(ctx, code)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		result.Status = StatusNotFound
		return result, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load coupon %s: %w", code, err)
	}

	switch {
	case c.IsUsed:
		result.Status = StatusAlreadyUsed
	case c.AssignedTo == nil:
		result.Status = StatusNotYetActivated
	default:
		result.Status = StatusValid
		result.DiscountValue = c.DiscountValue
	}
	return result, nil
}

// Provision stores a batch of fresh, unassigned coupons. The batch is written
// all-or-nothing.
func (s *Service) Provision(ctx context.Context, coupons []models.Coupon) (int, error) {
	req := provisionRequest{Coupons: make([]provisionItem, len(coupons))}
	seen := make(map[string]struct{}, len(coupons))
	fresh := make([]models.Coupon, len(coupons))
	for i, c := range coupons {
		code := normalizeCode(c.Code)
		if _, dup := seen[code]; dup {
			return 0, fmt.Errorf("%w: %s appears twice", ErrInvalidBatch, code)
		}
		seen[code] = struct{}{}
		req.Coupons[i] = provisionItem{Code: code, DiscountValue: c.DiscountValue}
		fresh[i] = models.Coupon{Code: code, DiscountValue: c.DiscountValue}
	}
	if err := s.validate.Struct(req); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}

	if err := s.Store.InsertCoupons(ctx, fresh); err != nil {
		if errors.Is(err, ledger.ErrDuplicateCoupon) {
			return 0, ErrDuplicateCode
		}
		return 0, fmt.Errorf("failed to store coupons: %w", err)
	}
	s.Logger.LogDatabase("INSERT", "coupons", fmt.Sprintf("provisioned %d coupons", len(fresh)))
	return len(fresh), nil
}
