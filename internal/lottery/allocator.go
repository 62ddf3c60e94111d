package lottery

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/metrics"
	"ms-booking/internal/models"
)

var (
	ErrNotAuthenticated = errors.New("sign in to spin")
	ErrNotAllowed       = errors.New("this account is not eligible for the lottery")
)

type Store interface {
	ListAvailableCoupons(ctx context.Context, limit int) ([]models.Coupon, error)
	ReserveCoupon(ctx context.Context, code, holder string) (bool, error)
	AppendLotteryResult(ctx context.Context, result *models.LotteryResult) error
	ListLotteryResults(ctx context.Context, userID string) ([]models.LotteryResult, error)
}

type SpinResult struct {
	Prize      Prize   `json:"prize"`
	CouponCode *string `json:"coupon_code"`
	Demoted    bool    `json:"demoted"`
}

type Allocator struct {
	Store     Store
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	PoolLimit int
	// Rand returns a float in [0, 1).
	Rand func() float64
	Now  func() time.Time

	prizes      []Prize
	consolation Prize
	allowed     map[string]struct{}
}

// NewAllocator copies prizes and the allow-list; neither changes afterwards.
// An empty allow-list admits nobody.
func NewAllocator(store Store, prizes []Prize, allowedUsers []string, log *logger.Logger) (*Allocator, error) {
	if err := ValidatePrizes(prizes); err != nil {
		return nil, err
	}
	allowed := make(map[string]struct{}, len(allowedUsers))
	for _, u := range allowedUsers {
		allowed[u] = struct{}{}
	}
	table := append([]Prize(nil), prizes...)
	return &Allocator{
		Store:       store,
		Logger:      log,
		PoolLimit:   200,
		Rand:        rand.Float64,
		Now:         time.Now,
		prizes:      table,
		consolation: consolationOf(table),
		allowed:     allowed,
	}, nil
}

func (a *Allocator) Prizes() []Prize {
	return append([]Prize(nil), a.prizes...)
}

// Spin draws one prize for userID and tries to reserve a coupon for it.
// Losing a reservation race demotes the result instead of failing.
func (a *Allocator) Spin(ctx context.Context, userID string) (*SpinResult, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	if _, ok := a.allowed[userID]; !ok {
		a.Logger.LogSecurity("LOTTERY", fmt.Sprintf("user %s is not on the allow-list", userID))
		return nil, ErrNotAllowed
	}

	coupons, err := a.Store.ListAvailableCoupons(ctx, a.PoolLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load coupon inventory: %w", err)
	}
	tiers := make(map[int][]models.Coupon)
	for _, c := range coupons {
		tiers[c.DiscountValue] = append(tiers[c.DiscountValue], c)
	}

	prize := a.draw(a.pool(tiers))
	result := &SpinResult{Prize: prize}

	if prize.HasCoupon() {
		code, ok := a.reserve(ctx, userID, prize, tiers[prize.TierValue])
		if ok {
			result.CouponCode = &code
		} else {
			result.Prize = a.consolation
			result.Demoted = true
		}
	}

	audit := &models.LotteryResult{
		UserID:     userID,
		PrizeID:    result.Prize.ID,
		CouponCode: result.CouponCode,
		CreatedAt:  a.Now().UTC(),
	}
	if err := a.Store.AppendLotteryResult(ctx, audit); err != nil {
		a.Logger.Error("LOTTERY", fmt.Sprintf("audit row for %s (%s) not written: %v", userID, result.Prize.ID, err))
	}

	a.Metrics.LotterySpin(result.Prize.ID, result.Demoted)
	a.Logger.Info("LOTTERY", fmt.Sprintf("user %s won %s (demoted=%t)", userID, result.Prize.ID, result.Demoted))
	return result, nil
}

// pool keeps coupon-less prizes and prizes whose tier still has inventory.
func (a *Allocator) pool(tiers map[int][]models.Coupon) []Prize {
	pool := make([]Prize, 0, len(a.prizes))
	for _, p := range a.prizes {
		if !p.HasCoupon() || len(tiers[p.TierValue]) > 0 {
			pool = append(pool, p)
		}
	}
	if len(pool) == 0 {
		pool = append(pool, a.consolation)
	}
	return pool
}

// draw is a roulette-wheel selection over the pool weights.
func (a *Allocator) draw(pool []Prize) Prize {
	var total float64
	for _, p := range pool {
		total += p.Weight
	}
	r := a.Rand() * total
	var cumulative float64
	for _, p := range pool {
		cumulative += p.Weight
		if r < cumulative {
			return p
		}
	}
	return pool[len(pool)-1]
}

func (a *Allocator) reserve(ctx context.Context, userID string, prize Prize, candidates []models.Coupon) (string, bool) {
	if len(candidates) == 0 {
		a.Logger.Warn("LOTTERY", fmt.Sprintf("tier %d emptied before %s could reserve", prize.TierValue, userID))
		return "", false
	}
	idx := int(a.Rand() * float64(len(candidates)))
	if idx >= len(candidates) {
		idx = len(candidates) - 1
	}
	code := candidates[idx].Code

	ok, err := a.Store.ReserveCoupon(ctx, code, userID)
	if err != nil {
		a.Logger.Error("LOTTERY", fmt.Sprintf("reserving %s for %s failed: %v", code, userID, err))
		return "", false
	}
	if !ok {
		a.Logger.Warn("LOTTERY", fmt.Sprintf("coupon %s taken concurrently, %s demoted", code, userID))
		return "", false
	}
	return code, true
}

// History lists the audit rows of one user, or all users when userID is empty.
func (a *Allocator) History(ctx context.Context, userID string) ([]models.LotteryResult, error) {
	return a.Store.ListLotteryResults(ctx, userID)
}
