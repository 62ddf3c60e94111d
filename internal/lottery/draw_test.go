package lottery

import (
	"math"
	"math/rand/v2"
	"testing"

	"ms-booking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawConvergesToWeights(t *testing.T) {
	prizes := []Prize{
		{ID: "a", Weight: 1, TierValue: 50},
		{ID: "b", Weight: 3, TierValue: 10},
		{ID: "c", Weight: 6},
	}
	a, err := NewAllocator(nil, prizes, nil, nil)
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(1, 2))
	a.Rand = rng.Float64

	const n = 200000
	counts := map[string]int{}
	for i := 0; i < n; i++ {
		counts[a.draw(prizes).ID]++
	}

	for _, p := range prizes {
		want := p.Weight / 10
		got := float64(counts[p.ID]) / n
		assert.LessOrEqual(t, math.Abs(got-want), 0.01, "prize %s: got %.4f want %.4f", p.ID, got, want)
	}
}

func TestPoolDropsTiersWithoutInventory(t *testing.T) {
	a, err := NewAllocator(nil, DefaultPrizes(), nil, nil)
	require.NoError(t, err)

	pool := a.pool(nil)
	require.Len(t, pool, 1)
	assert.Equal(t, "consolation", pool[0].ID)

	pool = a.pool(map[int][]models.Coupon{10: {{Code: "X", DiscountValue: 10}}})
	ids := make([]string, 0, len(pool))
	for _, p := range pool {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"discount-10", "consolation"}, ids)
}
