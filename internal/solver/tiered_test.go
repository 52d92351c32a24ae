package solver

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masumrpg/promotion-engine/pkg/item"
	"github.com/masumrpg/promotion-engine/pkg/money"
	"github.com/masumrpg/promotion-engine/pkg/promo"
	"github.com/masumrpg/promotion-engine/pkg/tags"
)

func sportsTier(monetaryMin int64) promo.TieredThreshold {
	return promo.TieredThreshold{
		Tiers: []promo.Tier{
			{
				MonetaryMin:               &monetaryMin,
				ContributionQualification: tags.HasAny("sports"),
				DiscountQualification:     tags.HasAny("sports"),
				Mode:                      promo.ModePercentEach,
				Percent:                   decimal.NewFromInt(20),
			},
		},
	}
}

// TestTieredThresholdActivatesAboveMonetaryMin is spec.md §8 scenario 5
// (tier active branch).
func TestTieredThresholdActivatesAboveMonetaryMin(t *testing.T) {
	items := []item.Item{
		{Price: money.New(3000, gbp()), Tags: tags.NewSet("sports")},
		{Price: money.New(2000, gbp()), Tags: tags.NewSet("sports")},
		{Price: money.New(1500, gbp()), Tags: tags.NewSet("sports")},
	}
	group := mustGroup(t, items)

	p := promo.Promotion{Key: promo.NewKey(), Variant: promo.VariantTieredThreshold, Tiered: func() *promo.TieredThreshold { r := sportsTier(5000); return &r }()}

	solver := NewLayerSolver(&BranchAndBoundBackend{})
	counter := 0
	result, err := solver.Solve(group, []promo.Promotion{p}, nil, &counter)
	require.NoError(t, err)

	total := int64(0)
	for _, a := range result.Applications {
		total += a.FinalPrice.AmountMinor()
	}
	assert.Equal(t, int64(5200), total)
}

// TestTieredThresholdStaysInactiveBelowMonetaryMin is spec.md §8 scenario 5
// (tier inactive branch).
func TestTieredThresholdStaysInactiveBelowMonetaryMin(t *testing.T) {
	items := []item.Item{
		{Price: money.New(2000, gbp()), Tags: tags.NewSet("sports")},
		{Price: money.New(1500, gbp()), Tags: tags.NewSet("sports")},
		{Price: money.New(1000, gbp()), Tags: tags.NewSet("sports")},
	}
	group := mustGroup(t, items)

	p := promo.Promotion{Key: promo.NewKey(), Variant: promo.VariantTieredThreshold, Tiered: func() *promo.TieredThreshold { r := sportsTier(5000); return &r }()}

	solver := NewLayerSolver(&BranchAndBoundBackend{})
	counter := 0
	result, err := solver.Solve(group, []promo.Promotion{p}, nil, &counter)
	require.NoError(t, err)

	for _, a := range result.Applications {
		assert.NotEqual(t, p.Key, a.PromotionKey)
	}
	assert.Equal(t, int64(4500), layerTotal(t, group, result))
	assert.Equal(t, []int{0, 1, 2}, result.Unaffected)
}
