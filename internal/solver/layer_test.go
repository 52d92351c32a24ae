package solver

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masumrpg/promotion-engine/pkg/discount"
	"github.com/masumrpg/promotion-engine/pkg/item"
	"github.com/masumrpg/promotion-engine/pkg/money"
	"github.com/masumrpg/promotion-engine/pkg/promo"
	"github.com/masumrpg/promotion-engine/pkg/tags"
)

func gbp() *money.Currency { return money.MustCurrency("GBP") }

func mustGroup(t *testing.T, items []item.Item) item.Group {
	t.Helper()
	g, err := item.NewGroup(gbp(), items)
	require.NoError(t, err)
	return g
}

// TestLayerSolverDirect25PercentOffTagA is spec.md §8 scenario 1.
func TestLayerSolverDirect25PercentOffTagA(t *testing.T) {
	items := []item.Item{
		{Price: money.New(100, gbp()), Tags: tags.NewSet("a")},
		{Price: money.New(200, gbp()), Tags: tags.NewSet("b")},
		{Price: money.New(300, gbp()), Tags: tags.NewSet("a", "b")},
	}
	group := mustGroup(t, items)

	p := promo.Promotion{
		Key:     promo.NewKey(),
		Variant: promo.VariantDirectDiscount,
		Direct: &promo.DirectDiscount{
			Qualification: tags.HasAny("a"),
			Discount:      discount.Spec{Kind: discount.PercentOff, Percent: decimal.NewFromInt(25)},
		},
	}

	solver := NewLayerSolver(&BranchAndBoundBackend{})
	counter := 0
	result, err := solver.Solve(group, []promo.Promotion{p}, nil, &counter)
	require.NoError(t, err)

	total := layerTotal(t, group, result)
	touched := map[int]bool{}
	for _, a := range result.Applications {
		if a.PromotionKey == p.Key {
			touched[a.ItemIndex] = true
		}
	}
	assert.Equal(t, int64(500), total)
	assert.True(t, touched[0])
	assert.True(t, touched[2])
	assert.False(t, touched[1])
	assert.Equal(t, []int{1}, result.Unaffected)
}

// TestLayerSolverMixMatchFixedTotalBundle is spec.md §8 scenario 3 (meal
// deal).
func TestLayerSolverMixMatchFixedTotalBundle(t *testing.T) {
	items := []item.Item{
		{Price: money.New(400, gbp()), Tags: tags.NewSet("main", "hot")},
		{Price: money.New(150, gbp()), Tags: tags.NewSet("drink", "cold")},
		{Price: money.New(120, gbp()), Tags: tags.NewSet("snack")},
	}
	group := mustGroup(t, items)

	maxOne := 1
	p := promo.Promotion{
		Key:     promo.NewKey(),
		Variant: promo.VariantMixAndMatch,
		MixAndMatch: &promo.MixAndMatch{
			Slots: []promo.Slot{
				{Tags: tags.HasAny("main"), Min: 1, Max: &maxOne},
				{Tags: tags.HasAny("drink"), Min: 1, Max: &maxOne},
				{Tags: tags.HasAny("snack"), Min: 1, Max: &maxOne},
			},
			Mode:   promo.ModeFixedTotalBundle,
			Amount: 380,
		},
	}

	solver := NewLayerSolver(&BranchAndBoundBackend{})
	counter := 0
	result, err := solver.Solve(group, []promo.Promotion{p}, nil, &counter)
	require.NoError(t, err)

	total := layerTotal(t, group, result)
	bundleIDs := map[int]bool{}
	for _, a := range result.Applications {
		bundleIDs[a.BundleID] = true
	}
	assert.Equal(t, int64(380), total)
	assert.Len(t, bundleIDs, 1)
	assert.Empty(t, result.Unaffected)
}

// TestLayerSolverOverrideRejectedWhenWorseThanFullPrice is spec.md §8
// scenario 2's second half: an override above the natural total is never
// taken.
func TestLayerSolverOverrideRejectedWhenWorseThanFullPrice(t *testing.T) {
	items := []item.Item{
		{Price: money.New(100, gbp()), Tags: tags.NewSet("empty")},
		{Price: money.New(200, gbp()), Tags: tags.NewSet("empty")},
		{Price: money.New(300, gbp()), Tags: tags.NewSet("empty")},
	}
	group := mustGroup(t, items)

	maxThree := 3
	p := promo.Promotion{
		Key:     promo.NewKey(),
		Variant: promo.VariantMixAndMatch,
		MixAndMatch: &promo.MixAndMatch{
			Slots: []promo.Slot{
				{Tags: tags.Qualification{}, Min: 3, Max: &maxThree},
			},
			Mode:   promo.ModeFixedTotalBundle,
			Amount: 700,
		},
	}

	solver := NewLayerSolver(&BranchAndBoundBackend{})
	counter := 0
	result, err := solver.Solve(group, []promo.Promotion{p}, nil, &counter)
	require.NoError(t, err)

	total := layerTotal(t, group, result)
	for _, a := range result.Applications {
		assert.NotEqual(t, p.Key, a.PromotionKey)
	}
	assert.Equal(t, int64(600), total)
	assert.Empty(t, result.Applications)
	assert.Equal(t, []int{0, 1, 2}, result.Unaffected)
}

// layerTotal sums a LayerResult's real applications' final prices plus the
// full price of every unaffected item — the layer no longer fabricates
// full-price applications, so callers combine both channels themselves.
func layerTotal(t *testing.T, group item.Group, result LayerResult) int64 {
	t.Helper()
	total := int64(0)
	for _, a := range result.Applications {
		total += a.FinalPrice.AmountMinor()
	}
	for _, idx := range result.Unaffected {
		it, err := group.At(idx)
		require.NoError(t, err)
		total += it.Price.AmountMinor()
	}
	return total
}
