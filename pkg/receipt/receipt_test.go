package receipt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masumrpg/promotion-engine/internal/solver"
	"github.com/masumrpg/promotion-engine/pkg/graph"
	"github.com/masumrpg/promotion-engine/pkg/item"
	"github.com/masumrpg/promotion-engine/pkg/money"
	"github.com/masumrpg/promotion-engine/pkg/tags"
)

func gbp() *money.Currency { return money.MustCurrency("GBP") }

func TestBuildAggregatesSubtotalTotalAndSavings(t *testing.T) {
	items := []item.Item{
		{Price: money.New(100, gbp()), Tags: tags.NewSet("a")},
		{Price: money.New(200, gbp()), Tags: tags.NewSet("b")},
	}
	basket, err := item.NewGroup(gbp(), items)
	require.NoError(t, err)

	result := graph.LayeredSolverResult{
		Total: money.New(250, gbp()),
		ItemApplications: map[int][]solver.PromotionApplication{
			0: {{ItemIndex: 0, BundleID: 0, OriginalPrice: money.New(100, gbp()), FinalPrice: money.New(50, gbp())}},
		},
		FullPriceItems: []int{1},
	}

	r, err := Build(basket, result)
	require.NoError(t, err)

	assert.Equal(t, int64(300), r.Subtotal.AmountMinor())
	assert.Equal(t, int64(250), r.Total.AmountMinor())
	assert.Equal(t, int64(50), r.Savings.AmountMinor())
	assert.Equal(t, []int{1}, r.FullPriceItems)
	assert.Len(t, r.ItemApplications, 1)
}

func TestBuildRejectsCurrencyMismatch(t *testing.T) {
	basket, err := item.NewGroup(gbp(), []item.Item{{Price: money.New(100, gbp()), Tags: tags.NewSet()}})
	require.NoError(t, err)

	usd := money.MustCurrency("USD")
	result := graph.LayeredSolverResult{Total: money.New(100, usd)}

	_, err = Build(basket, result)
	require.Error(t, err)
}
