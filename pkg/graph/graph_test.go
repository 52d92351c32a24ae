package graph

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masumrpg/promotion-engine/internal/solver"
	"github.com/masumrpg/promotion-engine/pkg/discount"
	"github.com/masumrpg/promotion-engine/pkg/item"
	"github.com/masumrpg/promotion-engine/pkg/money"
	"github.com/masumrpg/promotion-engine/pkg/promo"
	"github.com/masumrpg/promotion-engine/pkg/tags"
)

func gbp() *money.Currency { return money.MustCurrency("GBP") }

// TestTwoLayerPassThroughChain is spec.md §8 scenario 6: L1 (50% off food)
// PassThrough -> L2 (10% off everything).
func TestTwoLayerPassThroughChain(t *testing.T) {
	l1 := NewNodeKey()
	l2 := NewNodeKey()

	foodDiscount := promo.Promotion{
		Key:     promo.NewKey(),
		Variant: promo.VariantDirectDiscount,
		Direct: &promo.DirectDiscount{
			Qualification: tags.HasAny("food"),
			Discount:      discount.Spec{Kind: discount.PercentOff, Percent: decimal.NewFromInt(50)},
		},
	}
	tenPercentOff := promo.Promotion{
		Key:     promo.NewKey(),
		Variant: promo.VariantDirectDiscount,
		Direct: &promo.DirectDiscount{
			Qualification: tags.Qualification{},
			Discount:      discount.Spec{Kind: discount.PercentOff, Percent: decimal.NewFromInt(10)},
		},
	}

	g, err := NewBuilder().
		AddNode(Node{Key: l1, Promotions: []promo.Promotion{foodDiscount}, Mode: PassThrough}).
		AddNode(Node{Key: l2, Promotions: []promo.Promotion{tenPercentOff}, Mode: PassThrough}).
		AddEdge(l1, l2, All).
		Build()
	require.NoError(t, err)

	items := []item.Item{
		{Price: money.New(1000, gbp()), Tags: tags.NewSet("food")},
		{Price: money.New(500, gbp()), Tags: tags.NewSet("drink")},
		{Price: money.New(300, gbp()), Tags: tags.NewSet("food", "snack")},
	}
	basket, err := item.NewGroup(gbp(), items)
	require.NoError(t, err)

	result, err := g.Evaluate(basket, &solver.BranchAndBoundBackend{}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1035), result.Total.AmountMinor())
	assert.Len(t, result.ItemApplications[0], 2)
	assert.Len(t, result.ItemApplications[1], 1)
	assert.Len(t, result.ItemApplications[2], 2)
}

// TestSplitRoutingByParticipation exercises a Split node: items the root
// promotion actually discounts take the Participating edge into a further
// discount layer, items it leaves untouched take the NonParticipating edge
// into a leaf with no promotions of its own and surface in FullPriceItems
// (spec.md §4.4 Split routing, §8 "no promotions on a node -> full-price").
func TestSplitRoutingByParticipation(t *testing.T) {
	l1 := NewNodeKey()
	l2 := NewNodeKey()
	l3 := NewNodeKey()

	foodDiscount := promo.Promotion{
		Key:     promo.NewKey(),
		Variant: promo.VariantDirectDiscount,
		Direct: &promo.DirectDiscount{
			Qualification: tags.HasAny("food"),
			Discount:      discount.Spec{Kind: discount.PercentOff, Percent: decimal.NewFromInt(50)},
		},
	}
	tenPercentOff := promo.Promotion{
		Key:     promo.NewKey(),
		Variant: promo.VariantDirectDiscount,
		Direct: &promo.DirectDiscount{
			Qualification: tags.Qualification{},
			Discount:      discount.Spec{Kind: discount.PercentOff, Percent: decimal.NewFromInt(10)},
		},
	}

	g, err := NewBuilder().
		AddNode(Node{Key: l1, Promotions: []promo.Promotion{foodDiscount}, Mode: Split}).
		AddNode(Node{Key: l2, Promotions: []promo.Promotion{tenPercentOff}, Mode: PassThrough}).
		AddNode(Node{Key: l3, Mode: PassThrough}).
		AddEdge(l1, l2, Participating).
		AddEdge(l1, l3, NonParticipating).
		Build()
	require.NoError(t, err)

	items := []item.Item{
		{Price: money.New(1000, gbp()), Tags: tags.NewSet("food")},
		{Price: money.New(500, gbp()), Tags: tags.NewSet("drink")},
	}
	basket, err := item.NewGroup(gbp(), items)
	require.NoError(t, err)

	result, err := g.Evaluate(basket, &solver.BranchAndBoundBackend{}, nil)
	require.NoError(t, err)

	// Item 0 matched the root promotion, routed to L2, and picked up a
	// second application there: 1000 -> 500 (50% off) -> 450 (10% off).
	assert.Len(t, result.ItemApplications[0], 2)
	assert.Equal(t, int64(450), result.ItemApplications[0][1].FinalPrice.AmountMinor())

	// Item 1 never matched anything on either node, so it must surface as
	// full-price rather than carrying an empty applications entry.
	assert.Equal(t, []int{1}, result.FullPriceItems)
	assert.NotContains(t, result.ItemApplications, 1)
	assert.Equal(t, int64(950), result.Total.AmountMinor())
}

func TestBuilderRejectsCycle(t *testing.T) {
	a := NewNodeKey()
	b := NewNodeKey()

	_, err := NewBuilder().
		AddNode(Node{Key: a, Mode: PassThrough}).
		AddNode(Node{Key: b, Mode: PassThrough}).
		AddEdge(a, b, All).
		AddEdge(b, a, All).
		Build()
	require.Error(t, err)
}

func TestBuilderRejectsDuplicatePromotionOnPath(t *testing.T) {
	key := promo.NewKey()
	p := promo.Promotion{Key: key, Variant: promo.VariantDirectDiscount, Direct: &promo.DirectDiscount{Qualification: tags.Qualification{}, Discount: discount.Spec{Kind: discount.PercentOff, Percent: decimal.NewFromInt(1)}}}

	a := NewNodeKey()
	b := NewNodeKey()

	_, err := NewBuilder().
		AddNode(Node{Key: a, Promotions: []promo.Promotion{p}, Mode: PassThrough}).
		AddNode(Node{Key: b, Promotions: []promo.Promotion{p}, Mode: PassThrough}).
		AddEdge(a, b, All).
		Build()
	require.Error(t, err)
}

func TestBuilderRejectsSplitEdgeMismatch(t *testing.T) {
	a := NewNodeKey()
	b := NewNodeKey()

	_, err := NewBuilder().
		AddNode(Node{Key: a, Mode: Split}).
		AddNode(Node{Key: b, Mode: PassThrough}).
		AddEdge(a, b, All).
		Build()
	require.Error(t, err)
}

func TestEmptyBasketProducesZeroTotal(t *testing.T) {
	root := NewNodeKey()
	g, err := NewBuilder().AddNode(Node{Key: root, Mode: PassThrough}).Build()
	require.NoError(t, err)

	basket, err := item.NewGroup(gbp(), nil)
	require.NoError(t, err)

	result, err := g.Evaluate(basket, &solver.BranchAndBoundBackend{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Total.AmountMinor())
	assert.Empty(t, result.ItemApplications)
	assert.Empty(t, result.FullPriceItems)
}
