package graph

import (
	"math/rand"
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

var candidateTags = []string{"a", "b", "c", "d"}

func randBasket(r *rand.Rand, n int) []item.Item {
	items := make([]item.Item, n)
	for i := range items {
		tagCount := r.Intn(3)
		chosen := make([]string, 0, tagCount)
		for j := 0; j < tagCount; j++ {
			chosen = append(chosen, candidateTags[r.Intn(len(candidateTags))])
		}
		items[i] = item.Item{
			ProductID: item.NewProductID(),
			Price:     money.New(int64(1+r.Intn(5000)), gbp()),
			Tags:      tags.NewSet(chosen...),
		}
	}
	return items
}

func randDirectPromotion(r *rand.Rand) promo.Promotion {
	qualTag := candidateTags[r.Intn(len(candidateTags))]
	percent := decimal.NewFromInt(int64(1 + r.Intn(90)))
	return promo.Promotion{
		Key:     promo.NewKey(),
		Variant: promo.VariantDirectDiscount,
		Direct: &promo.DirectDiscount{
			Qualification: tags.HasAny(qualTag),
			Discount:      discount.Spec{Kind: discount.PercentOff, Percent: percent},
		},
	}
}

// buildRandomGraph constructs one of three topologies rooted at a single
// layer: pass-through only, a two-layer pass-through chain, or a Split node
// fanning into two further pass-through layers, each node carrying 1-2
// random direct-discount promotions. Exercises the "randomise ... graph
// topology" clause of spec.md §8, including Split routing (§4.4).
func buildRandomGraph(r *rand.Rand) (Graph, error) {
	switch r.Intn(3) {
	case 0:
		return buildPassThroughGraph(r, false)
	case 1:
		return buildPassThroughGraph(r, true)
	default:
		return buildSplitGraph(r)
	}
}

func randPromoSet(r *rand.Rand) []promo.Promotion {
	promos := make([]promo.Promotion, 1+r.Intn(2))
	for i := range promos {
		promos[i] = randDirectPromotion(r)
	}
	return promos
}

func buildPassThroughGraph(r *rand.Rand, twoLayers bool) (Graph, error) {
	l1 := NewNodeKey()
	builder := NewBuilder().AddNode(Node{Key: l1, Promotions: randPromoSet(r), Mode: PassThrough})

	if !twoLayers {
		return builder.Build()
	}

	l2 := NewNodeKey()
	return builder.
		AddNode(Node{Key: l2, Promotions: randPromoSet(r), Mode: PassThrough}).
		AddEdge(l1, l2, All).
		Build()
}

// buildSplitGraph roots the graph in a Split node: items the root's
// promotions actually discount take the Participating edge into one
// further pass-through layer, everything else takes NonParticipating into
// another.
func buildSplitGraph(r *rand.Rand) (Graph, error) {
	l1 := NewNodeKey()
	participating := NewNodeKey()
	nonParticipating := NewNodeKey()

	return NewBuilder().
		AddNode(Node{Key: l1, Promotions: randPromoSet(r), Mode: Split}).
		AddNode(Node{Key: participating, Promotions: randPromoSet(r), Mode: PassThrough}).
		AddNode(Node{Key: nonParticipating, Promotions: randPromoSet(r), Mode: PassThrough}).
		AddEdge(l1, participating, Participating).
		AddEdge(l1, nonParticipating, NonParticipating).
		Build()
}

// TestPropertyUniversalInvariants randomises basket size, tag distribution,
// promotion parameters, and graph topology (spec.md §8) and checks every
// universal invariant holds on each run.
func TestPropertyUniversalInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for run := 0; run < 200; run++ {
		n := r.Intn(8)
		items := randBasket(r, n)
		basket, err := item.NewGroup(gbp(), items)
		require.NoError(t, err)

		g, err := buildRandomGraph(r)
		require.NoError(t, err)

		result, err := g.Evaluate(basket, &solver.BranchAndBoundBackend{}, nil)
		require.NoError(t, err)

		// Monotone non-increase.
		assert.True(t, result.Total.Cmp(basket.Subtotal()) <= 0)
		savings, err := basket.Subtotal().Sub(result.Total)
		require.NoError(t, err)
		assert.False(t, savings.IsNegative())

		// Currency closure.
		assert.True(t, result.Total.SameCurrency(basket.Subtotal()))

		// Exactly once: every index is either full-price xor has
		// applications, never both, never neither.
		fullPriceSet := make(map[int]bool, len(result.FullPriceItems))
		for _, idx := range result.FullPriceItems {
			fullPriceSet[idx] = true
		}
		seen := make(map[int]bool, n)
		for i := 0; i < n; i++ {
			_, hasApps := result.ItemApplications[i]
			assert.NotEqual(t, fullPriceSet[i], hasApps, "item %d must be exactly-once accounted", i)
			seen[i] = true
		}
		assert.Len(t, fullPriceSet, len(result.FullPriceItems), "full-price list must be index-unique")

		// Bundle-id uniqueness across every application in the evaluation.
		bundleIDs := make(map[int]bool)
		for _, apps := range result.ItemApplications {
			for _, a := range apps {
				assert.False(t, bundleIDs[a.BundleID], "bundle id %d reused", a.BundleID)
				bundleIDs[a.BundleID] = true
				assert.True(t, a.OriginalPrice.SameCurrency(result.Total))
				assert.True(t, a.FinalPrice.SameCurrency(result.Total))
			}
		}

		// Ordering trail: successive applications on the same item must
		// chain original==previous final, and the first application's
		// original price must equal the basket's entry price.
		for idx, apps := range result.ItemApplications {
			entryPrice, err := basket.At(idx)
			require.NoError(t, err)
			assert.Equal(t, entryPrice.Price.AmountMinor(), apps[0].OriginalPrice.AmountMinor())
			for j := 1; j < len(apps); j++ {
				assert.Equal(t, apps[j-1].FinalPrice.AmountMinor(), apps[j].OriginalPrice.AmountMinor())
			}
		}

		// Total equals the sum of every item's final price.
		total := int64(0)
		for i := 0; i < n; i++ {
			if apps, ok := result.ItemApplications[i]; ok {
				total += apps[len(apps)-1].FinalPrice.AmountMinor()
			} else {
				it, err := basket.At(i)
				require.NoError(t, err)
				total += it.Price.AmountMinor()
			}
		}
		assert.Equal(t, total, result.Total.AmountMinor())
	}
}
