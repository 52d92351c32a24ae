package fixture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masumrpg/promotion-engine/internal/solver"
)

const directYAML = `
currency: GBP
items:
  - price: 100
    tags: [a]
  - price: 200
    tags: [b]
  - price: 300
    tags: [a, b]
layers:
  - name: main
    mode: pass_through
    promotions:
      - type: direct_discount
        qualification:
          has_any: [a]
        discount:
          kind: percent_off
          percent: 25
edges: []
`

// TestParseDirectDiscountFixtureEvaluates mirrors spec.md §8 scenario 1,
// exercised end-to-end through the YAML loader.
func TestParseDirectDiscountFixtureEvaluates(t *testing.T) {
	fx, err := Parse([]byte(directYAML))
	require.NoError(t, err)
	require.Equal(t, 3, fx.Basket.Len())

	result, err := fx.Graph.Evaluate(fx.Basket, &solver.BranchAndBoundBackend{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(500), result.Total.AmountMinor())
}

func TestParseRejectsUnknownCurrency(t *testing.T) {
	_, err := Parse([]byte("currency: ZZZ\nitems: []\nlayers:\n  - name: main\n    mode: pass_through\n"))
	assert.Error(t, err)
}

func TestParseRejectsMissingLayers(t *testing.T) {
	_, err := Parse([]byte("currency: GBP\nitems: []\n"))
	assert.Error(t, err)
}

func TestParseRejectsUnknownPromotionType(t *testing.T) {
	yaml := `
currency: GBP
items:
  - price: 100
    tags: []
layers:
  - name: main
    mode: pass_through
    promotions:
      - type: mystery_promotion
`
	_, err := Parse([]byte(yaml))
	assert.Error(t, err)
}

const twoLayerYAML = `
currency: GBP
items:
  - price: 1000
    tags: [food]
  - price: 500
    tags: [drink]
  - price: 300
    tags: [food, snack]
layers:
  - name: l1
    mode: pass_through
    promotions:
      - type: direct_discount
        qualification:
          has_any: [food]
        discount:
          kind: percent_off
          percent: 50
  - name: l2
    mode: pass_through
    promotions:
      - type: direct_discount
        discount:
          kind: percent_off
          percent: 10
edges:
  - from: l1
    to: l2
    label: all
`

// TestParseTwoLayerGraphFixtureEvaluates mirrors spec.md §8 scenario 6.
func TestParseTwoLayerGraphFixtureEvaluates(t *testing.T) {
	fx, err := Parse([]byte(twoLayerYAML))
	require.NoError(t, err)

	result, err := fx.Graph.Evaluate(fx.Basket, &solver.BranchAndBoundBackend{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1035), result.Total.AmountMinor())
}
