package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBranchAndBoundKnapsackLike exercises the backend against the
// classic "choose binary items to minimize cost subject to an exclusivity
// constraint" shape that every layer solve reduces to: three items each
// choosing between a full-price presence variable and a single cheaper
// promotion variable, exactly one of which must be selected per item.
func TestBranchAndBoundKnapsackLike(t *testing.T) {
	m := NewModel()
	// item 0: full price 100 vs promo price 75
	z0 := m.AddBinary(100)
	y0 := m.AddBinary(75)
	// item 1: full price 200, no promo variable (must stay full price)
	z1 := m.AddBinary(200)
	// item 2: full price 300 vs promo price 225
	z2 := m.AddBinary(300)
	y2 := m.AddBinary(225)

	m.AddConstraint(Eq(map[int]float64{z0: 1, y0: 1}, 1))
	m.AddConstraint(Eq(map[int]float64{z1: 1}, 1))
	m.AddConstraint(Eq(map[int]float64{z2: 1, y2: 1}, 1))

	backend := &BranchAndBoundBackend{}
	sol, err := backend.Solve(m)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 500.0, sol.Objective, 1e-6) // 75 + 200 + 225
	assert.True(t, sol.IsOn(y0))
	assert.True(t, sol.IsOn(z1))
	assert.True(t, sol.IsOn(y2))
	assert.False(t, sol.IsOn(z0))
	assert.False(t, sol.IsOn(z2))
}

func TestBranchAndBoundIntegerCounter(t *testing.T) {
	// A bundle counter Y in [0,3] paired with a per-bundle saving: the
	// solver should push Y to its upper bound since every unit reduces
	// the objective.
	m := NewModel()
	y := m.AddIntegerBounded(3, -10)
	m.AddConstraint(LEq(map[int]float64{y: 1}, 3))

	backend := &BranchAndBoundBackend{}
	sol, err := backend.Solve(m)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, sol.Values[y], 1e-6)
	assert.InDelta(t, -30.0, sol.Objective, 1e-6)
}

func TestBranchAndBoundInfeasible(t *testing.T) {
	m := NewModel()
	z := m.AddBinary(1)
	// Contradiction: z = 1 and z = 0 simultaneously.
	m.AddConstraint(Eq(map[int]float64{z: 1}, 1))
	m.AddConstraint(Eq(map[int]float64{z: 1}, 0))

	backend := &BranchAndBoundBackend{}
	_, err := backend.Solve(m)
	require.Error(t, err)
}
