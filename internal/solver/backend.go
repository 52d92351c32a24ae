package solver

import "math"

// BranchAndBoundBackend is the reference Backend implementation: a
// depth-first branch-and-bound search over the Big-M simplex LP
// relaxation (simplex.go). It is deliberately the one pluggable piece of
// this package — spec.md §9 names "general LP/MILP algorithm
// implementation" a non-goal, so this exists to make the repo runnable,
// not as the prescribed algorithm (see DESIGN.md and SPEC_FULL.md §3).
type BranchAndBoundBackend struct {
	// MaxNodes bounds how many branch-and-bound nodes are explored. At the
	// limit the search stops and returns the best integer-feasible
	// solution found so far, or no feasible solution if it found none.
	// Zero selects a generous default.
	MaxNodes int
}

const defaultMaxNodes = 20000
const integerFeasTol = 1e-6

type bbNode struct {
	lb, ub []float64
}

// Solve implements Backend.
func (b *BranchAndBoundBackend) Solve(m *Model) (Solution, error) {
	n := len(m.Vars)
	if n == 0 {
		return Solution{Values: nil, Status: StatusOptimal, Objective: 0}, nil
	}

	maxNodes := b.MaxNodes
	if maxNodes <= 0 {
		maxNodes = defaultMaxNodes
	}

	rootLB := make([]float64, n)
	rootUB := make([]float64, n)
	for i, v := range m.Vars {
		rootUB[i] = v.UB
		if v.Kind == Binary {
			rootUB[i] = 1
		}
	}

	stack := []bbNode{{lb: rootLB, ub: rootUB}}

	var bestValues []float64
	bestObj := math.Inf(1)
	haveIncumbent := false

	for nodes := 0; len(stack) > 0 && nodes < maxNodes; nodes++ {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		values, obj, ok := lpRelaxationBounded(n, m.Objective, m.Constraints, node.lb, node.ub)
		if !ok {
			continue
		}
		if haveIncumbent && obj >= bestObj-1e-9 {
			continue // bound: this branch cannot beat the incumbent
		}

		branchVar := -1
		for i := range m.Vars {
			frac := values[i] - math.Floor(values[i])
			if frac > integerFeasTol && frac < 1-integerFeasTol {
				branchVar = i
				break
			}
		}

		if branchVar == -1 {
			// Fully integer-feasible: accept as a candidate incumbent.
			haveIncumbent = true
			bestObj = obj
			bestValues = values
			continue
		}

		floorVal := math.Floor(values[branchVar])
		ceilVal := floorVal + 1

		lbFloor := append([]float64(nil), node.lb...)
		ubFloor := append([]float64(nil), node.ub...)
		ubFloor[branchVar] = floorVal
		if ubFloor[branchVar] >= lbFloor[branchVar] {
			stack = append(stack, bbNode{lb: lbFloor, ub: ubFloor})
		}

		lbCeil := append([]float64(nil), node.lb...)
		ubCeil := append([]float64(nil), node.ub...)
		lbCeil[branchVar] = ceilVal
		if ubCeil[branchVar] >= lbCeil[branchVar] {
			stack = append(stack, bbNode{lb: lbCeil, ub: ubCeil})
		}
	}

	if !haveIncumbent {
		return Solution{}, &ErrUnsolved{Reason: "no integer-feasible solution found within node limit"}
	}

	return Solution{Values: bestValues, Status: StatusOptimal, Objective: bestObj}, nil
}
