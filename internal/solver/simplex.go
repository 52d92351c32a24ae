package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// lpRelaxationBounded solves the continuous relaxation of an ILP model
// under the given per-variable [lb, ub] bounds (branch-and-bound tightens
// these per node) using a dense Big-M simplex tableau. The tableau itself
// is held in a gonum/mat.Dense matrix, the same substrate aristath/
// sentinel's portfolio optimizer uses for numerical linear algebra,
// generalized here from continuous portfolio weights to a bounded-variable
// LP relaxation.
//
// Variables are shifted to x' = x - lb so the underlying simplex, which
// assumes every variable starts at zero, can be reused unchanged; bounds
// and the objective/RHS constants are un-shifted on the way out.
//
// Returns the (unshifted) variable values, the (unshifted) objective
// value, and whether a feasible solution was found.
func lpRelaxationBounded(n int, objective map[int]float64, constraints []Constraint, lb, ub []float64) ([]float64, float64, bool) {
	rows := make([]Constraint, 0, len(constraints)+n)
	for _, c := range constraints {
		shiftedRHS := c.RHS
		for k, v := range c.Coeffs {
			shiftedRHS -= v * lb[k]
		}
		rows = append(rows, Constraint{Coeffs: c.Coeffs, Rel: c.Rel, RHS: shiftedRHS})
	}
	for i := 0; i < n; i++ {
		rows = append(rows, LEq(map[int]float64{i: 1}, ub[i]-lb[i]))
	}

	shiftedValues, shiftedObj, ok := runBigMSimplex(n, objective, rows)
	if !ok {
		return nil, 0, false
	}

	values := make([]float64, n)
	objVal := shiftedObj
	for i := 0; i < n; i++ {
		values[i] = shiftedValues[i] + lb[i]
	}
	for j, c := range objective {
		objVal += c * lb[j]
	}
	return values, objVal, true
}

// runBigMSimplex implements the classic Big-M simplex method: every
// constraint gets a slack/surplus variable per its relation, and equality
// / >= constraints additionally get an artificial variable penalized by a
// large constant M in the objective, guaranteeing artificials leave the
// basis whenever a truly feasible solution exists.
func runBigMSimplex(n int, objective map[int]float64, rows []Constraint) ([]float64, float64, bool) {
	m := len(rows)
	if m == 0 {
		// No rows at all: only possible when n == 0, because
		// lpRelaxationBounded adds one bound row per variable.
		return make([]float64, n), 0, true
	}

	// Normalize RHS to be non-negative by flipping the relation and sign.
	norm := make([]Constraint, m)
	for i, r := range rows {
		if r.RHS < 0 {
			flipped := map[int]float64{}
			for k, v := range r.Coeffs {
				flipped[k] = -v
			}
			rel := r.Rel
			switch rel {
			case LE:
				rel = GE
			case GE:
				rel = LE
			}
			norm[i] = Constraint{Coeffs: flipped, Rel: rel, RHS: -r.RHS}
		} else {
			norm[i] = r
		}
	}

	// Count extra columns: one slack/surplus per row, one artificial per
	// GE/EQ row.
	numArtificial := 0
	for _, r := range norm {
		if r.Rel != LE {
			numArtificial++
		}
	}
	totalCols := n + m + numArtificial // structural + slack/surplus + artificial
	artificialStart := n + m

	tableau := mat.NewDense(m+1, totalCols+1, nil)

	bigM := 1.0
	for _, c := range objective {
		if math.Abs(c) > bigM {
			bigM = math.Abs(c)
		}
	}
	bigM = bigM*1e6 + 1e6

	basis := make([]int, m)
	artIdx := artificialStart
	for i, r := range norm {
		for k, v := range r.Coeffs {
			tableau.Set(i, k, v)
		}
		switch r.Rel {
		case LE:
			slackCol := n + i
			tableau.Set(i, slackCol, 1)
			basis[i] = slackCol
		case GE:
			surplusCol := n + i
			tableau.Set(i, surplusCol, -1)
			tableau.Set(i, artIdx, 1)
			basis[i] = artIdx
			artIdx++
		case EQ:
			tableau.Set(i, artIdx, 1)
			basis[i] = artIdx
			artIdx++
		}
		tableau.Set(i, totalCols, r.RHS)
	}

	// Objective row (row m): minimize c^T x + M * sum(artificials). Once
	// the basic artificials are priced out below it holds the reduced
	// costs; any column with a negative entry may enter the basis, and
	// Bland's rule picks which.
	for j := 0; j < n; j++ {
		tableau.Set(m, j, objective[j])
	}
	for j := artificialStart; j < totalCols; j++ {
		tableau.Set(m, j, bigM)
	}
	// Price out the artificial columns already in the basis so the
	// objective row reflects reduced costs relative to the current basis.
	for i, b := range basis {
		if b >= artificialStart {
			rowCoeff := tableau.At(m, b)
			if rowCoeff != 0 {
				for j := 0; j <= totalCols; j++ {
					tableau.Set(m, j, tableau.At(m, j)-rowCoeff*tableau.At(i, j))
				}
			}
		}
	}

	const maxIterations = 5000
	for iter := 0; iter < maxIterations; iter++ {
		// Bland's rule: pick the smallest-index column with a negative
		// reduced cost, to guarantee termination without cycling.
		pivotCol := -1
		for j := 0; j < totalCols; j++ {
			if tableau.At(m, j) < -1e-9 {
				pivotCol = j
				break
			}
		}
		if pivotCol == -1 {
			break // optimal
		}

		pivotRow := -1
		bestRatio := math.Inf(1)
		for i := 0; i < m; i++ {
			a := tableau.At(i, pivotCol)
			if a > 1e-9 {
				ratio := tableau.At(i, totalCols) / a
				if ratio < bestRatio-1e-12 || (ratio < bestRatio+1e-12 && (pivotRow == -1 || basis[i] < basis[pivotRow])) {
					bestRatio = ratio
					pivotRow = i
				}
			}
		}
		if pivotRow == -1 {
			return nil, 0, false // unbounded; cannot happen with finite UBs but guard anyway
		}

		pivotVal := tableau.At(pivotRow, pivotCol)
		for j := 0; j <= totalCols; j++ {
			tableau.Set(pivotRow, j, tableau.At(pivotRow, j)/pivotVal)
		}
		for i := 0; i <= m; i++ {
			if i == pivotRow {
				continue
			}
			factor := tableau.At(i, pivotCol)
			if factor == 0 {
				continue
			}
			for j := 0; j <= totalCols; j++ {
				tableau.Set(i, j, tableau.At(i, j)-factor*tableau.At(pivotRow, j))
			}
		}
		basis[pivotRow] = pivotCol
	}

	// Infeasible if any artificial variable remains in the basis at a
	// positive value.
	values := make([]float64, n)
	for i, b := range basis {
		if b >= artificialStart && tableau.At(i, totalCols) > 1e-7 {
			return nil, 0, false
		}
		if b < n {
			values[b] = tableau.At(i, totalCols)
		}
	}

	objVal := 0.0
	for j, c := range objective {
		objVal += c * values[j]
	}
	return values, objVal, true
}
