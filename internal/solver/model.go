// Package solver implements the layer-scoped ILP formulation and its
// backend contract (spec.md §4.2, §9: "the core depends on an external
// mixed-integer LP backend"; general MILP algorithm implementation is a
// stated non-goal). Backend is the seam a production deployment swaps a
// commercial/HiGHS-backed solver behind; BranchAndBoundBackend is the
// reference implementation shipped here (see DESIGN.md).
package solver

import "fmt"

// Relation is the comparison a linear Constraint enforces.
type Relation int

const (
	LE Relation = iota
	GE
	EQ
)

// VarKind distinguishes the two variable domains the layer solver ever
// needs: binary decision variables and bounded non-negative integers
// (bundle counters).
type VarKind int

const (
	Binary VarKind = iota
	IntegerBounded
)

// Variable describes one decision variable's domain. Every variable has an
// implicit lower bound of zero; Binary variables have an implicit upper
// bound of one, IntegerBounded variables must carry an explicit finite UB.
type Variable struct {
	Kind VarKind
	UB   float64 // upper bound; ignored (fixed at 1) for Binary
}

// Constraint is one linear (in)equality: sum(Coeffs[i] * x_i) Rel RHS.
type Constraint struct {
	Coeffs map[int]float64
	Rel    Relation
	RHS    float64
}

// Model is one layer's complete ILP instance: the objective to minimize,
// every decision variable's domain, and every constraint.
type Model struct {
	Objective   map[int]float64
	Vars        []Variable
	Constraints []Constraint
}

// NewModel returns an empty model ready for variables to be added.
func NewModel() *Model {
	return &Model{Objective: map[int]float64{}}
}

// AddVar appends a variable and returns its index.
func (m *Model) AddVar(v Variable) int {
	m.Vars = append(m.Vars, v)
	return len(m.Vars) - 1
}

// AddBinary appends a binary variable with the given objective coefficient
// and returns its index.
func (m *Model) AddBinary(objCoeff float64) int {
	idx := m.AddVar(Variable{Kind: Binary})
	if objCoeff != 0 {
		m.Objective[idx] = objCoeff
	}
	return idx
}

// AddIntegerBounded appends a bounded integer variable in [0, ub] with the
// given objective coefficient and returns its index.
func (m *Model) AddIntegerBounded(ub float64, objCoeff float64) int {
	idx := m.AddVar(Variable{Kind: IntegerBounded, UB: ub})
	if objCoeff != 0 {
		m.Objective[idx] = objCoeff
	}
	return idx
}

// AddConstraint appends a linear constraint.
func (m *Model) AddConstraint(c Constraint) {
	m.Constraints = append(m.Constraints, c)
}

// Eq is a constructor helper: sum(coeffs) == rhs.
func Eq(coeffs map[int]float64, rhs float64) Constraint {
	return Constraint{Coeffs: coeffs, Rel: EQ, RHS: rhs}
}

// LEq is a constructor helper: sum(coeffs) <= rhs.
func LEq(coeffs map[int]float64, rhs float64) Constraint {
	return Constraint{Coeffs: coeffs, Rel: LE, RHS: rhs}
}

// GEq is a constructor helper: sum(coeffs) >= rhs.
func GEq(coeffs map[int]float64, rhs float64) Constraint {
	return Constraint{Coeffs: coeffs, Rel: GE, RHS: rhs}
}

// Status reports how a Solve call concluded.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
)

// Solution is a Backend's answer: a value per model variable index, plus
// status and the achieved objective. Binary truthiness is decided by the
// caller at the fixed 0.5 threshold (spec.md §4.2).
type Solution struct {
	Values    []float64
	Status    Status
	Objective float64
}

// BinaryThreshold is the fixed threshold absorbing backend float noise
// when deciding whether a binary variable is "on".
const BinaryThreshold = 0.5

// IsOn reports whether the solved value at index idx should be treated as
// a true binary decision.
func (s Solution) IsOn(idx int) bool {
	return idx >= 0 && idx < len(s.Values) && s.Values[idx] > BinaryThreshold
}

// Backend is the opaque, synchronous MILP solver contract the layer solver
// calls. Implementations must not retry internally and must treat the call
// as a single blocking operation (spec.md §5).
type Backend interface {
	Solve(m *Model) (Solution, error)
}

// ErrUnsolved is returned when a Backend cannot find a feasible solution.
type ErrUnsolved struct {
	Reason string
}

func (e *ErrUnsolved) Error() string {
	return fmt.Sprintf("solver: backend found no feasible solution: %s", e.Reason)
}
