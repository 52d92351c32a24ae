package solver

import (
	"github.com/masumrpg/promotion-engine/pkg/errs"
	"github.com/masumrpg/promotion-engine/pkg/item"
	"github.com/masumrpg/promotion-engine/pkg/promo"
)

// LayerSolver builds and solves one layer's ILP instance: every applicable
// promotion contributes its own variables and constraints, a single
// exclusivity constraint per item ties them together (spec.md §4.2: "each
// item belongs to exactly one bundle"), and Backend.Solve is the one
// blocking call into the pluggable optimizer.
type LayerSolver struct {
	Backend Backend
}

// NewLayerSolver returns a LayerSolver using backend. With a nil backend,
// Solve returns an InvariantViolation error rather than silently falling
// back to one — callers must choose their backend explicitly.
func NewLayerSolver(backend Backend) *LayerSolver {
	return &LayerSolver{Backend: backend}
}

// LayerResult is one layer's resolved outcome: every real application a
// promotion made, plus Unaffected — the indices no promotion claimed, kept
// as a separate channel rather than fabricated applications (spec.md §4.2
// steps 4-5, §8: "a promotion whose qualification matches nothing
// contributes no applications").
type LayerResult struct {
	Applications []PromotionApplication
	Unaffected   []int
	Objective    float64
}

// Solve runs one layer: group is the items entering the layer, promotions
// is every promotion competing within it (already filtered to this layer's
// membership by the caller), and bundleCounter is the evaluation-wide
// monotonic bundle id source (spec.md §3: bundle ids are unique across the
// whole evaluation, not just this layer).
func (l *LayerSolver) Solve(group item.Group, promotions []promo.Promotion, obs Observer, bundleCounter *int) (LayerResult, error) {
	if obs == nil {
		obs = NoopObserver{}
	}
	if l.Backend == nil {
		return LayerResult{}, errs.New(errs.InvariantViolation, "layer solver: nil backend")
	}

	model := NewModel()
	items := group.Items()

	presence := make([]int, len(items))
	for i, it := range items {
		coeff, err := it.Price.AsExactFloat64()
		if err != nil {
			return LayerResult{}, errs.Wrap(errs.MinorUnitsNotRepresentable, "layer presence coefficient", err)
		}
		presence[i] = model.AddBinary(coeff)
		obs.OnVariable(promo.Key{}, "layer.presence", presence[i])
	}

	var translators []Translator
	for _, p := range promotions {
		tr, err := newTranslator(p)
		if err != nil {
			return LayerResult{}, err
		}
		if !tr.IsApplicable(group) {
			continue
		}
		translators = append(translators, tr)
	}

	for _, tr := range translators {
		if err := tr.AddVariables(model, group, obs); err != nil {
			return LayerResult{}, err
		}
	}
	for _, tr := range translators {
		if err := tr.AddConstraints(model, group, obs); err != nil {
			return LayerResult{}, err
		}
	}

	for i := range items {
		coeffs := map[int]float64{presence[i]: 1}
		for _, tr := range translators {
			for _, v := range tr.ParticipationVars(i) {
				coeffs[v] = 1
			}
		}
		c := Eq(coeffs, 1)
		model.AddConstraint(c)
		obs.OnConstraint(promo.Key{}, "layer.exclusivity", c)
	}

	sol, err := l.Backend.Solve(model)
	if err != nil {
		return LayerResult{}, errs.Wrap(errs.BackendUnsolved, "layer solve", err)
	}

	var apps []PromotionApplication
	for _, tr := range translators {
		decoded, err := tr.DecodeApplications(sol, group, bundleCounter)
		if err != nil {
			return LayerResult{}, err
		}
		apps = append(apps, decoded...)
	}

	claimed := make(map[int]bool, len(apps))
	for _, a := range apps {
		claimed[a.ItemIndex] = true
	}
	var unaffected []int
	for i := range items {
		if !claimed[i] {
			unaffected = append(unaffected, i)
		}
	}

	return LayerResult{Applications: apps, Unaffected: unaffected, Objective: sol.Objective}, nil
}

// newTranslator dispatches a Promotion to its variant's Translator
// constructor (spec.md §4.3: exactly one of the four variant fields is
// populated, matching Variant).
func newTranslator(p promo.Promotion) (Translator, error) {
	switch p.Variant {
	case promo.VariantDirectDiscount:
		if p.Direct == nil {
			return nil, errs.New(errs.GraphValidation, "direct promotion missing Direct payload")
		}
		return newDirectTranslator(p.Key, *p.Direct), nil
	case promo.VariantTieredThreshold:
		if p.Tiered == nil {
			return nil, errs.New(errs.GraphValidation, "tiered promotion missing Tiered payload")
		}
		return newTieredTranslator(p.Key, *p.Tiered), nil
	case promo.VariantMixAndMatch:
		if p.MixAndMatch == nil {
			return nil, errs.New(errs.GraphValidation, "mix-and-match promotion missing MixAndMatch payload")
		}
		return newMixMatchTranslator(p.Key, *p.MixAndMatch), nil
	case promo.VariantPositionalDiscount:
		if p.Positional == nil {
			return nil, errs.New(errs.GraphValidation, "positional promotion missing Positional payload")
		}
		return newPositionalTranslator(p.Key, *p.Positional), nil
	default:
		return nil, errs.Newf(errs.GraphValidation, "unknown promotion variant %v", p.Variant)
	}
}
