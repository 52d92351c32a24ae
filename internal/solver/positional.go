package solver

import (
	"sort"

	"github.com/masumrpg/promotion-engine/pkg/discount"
	"github.com/masumrpg/promotion-engine/pkg/errs"
	"github.com/masumrpg/promotion-engine/pkg/item"
	"github.com/masumrpg/promotion-engine/pkg/promo"
)

// positionalTranslator implements Translator for promo.PositionalDiscount
// (spec.md §4.3.4): eligible items are sorted by price descending (ties by
// ascending index) and walked through a finite-state automaton over a
// bundle cycle of length N, so the solver may choose which eligible items
// to admit into the deal (skipping items it prefers to leave untouched)
// while still only forming complete N-sized bundles.
type positionalTranslator struct {
	key  promo.Key
	rule promo.PositionalDiscount

	eligible []int // original item indices, sorted price desc / index asc

	participation []int // per position in eligible, participation var index
	discountVar   []int // per position in eligible, discount var index
	state         [][]int
	take          [][]int
}

func newPositionalTranslator(key promo.Key, rule promo.PositionalDiscount) *positionalTranslator {
	return &positionalTranslator{key: key, rule: rule}
}

func (t *positionalTranslator) Key() promo.Key { return t.key }

func (t *positionalTranslator) sortedEligible(group item.Group) []int {
	var eligible []int
	for i, it := range group.Items() {
		if t.rule.Qualification.Matches(it.Tags) {
			eligible = append(eligible, i)
		}
	}
	items := group.Items()
	sort.Slice(eligible, func(a, b int) bool {
		pa, pb := items[eligible[a]].Price, items[eligible[b]].Price
		cmp := pa.Cmp(pb)
		if cmp != 0 {
			return cmp > 0 // price descending
		}
		return eligible[a] < eligible[b] // index ascending tie-break
	})
	return eligible
}

func (t *positionalTranslator) IsApplicable(group item.Group) bool {
	return len(t.sortedEligible(group)) >= t.rule.BundleSize
}

func (t *positionalTranslator) AddVariables(model *Model, group item.Group, obs Observer) error {
	t.eligible = t.sortedEligible(group)
	n := t.rule.BundleSize
	k := len(t.eligible)
	if k < n {
		return nil // inapplicable: contributes nothing (spec.md §4.3.4)
	}

	items := group.Items()
	t.participation = make([]int, k)
	t.discountVar = make([]int, k)
	for p, idx := range t.eligible {
		it := items[idx]
		priceCoeff, err := it.Price.AsExactFloat64()
		if err != nil {
			return errs.Wrap(errs.MinorUnitsNotRepresentable, "positional participation coefficient", err)
		}
		t.participation[p] = model.AddBinary(priceCoeff)
		obs.OnVariable(t.key, "positional.participation", t.participation[p])

		saved, err := discount.Savings(it, t.rule.Discount)
		if err != nil {
			return errs.Wrap(errs.DiscountComputation, "positional savings", err)
		}
		savedCoeff, err := saved.AsExactFloat64()
		if err != nil {
			return errs.Wrap(errs.MinorUnitsNotRepresentable, "positional discount coefficient", err)
		}
		t.discountVar[p] = model.AddBinary(-savedCoeff)
		obs.OnVariable(t.key, "positional.discount", t.discountVar[p])
	}

	// Automaton state/take variables: states for positions 0..k inclusive
	// (the sentinel position after the last item), takes for 0..k-1.
	t.state = make([][]int, k+1)
	for p := 0; p <= k; p++ {
		t.state[p] = make([]int, n)
		for r := 0; r < n; r++ {
			t.state[p][r] = model.AddBinary(0)
		}
	}
	t.take = make([][]int, k)
	for p := 0; p < k; p++ {
		t.take[p] = make([]int, n)
		for r := 0; r < n; r++ {
			t.take[p][r] = model.AddBinary(0)
		}
	}
	return nil
}

func (t *positionalTranslator) AddConstraints(model *Model, group item.Group, obs Observer) error {
	k := len(t.eligible)
	n := t.rule.BundleSize
	if k < n {
		return nil
	}

	for p := 0; p <= k; p++ {
		coeffs := map[int]float64{}
		for r := 0; r < n; r++ {
			coeffs[t.state[p][r]] = 1
		}
		c := Eq(coeffs, 1)
		model.AddConstraint(c)
		obs.OnConstraint(t.key, "positional.state.exactlyOne", c)
	}

	startC := Eq(map[int]float64{t.state[0][0]: 1}, 1)
	model.AddConstraint(startC)
	obs.OnConstraint(t.key, "positional.start", startC)

	endC := Eq(map[int]float64{t.state[k][0]: 1}, 1)
	model.AddConstraint(endC)
	obs.OnConstraint(t.key, "positional.end", endC)

	for p := 0; p < k; p++ {
		for r := 0; r < n; r++ {
			prevR := (r - 1 + n) % n
			// s_{p+1,r} - s_{p,r} + t_{p,r} - t_{p,prevR} = 0
			c := Eq(map[int]float64{
				t.state[p+1][r]: 1,
				t.state[p][r]:   -1,
				t.take[p][r]:    1,
				t.take[p][prevR]: -1,
			}, 0)
			model.AddConstraint(c)
			obs.OnConstraint(t.key, "positional.transition", c)

			guard := LEq(map[int]float64{t.take[p][r]: 1, t.state[p][r]: -1}, 0)
			model.AddConstraint(guard)
			obs.OnConstraint(t.key, "positional.guard", guard)
		}

		partCoeffs := map[int]float64{t.participation[p]: 1}
		for r := 0; r < n; r++ {
			partCoeffs[t.take[p][r]] = -1
		}
		partC := Eq(partCoeffs, 0)
		model.AddConstraint(partC)
		obs.OnConstraint(t.key, "positional.linkParticipation", partC)

		discCoeffs := map[int]float64{t.discountVar[p]: 1}
		for r := range t.rule.Positions {
			discCoeffs[t.take[p][r]] = -1
		}
		discC := Eq(discCoeffs, 0)
		model.AddConstraint(discC)
		obs.OnConstraint(t.key, "positional.linkDiscount", discC)
	}
	return nil
}

func (t *positionalTranslator) ParticipationVars(itemIndex int) []int {
	for p, idx := range t.eligible {
		if idx == itemIndex {
			return []int{t.participation[p]}
		}
	}
	return nil
}

func (t *positionalTranslator) DecodeApplications(sol Solution, group item.Group, bundleCounter *int) ([]PromotionApplication, error) {
	n := t.rule.BundleSize
	var taken []int
	for p := range t.eligible {
		if sol.IsOn(t.participation[p]) {
			taken = append(taken, p)
		}
	}

	var apps []PromotionApplication
	for chunkStart := 0; chunkStart+n <= len(taken); chunkStart += n {
		bundleID := nextBundleID(bundleCounter)
		for _, p := range taken[chunkStart : chunkStart+n] {
			idx := t.eligible[p]
			it, err := group.At(idx)
			if err != nil {
				return nil, errs.Wrap(errs.ItemIndexOutOfRange, "positional decode", err)
			}
			finalPrice := it.Price
			if sol.IsOn(t.discountVar[p]) {
				discounted, err := discount.PriceOne(it, t.rule.Discount)
				if err != nil {
					return nil, errs.Wrap(errs.DiscountComputation, "positional decode pricing", err)
				}
				finalPrice = discounted
			}
			apps = append(apps, PromotionApplication{
				PromotionKey:  t.key,
				ItemIndex:     idx,
				BundleID:      bundleID,
				OriginalPrice: it.Price,
				FinalPrice:    finalPrice,
			})
		}
	}
	return apps, nil
}
