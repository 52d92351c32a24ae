package solver

import (
	"sort"

	"github.com/masumrpg/promotion-engine/pkg/discount"
	"github.com/masumrpg/promotion-engine/pkg/errs"
	"github.com/masumrpg/promotion-engine/pkg/item"
	"github.com/masumrpg/promotion-engine/pkg/money"
	"github.com/masumrpg/promotion-engine/pkg/promo"
)

// mixMatchTranslator implements Translator for promo.MixAndMatch
// (spec.md §4.3.3). Fixed-arity bundles (every slot's Max == Min) may repeat
// any number of times up to availability, tracked by one bounded integer
// variable; variable-arity bundles form at most once per solve, tracked by
// one binary indicator.
type mixMatchTranslator struct {
	key  promo.Key
	rule promo.MixAndMatch

	fixedArity bool
	arityVar   int // Y (IntegerBounded) if fixedArity, else B (Binary)
	applicable bool

	slotEligible [][]int    // per slot, item indices matching its tags, index-ascending
	slotVar      []map[int]int // per slot, item index -> m_{s,i} var index

	target map[int]int // cheapest-mode target vars, item index -> var index, spans all slots
}

func newMixMatchTranslator(key promo.Key, rule promo.MixAndMatch) *mixMatchTranslator {
	return &mixMatchTranslator{key: key, rule: rule, fixedArity: rule.IsFixedArity(), target: map[int]int{}}
}

func (t *mixMatchTranslator) Key() promo.Key { return t.key }

func (t *mixMatchTranslator) computeSlotEligible(group item.Group) [][]int {
	items := group.Items()
	out := make([][]int, len(t.rule.Slots))
	for s, slot := range t.rule.Slots {
		var eligible []int
		for i, it := range items {
			if slot.Tags.Matches(it.Tags) {
				eligible = append(eligible, i)
			}
		}
		sort.Ints(eligible)
		out[s] = eligible
	}
	return out
}

func (t *mixMatchTranslator) IsApplicable(group item.Group) bool {
	for s, slot := range t.rule.Slots {
		eligible := t.computeSlotEligible(group)[s]
		if len(eligible) < slot.Min {
			return false
		}
	}
	return len(t.rule.Slots) > 0
}

func (t *mixMatchTranslator) AddVariables(model *Model, group item.Group, obs Observer) error {
	t.slotEligible = t.computeSlotEligible(group)
	t.applicable = t.IsApplicable(group)
	if !t.applicable {
		return nil
	}
	items := group.Items()

	if t.fixedArity {
		maxBundles := -1
		for s, slot := range t.rule.Slots {
			count := len(t.slotEligible[s]) / slot.Min
			if maxBundles == -1 || count < maxBundles {
				maxBundles = count
			}
		}
		if maxBundles <= 0 {
			t.applicable = false
			return nil
		}
		t.arityVar = model.AddIntegerBounded(float64(maxBundles), 0)
	} else {
		t.arityVar = model.AddBinary(0)
	}
	obs.OnVariable(t.key, "mixmatch.arity", t.arityVar)

	t.slotVar = make([]map[int]int, len(t.rule.Slots))
	for s := range t.rule.Slots {
		t.slotVar[s] = map[int]int{}
		for _, i := range t.slotEligible[s] {
			it := items[i]
			var coeff float64
			var err error
			switch t.rule.Mode {
			case promo.ModeFixedTotalBundle:
				coeff = 0 // swept into arityVar's objective term
			case promo.ModeAllItemsPercent:
				discounted, derr := discount.PriceOne(it, discount.Spec{Kind: discount.PercentOff, Percent: t.rule.Percent})
				if derr != nil {
					return errs.Wrap(errs.DiscountComputation, "mixmatch all-items pricing", derr)
				}
				coeff, err = discounted.AsExactFloat64()
			default:
				coeff, err = it.Price.AsExactFloat64()
			}
			if err != nil {
				return errs.Wrap(errs.MinorUnitsNotRepresentable, "mixmatch slot coefficient", err)
			}
			idx := model.AddBinary(coeff)
			t.slotVar[s][i] = idx
			obs.OnVariable(t.key, "mixmatch.slot", idx)

			if t.rule.Mode.IsCheapestMode() {
				saved, serr := discount.Savings(it, cheapestModeSpec(t.rule))
				if serr != nil {
					return errs.Wrap(errs.DiscountComputation, "mixmatch cheapest savings", serr)
				}
				savedCoeff, cerr := saved.AsExactFloat64()
				if cerr != nil {
					return errs.Wrap(errs.MinorUnitsNotRepresentable, "mixmatch cheapest coefficient", cerr)
				}
				targetIdx := model.AddBinary(-savedCoeff)
				t.target[i] = targetIdx
				obs.OnVariable(t.key, "mixmatch.cheapestTarget", targetIdx)
			}
		}
	}

	if t.rule.Mode == promo.ModeFixedTotalBundle {
		model.Objective[t.arityVar] = float64(t.rule.Amount)
	}
	return nil
}

// cheapestModeSpec maps a cheapest MixAndMatchMode to the single-item
// discount.Spec its savings are computed from.
func cheapestModeSpec(rule promo.MixAndMatch) discount.Spec {
	if rule.Mode == promo.ModePercentCheapestItem {
		return discount.Spec{Kind: discount.PercentOff, Percent: rule.Percent}
	}
	return discount.Spec{Kind: discount.AmountOverride, Amount: rule.Amount}
}

func (t *mixMatchTranslator) AddConstraints(model *Model, group item.Group, obs Observer) error {
	if !t.applicable {
		return nil
	}
	items := group.Items()

	for s, slot := range t.rule.Slots {
		coeffs := map[int]float64{}
		for _, i := range t.slotEligible[s] {
			coeffs[t.slotVar[s][i]] = 1
		}
		if t.fixedArity {
			coeffs[t.arityVar] = -float64(slot.Min)
			c := Eq(coeffs, 0)
			model.AddConstraint(c)
			obs.OnConstraint(t.key, "mixmatch.slot.exactArity", c)
		} else {
			lower := map[int]float64{}
			for k, v := range coeffs {
				lower[k] = v
			}
			lower[t.arityVar] = -float64(slot.Min)
			lc := GEq(lower, 0)
			model.AddConstraint(lc)
			obs.OnConstraint(t.key, "mixmatch.slot.min", lc)

			if slot.Max != nil {
				upper := map[int]float64{}
				for k, v := range coeffs {
					upper[k] = v
				}
				upper[t.arityVar] = -float64(*slot.Max)
				uc := LEq(upper, 0)
				model.AddConstraint(uc)
				obs.OnConstraint(t.key, "mixmatch.slot.max", uc)
			}
		}
	}

	if t.rule.Mode.IsCheapestMode() && len(t.target) > 0 {
		type ranked struct {
			itemIdx int
			price   money.Money
			slotVar int
		}
		var order []ranked
		for s := range t.rule.Slots {
			for i, v := range t.slotVar[s] {
				if _, ok := t.target[i]; ok {
					order = append(order, ranked{itemIdx: i, price: items[i].Price, slotVar: v})
				}
			}
		}
		sort.Slice(order, func(a, b int) bool {
			cmp := order[a].price.Cmp(order[b].price)
			if cmp != 0 {
				return cmp < 0
			}
			return order[a].itemIdx < order[b].itemIdx
		})

		targetSum := map[int]float64{}
		for _, r := range order {
			targetSum[t.target[r.itemIdx]] = 1
			guard := LEq(map[int]float64{t.target[r.itemIdx]: 1, r.slotVar: -1}, 0)
			model.AddConstraint(guard)
			obs.OnConstraint(t.key, "mixmatch.cheapestTargetGuard", guard)
		}
		targetSum[t.arityVar] = -1
		sumC := LEq(targetSum, 0)
		model.AddConstraint(sumC)
		obs.OnConstraint(t.key, "mixmatch.cheapestTargetCount", sumC)

		for k := 1; k < len(order); k++ {
			c := LEq(map[int]float64{
				t.target[order[k].itemIdx]: 1,
				order[k-1].slotVar:         1,
			}, 1)
			model.AddConstraint(c)
			obs.OnConstraint(t.key, "mixmatch.cheapestOrdering", c)
		}
	}

	return t.addBudgetConstraints(model, obs)
}

func (t *mixMatchTranslator) addBudgetConstraints(model *Model, obs Observer) error {
	b := t.rule.Budget
	if b.MaxApplications != nil {
		c := LEq(map[int]float64{t.arityVar: 1}, float64(*b.MaxApplications))
		model.AddConstraint(c)
		obs.OnConstraint(t.key, "mixmatch.budget.count", c)
	}
	if b.MaxSavingsMinor != nil && t.rule.Mode == promo.ModeFixedTotalBundle {
		// MaxSavingsMinor adds no constraint, in this mode or any other:
		// only MaxApplications bounds a mix-and-match promotion, and
		// DecodeApplications does not check savings either.
		return nil
	}
	return nil
}

func (t *mixMatchTranslator) ParticipationVars(itemIndex int) []int {
	var out []int
	for s := range t.slotVar {
		if idx, ok := t.slotVar[s][itemIndex]; ok {
			out = append(out, idx)
		}
	}
	return out
}

func (t *mixMatchTranslator) DecodeApplications(sol Solution, group item.Group, bundleCounter *int) ([]PromotionApplication, error) {
	if !t.applicable {
		return nil, nil
	}
	items := group.Items()

	bundleCount := 1
	if t.fixedArity {
		bundleCount = int(sol.Values[t.arityVar] + 0.5)
		if bundleCount <= 0 {
			return nil, nil
		}
	} else if !sol.IsOn(t.arityVar) {
		return nil, nil
	}

	// Split each slot's claimed items (ascending item index) into
	// consecutive chunks of slot.Min items (fixed arity) or one chunk of
	// all of them (variable arity), then zip slot chunks together by
	// bundle position to form each concrete bundle's item set.
	bundles := make([][]int, bundleCount)
	for s, slot := range t.rule.Slots {
		var claimed []int
		for _, i := range t.slotEligible[s] {
			if sol.IsOn(t.slotVar[s][i]) {
				claimed = append(claimed, i)
			}
		}
		perBundle := slot.Min
		if !t.fixedArity {
			perBundle = len(claimed)
		}
		for b := 0; b < bundleCount; b++ {
			start := b * perBundle
			end := start + perBundle
			if end > len(claimed) {
				end = len(claimed)
			}
			if start < end {
				bundles[b] = append(bundles[b], claimed[start:end]...)
			}
		}
	}

	var apps []PromotionApplication
	for _, bundleItems := range bundles {
		if len(bundleItems) == 0 {
			continue
		}
		sort.Ints(bundleItems)
		bundleID := nextBundleID(bundleCounter)

		switch t.rule.Mode {
		case promo.ModeAllItemsPercent:
			for _, i := range bundleItems {
				discounted, err := discount.PriceOne(items[i], discount.Spec{Kind: discount.PercentOff, Percent: t.rule.Percent})
				if err != nil {
					return nil, errs.Wrap(errs.DiscountComputation, "mixmatch all-items decode", err)
				}
				apps = append(apps, PromotionApplication{
					PromotionKey:  t.key,
					ItemIndex:     i,
					BundleID:      bundleID,
					OriginalPrice: items[i].Price,
					FinalPrice:    discounted,
				})
			}

		case promo.ModeFixedTotalBundle:
			weights := make([]money.Money, len(bundleItems))
			for k, i := range bundleItems {
				weights[k] = items[i].Price
			}
			total := t.rule.Amount
			var sum int64
			for _, i := range bundleItems {
				sum += items[i].Price.AmountMinor()
			}
			if total > sum {
				total = sum
			}
			cur := items[bundleItems[0]].Price.Currency()
			allocated, err := money.AllocateProportionally(money.New(total, cur), weights)
			if err != nil {
				return nil, errs.Wrap(errs.DiscountComputation, "mixmatch fixed-total decode", err)
			}
			for k, i := range bundleItems {
				apps = append(apps, PromotionApplication{
					PromotionKey:  t.key,
					ItemIndex:     i,
					BundleID:      bundleID,
					OriginalPrice: items[i].Price,
					FinalPrice:    allocated[k],
				})
			}

		default: // cheapest modes
			cheapestIdx := bundleItems[0]
			for _, i := range bundleItems[1:] {
				if items[i].Price.Cmp(items[cheapestIdx].Price) < 0 {
					cheapestIdx = i
				}
			}
			for _, i := range bundleItems {
				finalPrice := items[i].Price
				if i == cheapestIdx {
					discounted, err := discount.PriceOne(items[i], cheapestModeSpec(t.rule))
					if err != nil {
						return nil, errs.Wrap(errs.DiscountComputation, "mixmatch cheapest decode", err)
					}
					finalPrice = discounted
				}
				apps = append(apps, PromotionApplication{
					PromotionKey:  t.key,
					ItemIndex:     i,
					BundleID:      bundleID,
					OriginalPrice: items[i].Price,
					FinalPrice:    finalPrice,
				})
			}
		}
	}
	return apps, nil
}
