package solver

import (
	"sort"

	"github.com/masumrpg/promotion-engine/pkg/discount"
	"github.com/masumrpg/promotion-engine/pkg/errs"
	"github.com/masumrpg/promotion-engine/pkg/item"
	"github.com/masumrpg/promotion-engine/pkg/money"
	"github.com/masumrpg/promotion-engine/pkg/promo"
)

// tierState holds the per-tier variables a tieredTranslator builds, kept
// separate from the translator's top-level fields so AddVariables can drop
// a structurally-infeasible tier cleanly (spec.md §4.3.2 "qualifying-tier
// screening").
type tierState struct {
	tier      promo.Tier
	selector  int // T_t
	slot      map[int]int
	contrib   map[int]bool
	discEligi map[int]bool
	target    map[int]int // cheapest-mode target vars, keyed by item index
	skipped   bool
}

type tieredTranslator struct {
	key   promo.Key
	rule  promo.TieredThreshold
	tiers []*tierState
}

func newTieredTranslator(key promo.Key, rule promo.TieredThreshold) *tieredTranslator {
	return &tieredTranslator{key: key, rule: rule}
}

func (t *tieredTranslator) Key() promo.Key { return t.key }

func (t *tieredTranslator) IsApplicable(group item.Group) bool {
	for _, tier := range t.rule.Tiers {
		for _, it := range group.Items() {
			if tier.ContributionQualification.Matches(it.Tags) || tier.DiscountQualification.Matches(it.Tags) {
				return true
			}
		}
	}
	return false
}

// screenTier reports whether tier is structurally feasible given group
// (spec.md §4.3.2 qualifying-tier screening), before any variables for it
// are created.
func screenTier(tier promo.Tier, group item.Group) bool {
	contribCount := 0
	var contribSum int64
	for _, it := range group.Items() {
		if tier.ContributionQualification.Matches(it.Tags) {
			contribCount++
			contribSum += it.Price.AmountMinor()
		}
	}
	if tier.MonetaryMin != nil && *tier.MonetaryMin > contribSum {
		return false
	}
	if tier.CountMin != nil && *tier.CountMin > contribCount {
		return false
	}
	if tier.MonetaryMin != nil && tier.MonetaryMax != nil && *tier.MonetaryMax < *tier.MonetaryMin {
		return false
	}
	if tier.CountMin != nil && tier.CountMax != nil && *tier.CountMax < *tier.CountMin {
		return false
	}
	return true
}

func (t *tieredTranslator) AddVariables(model *Model, group item.Group, obs Observer) error {
	items := group.Items()
	for _, tier := range t.rule.Tiers {
		if !screenTier(tier, group) {
			t.tiers = append(t.tiers, &tierState{tier: tier, skipped: true})
			continue
		}
		st := &tierState{
			tier:      tier,
			slot:      map[int]int{},
			contrib:   map[int]bool{},
			discEligi: map[int]bool{},
			target:    map[int]int{},
		}
		st.selector = model.AddBinary(0)
		obs.OnVariable(t.key, "tier.selector", st.selector)

		for i, it := range items {
			matchesContrib := tier.ContributionQualification.Matches(it.Tags)
			matchesDisc := tier.DiscountQualification.Matches(it.Tags)
			if !matchesContrib && !matchesDisc {
				continue
			}
			st.contrib[i] = matchesContrib
			st.discEligi[i] = matchesDisc

			var coeff float64
			var err error
			switch {
			case matchesDisc && tier.Mode.IsPerItemMode():
				discounted, derr := perItemTierPrice(it, tier)
				if derr != nil {
					return errs.Wrap(errs.DiscountComputation, "tiered per-item pricing", derr)
				}
				coeff, err = discounted.AsExactFloat64()
			case matchesDisc && tier.Mode == promo.ModeFixedTotal:
				// The fixed total rides on the tier selector's objective
				// term (see below), so a claimed discount item costs
				// nothing here; slot <= selector means it can only be
				// claimed while that total is paid.
				coeff = 0
			case matchesDisc && tier.Mode.IsBundleTotalMode():
				// Amount-off-total: claimed at full price; the amount off
				// rides on the tier selector's objective term (see below).
				coeff, err = it.Price.AsExactFloat64()
			default:
				// Contribution-only, or cheapest-mode baseline: claimed
				// at full price; the discount (if any) rides on a
				// separate target variable.
				coeff, err = it.Price.AsExactFloat64()
			}
			if err != nil {
				return errs.Wrap(errs.MinorUnitsNotRepresentable, "tiered slot coefficient", err)
			}
			idx := model.AddBinary(coeff)
			st.slot[i] = idx
			obs.OnVariable(t.key, "tier.slot", idx)

			guard := LEq(map[int]float64{idx: 1, st.selector: -1}, 0)
			model.AddConstraint(guard)
			obs.OnConstraint(t.key, "tier.slotLinkedToSelector", guard)

			if matchesDisc && tier.Mode.IsCheapestMode() {
				saved, serr := discount.Savings(it, perItemSpecForCheapest(tier))
				if serr != nil {
					return errs.Wrap(errs.DiscountComputation, "tiered cheapest savings", serr)
				}
				savedCoeff, cerr := saved.AsExactFloat64()
				if cerr != nil {
					return errs.Wrap(errs.MinorUnitsNotRepresentable, "tiered cheapest coefficient", cerr)
				}
				targetIdx := model.AddBinary(-savedCoeff)
				st.target[i] = targetIdx
				obs.OnVariable(t.key, "tier.cheapestTarget", targetIdx)
			}
		}

		if tier.Mode.IsBundleTotalMode() {
			coeffs := map[int]float64{}
			for i := range st.discEligi {
				if st.discEligi[i] {
					coeffs[st.slot[i]] = -1
				}
			}
			coeffs[st.selector] = 1
			actC := LEq(coeffs, 0)
			model.AddConstraint(actC)
			obs.OnConstraint(t.key, "tier.bundleActivationRequiresDiscountItem", actC)

			if tier.Mode == promo.ModeFixedTotal {
				model.Objective[st.selector] = float64(tier.Amount)
			} else {
				model.Objective[st.selector] = -float64(tier.Amount)
			}
		}

		t.tiers = append(t.tiers, st)
	}
	return nil
}

// perItemTierPrice computes the discounted per-item price for per-item
// discount modes (percent-each, amount-off-each, fixed-price-each).
func perItemTierPrice(it item.Item, tier promo.Tier) (money.Money, error) {
	var spec discount.Spec
	switch tier.Mode {
	case promo.ModePercentEach:
		spec = discount.Spec{Kind: discount.PercentOff, Percent: tier.Percent}
	case promo.ModeAmountOffEach:
		spec = discount.Spec{Kind: discount.AmountOff, Amount: tier.Amount}
	case promo.ModeFixedPriceEach:
		spec = discount.Spec{Kind: discount.AmountOverride, Amount: tier.Amount}
	default:
		return it.Price, errs.Newf(errs.InvariantViolation, "perItemTierPrice called for non-per-item mode %v", tier.Mode)
	}
	return discount.PriceOne(it, spec)
}

// perItemSpecForCheapest maps a cheapest DiscountMode to the single-item
// discount.Spec its savings are computed from.
func perItemSpecForCheapest(tier promo.Tier) discount.Spec {
	if tier.Mode == promo.ModePercentCheapest {
		return discount.Spec{Kind: discount.PercentOff, Percent: tier.Percent}
	}
	return discount.Spec{Kind: discount.AmountOverride, Amount: tier.Amount}
}

func (t *tieredTranslator) AddConstraints(model *Model, group item.Group, obs Observer) error {
	items := group.Items()

	allSelectors := map[int]float64{}
	for _, st := range t.tiers {
		if st.skipped {
			continue
		}
		allSelectors[st.selector] = 1

		if st.tier.MonetaryMin != nil {
			coeffs := map[int]float64{}
			for i, isContrib := range st.contrib {
				if isContrib {
					price, _ := items[i].Price.AsExactFloat64()
					coeffs[st.slot[i]] = price
				}
			}
			coeffs[st.selector] = -float64(*st.tier.MonetaryMin)
			c := GEq(coeffs, 0)
			model.AddConstraint(c)
			obs.OnConstraint(t.key, "tier.monetaryMin", c)
		}
		if st.tier.CountMin != nil {
			coeffs := map[int]float64{}
			for i, isContrib := range st.contrib {
				if isContrib {
					coeffs[st.slot[i]] = 1
				}
			}
			coeffs[st.selector] = -float64(*st.tier.CountMin)
			c := GEq(coeffs, 0)
			model.AddConstraint(c)
			obs.OnConstraint(t.key, "tier.countMin", c)
		}
		if st.tier.MonetaryMax != nil {
			coeffs := map[int]float64{}
			for i, isContrib := range st.contrib {
				if isContrib {
					price, _ := items[i].Price.AsExactFloat64()
					coeffs[st.slot[i]] = price
				}
			}
			coeffs[st.selector] = -float64(*st.tier.MonetaryMax)
			c := LEq(coeffs, 0)
			model.AddConstraint(c)
			obs.OnConstraint(t.key, "tier.monetaryMax", c)
		}
		if st.tier.CountMax != nil {
			coeffs := map[int]float64{}
			for i, isDisc := range st.discEligi {
				if isDisc {
					coeffs[st.slot[i]] = 1
				}
			}
			coeffs[st.selector] = -float64(*st.tier.CountMax)
			c := LEq(coeffs, 0)
			model.AddConstraint(c)
			obs.OnConstraint(t.key, "tier.countMax", c)
		}

		if st.tier.Mode.IsCheapestMode() && len(st.target) > 0 {
			type ranked struct {
				itemIdx int
				price   money.Money
			}
			var order []ranked
			for i := range st.target {
				order = append(order, ranked{itemIdx: i, price: items[i].Price})
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
				targetSum[st.target[r.itemIdx]] = 1
				guard := LEq(map[int]float64{st.target[r.itemIdx]: 1, st.slot[r.itemIdx]: -1}, 0)
				model.AddConstraint(guard)
				obs.OnConstraint(t.key, "tier.cheapestTargetGuard", guard)
			}
			sumC := LEq(addSelectorTerm(targetSum, st.selector, -1), 0)
			model.AddConstraint(sumC)
			obs.OnConstraint(t.key, "tier.cheapestTargetCount", sumC)

			for k := 1; k < len(order); k++ {
				c := LEq(map[int]float64{
					st.target[order[k].itemIdx]:  1,
					st.slot[order[k-1].itemIdx]:  1,
				}, 1)
				model.AddConstraint(c)
				obs.OnConstraint(t.key, "tier.cheapestOrdering", c)
			}
		}
	}
	if len(allSelectors) > 0 {
		c := LEq(allSelectors, 1)
		model.AddConstraint(c)
		obs.OnConstraint(t.key, "tier.atMostOneActive", c)
	}

	if err := t.addBudgetConstraints(model, items, obs); err != nil {
		return err
	}
	return nil
}

func addSelectorTerm(m map[int]float64, idx int, coeff float64) map[int]float64 {
	m[idx] = coeff
	return m
}

func (t *tieredTranslator) addBudgetConstraints(model *Model, items []item.Item, obs Observer) error {
	b := t.rule.Budget
	if b.MaxApplications == nil && b.MaxSavingsMinor == nil {
		return nil
	}
	if b.MaxApplications != nil {
		coeffs := map[int]float64{}
		for _, st := range t.tiers {
			if !st.skipped {
				coeffs[st.selector] = 1
			}
		}
		c := LEq(coeffs, float64(*b.MaxApplications))
		model.AddConstraint(c)
		obs.OnConstraint(t.key, "tier.budget.count", c)
	}
	if b.MaxSavingsMinor != nil {
		coeffs := map[int]float64{}
		for _, st := range t.tiers {
			if st.skipped {
				continue
			}
			coeffs[st.selector] += conservativeTierSavingsBound(st)
			for i, v := range st.slot {
				if !st.discEligi[i] {
					continue
				}
				price, _ := items[i].Price.AsExactFloat64()
				switch {
				case st.tier.Mode.IsPerItemMode():
					coeffs[v] = price - model.Objective[v] // exact per-item saving
				case st.tier.Mode == promo.ModeFixedTotal:
					coeffs[v] = price // as if the item were free
				}
			}
			for _, v := range st.target {
				coeffs[v] = -model.Objective[v] // exact cheapest-item saving
			}
		}
		c := LEq(coeffs, float64(*b.MaxSavingsMinor))
		model.AddConstraint(c)
		obs.OnConstraint(t.key, "tier.budget.savings", c)
	}
	return nil
}

// conservativeTierSavingsBound is the saving charged to a tier's selector
// in the monetary budget constraint. Only amount-off-total tiers charge
// here, by their full Amount (the most one activation can save). Per-item
// and cheapest modes are charged their exact savings on the slot/target
// variables, and fixed-total tiers the full price of each claimed
// discount-eligible item (as if it were free); addBudgetConstraints adds
// both.
func conservativeTierSavingsBound(st *tierState) float64 {
	if !st.tier.Mode.IsBundleTotalMode() {
		return 0
	}
	if st.tier.Mode == promo.ModeFixedTotal {
		return 0 // charged on the slot variables instead
	}
	return float64(st.tier.Amount)
}

func (t *tieredTranslator) ParticipationVars(itemIndex int) []int {
	var out []int
	for _, st := range t.tiers {
		if st.skipped {
			continue
		}
		if idx, ok := st.slot[itemIndex]; ok {
			out = append(out, idx)
		}
	}
	return out
}

func (t *tieredTranslator) DecodeApplications(sol Solution, group item.Group, bundleCounter *int) ([]PromotionApplication, error) {
	items := group.Items()
	var apps []PromotionApplication

	for _, st := range t.tiers {
		if st.skipped || !sol.IsOn(st.selector) {
			continue
		}

		switch {
		case st.tier.Mode.IsBundleTotalMode():
			var claimedIdx []int
			for i, isDisc := range st.discEligi {
				if isDisc && sol.IsOn(st.slot[i]) {
					claimedIdx = append(claimedIdx, i)
				}
			}
			sort.Ints(claimedIdx)
			if len(claimedIdx) == 0 {
				continue
			}
			weights := make([]money.Money, len(claimedIdx))
			fullSum := int64(0)
			for k, i := range claimedIdx {
				weights[k] = items[i].Price
				fullSum += items[i].Price.AmountMinor()
			}
			var targetTotal int64
			if st.tier.Mode == promo.ModeFixedTotal {
				targetTotal = st.tier.Amount
				if targetTotal > fullSum {
					targetTotal = fullSum
				}
			} else { // ModeAmountOffTotal
				targetTotal = fullSum - st.tier.Amount
				if targetTotal < 0 {
					targetTotal = 0
				}
			}
			cur := items[claimedIdx[0]].Price.Currency()
			allocated, err := money.AllocateProportionally(money.New(targetTotal, cur), weights)
			if err != nil {
				return nil, errs.Wrap(errs.DiscountComputation, "tier bundle-total allocation", err)
			}
			bundleID := nextBundleID(bundleCounter)
			for k, i := range claimedIdx {
				apps = append(apps, PromotionApplication{
					PromotionKey:  t.key,
					ItemIndex:     i,
					BundleID:      bundleID,
					OriginalPrice: items[i].Price,
					FinalPrice:    allocated[k],
				})
			}
			// Contribution-only items (not discount-eligible) claimed by
			// this tier stay at full price but are still consumed.
			for i, isContrib := range st.contrib {
				if isContrib && !st.discEligi[i] && sol.IsOn(st.slot[i]) {
					apps = append(apps, PromotionApplication{
						PromotionKey:  t.key,
						ItemIndex:     i,
						BundleID:      bundleID,
						OriginalPrice: items[i].Price,
						FinalPrice:    items[i].Price,
					})
				}
			}

		case st.tier.Mode.IsCheapestMode():
			bundleID := nextBundleID(bundleCounter)
			for i := range st.slot {
				if !sol.IsOn(st.slot[i]) {
					continue
				}
				finalPrice := items[i].Price
				if targetIdx, ok := st.target[i]; ok && sol.IsOn(targetIdx) {
					discounted, err := discount.PriceOne(items[i], perItemSpecForCheapest(st.tier))
					if err != nil {
						return nil, errs.Wrap(errs.DiscountComputation, "tier cheapest decode", err)
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

		default: // per-item modes
			bundleID := nextBundleID(bundleCounter)
			any := false
			for i := range st.slot {
				if !sol.IsOn(st.slot[i]) {
					continue
				}
				any = true
				finalPrice := items[i].Price
				if st.discEligi[i] {
					discounted, err := perItemTierPrice(items[i], st.tier)
					if err != nil {
						return nil, errs.Wrap(errs.DiscountComputation, "tier per-item decode", err)
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
			if !any {
				*bundleCounter-- // no items actually claimed; return the unused id
			}
		}
	}
	return apps, nil
}
