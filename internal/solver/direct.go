package solver

import (
	"github.com/masumrpg/promotion-engine/pkg/discount"
	"github.com/masumrpg/promotion-engine/pkg/errs"
	"github.com/masumrpg/promotion-engine/pkg/item"
	"github.com/masumrpg/promotion-engine/pkg/money"
	"github.com/masumrpg/promotion-engine/pkg/promo"
)

// directTranslator implements Translator for promo.DirectDiscount
// (spec.md §4.3.1): one participation variable per matching item, no
// per-promotion constraint beyond global exclusivity; each selected item
// forms its own bundle of size 1.
type directTranslator struct {
	key   promo.Key
	rule  promo.DirectDiscount
	vars  map[int]int // item index -> participation var index
	saved map[int]money.Money
}

func newDirectTranslator(key promo.Key, rule promo.DirectDiscount) *directTranslator {
	return &directTranslator{key: key, rule: rule, vars: map[int]int{}, saved: map[int]money.Money{}}
}

func (t *directTranslator) Key() promo.Key { return t.key }

func (t *directTranslator) IsApplicable(group item.Group) bool {
	for _, it := range group.Items() {
		if t.rule.Qualification.Matches(it.Tags) {
			return true
		}
	}
	return false
}

func (t *directTranslator) AddVariables(model *Model, group item.Group, obs Observer) error {
	for i, it := range group.Items() {
		if !t.rule.Qualification.Matches(it.Tags) {
			continue
		}
		discounted, err := discount.PriceOne(it, t.rule.Discount)
		if err != nil {
			return errs.Wrap(errs.DiscountComputation, "direct discount pricing", err)
		}
		coeff, err := discounted.AsExactFloat64()
		if err != nil {
			return errs.Wrap(errs.MinorUnitsNotRepresentable, "direct discount coefficient", err)
		}
		idx := model.AddBinary(coeff)
		t.vars[i] = idx
		saved, err := it.Price.Sub(discounted)
		if err != nil {
			return errs.Wrap(errs.CurrencyMismatch, "direct discount savings", err)
		}
		t.saved[i] = saved
		obs.OnVariable(t.key, "direct.y", idx)
		obs.OnObjectiveTerm(t.key, "direct.y", idx, coeff)
	}
	return nil
}

func (t *directTranslator) AddConstraints(model *Model, group item.Group, obs Observer) error {
	b := t.rule.Budget
	if b.MaxApplications == nil && b.MaxSavingsMinor == nil {
		return nil
	}
	if b.MaxApplications != nil {
		coeffs := map[int]float64{}
		for _, idx := range t.vars {
			coeffs[idx] = 1
		}
		c := LEq(coeffs, float64(*b.MaxApplications))
		model.AddConstraint(c)
		obs.OnConstraint(t.key, "direct.budget.count", c)
	}
	if b.MaxSavingsMinor != nil {
		coeffs := map[int]float64{}
		for i, idx := range t.vars {
			coeffs[idx] = float64(t.saved[i].AmountMinor())
		}
		c := LEq(coeffs, float64(*b.MaxSavingsMinor))
		model.AddConstraint(c)
		obs.OnConstraint(t.key, "direct.budget.savings", c)
	}
	return nil
}

func (t *directTranslator) ParticipationVars(itemIndex int) []int {
	if idx, ok := t.vars[itemIndex]; ok {
		return []int{idx}
	}
	return nil
}

func (t *directTranslator) DecodeApplications(sol Solution, group item.Group, bundleCounter *int) ([]PromotionApplication, error) {
	var apps []PromotionApplication
	for i, idx := range t.vars {
		if !sol.IsOn(idx) {
			continue
		}
		it, err := group.At(i)
		if err != nil {
			return nil, errs.Wrap(errs.ItemIndexOutOfRange, "direct discount decode", err)
		}
		discounted, err := discount.PriceOne(it, t.rule.Discount)
		if err != nil {
			return nil, errs.Wrap(errs.DiscountComputation, "direct discount decode pricing", err)
		}
		apps = append(apps, PromotionApplication{
			PromotionKey:  t.key,
			ItemIndex:     i,
			BundleID:      nextBundleID(bundleCounter),
			OriginalPrice: it.Price,
			FinalPrice:    discounted,
		})
	}
	return apps, nil
}

func nextBundleID(counter *int) int {
	id := *counter
	*counter++
	return id
}
