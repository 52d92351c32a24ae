package discount

import (
	"errors"
	"fmt"

	"github.com/masumrpg/promotion-engine/pkg/money"
)

// ErrEmptyItems is returned when a discount primitive that requires a
// non-empty slice (bundle-total, cheapest-price) is given none.
var ErrEmptyItems = errors.New("discount: empty item slice")

// PriceOne computes the discounted price of a single item under spec. Only
// PercentOff, AmountOff, and AmountOverride are valid single-item kinds;
// SetBundleTotal and SetCheapestPrice operate over a slice (see PriceBundle
// and PriceCheapest).
func PriceOne(it Item, spec Spec) (money.Money, error) {
	switch spec.Kind {
	case PercentOff:
		return it.Price.LessPercent(spec.Percent), nil
	case AmountOff:
		reduced := it.Price.AmountMinor() - spec.Amount
		if reduced < 0 {
			reduced = 0
		}
		return money.New(reduced, it.Price.Currency()), nil
	case AmountOverride:
		return money.New(spec.Amount, it.Price.Currency()), nil
	default:
		return money.Money{}, fmt.Errorf("discount: kind %v is not a single-item discount", spec.Kind)
	}
}

// PriceBundle computes a SetBundleTotal discount: the combined price of
// items is replaced with spec.Amount, allocated back across the items
// proportionally to their original prices (see money.AllocateProportionally
// for the rounding-residue rule). Returns ErrEmptyItems for an empty slice.
func PriceBundle(items []Item, spec Spec) ([]money.Money, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	if spec.Kind != SetBundleTotal {
		return nil, fmt.Errorf("discount: kind %v is not a bundle discount", spec.Kind)
	}
	cur := items[0].Price.Currency()
	total := money.New(spec.Amount, cur)
	weights := make([]money.Money, len(items))
	for i, it := range items {
		weights[i] = it.Price
	}
	return money.AllocateProportionally(total, weights)
}

// CheapestIndex returns the index of the cheapest item in items, breaking
// ties by the lowest index (ascending). Returns ErrEmptyItems for an empty
// slice.
func CheapestIndex(items []Item) (int, error) {
	if len(items) == 0 {
		return 0, ErrEmptyItems
	}
	best := 0
	for i := 1; i < len(items); i++ {
		if items[i].Price.Cmp(items[best].Price) < 0 {
			best = i
		}
	}
	return best, nil
}

// PriceCheapest computes a SetCheapestPrice discount: the cheapest item in
// items has its price replaced by spec.Amount; every other item keeps its
// original price. The returned slice is parallel to items.
func PriceCheapest(items []Item, spec Spec) ([]money.Money, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	if spec.Kind != SetCheapestPrice {
		return nil, fmt.Errorf("discount: kind %v is not a cheapest-item discount", spec.Kind)
	}
	idx, err := CheapestIndex(items)
	if err != nil {
		return nil, err
	}
	out := make([]money.Money, len(items))
	for i, it := range items {
		if i == idx {
			out[i] = money.New(spec.Amount, it.Price.Currency())
		} else {
			out[i] = it.Price
		}
	}
	return out, nil
}

// Savings returns the amount an item's price would be reduced by under a
// single-item discount spec (original minus discounted), never negative.
func Savings(it Item, spec Spec) (money.Money, error) {
	discounted, err := PriceOne(it, spec)
	if err != nil {
		return money.Money{}, err
	}
	saved, err := it.Price.Sub(discounted)
	if err != nil {
		return money.Money{}, err
	}
	if saved.IsNegative() {
		return money.Zero(it.Price.Currency()), nil
	}
	return saved, nil
}
