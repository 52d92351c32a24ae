package money

import (
	"github.com/shopspring/decimal"
)

// PercentOf computes pct percent of m, rounded half-away-from-zero to the
// nearest minor unit. pct is expressed as e.g. 25.0 for 25%. Percentage math
// is performed in exact decimal arithmetic (shopspring/decimal) rather than
// float64 so that repeated or chained discounts never drift.
func (m Money) PercentOf(pct decimal.Decimal) Money {
	amount := decimal.NewFromInt(m.amountMinor)
	product := amount.Mul(pct).Div(decimal.NewFromInt(100))
	rounded := product.Round(0) // decimal.Round uses half-away-from-zero
	return Money{amountMinor: rounded.IntPart(), currency: m.currency}
}

// LessPercent returns m reduced by pct percent, rounded half-away-from-zero.
func (m Money) LessPercent(pct decimal.Decimal) Money {
	discount := m.PercentOf(pct)
	return Money{amountMinor: m.amountMinor - discount.amountMinor, currency: m.currency}
}

// AllocateProportionally splits total across weights (original prices)
// proportionally, using 128-bit-safe decimal intermediates, with the last
// recipient absorbing the rounding residue so the parts sum exactly to
// total. weights and the returned slice have the same length and order.
func AllocateProportionally(total Money, weights []Money) ([]Money, error) {
	n := len(weights)
	out := make([]Money, n)
	if n == 0 {
		return out, nil
	}
	denom := decimal.Zero
	for _, w := range weights {
		if err := total.sameCurrency(w); err != nil {
			return nil, err
		}
		denom = denom.Add(decimal.NewFromInt(w.amountMinor))
	}
	if denom.IsZero() {
		// Nothing to weight by: split evenly, last absorbs residue.
		base := total.amountMinor / int64(n)
		sum := int64(0)
		for i := 0; i < n-1; i++ {
			out[i] = Money{amountMinor: base, currency: total.currency}
			sum += base
		}
		out[n-1] = Money{amountMinor: total.amountMinor - sum, currency: total.currency}
		return out, nil
	}

	targetTotal := decimal.NewFromInt(total.amountMinor)
	half := denom.Div(decimal.NewFromInt(2))
	var allocated int64
	for i := 0; i < n-1; i++ {
		wi := decimal.NewFromInt(weights[i].amountMinor)
		share := targetTotal.Mul(wi).Add(half).Div(denom).Floor()
		out[i] = Money{amountMinor: share.IntPart(), currency: total.currency}
		allocated += out[i].amountMinor
	}
	out[n-1] = Money{amountMinor: total.amountMinor - allocated, currency: total.currency}
	return out, nil
}
