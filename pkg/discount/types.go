// Package discount implements the closed set of discount primitives —
// pure pricing functions computing a monetary amount from a discount kind
// and a slice of items. These are the building blocks every promotion
// variant's ILP translator (internal/solver's Translator implementations)
// reduces to when it computes a pre-discounted objective coefficient for
// an item or bundle.
//
// Discount primitives never see tags, qualifications, or budgets — those
// belong to the promotion variants in pkg/promo. This package only answers
// "what does this item/bundle cost after this discount shape is applied".
package discount

import (
	"github.com/shopspring/decimal"

	"github.com/masumrpg/promotion-engine/pkg/item"
	"github.com/masumrpg/promotion-engine/pkg/money"
)

// Kind identifies one of the closed set of discount shapes a promotion
// variant can apply to an item or a bundle of items.
type Kind int

const (
	// PercentOff reduces the price by a percentage, rounded half-away-
	// from-zero to the nearest minor unit.
	PercentOff Kind = iota
	// AmountOff reduces the price by a fixed minor-unit amount, floored
	// at zero.
	AmountOff
	// AmountOverride replaces the price outright with a fixed minor-unit
	// amount.
	AmountOverride
	// SetBundleTotal replaces the combined price of a slice of items with
	// a fixed minor-unit total, to be allocated proportionally.
	SetBundleTotal
	// SetCheapestPrice replaces the price of the single cheapest item in
	// a slice with a fixed minor-unit amount, leaving the rest untouched.
	SetCheapestPrice
)

// Spec fully describes one discount primitive: its kind plus the single
// parameter that shape needs (percentage, minor-unit amount, or override
// price — callers set only the field relevant to Kind).
type Spec struct {
	Kind    Kind
	Percent decimal.Decimal // PercentOff
	Amount  int64           // AmountOff, AmountOverride, SetBundleTotal, SetCheapestPrice (minor units)
}

// item aliasing to keep call sites short.
type Item = item.Item
