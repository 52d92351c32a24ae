// Package promo implements the closed tagged-union catalog of promotion
// variants that compete inside one layer of a promotion graph: direct
// discounts, tiered thresholds, mix-and-match bundles, and positional
// ("every Nth item") discounts. Promotions are owned by the caller and
// referenced by opaque Key for their lifetime; the core never mutates one.
//
// Translating a Promotion into ILP variables/constraints is the job of
// internal/solver's Translator implementations — this package only holds
// the declarative shape of each variant.
package promo

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/masumrpg/promotion-engine/pkg/discount"
	"github.com/masumrpg/promotion-engine/pkg/tags"
)

// Key is a stable, opaque promotion identifier, unique within a single
// root-to-leaf path of a promotion graph (spec.md §3 invariants).
type Key uuid.UUID

// NewKey generates a fresh random promotion key.
func NewKey() Key { return Key(uuid.New()) }

// String renders the key for logging and error messages.
func (k Key) String() string { return uuid.UUID(k).String() }

// Budget is an optional per-promotion ceiling on how many times it may
// apply and/or how much total monetary savings it may grant within one
// layer solve. A zero Budget (both fields absent) means unlimited.
type Budget struct {
	// MaxApplications caps how many bundles/items this promotion may
	// claim. Nil means no cap.
	MaxApplications *int
	// MaxSavingsMinor caps the total minor-unit savings this promotion
	// may grant. Nil means no cap. The mix-and-match translator does not
	// apply it.
	MaxSavingsMinor *int64
}

// Variant discriminates the closed promotion union.
type Variant int

const (
	VariantDirectDiscount Variant = iota
	VariantTieredThreshold
	VariantMixAndMatch
	VariantPositionalDiscount
)

// Promotion is the tagged union of the four promotion variants. Exactly
// one of the *Direct/*Tiered/*MixAndMatch/*Positional fields is populated,
// matching Variant.
type Promotion struct {
	Key     Key
	Variant Variant

	Direct      *DirectDiscount
	Tiered      *TieredThreshold
	MixAndMatch *MixAndMatch
	Positional  *PositionalDiscount
}

// DirectDiscount applies one discount primitive to every item matching its
// qualification; each selected item forms its own bundle of size 1.
type DirectDiscount struct {
	Qualification tags.Qualification
	Discount      discount.Spec // PercentOff | AmountOff | AmountOverride
	Budget        Budget
}

// DiscountMode enumerates how a TieredThreshold tier applies its discount
// once activated (MixAndMatch bundles use MixAndMatchMode).
type DiscountMode int

const (
	ModePercentEach DiscountMode = iota
	ModeAmountOffEach
	ModeFixedPriceEach
	ModeAmountOffTotal
	ModeFixedTotal
	ModePercentCheapest
	ModeFixedCheapest
)

// IsBundleTotalMode reports whether mode computes a single discount across
// the whole activated bundle rather than per claimed item.
func (m DiscountMode) IsBundleTotalMode() bool {
	return m == ModeAmountOffTotal || m == ModeFixedTotal
}

// IsCheapestMode reports whether mode pins its discount to the single
// cheapest claimed item.
func (m DiscountMode) IsCheapestMode() bool {
	return m == ModePercentCheapest || m == ModeFixedCheapest
}

// IsPerItemMode reports whether mode discounts every claimed item
// individually (as opposed to a bundle-total or cheapest-only mode).
func (m DiscountMode) IsPerItemMode() bool {
	return m == ModePercentEach || m == ModeAmountOffEach || m == ModeFixedPriceEach
}

// Tier is one threshold rung of a TieredThreshold promotion.
type Tier struct {
	// MonetaryMin/CountMin are the lower threshold; nil means "no floor
	// on this axis", and a tier with neither set may activate without
	// any threshold.
	MonetaryMin *int64
	CountMin    *int

	// MonetaryMax/CountMax are optional upper caps on how much this tier
	// instance may claim.
	MonetaryMax *int64
	CountMax    *int

	ContributionQualification tags.Qualification
	DiscountQualification     tags.Qualification

	Mode    DiscountMode
	Percent decimal.Decimal // for ModePercentEach / ModePercentCheapest
	Amount  int64           // minor units, for Amount*/Fixed* modes
}

// TieredThreshold is an ordered list of tiers sharing one budget; at most
// one tier activates per solve (spec.md §4.3.2: "at most one tier active").
type TieredThreshold struct {
	Tiers  []Tier
	Budget Budget
}

// Slot is one component of a MixAndMatch bundle: items matching Tags, with
// a required count range [Min,Max]. Max == nil means unbounded.
type Slot struct {
	Tags tags.Qualification
	Min  int
	Max  *int
}

// IsFixedArity reports whether slot contributes to a fixed-arity bundle
// (Max set and equal to Min).
func (s Slot) IsFixedArity() bool {
	return s.Max != nil && *s.Max == s.Min
}

// MixAndMatchMode enumerates how a MixAndMatch bundle applies its
// discount once formed.
type MixAndMatchMode int

const (
	ModeAllItemsPercent MixAndMatchMode = iota
	ModePercentCheapestItem
	ModeFixedTotalBundle
	ModeFixedCheapestItem
)

// IsCheapestMode reports whether mode pins its discount to the single
// cheapest item in the formed bundle.
func (m MixAndMatchMode) IsCheapestMode() bool {
	return m == ModePercentCheapestItem || m == ModeFixedCheapestItem
}

// MixAndMatch is an ordered list of slots forming bundles; arity is fixed
// iff every slot has Max == Min, else variable (at most one bundle forms
// per solve, per spec.md §4.3.3).
type MixAndMatch struct {
	Slots   []Slot
	Mode    MixAndMatchMode
	Percent decimal.Decimal
	Amount  int64
	Budget  Budget
}

// IsFixedArity reports whether every slot in the bundle has a fixed count.
func (m MixAndMatch) IsFixedArity() bool {
	for _, s := range m.Slots {
		if !s.IsFixedArity() {
			return false
		}
	}
	return true
}

// PositionalDiscount rewards fixed 0-indexed positions within a repeating
// bundle of size N, e.g. "every 3rd item free" is N=3, Positions={2}.
type PositionalDiscount struct {
	Qualification tags.Qualification
	BundleSize    int
	Positions     map[int]struct{}
	Discount      discount.Spec // PercentOff | AmountOff | AmountOverride
}
