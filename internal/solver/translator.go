package solver

import (
	"github.com/masumrpg/promotion-engine/pkg/item"
	"github.com/masumrpg/promotion-engine/pkg/money"
	"github.com/masumrpg/promotion-engine/pkg/promo"
)

// PromotionApplication records that one promotion touched one item within
// one bundle, carrying the price it saw on entry and the price it left
// behind — the unit the receipt package's application trail is built from.
type PromotionApplication struct {
	PromotionKey  promo.Key
	ItemIndex     int
	BundleID      int
	OriginalPrice money.Money
	FinalPrice    money.Money
}

// Observer receives callbacks as a layer's ILP formulation is built, for
// callers that want to capture or render it (spec.md §9's "Typst renderer"
// is one such observer; this module ships only the seam). All methods are
// no-ops to implement by embedding NoopObserver.
type Observer interface {
	OnVariable(promotionKey promo.Key, label string, varIndex int)
	OnConstraint(promotionKey promo.Key, label string, c Constraint)
	OnObjectiveTerm(promotionKey promo.Key, label string, varIndex int, coeff float64)
}

// NoopObserver implements Observer with no-op methods; embed it to satisfy
// the interface without implementing callbacks you don't need.
type NoopObserver struct{}

func (NoopObserver) OnVariable(promo.Key, string, int)             {}
func (NoopObserver) OnConstraint(promo.Key, string, Constraint)    {}
func (NoopObserver) OnObjectiveTerm(promo.Key, string, int, float64) {}

// Translator is the capability interface spec.md §9 calls for: an
// open-ended extension point so new promotion variants can be added
// without special-casing a closed enum, even though this module ships
// only the four variants in pkg/promo. One Translator instance is scoped
// to a single promotion within a single layer solve.
type Translator interface {
	// Key returns the promotion this translator instance decodes for.
	Key() promo.Key

	// IsApplicable reports whether this promotion can contribute any
	// variables for group — e.g. a qualification matching nothing, or a
	// mix-and-match slot with too few eligible items, makes a promotion
	// inapplicable; it then contributes no variables and no applications
	// (spec.md §8 boundary behaviors).
	IsApplicable(group item.Group) bool

	// AddVariables creates this promotion's decision variables in model,
	// recording enough internal state to later emit constraints and
	// decode a solution.
	AddVariables(model *Model, group item.Group, obs Observer) error

	// AddConstraints emits this promotion's structural constraints (tier
	// activation, slot bounds, budgets, automaton transitions, ...).
	// Called after every promotion in the layer has added its variables,
	// so translators may not assume variable index contiguity across
	// promotions.
	AddConstraints(model *Model, group item.Group, obs Observer) error

	// ParticipationVars returns, for itemIndex, every variable index this
	// promotion created that would consume that item if set to 1. The
	// layer solver sums these into the global exclusivity constraint
	// (spec.md §4.2).
	ParticipationVars(itemIndex int) []int

	// DecodeApplications turns a solved model into PromotionApplication
	// records, drawing fresh bundle ids from the shared counter.
	DecodeApplications(sol Solution, group item.Group, bundleCounter *int) ([]PromotionApplication, error)
}
