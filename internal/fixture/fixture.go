// Package fixture loads YAML-declared items, promotions, and graph
// topology into the pkg/item, pkg/promo, and pkg/graph types this module's
// core operates on. It is test/demo tooling only — the YAML/JSON fixture
// parsing spec.md names as an out-of-scope external collaborator — and is
// never imported from pkg/ or internal/solver.
package fixture

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/masumrpg/promotion-engine/pkg/discount"
	"github.com/masumrpg/promotion-engine/pkg/graph"
	"github.com/masumrpg/promotion-engine/pkg/item"
	"github.com/masumrpg/promotion-engine/pkg/money"
	"github.com/masumrpg/promotion-engine/pkg/promo"
	"github.com/masumrpg/promotion-engine/pkg/tags"
)

// Fixture is the loaded, fully-typed result of parsing one YAML document:
// a priced item group plus a validated promotion graph ready to evaluate.
type Fixture struct {
	Basket item.Group
	Graph  graph.Graph
}

// doc mirrors the top-level YAML shape.
type doc struct {
	Currency string      `yaml:"currency"`
	Items    []itemDoc   `yaml:"items"`
	Layers   []layerDoc  `yaml:"layers"`
	Edges    []edgeDoc   `yaml:"edges"`
}

type itemDoc struct {
	Price int64    `yaml:"price"`
	Tags  []string `yaml:"tags"`
}

type layerDoc struct {
	Name       string           `yaml:"name"`
	Mode       string           `yaml:"mode"` // "pass_through" | "split"
	Promotions []promotionDoc   `yaml:"promotions"`
}

type edgeDoc struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Label string `yaml:"label"` // "all" | "participating" | "non_participating"
}

// promotionDoc is a tagged union over the four promo.Promotion variants,
// discriminated by Type, mirroring original_source/src/fixtures/
// promotions.rs's `#[serde(tag = "type")]` convention.
type promotionDoc struct {
	Type string `yaml:"type"`

	// direct_discount
	Qualification *qualificationDoc `yaml:"qualification"`
	Discount      *discountDoc      `yaml:"discount"`

	// tiered_threshold
	Tiers []tierDoc `yaml:"tiers"`

	// mix_and_match
	Slots   []slotDoc `yaml:"slots"`
	Mode    string    `yaml:"mode"`
	Percent float64   `yaml:"percent"`
	Amount  int64     `yaml:"amount"`

	// positional_discount
	BundleSize int   `yaml:"bundle_size"`
	Positions  []int `yaml:"positions"`
}

type qualificationDoc struct {
	HasAny  []string           `yaml:"has_any"`
	HasAll  []string           `yaml:"has_all"`
	HasNone []string           `yaml:"has_none"`
	And     []qualificationDoc `yaml:"and"`
	Or      []qualificationDoc `yaml:"or"`
}

type discountDoc struct {
	Kind    string  `yaml:"kind"` // "percent_off" | "amount_off" | "amount_override"
	Percent float64 `yaml:"percent"`
	Amount  int64   `yaml:"amount"`
}

type tierDoc struct {
	MonetaryMin               *int64            `yaml:"monetary_min"`
	CountMin                  *int              `yaml:"count_min"`
	MonetaryMax               *int64            `yaml:"monetary_max"`
	CountMax                  *int              `yaml:"count_max"`
	ContributionQualification *qualificationDoc `yaml:"contribution_qualification"`
	DiscountQualification     *qualificationDoc `yaml:"discount_qualification"`
	Mode                      string            `yaml:"mode"`
	Percent                   float64           `yaml:"percent"`
	Amount                    int64             `yaml:"amount"`
}

type slotDoc struct {
	Tags *qualificationDoc `yaml:"tags"`
	Min  int               `yaml:"min"`
	Max  *int              `yaml:"max"`
}

// Load reads and parses a YAML fixture file at path into a ready-to-evaluate
// Fixture.
func Load(path string) (Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("fixture: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes raw YAML bytes into a ready-to-evaluate Fixture.
func Parse(raw []byte) (Fixture, error) {
	var d doc
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Fixture{}, fmt.Errorf("fixture: parse yaml: %w", err)
	}

	currency, err := money.CurrencyByCode(d.Currency)
	if err != nil {
		return Fixture{}, fmt.Errorf("fixture: %w", err)
	}

	items := make([]item.Item, len(d.Items))
	for i, id := range d.Items {
		items[i] = item.Item{
			ProductID: item.NewProductID(),
			Price:     money.New(id.Price, currency),
			Tags:      tags.NewSet(id.Tags...),
		}
	}
	basket, err := item.NewGroup(currency, items)
	if err != nil {
		return Fixture{}, fmt.Errorf("fixture: build basket: %w", err)
	}

	if len(d.Layers) == 0 {
		return Fixture{}, fmt.Errorf("fixture: at least one layer is required")
	}

	builder := graph.NewBuilder()
	keys := make(map[string]graph.NodeKey, len(d.Layers))
	for _, l := range d.Layers {
		mode, err := parseOutputMode(l.Mode)
		if err != nil {
			return Fixture{}, fmt.Errorf("fixture: layer %q: %w", l.Name, err)
		}
		promotions := make([]promo.Promotion, len(l.Promotions))
		for i, pd := range l.Promotions {
			p, err := parsePromotion(pd)
			if err != nil {
				return Fixture{}, fmt.Errorf("fixture: layer %q promotion %d: %w", l.Name, i, err)
			}
			promotions[i] = p
		}
		key := graph.NewNodeKey()
		keys[l.Name] = key
		builder = builder.AddNode(graph.Node{Key: key, Promotions: promotions, Mode: mode})
	}

	for _, e := range d.Edges {
		from, ok := keys[e.From]
		if !ok {
			return Fixture{}, fmt.Errorf("fixture: edge references unknown layer %q", e.From)
		}
		to, ok := keys[e.To]
		if !ok {
			return Fixture{}, fmt.Errorf("fixture: edge references unknown layer %q", e.To)
		}
		label, err := parseEdgeLabel(e.Label)
		if err != nil {
			return Fixture{}, fmt.Errorf("fixture: edge %s->%s: %w", e.From, e.To, err)
		}
		builder = builder.AddEdge(from, to, label)
	}

	g, err := builder.Build()
	if err != nil {
		return Fixture{}, fmt.Errorf("fixture: build graph: %w", err)
	}

	return Fixture{Basket: basket, Graph: g}, nil
}

func parseOutputMode(s string) (graph.OutputMode, error) {
	switch s {
	case "", "pass_through":
		return graph.PassThrough, nil
	case "split":
		return graph.Split, nil
	default:
		return 0, fmt.Errorf("unknown layer mode %q", s)
	}
}

func parseEdgeLabel(s string) (graph.EdgeLabel, error) {
	switch s {
	case "all":
		return graph.All, nil
	case "participating":
		return graph.Participating, nil
	case "non_participating":
		return graph.NonParticipating, nil
	default:
		return 0, fmt.Errorf("unknown edge label %q", s)
	}
}

func parseQualification(q *qualificationDoc) tags.Qualification {
	if q == nil {
		return tags.Qualification{}
	}
	var parts []tags.Qualification
	if len(q.HasAny) > 0 {
		parts = append(parts, tags.HasAny(q.HasAny...))
	}
	if len(q.HasAll) > 0 {
		parts = append(parts, tags.HasAll(q.HasAll...))
	}
	if len(q.HasNone) > 0 {
		parts = append(parts, tags.HasNone(q.HasNone...))
	}
	for _, sub := range q.And {
		sub := sub
		parts = append(parts, parseQualification(&sub))
	}
	if len(q.Or) > 0 {
		orParts := make([]tags.Qualification, len(q.Or))
		for i, sub := range q.Or {
			sub := sub
			orParts[i] = parseQualification(&sub)
		}
		parts = append(parts, tags.Or(orParts...))
	}
	switch len(parts) {
	case 0:
		return tags.Qualification{}
	case 1:
		return parts[0]
	default:
		return tags.And(parts...)
	}
}

func parseDiscount(d *discountDoc) (discount.Spec, error) {
	if d == nil {
		return discount.Spec{}, fmt.Errorf("discount is required")
	}
	switch d.Kind {
	case "percent_off":
		return discount.Spec{Kind: discount.PercentOff, Percent: decimal.NewFromFloat(d.Percent)}, nil
	case "amount_off":
		return discount.Spec{Kind: discount.AmountOff, Amount: d.Amount}, nil
	case "amount_override":
		return discount.Spec{Kind: discount.AmountOverride, Amount: d.Amount}, nil
	default:
		return discount.Spec{}, fmt.Errorf("unknown discount kind %q", d.Kind)
	}
}

func parseDiscountMode(s string) (promo.DiscountMode, error) {
	switch s {
	case "percent_each":
		return promo.ModePercentEach, nil
	case "amount_off_each":
		return promo.ModeAmountOffEach, nil
	case "fixed_price_each":
		return promo.ModeFixedPriceEach, nil
	case "amount_off_total":
		return promo.ModeAmountOffTotal, nil
	case "fixed_total":
		return promo.ModeFixedTotal, nil
	case "percent_cheapest":
		return promo.ModePercentCheapest, nil
	case "fixed_cheapest":
		return promo.ModeFixedCheapest, nil
	default:
		return 0, fmt.Errorf("unknown tier mode %q", s)
	}
}

func parseMixMatchMode(s string) (promo.MixAndMatchMode, error) {
	switch s {
	case "all_items_percent":
		return promo.ModeAllItemsPercent, nil
	case "percent_cheapest_item":
		return promo.ModePercentCheapestItem, nil
	case "fixed_total_bundle":
		return promo.ModeFixedTotalBundle, nil
	case "fixed_cheapest_item":
		return promo.ModeFixedCheapestItem, nil
	default:
		return 0, fmt.Errorf("unknown mix-and-match mode %q", s)
	}
}

func parsePromotion(d promotionDoc) (promo.Promotion, error) {
	p := promo.Promotion{Key: promo.NewKey()}

	switch d.Type {
	case "direct_discount":
		spec, err := parseDiscount(d.Discount)
		if err != nil {
			return promo.Promotion{}, err
		}
		p.Variant = promo.VariantDirectDiscount
		p.Direct = &promo.DirectDiscount{
			Qualification: parseQualification(d.Qualification),
			Discount:      spec,
		}
	case "tiered_threshold":
		tiers := make([]promo.Tier, len(d.Tiers))
		for i, td := range d.Tiers {
			mode, err := parseDiscountMode(td.Mode)
			if err != nil {
				return promo.Promotion{}, fmt.Errorf("tier %d: %w", i, err)
			}
			tiers[i] = promo.Tier{
				MonetaryMin:               td.MonetaryMin,
				CountMin:                  td.CountMin,
				MonetaryMax:               td.MonetaryMax,
				CountMax:                  td.CountMax,
				ContributionQualification: parseQualification(td.ContributionQualification),
				DiscountQualification:     parseQualification(td.DiscountQualification),
				Mode:                      mode,
				Percent:                   decimal.NewFromFloat(td.Percent),
				Amount:                    td.Amount,
			}
		}
		p.Variant = promo.VariantTieredThreshold
		p.Tiered = &promo.TieredThreshold{Tiers: tiers}
	case "mix_and_match":
		slots := make([]promo.Slot, len(d.Slots))
		for i, sd := range d.Slots {
			slots[i] = promo.Slot{Tags: parseQualification(sd.Tags), Min: sd.Min, Max: sd.Max}
		}
		mode, err := parseMixMatchMode(d.Mode)
		if err != nil {
			return promo.Promotion{}, err
		}
		p.Variant = promo.VariantMixAndMatch
		p.MixAndMatch = &promo.MixAndMatch{
			Slots:   slots,
			Mode:    mode,
			Percent: decimal.NewFromFloat(d.Percent),
			Amount:  d.Amount,
		}
	case "positional_discount":
		spec, err := parseDiscount(d.Discount)
		if err != nil {
			return promo.Promotion{}, err
		}
		positions := make(map[int]struct{}, len(d.Positions))
		for _, pos := range d.Positions {
			positions[pos] = struct{}{}
		}
		p.Variant = promo.VariantPositionalDiscount
		p.Positional = &promo.PositionalDiscount{
			Qualification: parseQualification(d.Qualification),
			BundleSize:    d.BundleSize,
			Positions:     positions,
			Discount:      spec,
		}
	default:
		return promo.Promotion{}, fmt.Errorf("unknown promotion type %q", d.Type)
	}

	return p, nil
}
