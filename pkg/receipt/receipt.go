// Package receipt builds the final priced receipt from a basket and a
// graph evaluation result (spec.md §4.4 finalization, §6 "Receipt
// consumes").
package receipt

import (
	"sort"

	"github.com/masumrpg/promotion-engine/internal/solver"
	"github.com/masumrpg/promotion-engine/pkg/errs"
	"github.com/masumrpg/promotion-engine/pkg/graph"
	"github.com/masumrpg/promotion-engine/pkg/item"
	"github.com/masumrpg/promotion-engine/pkg/money"
)

// Receipt is the priced outcome of one evaluation: subtotal, total,
// savings, and a per-item trail of which promotions touched it.
type Receipt struct {
	Currency         *money.Currency
	Subtotal         money.Money
	Total            money.Money
	Savings          money.Money
	FullPriceItems   []int
	ItemApplications map[int][]solver.PromotionApplication
}

// Build aggregates basket (for subtotal and currency) and result into a
// Receipt (spec.md §6).
func Build(basket item.Group, result graph.LayeredSolverResult) (Receipt, error) {
	subtotal := basket.Subtotal()
	if !subtotal.SameCurrency(result.Total) {
		return Receipt{}, errs.New(errs.CurrencyMismatch, "receipt: basket and result currency differ")
	}
	savings, err := subtotal.Sub(result.Total)
	if err != nil {
		return Receipt{}, errs.Wrap(errs.CurrencyMismatch, "receipt savings", err)
	}

	fullPrice := append([]int{}, result.FullPriceItems...)
	sort.Ints(fullPrice)

	return Receipt{
		Currency:         basket.Currency(),
		Subtotal:         subtotal,
		Total:            result.Total,
		Savings:          savings,
		FullPriceItems:   fullPrice,
		ItemApplications: result.ItemApplications,
	}, nil
}
