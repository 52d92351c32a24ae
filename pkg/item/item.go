// Package item defines the basket-facing value types the core consumes:
// products, items, and ordered item groups. Catalog storage, basket
// construction, and persistence are external collaborators — this package
// only holds the values the solver and graph packages operate on.
package item

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/masumrpg/promotion-engine/pkg/money"
	"github.com/masumrpg/promotion-engine/pkg/tags"
)

// ProductID is an opaque, stable product identifier.
type ProductID uuid.UUID

// String renders the identifier for logging/debugging.
func (p ProductID) String() string { return uuid.UUID(p).String() }

// NewProductID generates a fresh random product identifier.
func NewProductID() ProductID { return ProductID(uuid.New()) }

// Product is a catalog entry: stable id, display name, catalog price, tags.
// The core reads products, never mutates them — catalogs are owned and
// mutated by the caller.
type Product struct {
	ID    ProductID
	Name  string
	Price money.Money
	Tags  tags.Set
}

// Item is a priced, tagged line in a basket. Its price may differ from the
// originating Product's catalog price when the item was produced by an
// earlier graph layer carrying a discounted price forward.
type Item struct {
	ProductID ProductID
	Price     money.Money
	Tags      tags.Set
}

// NewFromProduct builds an Item at the product's catalog price.
func NewFromProduct(p Product) Item {
	return Item{ProductID: p.ID, Price: p.Price, Tags: p.Tags}
}

// ErrCurrencyMismatch is returned when an item's currency does not match
// the item group's declared currency.
var ErrCurrencyMismatch = errors.New("item: currency mismatch with group")

// Group is an ordered, positionally-stable sequence of items sharing one
// currency. Indexing is positional and stable within a single solve — the
// graph and solver packages refer to items exclusively by index into a
// Group.
type Group struct {
	currency *money.Currency
	items    []Item
}

// NewGroup validates that every item shares currency and builds a Group.
func NewGroup(currency *money.Currency, items []Item) (Group, error) {
	for i, it := range items {
		if !it.Price.SameCurrency(money.Zero(currency)) {
			return Group{}, fmt.Errorf("%w: item %d is %s, group is %s", ErrCurrencyMismatch, i, it.Price.Currency().Code(), currency.Code())
		}
	}
	cp := make([]Item, len(items))
	copy(cp, items)
	return Group{currency: currency, items: cp}, nil
}

// Currency returns the group's shared currency.
func (g Group) Currency() *money.Currency { return g.currency }

// Len returns the number of items in the group.
func (g Group) Len() int { return len(g.items) }

// IsEmpty reports whether the group holds no items.
func (g Group) IsEmpty() bool { return len(g.items) == 0 }

// At returns the item at position i, or an error if i is out of range.
func (g Group) At(i int) (Item, error) {
	if i < 0 || i >= len(g.items) {
		return Item{}, fmt.Errorf("item: index %d out of range [0,%d)", i, len(g.items))
	}
	return g.items[i], nil
}

// Items returns a read-only view of the underlying items in order. The
// caller must not mutate the returned slice.
func (g Group) Items() []Item { return g.items }

// Subtotal sums the full current price of every item in the group.
func (g Group) Subtotal() money.Money {
	total := money.Zero(g.currency)
	for _, it := range g.items {
		total, _ = total.Add(it.Price)
	}
	return total
}
