// Package money provides minor-unit integer monetary amounts bound to a
// currency tag. Amounts never touch floating point except when handed to an
// ILP backend as an objective/constraint coefficient, and only once the
// integer-to-float round-trip has been checked to be exact.
//
// Basic Usage:
//
//	gbp := money.MustCurrency("GBP")
//	price := money.New(1999, gbp) // £19.99
//	total, err := price.Add(money.New(500, gbp))
package money

import (
	"errors"
	"fmt"
)

// Currency is an immutable ISO 4217 currency descriptor. Money amounts hold
// a pointer to a Currency rather than a copy so that two amounts in "the
// same currency" can be compared by pointer equality or by Code.
type Currency struct {
	code        string
	minorUnits  uint8 // decimal places in the minor unit, e.g. 2 for pence/cents
}

// Code returns the ISO 4217 three-letter code, e.g. "GBP".
func (c *Currency) Code() string { return c.code }

// MinorUnits returns the number of decimal places the minor unit represents.
func (c *Currency) MinorUnits() uint8 { return c.minorUnits }

var registry = map[string]*Currency{
	"GBP": {code: "GBP", minorUnits: 2},
	"USD": {code: "USD", minorUnits: 2},
	"EUR": {code: "EUR", minorUnits: 2},
	"JPY": {code: "JPY", minorUnits: 0},
}

// MustCurrency looks up a registered currency by code, panicking if unknown.
// Intended for static initialization (tests, fixtures); callers handling
// untrusted input should use Currency lookup helpers that return an error
// instead — see internal/fixture for the YAML-facing variant.
func MustCurrency(code string) *Currency {
	c, ok := registry[code]
	if !ok {
		panic(fmt.Sprintf("money: unknown currency code %q", code))
	}
	return c
}

// CurrencyByCode looks up a registered currency by code, returning an error
// rather than panicking. For untrusted input (YAML fixtures, config) — see
// internal/fixture.
func CurrencyByCode(code string) (*Currency, error) {
	c, ok := registry[code]
	if !ok {
		return nil, fmt.Errorf("money: unknown currency code %q", code)
	}
	return c, nil
}

// RegisterCurrency adds or overwrites a currency descriptor, for callers
// that need currencies beyond the built-in set.
func RegisterCurrency(code string, minorUnits uint8) *Currency {
	c := &Currency{code: code, minorUnits: minorUnits}
	registry[code] = c
	return c
}

// Money is an immutable minor-unit integer amount bound to a currency.
type Money struct {
	amountMinor int64
	currency    *Currency
}

// New constructs a Money value from a minor-unit integer amount.
func New(amountMinor int64, currency *Currency) Money {
	return Money{amountMinor: amountMinor, currency: currency}
}

// Zero returns the zero amount in the given currency.
func Zero(currency *Currency) Money { return Money{currency: currency} }

// AmountMinor returns the raw minor-unit integer amount.
func (m Money) AmountMinor() int64 { return m.amountMinor }

// Currency returns the currency this amount is denominated in.
func (m Money) Currency() *Currency { return m.currency }

// ErrCurrencyMismatch is returned whenever an operation combines two Money
// values, or a Money value and an item, that do not share a currency.
var ErrCurrencyMismatch = errors.New("money: currency mismatch")

// ErrNotRepresentable is returned when an integer minor-unit amount cannot
// be represented exactly as a 64-bit float (|amount| > 2^53), which would
// silently corrupt an ILP coefficient.
var ErrNotRepresentable = errors.New("money: amount not exactly representable as float64")

// maxExactFloat64Int is 2^53, the largest integer magnitude an IEEE-754
// double can represent exactly.
const maxExactFloat64Int int64 = 1 << 53

func (m Money) sameCurrency(other Money) error {
	if m.currency == nil || other.currency == nil || m.currency.code != other.currency.code {
		return fmt.Errorf("%w: %v vs %v", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return nil
}

// Add returns m + other, failing on a currency mismatch.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amountMinor: m.amountMinor + other.amountMinor, currency: m.currency}, nil
}

// Sub returns m - other, failing on a currency mismatch.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amountMinor: m.amountMinor - other.amountMinor, currency: m.currency}, nil
}

// Cmp returns -1, 0, or 1 as m is less than, equal to, or greater than
// other. Panics on currency mismatch — callers that can't guarantee
// matching currencies should check first with SameCurrency.
func (m Money) Cmp(other Money) int {
	if err := m.sameCurrency(other); err != nil {
		panic(err)
	}
	switch {
	case m.amountMinor < other.amountMinor:
		return -1
	case m.amountMinor > other.amountMinor:
		return 1
	default:
		return 0
	}
}

// SameCurrency reports whether m and other share a currency.
func (m Money) SameCurrency(other Money) bool {
	return m.sameCurrency(other) == nil
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.amountMinor < 0 }

// AsExactFloat64 converts the minor-unit amount to a float64 for use as an
// ILP coefficient, failing if the round-trip would not be exact.
func (m Money) AsExactFloat64() (float64, error) {
	if m.amountMinor > maxExactFloat64Int || m.amountMinor < -maxExactFloat64Int {
		return 0, fmt.Errorf("%w: %d", ErrNotRepresentable, m.amountMinor)
	}
	return float64(m.amountMinor), nil
}

// String renders "1999 GBP" style debug output; it is not a locale-aware
// display formatter — that concern belongs to an external collaborator.
func (m Money) String() string {
	code := "?"
	if m.currency != nil {
		code = m.currency.code
	}
	return fmt.Sprintf("%d %s", m.amountMinor, code)
}
