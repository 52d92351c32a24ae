// Package errs defines the typed error taxonomy that crosses every package
// boundary in this module (spec.md §7). Every error the core returns can be
// matched with errors.As against *errs.Error and inspected by Kind; nothing
// is retried internally and partial results are never returned — a failure
// anywhere aborts the whole evaluation.
package errs

import (
	"errors"
	"fmt"
)

// Kind discriminates the closed set of ways an evaluation can fail.
type Kind int

const (
	// CurrencyMismatch: basket/item or arithmetic across differing
	// currencies.
	CurrencyMismatch Kind = iota
	// MinorUnitsNotRepresentable: an integer coefficient exceeds 2^53.
	MinorUnitsNotRepresentable
	// DiscountComputation: percentage overflow, empty slice when
	// currency required, or other discount-primitive arithmetic failure.
	DiscountComputation
	// ItemIndexOutOfRange: the layer solver received an index with no
	// item.
	ItemIndexOutOfRange
	// GraphValidation: a build-time graph invariant was violated.
	GraphValidation
	// BackendUnsolved: the MILP backend returned no feasible solution.
	BackendUnsolved
	// InvariantViolation: an internal bug (e.g. a missing pre-computed
	// discounted price for a per-item tier mode). Never caught and
	// papered over — always a fatal signal.
	InvariantViolation
)

func (k Kind) String() string {
	switch k {
	case CurrencyMismatch:
		return "CurrencyMismatch"
	case MinorUnitsNotRepresentable:
		return "MinorUnitsNotRepresentable"
	case DiscountComputation:
		return "DiscountComputation"
	case ItemIndexOutOfRange:
		return "ItemIndexOutOfRange"
	case GraphValidation:
		return "GraphValidation"
	case BackendUnsolved:
		return "BackendUnsolved"
	case InvariantViolation:
		return "InvariantViolation"
	default:
		return "Unknown"
	}
}

// Error is the single typed error shape every boundary in this module
// returns. Wrap an underlying cause with Unwrap-compatible chaining so
// callers can still errors.Is/As against the original error when needed.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Kind-tagged error with no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf builds a Kind-tagged error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a Kind-tagged error around an underlying cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
