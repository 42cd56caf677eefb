// Package errors provides the error taxonomy shared by the ledger, pricing,
// provider and order packages.
package errors

import (
	"errors"
	"fmt"
)

// Validation errors. These are always reported before any ledger mutation.
var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidService  = errors.New("invalid service id")
	ErrInvalidLink     = errors.New("invalid link")
	ErrUnauthorized    = errors.New("unauthorized")
)

// Ledger and order errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotInReview  = errors.New("order is not awaiting manual review")
	ErrOrderStateChanged = errors.New("order state changed")
)

// Upstream errors. ErrAmbiguousOutcome marks an order whose provider
// outcome could not be determined and which needs manual reconciliation.
var (
	ErrProvider         = errors.New("provider error")
	ErrAmbiguousOutcome = errors.New("ambiguous provider outcome")
)

// ErrDuplicateRequest is returned while a request with the same
// Idempotency-Key is still in flight.
var ErrDuplicateRequest = errors.New("duplicate request in progress")

// Catalog listing errors
var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryEmpty    = errors.New("category listing is empty")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsValidation reports whether err is one of the request validation errors.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidService) ||
		errors.Is(err, ErrInvalidLink)
}
