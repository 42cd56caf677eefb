// Package ledger owns every mutation of an account balance.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"smmwallet/internal/domain"
	"smmwallet/pkg/errors"
)

// Mutation annotates a credit or debit for the audit trail.
type Mutation struct {
	Kind      domain.EntryKind
	Actor     domain.AccountID
	Reference string
}

// Store is a linearizable per-account balance map.
//
// Credit adds amount unconditionally and returns the new balance.
// Debit subtracts amount only if the balance covers it; otherwise it returns
// errors.ErrInsufficientFunds and leaves the balance untouched. Both fail with
// errors.ErrInvalidAmount when ValidateAmount rejects amount.
type Store interface {
	GetBalance(ctx context.Context, account domain.AccountID) (decimal.Decimal, error)
	Credit(ctx context.Context, account domain.AccountID, amount decimal.Decimal, m Mutation) (decimal.Decimal, error)
	Debit(ctx context.Context, account domain.AccountID, amount decimal.Decimal, m Mutation) (decimal.Decimal, error)
}

// EntryLister is implemented by stores that keep an audit trail.
type EntryLister interface {
	Entries(ctx context.Context, account domain.AccountID, limit int) ([]*domain.LedgerEntry, error)
}

// Precision is the number of decimal places balances are kept at.
const Precision = 2

// ValidateAmount rejects non-positive amounts and amounts finer than a cent.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(Precision)) {
		return errors.ErrInvalidAmount
	}
	return nil
}
