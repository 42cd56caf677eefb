// Package domain re-exports core domain types so internal code can import
// `smmwallet/internal/domain` while using definitions from `smmwallet/pkg/domain`.
package domain

import pkg "smmwallet/pkg/domain"

// AccountID identifies a community member.
type AccountID = pkg.AccountID

// Account holds a member balance.
type Account = pkg.Account

// CatalogEntry is a purchasable provider service.
type CatalogEntry = pkg.CatalogEntry

// PurchaseRequest is a member purchase request.
type PurchaseRequest = pkg.PurchaseRequest

// Order is a local order record.
type Order = pkg.Order

// OrderState represents order placement states.
type OrderState = pkg.OrderState

// OrderStatus is a provider status snapshot.
type OrderStatus = pkg.OrderStatus

// RefillRequest references a provider refill.
type RefillRequest = pkg.RefillRequest

// ProviderBalance is the reseller account balance.
type ProviderBalance = pkg.ProviderBalance

// EntryKind classifies ledger mutations.
type EntryKind = pkg.EntryKind

// LedgerEntry is a ledger audit record.
type LedgerEntry = pkg.LedgerEntry

// Re-exported sentinels.
const (
	NotAvailable  = pkg.NotAvailable
	UnknownStatus = pkg.UnknownStatus
)

// Re-exported order states.
const (
	OrderStateRequested     = pkg.OrderStateRequested
	OrderStatePriced        = pkg.OrderStatePriced
	OrderStateFundsReserved = pkg.OrderStateFundsReserved
	OrderStateSubmitted     = pkg.OrderStateSubmitted
	OrderStateConfirmed     = pkg.OrderStateConfirmed
	OrderStateRefunded      = pkg.OrderStateRefunded
	OrderStateManualReview  = pkg.OrderStateManualReview
)

// Re-exported entry kinds.
const (
	EntryApprove     = pkg.EntryApprove
	EntryDeduct      = pkg.EntryDeduct
	EntryOrderDebit  = pkg.EntryOrderDebit
	EntryOrderRefund = pkg.EntryOrderRefund
)
