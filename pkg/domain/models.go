package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinels for provider fields that were absent or unparseable.
const (
	NotAvailable  = "N/A"
	UnknownStatus = "Unknown"
)

// AccountID is the opaque, stable identifier of a community member.
type AccountID string

func (id AccountID) String() string {
	return string(id)
}

// Account holds a member's spendable balance. Balance is never negative.
type Account struct {
	ID        AccountID       `json:"account_id" db:"account_id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// CatalogEntry is one purchasable provider service. Rate is the upstream
// price per 1000 units. Min and Max are zero when the provider omits them.
type CatalogEntry struct {
	ServiceID string          `json:"service"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Type      string          `json:"type,omitempty"`
	Rate      decimal.Decimal `json:"rate"`
	Min       int             `json:"min,omitempty"`
	Max       int             `json:"max,omitempty"`
	Refill    bool            `json:"refill"`
}

// PurchaseRequest is a member's request to buy Quantity units of a service.
type PurchaseRequest struct {
	Account   AccountID `json:"account" validate:"required"`
	ServiceID string    `json:"service_id" validate:"required"`
	Link      string    `json:"link" validate:"required"`
	Quantity  int       `json:"quantity"`
}

// OrderState tracks an order through placement.
type OrderState string

const (
	OrderStateRequested     OrderState = "requested"
	OrderStatePriced        OrderState = "priced"
	OrderStateFundsReserved OrderState = "funds_reserved"
	OrderStateSubmitted     OrderState = "submitted"
	OrderStateConfirmed     OrderState = "confirmed"
	OrderStateRefunded      OrderState = "failed_refunded"
	OrderStateManualReview  OrderState = "failed_needs_manual_review"
)

// Terminal reports whether no further automatic transition leaves s.
func (s OrderState) Terminal() bool {
	switch s {
	case OrderStateConfirmed, OrderStateRefunded, OrderStateManualReview:
		return true
	}
	return false
}

// Order is the local record of a placement attempt. ID is the provider
// order id and is empty unless the provider accepted the order.
type Order struct {
	Reference uuid.UUID       `json:"reference" db:"reference"`
	ID        string          `json:"order_id,omitempty" db:"provider_order_id"`
	Account   AccountID       `json:"account" db:"account_id"`
	ServiceID string          `json:"service_id" db:"service_id"`
	Link      string          `json:"link" db:"link"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Charged   decimal.Decimal `json:"charged" db:"charged"`
	State     OrderState      `json:"state" db:"state"`
	Error     string          `json:"error,omitempty" db:"error"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderStatus is a snapshot of an order as reported by the provider.
// Fields the provider omits hold NotAvailable.
type OrderStatus struct {
	OrderID    string `json:"order_id"`
	StartCount string `json:"start_count"`
	Remains    string `json:"remains"`
	Status     string `json:"status"`
	Charge     string `json:"charge"`
	Currency   string `json:"currency"`
}

// RefillRequest references a refill of an existing provider order.
type RefillRequest struct {
	ID      string `json:"refill_id"`
	OrderID string `json:"order_id,omitempty"`
	Status  string `json:"status"`
}

// ProviderBalance is the reseller account balance, as reported upstream.
type ProviderBalance struct {
	Amount   string `json:"balance"`
	Currency string `json:"currency"`
}

// EntryKind classifies a ledger mutation.
type EntryKind string

const (
	EntryApprove     EntryKind = "approve"
	EntryDeduct      EntryKind = "deduct"
	EntryOrderDebit  EntryKind = "order_debit"
	EntryOrderRefund EntryKind = "order_refund"
)

// LedgerEntry is the audit record of one credit or debit. Amount is signed:
// credits are positive and debits negative.
type LedgerEntry struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Account      AccountID       `json:"account" db:"account_id"`
	Kind         EntryKind       `json:"kind" db:"kind"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after" db:"balance_after"`
	Actor        AccountID       `json:"actor" db:"actor"`
	Reference    string          `json:"reference,omitempty" db:"reference"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
