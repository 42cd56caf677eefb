// Package admin is the privileged path for moving money outside the order
// flow and for reconciling orders the orchestrator could not settle.
package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"smmwallet/internal/auth"
	"smmwallet/internal/domain"
	"smmwallet/internal/ledger"
	"smmwallet/pkg/errors"
	"smmwallet/pkg/logger"
)

// InsufficientFundsError reports a refused deduction together with the
// balance that was too small.
type InsufficientFundsError struct {
	Account domain.AccountID
	Balance decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: %s has %s", e.Account, e.Balance.StringFixed(ledger.Precision))
}

func (e *InsufficientFundsError) Unwrap() error {
	return errors.ErrInsufficientFunds
}

// BalanceSource reports the reseller balance; *provider.Client satisfies it.
type BalanceSource interface {
	QueryBalance(ctx context.Context) (*domain.ProviderBalance, error)
}

// Reviewer lists and settles orders awaiting manual review;
// *order.Orchestrator satisfies it.
type Reviewer interface {
	ListManualReview(ctx context.Context, limit int) ([]*domain.Order, error)
	Resolve(ctx context.Context, actor domain.AccountID, reference uuid.UUID, refund bool, providerOrderID string) (*domain.Order, error)
}

type Service struct {
	store    ledger.Store
	authz    auth.Authorizer
	provider BalanceSource
	reviewer Reviewer
	logger   logger.Logger
}

func NewService(store ledger.Store, authz auth.Authorizer, provider BalanceSource, reviewer Reviewer, log logger.Logger) *Service {
	return &Service{
		store:    store,
		authz:    authz,
		provider: provider,
		reviewer: reviewer,
		logger:   log,
	}
}

// Approve credits target after a verified external payment.
func (s *Service) Approve(ctx context.Context, actor, target domain.AccountID, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := s.authorize(actor, auth.ActionAdjustBalance, "approve", target, amount); err != nil {
		return decimal.Zero, err
	}

	balance, err := s.store.Credit(ctx, target, amount, ledger.Mutation{
		Kind:  domain.EntryApprove,
		Actor: actor,
	})
	s.audit("approve", actor, target, amount, balance, err)
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// Deduct debits target. A refusal returns *InsufficientFundsError.
func (s *Service) Deduct(ctx context.Context, actor, target domain.AccountID, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := s.authorize(actor, auth.ActionAdjustBalance, "deduct", target, amount); err != nil {
		return decimal.Zero, err
	}

	balance, err := s.store.Debit(ctx, target, amount, ledger.Mutation{
		Kind:  domain.EntryDeduct,
		Actor: actor,
	})
	s.audit("deduct", actor, target, amount, balance, err)
	if errors.Is(err, errors.ErrInsufficientFunds) {
		return balance, &InsufficientFundsError{Account: target, Balance: balance}
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// ProviderBalance returns the reseller account balance upstream.
func (s *Service) ProviderBalance(ctx context.Context, actor domain.AccountID) (*domain.ProviderBalance, error) {
	if err := s.authorize(actor, auth.ActionViewProviderBalance, "provider_balance", "", decimal.Zero); err != nil {
		return nil, err
	}

	bal, err := s.provider.QueryBalance(ctx)
	fields := map[string]interface{}{
		"actor":     actor,
		"operation": "provider_balance",
	}
	if err != nil {
		fields["error"] = err.Error()
		s.logger.Error("Admin operation failed", fields)
		return nil, err
	}
	fields["balance"] = bal.Amount
	fields["currency"] = bal.Currency
	s.logger.Info("Admin operation", fields)
	return bal, nil
}

// ManualReview lists orders waiting for reconciliation, oldest first.
func (s *Service) ManualReview(ctx context.Context, actor domain.AccountID, limit int) ([]*domain.Order, error) {
	if err := s.authorize(actor, auth.ActionReviewOrders, "manual_review", "", decimal.Zero); err != nil {
		return nil, err
	}
	orders, err := s.reviewer.ListManualReview(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Admin operation", map[string]interface{}{
		"actor":     actor,
		"operation": "manual_review",
		"count":     len(orders),
	})
	return orders, nil
}

// Resolve settles a manual-review order, either refunding it or recording
// the provider order id found during reconciliation.
func (s *Service) Resolve(ctx context.Context, actor domain.AccountID, reference uuid.UUID, refund bool, providerOrderID string) (*domain.Order, error) {
	if err := s.authorize(actor, auth.ActionReviewOrders, "resolve", "", decimal.Zero); err != nil {
		return nil, err
	}
	order, err := s.reviewer.Resolve(ctx, actor, reference, refund, providerOrderID)
	fields := map[string]interface{}{
		"actor":     actor,
		"operation": "resolve",
		"reference": reference,
		"refund":    refund,
	}
	if err != nil {
		fields["error"] = err.Error()
		s.logger.Warn("Admin operation failed", fields)
		return nil, err
	}
	fields["state"] = order.State
	s.logger.Info("Admin operation", fields)
	return order, nil
}

func (s *Service) authorize(actor domain.AccountID, action auth.Action, op string, target domain.AccountID, amount decimal.Decimal) error {
	if s.authz.IsAuthorized(actor, action) {
		return nil
	}
	fields := map[string]interface{}{
		"actor":     actor,
		"operation": op,
		"action":    action,
	}
	if target != "" {
		fields["target"] = target
		fields["amount"] = amount.String()
	}
	s.logger.Warn("Unauthorized admin operation", fields)
	return errors.ErrUnauthorized
}

func (s *Service) audit(op string, actor, target domain.AccountID, amount, balance decimal.Decimal, err error) {
	fields := map[string]interface{}{
		"actor":     actor,
		"operation": op,
		"target":    target,
		"amount":    amount.String(),
		"balance":   balance.StringFixed(ledger.Precision),
	}
	if err != nil {
		fields["error"] = err.Error()
		s.logger.Warn("Admin operation failed", fields)
		return
	}
	s.logger.Info("Admin operation", fields)
}
