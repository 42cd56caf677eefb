package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"smmwallet/internal/domain"
	"smmwallet/pkg/errors"
	"smmwallet/pkg/logger"
)

// Service decorates a Store with structured logging and metrics. It is
// itself a Store, so callers never see the difference.
type Service struct {
	store  Store
	logger logger.Logger
}

func NewService(store Store, log logger.Logger) *Service {
	return &Service{store: store, logger: log}
}

func (s *Service) GetBalance(ctx context.Context, account domain.AccountID) (decimal.Decimal, error) {
	balance, err := s.store.GetBalance(ctx, account)
	if err != nil {
		s.logger.Error("Failed to read balance", map[string]interface{}{
			"account": account,
			"error":   err.Error(),
		})
		return decimal.Zero, errors.Wrap(err, "get balance")
	}
	return balance, nil
}

func (s *Service) Credit(ctx context.Context, account domain.AccountID, amount decimal.Decimal, m Mutation) (decimal.Decimal, error) {
	start := time.Now()
	balance, err := s.store.Credit(ctx, account, amount, m)
	observe("credit", m.Kind, err, start)
	if err != nil {
		s.logger.Error("Ledger credit failed", s.fields(account, amount, m, err))
		return balance, err
	}
	fields := s.fields(account, amount, m, nil)
	fields["balance"] = balance.StringFixed(Precision)
	s.logger.Info("Ledger credited", fields)
	return balance, nil
}

func (s *Service) Debit(ctx context.Context, account domain.AccountID, amount decimal.Decimal, m Mutation) (decimal.Decimal, error) {
	start := time.Now()
	balance, err := s.store.Debit(ctx, account, amount, m)
	observe("debit", m.Kind, err, start)
	if err != nil {
		if errors.Is(err, errors.ErrInsufficientFunds) {
			fields := s.fields(account, amount, m, err)
			fields["balance"] = balance.StringFixed(Precision)
			s.logger.Warn("Ledger debit refused", fields)
		} else {
			s.logger.Error("Ledger debit failed", s.fields(account, amount, m, err))
		}
		return balance, err
	}
	fields := s.fields(account, amount, m, nil)
	fields["balance"] = balance.StringFixed(Precision)
	s.logger.Info("Ledger debited", fields)
	return balance, nil
}

// Entries delegates to the underlying store when it keeps an audit trail.
func (s *Service) Entries(ctx context.Context, account domain.AccountID, limit int) ([]*domain.LedgerEntry, error) {
	lister, ok := s.store.(EntryLister)
	if !ok {
		return nil, nil
	}
	return lister.Entries(ctx, account, limit)
}

func (s *Service) fields(account domain.AccountID, amount decimal.Decimal, m Mutation, err error) map[string]interface{} {
	f := map[string]interface{}{
		"account":   account,
		"amount":    amount.String(),
		"kind":      m.Kind,
		"actor":     m.Actor,
		"reference": m.Reference,
	}
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}
