package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"smmwallet/internal/domain"
	"smmwallet/pkg/errors"
)

// MemoryStore keeps balances in process. Each account has its own mutex so
// operations on one account are serialized without blocking the others.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[domain.AccountID]*memAccount

	entriesMu sync.Mutex
	entries   []*domain.LedgerEntry

	now func() time.Time
}

type memAccount struct {
	mu      sync.Mutex
	balance decimal.Decimal
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[domain.AccountID]*memAccount),
		now:      time.Now,
	}
}

func (s *MemoryStore) lookup(account domain.AccountID, create bool) *memAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[account]
	if !ok && create {
		acc = &memAccount{balance: decimal.Zero}
		s.accounts[account] = acc
	}
	return acc
}

func (s *MemoryStore) GetBalance(ctx context.Context, account domain.AccountID) (decimal.Decimal, error) {
	acc := s.lookup(account, false)
	if acc == nil {
		return decimal.Zero, nil
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.balance, nil
}

func (s *MemoryStore) Credit(ctx context.Context, account domain.AccountID, amount decimal.Decimal, m Mutation) (decimal.Decimal, error) {
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	acc := s.lookup(account, true)
	acc.mu.Lock()
	acc.balance = acc.balance.Add(amount)
	balance := acc.balance
	s.record(account, amount, balance, m)
	acc.mu.Unlock()
	return balance, nil
}

func (s *MemoryStore) Debit(ctx context.Context, account domain.AccountID, amount decimal.Decimal, m Mutation) (decimal.Decimal, error) {
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	acc := s.lookup(account, true)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	if acc.balance.LessThan(amount) {
		return acc.balance, errors.ErrInsufficientFunds
	}
	acc.balance = acc.balance.Sub(amount)
	s.record(account, amount.Neg(), acc.balance, m)
	return acc.balance, nil
}

// record must be called with the account mutex held so entries for one
// account appear in mutation order.
func (s *MemoryStore) record(account domain.AccountID, amount, after decimal.Decimal, m Mutation) {
	s.entriesMu.Lock()
	s.entries = append(s.entries, &domain.LedgerEntry{
		ID:           uuid.New(),
		Account:      account,
		Kind:         m.Kind,
		Amount:       amount,
		BalanceAfter: after,
		Actor:        m.Actor,
		Reference:    m.Reference,
		CreatedAt:    s.now(),
	})
	s.entriesMu.Unlock()
}

// Entries returns the newest entries for account first. limit <= 0 returns all.
func (s *MemoryStore) Entries(ctx context.Context, account domain.AccountID, limit int) ([]*domain.LedgerEntry, error) {
	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()
	var out []*domain.LedgerEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].Account != account {
			continue
		}
		e := *s.entries[i]
		out = append(out, &e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
