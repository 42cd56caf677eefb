// Package postgres implements the ledger store and order repository on
// PostgreSQL through sqlx.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"smmwallet/internal/domain"
	"smmwallet/internal/ledger"
	"smmwallet/pkg/errors"
)

// WalletRepository is a ledger.Store. Every mutation is a single
// conditional statement plus its ledger_entries row, committed together.
type WalletRepository struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetBalance(ctx context.Context, account domain.AccountID) (decimal.Decimal, error) {
	return r.balance(ctx, r.db, account)
}

func (r *WalletRepository) Credit(ctx context.Context, account domain.AccountID, amount decimal.Decimal, m ledger.Mutation) (decimal.Decimal, error) {
	if err := ledger.ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		balance, err = credit(ctx, tx, account, amount, m)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// credit adds amount to the wallet and records the entry inside tx.
func credit(ctx context.Context, tx *sqlx.Tx, account domain.AccountID, amount decimal.Decimal, m ledger.Mutation) (decimal.Decimal, error) {
	var balance decimal.Decimal
	query := `
		INSERT INTO wallets (account_id, balance, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (account_id) DO UPDATE SET
			balance = wallets.balance + EXCLUDED.balance,
			updated_at = NOW()
		RETURNING balance
	`
	if err := tx.GetContext(ctx, &balance, query, account, amount); err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to credit wallet")
	}
	if err := insertEntry(ctx, tx, account, amount, balance, m); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (r *WalletRepository) Debit(ctx context.Context, account domain.AccountID, amount decimal.Decimal, m ledger.Mutation) (decimal.Decimal, error) {
	if err := ledger.ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			UPDATE wallets SET
				balance = balance - $1,
				updated_at = NOW()
			WHERE account_id = $2 AND balance >= $1
			RETURNING balance
		`
		err := tx.GetContext(ctx, &balance, query, amount, account)
		if err == sql.ErrNoRows {
			current, err := r.balance(ctx, tx, account)
			if err != nil {
				return err
			}
			balance = current
			return errors.ErrInsufficientFunds
		}
		if err != nil {
			return errors.Wrap(err, "failed to debit wallet")
		}
		return insertEntry(ctx, tx, account, amount.Neg(), balance, m)
	})
	if errors.Is(err, errors.ErrInsufficientFunds) {
		return balance, err
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// Entries returns the newest entries for account first. limit <= 0 means all.
func (r *WalletRepository) Entries(ctx context.Context, account domain.AccountID, limit int) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	query := `
		SELECT id, account_id, kind, amount, balance_after, actor, reference, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
	`
	var err error
	if limit > 0 {
		err = r.db.SelectContext(ctx, &entries, query+` LIMIT $2`, account, limit)
	} else {
		err = r.db.SelectContext(ctx, &entries, query, account)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to list ledger entries")
	}
	return entries, nil
}

func (r *WalletRepository) balance(ctx context.Context, q sqlx.QueryerContext, account domain.AccountID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := sqlx.GetContext(ctx, q, &balance, `SELECT balance FROM wallets WHERE account_id = $1`, account)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to read balance")
	}
	return balance, nil
}

func insertEntry(ctx context.Context, tx *sqlx.Tx, account domain.AccountID, signed, after decimal.Decimal, m ledger.Mutation) error {
	entry := &domain.LedgerEntry{
		ID:           uuid.New(),
		Account:      account,
		Kind:         m.Kind,
		Amount:       signed,
		BalanceAfter: after,
		Actor:        m.Actor,
		Reference:    m.Reference,
		CreatedAt:    time.Now().UTC(),
	}
	query := `
		INSERT INTO ledger_entries (
			id, account_id, kind, amount, balance_after, actor, reference, created_at
		) VALUES (
			:id, :account_id, :kind, :amount, :balance_after, :actor, :reference, :created_at
		)
	`
	_, err := tx.NamedExecContext(ctx, query, entry)
	return errors.Wrap(err, "failed to record ledger entry")
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

// Ping verifies the database is reachable.
func (r *WalletRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
