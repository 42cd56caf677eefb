package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"smmwallet/internal/domain"
	"smmwallet/internal/ledger"
	"smmwallet/internal/order"
	"smmwallet/pkg/errors"
)

const orderColumns = `reference, provider_order_id, account_id, service_id, link, quantity, charged, state, error, created_at, updated_at`

type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (
			:reference, :provider_order_id, :account_id, :service_id, :link, :quantity, :charged, :state, :error, :created_at, :updated_at
		)
		ON CONFLICT (reference) DO UPDATE SET
			provider_order_id = EXCLUDED.provider_order_id,
			state = EXCLUDED.state,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.NamedExecContext(ctx, query, order)
	return errors.Wrap(err, "failed to save order")
}

// Transition applies change only while the order is still in change.From.
func (r *OrderRepository) Transition(ctx context.Context, reference uuid.UUID, change order.StateChange) (*domain.Order, error) {
	var out *domain.Order
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		out, err = transition(ctx, tx, reference, change)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SettleRefund claims the transition and credits the order's charge back
// to its account in the same transaction.
func (r *OrderRepository) SettleRefund(ctx context.Context, reference uuid.UUID, change order.StateChange, actor domain.AccountID) (*domain.Order, error) {
	var out *domain.Order
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		settled, err := transition(ctx, tx, reference, change)
		if err != nil {
			return err
		}
		if _, err := credit(ctx, tx, settled.Account, settled.Charged, ledger.Mutation{
			Kind:      domain.EntryOrderRefund,
			Actor:     actor,
			Reference: settled.Reference.String(),
		}); err != nil {
			return err
		}
		out = settled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func transition(ctx context.Context, tx *sqlx.Tx, reference uuid.UUID, change order.StateChange) (*domain.Order, error) {
	settled := &domain.Order{}
	query := `
		UPDATE orders SET
			state = $3,
			provider_order_id = CASE WHEN $4::text <> '' THEN $4::text ELSE provider_order_id END,
			error = CASE WHEN $5::text <> '' THEN $5::text ELSE error END,
			updated_at = $6
		WHERE reference = $1 AND state = $2
		RETURNING ` + orderColumns
	err := tx.GetContext(ctx, settled, query, reference, change.From, change.To, change.ProviderOrderID, change.Error, change.At)
	if err == sql.ErrNoRows {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM orders WHERE reference = $1)`, reference); err != nil {
			return nil, errors.Wrap(err, "failed to find order")
		}
		if !exists {
			return nil, errors.ErrOrderNotFound
		}
		return nil, errors.ErrOrderStateChanged
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to transition order")
	}
	return settled, nil
}

func (r *OrderRepository) Get(ctx context.Context, reference uuid.UUID) (*domain.Order, error) {
	order := &domain.Order{}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE reference = $1`
	err := r.db.GetContext(ctx, order, query, reference)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "failed to find order")
	}
	return order, nil
}

func (r *OrderRepository) GetByProviderID(ctx context.Context, providerOrderID string) (*domain.Order, error) {
	if providerOrderID == "" {
		return nil, errors.ErrOrderNotFound
	}
	order := &domain.Order{}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE provider_order_id = $1 ORDER BY created_at DESC LIMIT 1`
	err := r.db.GetContext(ctx, order, query, providerOrderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "failed to find order by provider id")
	}
	return order, nil
}

func (r *OrderRepository) ListByState(ctx context.Context, state domain.OrderState, limit int) ([]*domain.Order, error) {
	var orders []*domain.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE state = $1 ORDER BY created_at ASC`
	var err error
	if limit > 0 {
		err = r.db.SelectContext(ctx, &orders, query+` LIMIT $2`, state, limit)
	} else {
		err = r.db.SelectContext(ctx, &orders, query, state)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders by state")
	}
	return orders, nil
}
