package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"smmwallet/internal/domain"
	"smmwallet/pkg/errors"
)

// Repository keeps local order records. Save inserts or replaces by
// Reference. Transition is a compare-and-set on State: it applies change
// only while the order is still in change.From and otherwise returns
// errors.ErrOrderStateChanged.
type Repository interface {
	Save(ctx context.Context, order *domain.Order) error
	Transition(ctx context.Context, reference uuid.UUID, change StateChange) (*domain.Order, error)
	Get(ctx context.Context, reference uuid.UUID) (*domain.Order, error)
	GetByProviderID(ctx context.Context, providerOrderID string) (*domain.Order, error)
	ListByState(ctx context.Context, state domain.OrderState, limit int) ([]*domain.Order, error)
}

// StateChange moves an order between states. ProviderOrderID and Error
// replace the stored values when non-empty.
type StateChange struct {
	From            domain.OrderState
	To              domain.OrderState
	ProviderOrderID string
	Error           string
	At              time.Time
}

// RefundSettler is implemented by repositories that can move an order out
// of review and credit its charge back in one transaction.
type RefundSettler interface {
	SettleRefund(ctx context.Context, reference uuid.UUID, change StateChange, actor domain.AccountID) (*domain.Order, error)
}

// MemoryRepository is a Repository for tests and the memory backend.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]domain.Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[uuid.UUID]domain.Order)}
}

func (r *MemoryRepository) Save(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.Reference] = *order
	return nil
}

func (r *MemoryRepository) Transition(ctx context.Context, reference uuid.UUID, change StateChange) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[reference]
	if !ok {
		return nil, errors.ErrOrderNotFound
	}
	if o.State != change.From {
		return nil, errors.ErrOrderStateChanged
	}
	o.State = change.To
	if change.ProviderOrderID != "" {
		o.ID = change.ProviderOrderID
	}
	if change.Error != "" {
		o.Error = change.Error
	}
	o.UpdatedAt = change.At
	r.orders[reference] = o
	return &o, nil
}

func (r *MemoryRepository) Get(ctx context.Context, reference uuid.UUID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[reference]
	if !ok {
		return nil, errors.ErrOrderNotFound
	}
	return &o, nil
}

func (r *MemoryRepository) GetByProviderID(ctx context.Context, providerOrderID string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders {
		if o.ID != "" && o.ID == providerOrderID {
			o := o
			return &o, nil
		}
	}
	return nil, errors.ErrOrderNotFound
}

// ListByState returns matching orders oldest first. limit <= 0 means all.
func (r *MemoryRepository) ListByState(ctx context.Context, state domain.OrderState, limit int) ([]*domain.Order, error) {
	r.mu.RLock()
	out := make([]*domain.Order, 0)
	for _, o := range r.orders {
		if o.State == state {
			o := o
			out = append(out, &o)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
