// Package order turns purchase requests into provider orders and keeps the
// ledger consistent with what the provider actually did.
package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"smmwallet/internal/domain"
	"smmwallet/internal/ledger"
	"smmwallet/internal/provider"
	"smmwallet/pkg/errors"
	"smmwallet/pkg/logger"
	"smmwallet/pkg/validator"
)

// Provider is the subset of *provider.Client the orchestrator drives.
type Provider interface {
	SubmitOrder(ctx context.Context, serviceID, link string, quantity int) (string, error)
	QueryStatus(ctx context.Context, orderID string) (*domain.OrderStatus, error)
	SubmitRefill(ctx context.Context, orderID string) (string, error)
	QueryRefillStatus(ctx context.Context, refillID string) (*domain.RefillRequest, error)
}

// Catalog resolves service ids; *catalog.Service satisfies it.
type Catalog interface {
	Lookup(ctx context.Context, serviceID string) (*domain.CatalogEntry, error)
}

// Pricer computes the member charge; *pricing.Engine satisfies it.
type Pricer interface {
	Price(rate decimal.Decimal, quantity int) (decimal.Decimal, error)
}

type Orchestrator struct {
	store     ledger.Store
	catalog   Catalog
	pricer    Pricer
	provider  Provider
	repo      Repository
	policy    Policy
	validator *validator.Validator
	logger    logger.Logger
	now       func() time.Time

	root   context.Context
	cancel context.CancelFunc
}

// NewOrchestrator wires the placement pipeline. policy may be nil.
func NewOrchestrator(
	store ledger.Store,
	catalog Catalog,
	pricer Pricer,
	prov Provider,
	repo Repository,
	policy Policy,
	log logger.Logger,
) *Orchestrator {
	if policy == nil {
		policy = BoundsPolicy{}
	}
	root, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		store:     store,
		catalog:   catalog,
		pricer:    pricer,
		provider:  prov,
		repo:      repo,
		policy:    policy,
		validator: validator.New(),
		logger:    log,
		now:       time.Now,
		root:      root,
		cancel:    cancel,
	}
}

// Close cancels in-flight provider calls. Orders caught mid-submission
// resolve to manual review.
func (o *Orchestrator) Close() {
	o.cancel()
}

// PlaceOrder prices the request, reserves funds and submits the order.
//
// The returned order is non-nil once funds were reserved, even when err is
// also non-nil. A provider rejection refunds the charge and the error
// matches errors.ErrProvider. An undeterminable outcome keeps the charge,
// leaves the order in manual review and the error matches
// errors.ErrAmbiguousOutcome.
func (o *Orchestrator) PlaceOrder(ctx context.Context, req domain.PurchaseRequest) (*domain.Order, error) {
	start := o.now()
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.Link = strings.TrimSpace(req.Link)

	if err := o.validate(req); err != nil {
		return nil, err
	}

	entry, err := o.catalog.Lookup(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidService) {
			return nil, err
		}
		return nil, errors.Wrap(err, "catalog unavailable")
	}
	if err := o.policy.Check(req, entry); err != nil {
		return nil, err
	}

	order := &domain.Order{
		Reference: uuid.New(),
		Account:   req.Account,
		ServiceID: req.ServiceID,
		Link:      req.Link,
		Quantity:  req.Quantity,
		State:     domain.OrderStateRequested,
		CreatedAt: start,
		UpdatedAt: start,
	}

	charged, err := o.pricer.Price(entry.Rate, req.Quantity)
	if err != nil {
		return nil, err
	}
	if !charged.IsPositive() {
		return nil, fmt.Errorf("%w: service %s prices to zero", errors.ErrInvalidAmount, req.ServiceID)
	}
	order.Charged = charged
	order.State = domain.OrderStatePriced

	if _, err := o.store.Debit(ctx, req.Account, charged, ledger.Mutation{
		Kind:      domain.EntryOrderDebit,
		Actor:     req.Account,
		Reference: order.Reference.String(),
	}); err != nil {
		return nil, err
	}
	order.State = domain.OrderStateFundsReserved

	// From here on the charge has left the balance, so every path ends in a
	// terminal state that is persisted even if the caller goes away.
	detached := context.WithoutCancel(ctx)

	if err := o.repo.Save(detached, order); err != nil {
		o.logger.Error("Failed to record reserved order", map[string]interface{}{
			"reference": order.Reference,
			"account":   order.Account,
			"error":     err.Error(),
		})
		return o.refund(detached, order, start, errors.Wrap(err, "failed to record order"))
	}

	submitCtx, done := o.bind(detached)
	defer done()

	order.State = domain.OrderStateSubmitted
	providerID, err := o.provider.SubmitOrder(submitCtx, req.ServiceID, req.Link, req.Quantity)
	switch {
	case err == nil:
		order.ID = providerID
		order.State = domain.OrderStateConfirmed
		o.finish(detached, order, start)
		return order, nil

	case provider.IsRejected(err):
		return o.refund(detached, order, start, err)

	default:
		order.State = domain.OrderStateManualReview
		order.Error = err.Error()
		o.finish(detached, order, start)
		return order, fmt.Errorf("%w: %w", errors.ErrAmbiguousOutcome, err)
	}
}

// refund credits the charge back after the provider refused the order. If
// the credit fails the order is left for manual review.
func (o *Orchestrator) refund(ctx context.Context, order *domain.Order, start time.Time, cause error) (*domain.Order, error) {
	order.Error = cause.Error()
	_, err := o.store.Credit(ctx, order.Account, order.Charged, ledger.Mutation{
		Kind:      domain.EntryOrderRefund,
		Actor:     order.Account,
		Reference: order.Reference.String(),
	})
	if err != nil {
		o.logger.Error("Refund failed", map[string]interface{}{
			"reference": order.Reference,
			"account":   order.Account,
			"amount":    order.Charged.StringFixed(ledger.Precision),
			"error":     err.Error(),
		})
		order.State = domain.OrderStateManualReview
		order.Error = fmt.Sprintf("%s; refund failed: %v", order.Error, err)
		o.finish(ctx, order, start)
		return order, fmt.Errorf("%w: refund failed: %w", errors.ErrAmbiguousOutcome, cause)
	}

	order.State = domain.OrderStateRefunded
	o.finish(ctx, order, start)
	return order, cause
}

func (o *Orchestrator) finish(ctx context.Context, order *domain.Order, start time.Time) {
	order.UpdatedAt = o.now()
	if err := o.repo.Save(ctx, order); err != nil {
		o.logger.Error("Failed to record order outcome", map[string]interface{}{
			"reference": order.Reference,
			"state":     order.State,
			"error":     err.Error(),
		})
	}
	observeOrder(order.State, start)

	fields := map[string]interface{}{
		"reference":  order.Reference,
		"order_id":   order.ID,
		"account":    order.Account,
		"service_id": order.ServiceID,
		"quantity":   order.Quantity,
		"charged":    order.Charged.StringFixed(ledger.Precision),
		"state":      order.State,
	}
	switch order.State {
	case domain.OrderStateConfirmed:
		o.logger.Info("Order confirmed", fields)
	case domain.OrderStateRefunded:
		fields["error"] = order.Error
		o.logger.Warn("Order rejected and refunded", fields)
	default:
		fields["error"] = order.Error
		o.logger.Error("Order needs manual review", fields)
	}
}

func (o *Orchestrator) validate(req domain.PurchaseRequest) error {
	if req.Quantity <= 0 {
		return errors.ErrInvalidQuantity
	}
	for _, field := range o.validator.FailedFields(req) {
		switch field {
		case "ServiceID":
			return errors.ErrInvalidService
		case "Link":
			return errors.ErrInvalidLink
		default:
			return errors.ErrUnauthorized
		}
	}
	return nil
}

// bind derives a context that is also cancelled by Close.
func (o *Orchestrator) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(o.root, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// OrderStatus returns the provider's status for an order the account owns.
func (o *Orchestrator) OrderStatus(ctx context.Context, account domain.AccountID, orderID string) (*domain.OrderStatus, error) {
	if _, err := o.owned(ctx, account, orderID); err != nil {
		return nil, err
	}
	ctx, done := o.bind(ctx)
	defer done()
	return o.provider.QueryStatus(ctx, orderID)
}

// Refill requests a refill of an order the account owns.
func (o *Orchestrator) Refill(ctx context.Context, account domain.AccountID, orderID string) (*domain.RefillRequest, error) {
	if _, err := o.owned(ctx, account, orderID); err != nil {
		return nil, err
	}
	ctx, done := o.bind(ctx)
	defer done()

	refillID, err := o.provider.SubmitRefill(ctx, orderID)
	if err != nil {
		o.logger.Warn("Refill request failed", map[string]interface{}{
			"account":  account,
			"order_id": orderID,
			"error":    err.Error(),
		})
		return nil, err
	}
	o.logger.Info("Refill requested", map[string]interface{}{
		"account":   account,
		"order_id":  orderID,
		"refill_id": refillID,
	})
	return &domain.RefillRequest{ID: refillID, OrderID: orderID, Status: domain.UnknownStatus}, nil
}

// RefillStatus returns the provider's status for a refill.
func (o *Orchestrator) RefillStatus(ctx context.Context, refillID string) (*domain.RefillRequest, error) {
	refillID = strings.TrimSpace(refillID)
	if refillID == "" {
		return nil, errors.ErrOrderNotFound
	}
	ctx, done := o.bind(ctx)
	defer done()
	return o.provider.QueryRefillStatus(ctx, refillID)
}

// ListManualReview returns orders awaiting reconciliation, oldest first.
func (o *Orchestrator) ListManualReview(ctx context.Context, limit int) ([]*domain.Order, error) {
	return o.repo.ListByState(ctx, domain.OrderStateManualReview, limit)
}

// Resolve settles an order in manual review. With refund set the charge is
// credited back and the order becomes failed_refunded; otherwise it is
// confirmed under providerOrderID. The state change is claimed before any
// money moves, so concurrent resolutions settle an order once.
func (o *Orchestrator) Resolve(ctx context.Context, actor domain.AccountID, reference uuid.UUID, refund bool, providerOrderID string) (*domain.Order, error) {
	var (
		order *domain.Order
		err   error
	)
	if refund {
		order, err = o.resolveRefund(ctx, actor, reference)
	} else {
		providerOrderID = strings.TrimSpace(providerOrderID)
		if providerOrderID == "" {
			return nil, errors.ErrOrderNotFound
		}
		order, err = o.repo.Transition(ctx, reference, StateChange{
			From:            domain.OrderStateManualReview,
			To:              domain.OrderStateConfirmed,
			ProviderOrderID: providerOrderID,
			At:              o.now(),
		})
	}
	if errors.Is(err, errors.ErrOrderStateChanged) {
		return nil, errors.ErrOrderNotInReview
	}
	if err != nil {
		return nil, err
	}

	o.logger.Info("Manual review resolved", map[string]interface{}{
		"actor":     actor,
		"reference": order.Reference,
		"account":   order.Account,
		"state":     order.State,
		"order_id":  order.ID,
	})
	return order, nil
}

func (o *Orchestrator) resolveRefund(ctx context.Context, actor domain.AccountID, reference uuid.UUID) (*domain.Order, error) {
	claim := StateChange{
		From: domain.OrderStateManualReview,
		To:   domain.OrderStateRefunded,
		At:   o.now(),
	}
	if settler, ok := o.repo.(RefundSettler); ok {
		return settler.SettleRefund(ctx, reference, claim, actor)
	}

	order, err := o.repo.Transition(ctx, reference, claim)
	if err != nil {
		return nil, err
	}
	_, err = o.store.Credit(ctx, order.Account, order.Charged, ledger.Mutation{
		Kind:      domain.EntryOrderRefund,
		Actor:     actor,
		Reference: order.Reference.String(),
	})
	if err == nil {
		return order, nil
	}

	o.logger.Error("Refund failed during resolution", map[string]interface{}{
		"actor":     actor,
		"reference": order.Reference,
		"account":   order.Account,
		"amount":    order.Charged.StringFixed(ledger.Precision),
		"error":     err.Error(),
	})
	if _, rerr := o.repo.Transition(context.WithoutCancel(ctx), reference, StateChange{
		From:  domain.OrderStateRefunded,
		To:    domain.OrderStateManualReview,
		Error: fmt.Sprintf("%s; refund failed: %v", order.Error, err),
		At:    o.now(),
	}); rerr != nil {
		o.logger.Error("Failed to return order to manual review", map[string]interface{}{
			"reference": order.Reference,
			"error":     rerr.Error(),
		})
	}
	return nil, errors.Wrap(err, "refund failed")
}

func (o *Orchestrator) owned(ctx context.Context, account domain.AccountID, orderID string) (*domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.ErrOrderNotFound
	}
	order, err := o.repo.GetByProviderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Account != account {
		return nil, errors.ErrOrderNotFound
	}
	return order, nil
}
