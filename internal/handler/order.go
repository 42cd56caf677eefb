package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"smmwallet/internal/domain"
	"smmwallet/internal/ledger"
	"smmwallet/pkg/errors"
	"smmwallet/pkg/logger"
)

// Orders is the member-facing subset of *order.Orchestrator.
type Orders interface {
	PlaceOrder(ctx context.Context, req domain.PurchaseRequest) (*domain.Order, error)
	OrderStatus(ctx context.Context, account domain.AccountID, orderID string) (*domain.OrderStatus, error)
	Refill(ctx context.Context, account domain.AccountID, orderID string) (*domain.RefillRequest, error)
	RefillStatus(ctx context.Context, refillID string) (*domain.RefillRequest, error)
}

// OrderHandler serves purchases, order status and refills.
type OrderHandler struct {
	orders Orders
	logger logger.Logger
}

func NewOrderHandler(orders Orders, log logger.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: log}
}

type placeOrderRequest struct {
	ServiceID string `json:"service_id"`
	Link      string `json:"link"`
	Quantity  int    `json:"quantity"`
}

// orderView renders money with fixed precision.
type orderView struct {
	Reference uuid.UUID         `json:"reference"`
	OrderID   string            `json:"order_id,omitempty"`
	Account   domain.AccountID  `json:"account"`
	ServiceID string            `json:"service_id"`
	Link      string            `json:"link"`
	Quantity  int               `json:"quantity"`
	Charged   string            `json:"charged"`
	State     domain.OrderState `json:"state"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func newOrderView(o *domain.Order) orderView {
	return orderView{
		Reference: o.Reference,
		OrderID:   o.ID,
		Account:   o.Account,
		ServiceID: o.ServiceID,
		Link:      o.Link,
		Quantity:  o.Quantity,
		Charged:   o.Charged.StringFixed(ledger.Precision),
		State:     o.State,
		Error:     o.Error,
		CreatedAt: o.CreatedAt,
	}
}

type placeOrderResponse struct {
	Order   orderView `json:"order"`
	Message string    `json:"message"`
}

// PlaceOrder buys a service with the member's balance.
//
// 201 confirmed, 502 rejected and refunded, 202 outcome unknown and queued
// for manual review.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := account(w, r)
	if !ok {
		return
	}
	var req placeOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.PlaceOrder(r.Context(), domain.PurchaseRequest{
		Account:   id,
		ServiceID: req.ServiceID,
		Link:      req.Link,
		Quantity:  req.Quantity,
	})
	if order == nil {
		fail(w, h.logger, "Failed to place order", err, map[string]interface{}{
			"account":    id,
			"service_id": req.ServiceID,
		})
		return
	}

	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, placeOrderResponse{
			Order:   newOrderView(order),
			Message: "Order placed",
		})
	case errors.Is(err, errors.ErrAmbiguousOutcome):
		respondJSON(w, http.StatusAccepted, placeOrderResponse{
			Order:   newOrderView(order),
			Message: "The provider did not confirm this order. It has been queued for review and your charge is held until then.",
		})
	default:
		respondJSON(w, statusFor(err), placeOrderResponse{
			Order:   newOrderView(order),
			Message: "The provider rejected this order and your balance was refunded: " + order.Error,
		})
	}
}

// OrderStatus returns the provider's status for one of the member's orders.
func (h *OrderHandler) OrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := account(w, r)
	if !ok {
		return
	}
	orderID := mux.Vars(r)["id"]

	status, err := h.orders.OrderStatus(r.Context(), id, orderID)
	if err != nil {
		fail(w, h.logger, "Failed to query order status", err, map[string]interface{}{
			"account":  id,
			"order_id": orderID,
		})
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Refill requests a refill of one of the member's orders.
func (h *OrderHandler) Refill(w http.ResponseWriter, r *http.Request) {
	id, ok := account(w, r)
	if !ok {
		return
	}
	orderID := mux.Vars(r)["id"]

	refill, err := h.orders.Refill(r.Context(), id, orderID)
	if err != nil {
		fail(w, h.logger, "Failed to request refill", err, map[string]interface{}{
			"account":  id,
			"order_id": orderID,
		})
		return
	}
	respondJSON(w, http.StatusCreated, refill)
}

// RefillStatus returns a refill's status.
func (h *OrderHandler) RefillStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := account(w, r); !ok {
		return
	}
	refillID := mux.Vars(r)["id"]

	refill, err := h.orders.RefillStatus(r.Context(), refillID)
	if err != nil {
		fail(w, h.logger, "Failed to query refill status", err, map[string]interface{}{
			"refill_id": refillID,
		})
		return
	}
	respondJSON(w, http.StatusOK, refill)
}
