package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"smmwallet/internal/admin"
	"smmwallet/internal/domain"
	"smmwallet/internal/ledger"
	"smmwallet/pkg/errors"
	"smmwallet/pkg/logger"
	"smmwallet/pkg/validator"
)

// Admin is the privileged surface; *admin.Service satisfies it.
type Admin interface {
	Approve(ctx context.Context, actor, target domain.AccountID, amount decimal.Decimal) (decimal.Decimal, error)
	Deduct(ctx context.Context, actor, target domain.AccountID, amount decimal.Decimal) (decimal.Decimal, error)
	ProviderBalance(ctx context.Context, actor domain.AccountID) (*domain.ProviderBalance, error)
	ManualReview(ctx context.Context, actor domain.AccountID, limit int) ([]*domain.Order, error)
	Resolve(ctx context.Context, actor domain.AccountID, reference uuid.UUID, refund bool, providerOrderID string) (*domain.Order, error)
}

// AdminHandler serves balance adjustments and reconciliation.
type AdminHandler struct {
	admin     Admin
	validator *validator.Validator
	logger    logger.Logger
}

func NewAdminHandler(a Admin, val *validator.Validator, log logger.Logger) *AdminHandler {
	return &AdminHandler{admin: a, validator: val, logger: log}
}

type adjustRequest struct {
	Account string          `json:"account" validate:"required"`
	Amount  decimal.Decimal `json:"amount"`
}

type adjustResponse struct {
	Account domain.AccountID `json:"account"`
	Amount  string           `json:"amount"`
	Balance string           `json:"balance"`
}

// Approve credits a member after a verified payment.
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.admin.Approve)
}

// Deduct debits a member. A refusal reports the current balance.
func (h *AdminHandler) Deduct(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.admin.Deduct)
}

type adjustFunc func(ctx context.Context, actor, target domain.AccountID, amount decimal.Decimal) (decimal.Decimal, error)

func (h *AdminHandler) adjust(w http.ResponseWriter, r *http.Request, op adjustFunc) {
	actor, ok := account(w, r)
	if !ok {
		return
	}
	var req adjustRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	target := domain.AccountID(req.Account)
	balance, err := op(r.Context(), actor, target, req.Amount)
	if err != nil {
		var insufficient *admin.InsufficientFundsError
		if errors.As(err, &insufficient) {
			respondJSON(w, http.StatusPaymentRequired, map[string]string{
				"error":   err.Error(),
				"account": insufficient.Account.String(),
				"balance": insufficient.Balance.StringFixed(ledger.Precision),
			})
			return
		}
		fail(w, h.logger, "Balance adjustment failed", err, map[string]interface{}{
			"actor":  actor,
			"target": target,
		})
		return
	}
	respondJSON(w, http.StatusOK, adjustResponse{
		Account: target,
		Amount:  req.Amount.StringFixed(ledger.Precision),
		Balance: balance.StringFixed(ledger.Precision),
	})
}

// ProviderBalance returns the reseller balance upstream.
func (h *AdminHandler) ProviderBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := account(w, r)
	if !ok {
		return
	}
	bal, err := h.admin.ProviderBalance(r.Context(), actor)
	if err != nil {
		fail(w, h.logger, "Failed to query provider balance", err, map[string]interface{}{"actor": actor})
		return
	}
	respondJSON(w, http.StatusOK, bal)
}

// ManualReview lists orders awaiting reconciliation.
func (h *AdminHandler) ManualReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := account(w, r)
	if !ok {
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	orders, err := h.admin.ManualReview(r.Context(), actor, limit)
	if err != nil {
		fail(w, h.logger, "Failed to list manual review orders", err, map[string]interface{}{"actor": actor})
		return
	}
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, newOrderView(o))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"orders": views,
		"count":  len(views),
	})
}

type resolveRequest struct {
	Refund  bool   `json:"refund"`
	OrderID string `json:"order_id"`
}

// Resolve settles a manual-review order.
func (h *AdminHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	actor, ok := account(w, r)
	if !ok {
		return
	}
	reference, err := uuid.Parse(mux.Vars(r)["reference"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order reference")
		return
	}
	var req resolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.admin.Resolve(r.Context(), actor, reference, req.Refund, req.OrderID)
	if err != nil {
		fail(w, h.logger, "Failed to resolve order", err, map[string]interface{}{
			"actor":     actor,
			"reference": reference,
		})
		return
	}
	respondJSON(w, http.StatusOK, newOrderView(order))
}
