package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"smmwallet/internal/domain"
	"smmwallet/internal/ledger"
	"smmwallet/pkg/logger"
)

// BalanceReader reads member balances; ledger.Store satisfies it.
type BalanceReader interface {
	GetBalance(ctx context.Context, account domain.AccountID) (decimal.Decimal, error)
}

// WalletHandler serves balance queries.
type WalletHandler struct {
	balances BalanceReader
	logger   logger.Logger
}

func NewWalletHandler(balances BalanceReader, log logger.Logger) *WalletHandler {
	return &WalletHandler{balances: balances, logger: log}
}

type balanceResponse struct {
	Account domain.AccountID `json:"account"`
	Balance string           `json:"balance"`
}

// GetBalance returns the authenticated member's balance.
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := account(w, r)
	if !ok {
		return
	}

	balance, err := h.balances.GetBalance(r.Context(), id)
	if err != nil {
		fail(w, h.logger, "Failed to read balance", err, map[string]interface{}{"account": id})
		return
	}
	respondJSON(w, http.StatusOK, balanceResponse{Account: id, Balance: balance.StringFixed(ledger.Precision)})
}

// GetEntries returns the member's recent ledger entries when the store keeps
// an audit trail.
func (h *WalletHandler) GetEntries(w http.ResponseWriter, r *http.Request) {
	id, ok := account(w, r)
	if !ok {
		return
	}
	lister, ok := h.balances.(ledger.EntryLister)
	if !ok {
		respondError(w, http.StatusNotImplemented, "Ledger history is not available")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	entries, err := lister.Entries(r.Context(), id, limit)
	if err != nil {
		fail(w, h.logger, "Failed to list ledger entries", err, map[string]interface{}{"account": id})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}
