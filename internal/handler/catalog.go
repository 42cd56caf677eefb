package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"smmwallet/internal/catalog"
	"smmwallet/internal/domain"
	"smmwallet/internal/ledger"
	"smmwallet/pkg/logger"
)

// Catalog lists provider services; *catalog.Service satisfies it.
type Catalog interface {
	List(ctx context.Context, query string) ([]domain.CatalogEntry, error)
}

// Listings serves category files; *catalog.Listings satisfies it.
type Listings interface {
	Category(name string) ([]string, error)
	Categories() ([]string, error)
}

// SellRater marks up an upstream rate; *pricing.Engine satisfies it.
type SellRater interface {
	SellRate(rate decimal.Decimal) decimal.Decimal
}

// CatalogHandler serves the service list, category listings and top-up
// instructions.
type CatalogHandler struct {
	catalog  Catalog
	listings Listings
	pricer   SellRater
	funding  catalog.Funding
	logger   logger.Logger
}

func NewCatalogHandler(c Catalog, l Listings, pricer SellRater, funding catalog.Funding, log logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog:  c,
		listings: l,
		pricer:   pricer,
		funding:  funding,
		logger:   log,
	}
}

type serviceView struct {
	ServiceID string `json:"service"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Rate      string `json:"rate_per_1000"`
	Min       int    `json:"min,omitempty"`
	Max       int    `json:"max,omitempty"`
	Refill    bool   `json:"refill"`
}

// ListServices returns services matching ?query= at member prices.
func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog.List(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		fail(w, h.logger, "Failed to list services", err, nil)
		return
	}

	views := make([]serviceView, 0, len(entries))
	for _, e := range entries {
		views = append(views, serviceView{
			ServiceID: e.ServiceID,
			Name:      e.Name,
			Category:  e.Category,
			Rate:      h.pricer.SellRate(e.Rate).StringFixed(ledger.Precision),
			Min:       e.Min,
			Max:       e.Max,
			Refill:    e.Refill,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"services": views,
		"count":    len(views),
	})
}

// ListCategories returns the names of the available category listings.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	names, err := h.listings.Categories()
	if err != nil {
		fail(w, h.logger, "Failed to list categories", err, nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"categories": names})
}

// GetCategory returns one category listing.
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	lines, err := h.listings.Category(name)
	if err != nil {
		fail(w, h.logger, "Failed to read category", err, map[string]interface{}{"category": name})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"category": name,
		"lines":    lines,
	})
}

type fundsRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// RequestFunds returns payment instructions for a top-up. The balance only
// changes once an admin approves the payment.
func (h *CatalogHandler) RequestFunds(w http.ResponseWriter, r *http.Request) {
	id, ok := account(w, r)
	if !ok {
		return
	}
	var req fundsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	instructions, err := h.funding.Instructions(id.String(), req.Amount)
	if err != nil {
		fail(w, h.logger, "Failed to build funding instructions", err, nil)
		return
	}
	h.logger.Info("Funding requested", map[string]interface{}{
		"account":  id,
		"amount":   instructions.Amount,
		"currency": instructions.Currency,
	})
	respondJSON(w, http.StatusOK, instructions)
}
