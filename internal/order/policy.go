package order

import (
	"fmt"

	"smmwallet/internal/domain"
	"smmwallet/pkg/errors"
	"smmwallet/pkg/validator"
)

// Policy vets a purchase against its catalog entry before any money moves.
type Policy interface {
	Check(req domain.PurchaseRequest, entry *domain.CatalogEntry) error
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(req domain.PurchaseRequest, entry *domain.CatalogEntry) error

func (f PolicyFunc) Check(req domain.PurchaseRequest, entry *domain.CatalogEntry) error {
	return f(req, entry)
}

// BoundsPolicy enforces the provider's quantity bounds narrowed by the
// configured ones, and the link format. Zero bounds are ignored.
type BoundsPolicy struct {
	MinQuantity int
	MaxQuantity int
	RequireURL  bool
}

func (p BoundsPolicy) Check(req domain.PurchaseRequest, entry *domain.CatalogEntry) error {
	lo, hi := p.MinQuantity, p.MaxQuantity
	if entry != nil {
		if entry.Min > lo {
			lo = entry.Min
		}
		if entry.Max > 0 && (hi == 0 || entry.Max < hi) {
			hi = entry.Max
		}
	}
	if req.Quantity < lo {
		return fmt.Errorf("%w: minimum is %d", errors.ErrInvalidQuantity, lo)
	}
	if hi > 0 && req.Quantity > hi {
		return fmt.Errorf("%w: maximum is %d", errors.ErrInvalidQuantity, hi)
	}

	valid := validator.IsLink(req.Link)
	if p.RequireURL {
		valid = validator.IsURL(req.Link)
	}
	if !valid {
		return errors.ErrInvalidLink
	}
	return nil
}
