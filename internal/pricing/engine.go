// Package pricing converts upstream per-1000 rates into the amount charged
// to a member.
package pricing

import (
	"github.com/shopspring/decimal"

	"smmwallet/pkg/errors"
)

var (
	thousand = decimal.NewFromInt(1000)
	hundred  = decimal.NewFromInt(100)
)

// Engine applies a fixed percentage markup on top of the provider rate.
type Engine struct {
	markup decimal.Decimal
}

// NewEngine returns an Engine charging markupPercent on top of the rate.
// A negative markup is clamped to zero.
func NewEngine(markupPercent decimal.Decimal) *Engine {
	if markupPercent.IsNegative() {
		markupPercent = decimal.Zero
	}
	return &Engine{markup: markupPercent}
}

func (e *Engine) MarkupPercent() decimal.Decimal {
	return e.markup
}

// Price returns rate/1000 * quantity * (1 + markup/100), rounded half-up to
// cents. Rounding happens once on the final product.
func (e *Engine) Price(rate decimal.Decimal, quantity int) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, errors.ErrInvalidQuantity
	}
	if rate.IsNegative() {
		return decimal.Zero, errors.ErrInvalidAmount
	}
	charged := rate.
		Mul(decimal.NewFromInt(int64(quantity))).
		Mul(e.factor()).
		Div(thousand)
	return charged.Round(2), nil
}

// SellRate is the marked-up price per 1000 units, as shown in listings.
func (e *Engine) SellRate(rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(e.factor()).Round(2)
}

func (e *Engine) factor() decimal.Decimal {
	return decimal.NewFromInt(1).Add(e.markup.Div(hundred))
}
