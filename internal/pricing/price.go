// Package pricing resolves authoritative unit prices for cart lines. Both the
// pricing preview and order commit go through Calculate, so the two paths
// cannot drift apart.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
	"souq-orders/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Quote is the price of one catalog item at one quantity.
type Quote struct {
	BasePrice          decimal.Decimal
	UnitPrice          decimal.Decimal
	LineTotal          decimal.Decimal
	Savings            decimal.Decimal
	UsedDiscount       bool
	UsedSpecialPricing bool
}

// DiscountActive reports whether the time-boxed discount covers now. Both
// bounds are inclusive and both must be set.
func DiscountActive(item domain.CatalogItem, now time.Time) bool {
	if item.DiscountPrice == nil || item.DiscountStart == nil || item.DiscountEnd == nil {
		return false
	}
	return !now.Before(*item.DiscountStart) && !now.After(*item.DiscountEnd)
}

// SpecialPricingApplies reports whether the quantity threshold reduction kicks
// in. Measure-unit items never get it.
func SpecialPricingApplies(item domain.CatalogItem, qty decimal.Decimal) bool {
	if item.HasMeasureUnit {
		return false
	}
	if item.DiscountThreshold == nil || *item.DiscountThreshold <= 0 {
		return false
	}
	if item.Profit == nil || item.DiscountPercentage == nil {
		return false
	}
	return qty.GreaterThanOrEqual(decimal.NewFromInt(*item.DiscountThreshold))
}

// ResolveUnitPrice prices item at qty as of now. Stages run in order: list
// price, then an active time-boxed discount, then the threshold reduction
// (profit * discountPercentage / 100) off whatever stage two left.
func ResolveUnitPrice(item domain.CatalogItem, qty decimal.Decimal, now time.Time) Quote {
	q := Quote{BasePrice: item.BasePrice, UnitPrice: item.BasePrice}

	if DiscountActive(item, now) {
		q.UnitPrice = *item.DiscountPrice
		q.UsedDiscount = true
	}

	if SpecialPricingApplies(item, qty) {
		reduction := item.Profit.Mul(item.DiscountPercentage.Div(hundred))
		q.UnitPrice = q.UnitPrice.Sub(reduction)
		q.UsedSpecialPricing = true
	}

	if q.UnitPrice.IsNegative() {
		q.UnitPrice = decimal.Zero
	}
	q.UnitPrice = q.UnitPrice.Round(2)

	// Line amounts are stored as NUMERIC(12,2).
	q.LineTotal = q.UnitPrice.Mul(qty).Round(2)
	q.Savings = q.BasePrice.Sub(q.UnitPrice).Mul(qty).Round(2)
	return q
}
