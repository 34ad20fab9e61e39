package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"souq-orders/internal/domain"
)

// Lookup resolves a cart line to its catalog item.
type Lookup interface {
	Resolve(ctx context.Context, line domain.CartLine) (*domain.CatalogItem, error)
}

// Line is the priced result for one aggregated cart line.
type Line struct {
	ProductID          int64
	VariantID          *int64
	DisplayName        string
	ImageURL           string
	Quantity           decimal.Decimal
	BasePrice          decimal.Decimal
	UnitPrice          decimal.Decimal
	LineTotal          decimal.Decimal
	Savings            decimal.Decimal
	UsedDiscount       bool
	UsedSpecialPricing bool
}

// Result is the priced cart.
type Result struct {
	Lines        []Line
	Subtotal     decimal.Decimal
	TotalSavings decimal.Decimal
}

// DeliveryOption is the cart total for one delivery region.
type DeliveryOption struct {
	WilayaID          int64
	Name              string
	Fee               decimal.Decimal
	TotalWithDelivery decimal.Decimal
}

// Calculate aggregates lines, resolves every line against lookup and prices
// it as of now. Lines that resolve to the same catalog item are merged before
// pricing, so a bare variant id and its parent-qualified form share one line.
// If any line does not resolve, a *domain.ProductsNotFoundError naming all
// unresolved ids is returned and no partial result is produced.
func Calculate(ctx context.Context, lookup Lookup, lines []domain.CartLine, now time.Time) (*Result, error) {
	merged := Aggregate(lines)
	var (
		rows    []resolvedLine
		index   = make(map[itemKey]int, len(merged))
		missing []int64
	)

	for _, line := range merged {
		item, err := lookup.Resolve(ctx, line)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				missing = append(missing, line.ID)
				continue
			}
			return nil, fmt.Errorf("resolve %s: %w", line, err)
		}
		key := keyOf(item)
		if i, ok := index[key]; ok {
			rows[i].qty = rows[i].qty.Add(line.Quantity)
			continue
		}
		index[key] = len(rows)
		rows = append(rows, resolvedLine{item: item, qty: line.Quantity})
	}

	if len(missing) > 0 {
		return nil, &domain.ProductsNotFoundError{IDs: missing}
	}

	res := &Result{
		Lines:        make([]Line, 0, len(rows)),
		Subtotal:     decimal.Zero,
		TotalSavings: decimal.Zero,
	}
	for _, r := range rows {
		q := ResolveUnitPrice(*r.item, r.qty, now)
		res.Lines = append(res.Lines, Line{
			ProductID:          r.item.ProductID,
			VariantID:          r.item.VariantID,
			DisplayName:        r.item.DisplayName,
			ImageURL:           r.item.ImageURL,
			Quantity:           r.qty,
			BasePrice:          q.BasePrice,
			UnitPrice:          q.UnitPrice,
			LineTotal:          q.LineTotal,
			Savings:            q.Savings,
			UsedDiscount:       q.UsedDiscount,
			UsedSpecialPricing: q.UsedSpecialPricing,
		})
		res.Subtotal = res.Subtotal.Add(q.LineTotal)
		res.TotalSavings = res.TotalSavings.Add(q.Savings)
	}
	return res, nil
}

// itemKey identifies a resolved catalog item. VariantID is 0 for plain products.
type itemKey struct {
	ProductID int64
	VariantID int64
}

func keyOf(item *domain.CatalogItem) itemKey {
	k := itemKey{ProductID: item.ProductID}
	if item.VariantID != nil {
		k.VariantID = *item.VariantID
	}
	return k
}

type resolvedLine struct {
	item *domain.CatalogItem
	qty  decimal.Decimal
}

// DeliveryOptions pairs subtotal with every wilaya's fee.
func DeliveryOptions(subtotal decimal.Decimal, wilayas []domain.Wilaya) []DeliveryOption {
	out := make([]DeliveryOption, 0, len(wilayas))
	for _, w := range wilayas {
		out = append(out, DeliveryOption{
			WilayaID:          w.ID,
			Name:              w.Name,
			Fee:               w.DeliveryFee,
			TotalWithDelivery: subtotal.Add(w.DeliveryFee),
		})
	}
	return out
}

// WithinTolerance reports whether |a-b| <= tol.
func WithinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}
