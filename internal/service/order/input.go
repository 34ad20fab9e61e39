package order

import (
	"fmt"

	"github.com/shopspring/decimal"
	"souq-orders/internal/domain"
	"souq-orders/internal/pricing"
)

// Limits of the order_items.quantity NUMERIC(12,3) and orders.total_price
// NUMERIC(12,2) columns.
const quantityScale = 3

var (
	maxQuantity = decimal.RequireFromString("999999999.999")
	maxAmount   = decimal.RequireFromString("9999999999.99")
)

// ItemInput is one requested cart line. ParentProductID set means ProductID
// names a variant of that product.
type ItemInput struct {
	ProductID       int64           `json:"productId" validate:"required,gt=0"`
	ParentProductID *int64          `json:"parentProductId,omitempty" validate:"omitempty,gt=0"`
	Quantity        decimal.Decimal `json:"quantity" validate:"gt=0,lt=1000000000"`
}

type PreviewInput struct {
	Items []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// PricingVerification carries the totals the client showed the customer.
type PricingVerification struct {
	Subtotal decimal.NullDecimal `json:"subtotal"`
	Total    decimal.NullDecimal `json:"total"`
}

type AddOrderInput struct {
	FullName     string               `json:"fullName" validate:"required,max=100"`
	Email        string               `json:"email" validate:"required,email,max=255"`
	Phone        string               `json:"phone" validate:"required,phone,max=20"`
	Wilaya       string               `json:"wilaya" validate:"max=100"`
	Address      string               `json:"address" validate:"required,max=500"`
	Notes        string               `json:"notes" validate:"max=2000"`
	Items        []ItemInput          `json:"items" validate:"required,min=1,dive"`
	Verification *PricingVerification `json:"pricing_verification,omitempty"`
}

// ModifyInput replaces the customer fields of an order. A nil Items keeps the
// current lines; a non-nil Items replaces them and reprices at current time.
type ModifyInput struct {
	FullName string      `json:"fullName" validate:"required,max=100"`
	Email    string      `json:"email" validate:"required,email,max=255"`
	Phone    string      `json:"phone" validate:"required,phone,max=20"`
	Wilaya   string      `json:"wilaya" validate:"required,max=100"`
	Address  string      `json:"address" validate:"required,max=500"`
	Notes    string      `json:"notes" validate:"max=2000"`
	Items    []ItemInput `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

// ListQuery is the admin order listing request.
type ListQuery struct {
	Page   int
	Limit  int
	Status string
	Search string
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// offsetLimit clamps page and size and converts them to an offset.
func offsetLimit(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return page, size, (page - 1) * size
}

func newPagination(page, limit, total int) Pagination {
	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

func toCartLines(items []ItemInput) []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, domain.NewCartLine(it.ProductID, it.ParentProductID, it.Quantity))
	}
	return lines
}

// checkQuantityScale rejects quantities finer than the stored scale.
func checkQuantityScale(items []ItemInput) error {
	details := map[string]string{}
	for i, it := range items {
		if !it.Quantity.Equal(it.Quantity.Round(quantityScale)) {
			details[fmt.Sprintf("items[%d].quantity", i)] = fmt.Sprintf("must have at most %d decimal places", quantityScale)
		}
	}
	if len(details) == 0 {
		return nil
	}
	return &domain.ValidationError{Message: "validation failed", Details: details}
}

// checkStorable rejects a priced cart whose merged quantities or total do not
// fit the order columns.
func checkStorable(res *pricing.Result, total decimal.Decimal) error {
	for _, l := range res.Lines {
		if l.Quantity.GreaterThan(maxQuantity) {
			return domain.NewValidationError("items", fmt.Sprintf("quantity of product %d exceeds %s", l.ProductID, maxQuantity))
		}
	}
	if total.GreaterThan(maxAmount) {
		return domain.NewValidationError("items", fmt.Sprintf("order total exceeds %s", maxAmount))
	}
	return nil
}
