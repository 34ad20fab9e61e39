package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem is the price-relevant snapshot of a product or a variant,
// read once per cart line.
type CatalogItem struct {
	ProductID   int64  `json:"productId"`
	VariantID   *int64 `json:"variantId,omitempty"`
	DisplayName string `json:"displayName"`
	ImageURL    string `json:"imageUrl,omitempty"`

	BasePrice     decimal.Decimal  `json:"basePrice"`
	DiscountPrice *decimal.Decimal `json:"discountPrice,omitempty"`
	DiscountStart *time.Time       `json:"discountStart,omitempty"`
	DiscountEnd   *time.Time       `json:"discountEnd,omitempty"`

	// Special pricing: once the ordered quantity reaches DiscountThreshold,
	// Profit scaled by DiscountPercentage is taken off the unit price.
	DiscountThreshold  *int64           `json:"discountThreshold,omitempty"`
	Profit             *decimal.Decimal `json:"profit,omitempty"`
	DiscountPercentage *decimal.Decimal `json:"discountPercentage,omitempty"`

	HasMeasureUnit bool `json:"hasMeasureUnit"`
}

// IsVariant reports whether the item was resolved from the variants table.
func (c CatalogItem) IsVariant() bool {
	return c.VariantID != nil
}
