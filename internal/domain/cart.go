package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineKind tells how a cart line addresses the catalog.
type LineKind int

const (
	// LineProduct addresses a top-level product by its id.
	LineProduct LineKind = iota
	// LineVariant addresses a variant row by (variant id, parent product id).
	LineVariant
)

// CartLine is one requested line of a cart. Build it with ProductLine or
// VariantLine so the kind and ids stay consistent.
type CartLine struct {
	Kind     LineKind
	ID       int64
	ParentID int64
	Quantity decimal.Decimal
}

// LineKey identifies the catalog row a line points at.
type LineKey struct {
	Kind     LineKind
	ID       int64
	ParentID int64
}

func ProductLine(productID int64, qty decimal.Decimal) CartLine {
	return CartLine{Kind: LineProduct, ID: productID, Quantity: qty}
}

func VariantLine(variantID, parentID int64, qty decimal.Decimal) CartLine {
	return CartLine{Kind: LineVariant, ID: variantID, ParentID: parentID, Quantity: qty}
}

// NewCartLine picks the line kind from the presence of a parent product id.
func NewCartLine(id int64, parentID *int64, qty decimal.Decimal) CartLine {
	if parentID != nil {
		return VariantLine(id, *parentID, qty)
	}
	return ProductLine(id, qty)
}

func (l CartLine) Key() LineKey {
	return LineKey{Kind: l.Kind, ID: l.ID, ParentID: l.ParentID}
}

func (l CartLine) String() string {
	if l.Kind == LineVariant {
		return fmt.Sprintf("variant %d of product %d x %s", l.ID, l.ParentID, l.Quantity)
	}
	return fmt.Sprintf("product %d x %s", l.ID, l.Quantity)
}
