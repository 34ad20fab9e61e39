package pricing

import (
	"context"
	"errors"

	"souq-orders/internal/domain"
)

// CatalogReader reads price snapshots. Missing rows return domain.ErrNotFound.
type CatalogReader interface {
	GetProduct(ctx context.Context, id int64) (*domain.CatalogItem, error)
	GetVariant(ctx context.Context, id, parentID int64) (*domain.CatalogItem, error)
	FindActiveVariant(ctx context.Context, id int64) (*domain.CatalogItem, error)
}

// Mode selects how a bare product id (no parent id) is resolved.
type Mode int

const (
	// Strict resolves a bare id as a top-level product only.
	Strict Mode = iota
	// Fallback tries the variants table first and then products. The
	// storefront preview still sends bare variant ids, so it uses this mode.
	Fallback
)

// Resolver maps cart lines onto catalog items.
type Resolver struct {
	catalog CatalogReader
	mode    Mode
}

func NewResolver(catalog CatalogReader, mode Mode) *Resolver {
	return &Resolver{catalog: catalog, mode: mode}
}

// Resolve returns the catalog item for line or domain.ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, line domain.CartLine) (*domain.CatalogItem, error) {
	switch line.Kind {
	case domain.LineVariant:
		return r.catalog.GetVariant(ctx, line.ID, line.ParentID)
	case domain.LineProduct:
		if r.mode == Fallback {
			item, err := r.catalog.FindActiveVariant(ctx, line.ID)
			if err == nil {
				return item, nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
		}
		return r.catalog.GetProduct(ctx, line.ID)
	default:
		return nil, domain.ErrNotFound
	}
}
