package catalog

import (
	"context"

	"souq-orders/internal/domain"
)

// Repository reads product and variant price snapshots. Every method returns
// domain.ErrNotFound when no matching row exists.
type Repository interface {
	GetProduct(ctx context.Context, id int64) (*domain.CatalogItem, error)
	// GetVariant looks up an active variant by its id and parent product id.
	GetVariant(ctx context.Context, id, parentID int64) (*domain.CatalogItem, error)
	// FindActiveVariant looks up an active variant by id alone.
	FindActiveVariant(ctx context.Context, id int64) (*domain.CatalogItem, error)
}
