package wilaya

import (
	"context"

	"github.com/shopspring/decimal"
	"souq-orders/internal/domain"
)

// Repository is the delivery-fee table.
type Repository interface {
	// List returns every wilaya ordered by id.
	List(ctx context.Context) ([]domain.Wilaya, error)
	// GetByName returns domain.ErrNotFound for unknown names.
	GetByName(ctx context.Context, name string) (*domain.Wilaya, error)
	Upsert(ctx context.Context, name string, fee decimal.Decimal) (*domain.Wilaya, error)
}
