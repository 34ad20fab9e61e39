package order

import (
	"context"

	"souq-orders/internal/domain"
	"souq-orders/internal/repository/catalog"
	"souq-orders/internal/repository/notification"
)

// ListFilter narrows an order listing. A zero Status matches every status.
// Limit <= 0 returns every matching row.
type ListFilter struct {
	Status domain.OrderStatus
	Search string
	Limit  int
	Offset int
}

// Tx is the unit of work for order writes. Every call runs on one
// transaction; nothing is visible to other readers until InTx commits.
type Tx interface {
	Catalog() catalog.Repository
	Notifications() notification.Repository
	// InsertOrder stores the header and fills in ID, CreatedAt and UpdatedAt.
	InsertOrder(ctx context.Context, o *domain.Order) error
	InsertItems(ctx context.Context, orderID int64, items []domain.OrderItem) error
	// LockOrder reads the header and holds a row lock until the tx ends.
	LockOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error)
	DeleteItems(ctx context.Context, orderID int64) error
	// UpdateOrder rewrites the customer fields, fee and total of o.
	UpdateOrder(ctx context.Context, o *domain.Order) error
}

type Repository interface {
	// InTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise. The error from fn is returned unchanged.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Order, int, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
	Delete(ctx context.Context, id int64) error
}
