package notification

import (
	"context"

	"souq-orders/internal/domain"
)

type Repository interface {
	Insert(ctx context.Context, orderID int64, message string) (*domain.Notification, error)
	// List returns newest first, optionally only unread rows.
	List(ctx context.Context, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id int64) error
}
