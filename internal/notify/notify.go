// Package notify pushes order events to admins. Delivery is best effort:
// callers log failures and never roll back the order that triggered them.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const EventOrderCreated = "order.created"

// Notifier tells admins about a newly committed order.
type Notifier interface {
	NotifyAdmin(ctx context.Context, orderID int64) error
}

// OrderEvent is the payload sent over every channel.
type OrderEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OrderID    int64     `json:"orderId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewOrderEvent(orderID int64) OrderEvent {
	return OrderEvent{
		ID:         uuid.NewString(),
		Type:       EventOrderCreated,
		OrderID:    orderID,
		OccurredAt: time.Now().UTC(),
	}
}

// Multi fans out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) NotifyAdmin(ctx context.Context, orderID int64) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.NotifyAdmin(ctx, orderID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every notification.
type Nop struct{}

func (Nop) NotifyAdmin(context.Context, int64) error { return nil }
