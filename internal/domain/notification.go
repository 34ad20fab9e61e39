package domain

import "time"

// Notification is an admin inbox row written alongside a new order.
type Notification struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"orderId"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}
