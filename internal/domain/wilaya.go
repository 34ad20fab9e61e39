package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wilaya is a delivery region with its flat delivery fee.
type Wilaya struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	CreatedAt   time.Time       `json:"createdAt"`
}
