package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the order lifecycle state. It is stored by Code and shown to
// clients by Label.
type OrderStatus int

const (
	StatusUnknown OrderStatus = iota
	StatusPending
	StatusConfirmed
	StatusDelivered
	StatusCancelled
)

var statusCodes = map[OrderStatus]string{
	StatusPending:   "pending",
	StatusConfirmed: "confirmed",
	StatusDelivered: "delivered",
	StatusCancelled: "cancelled",
}

var statusLabels = map[OrderStatus]string{
	StatusPending:   "في الانتظار",
	StatusConfirmed: "مؤكد",
	StatusDelivered: "تم التسليم",
	StatusCancelled: "ملغى",
}

// OrderStatuses lists the known statuses in lifecycle order.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{StatusPending, StatusConfirmed, StatusDelivered, StatusCancelled}
}

// ParseOrderStatus accepts either the stored code or the localized label.
func ParseOrderStatus(v string) (OrderStatus, error) {
	v = strings.TrimSpace(v)
	for s, code := range statusCodes {
		if strings.EqualFold(v, code) {
			return s, nil
		}
	}
	for s, label := range statusLabels {
		if v == label {
			return s, nil
		}
	}
	return StatusUnknown, fmt.Errorf("unknown order status %q", v)
}

func (s OrderStatus) Code() string {
	return statusCodes[s]
}

func (s OrderStatus) Label() string {
	return statusLabels[s]
}

func (s OrderStatus) Valid() bool {
	_, ok := statusCodes[s]
	return ok
}

// IsTerminal reports whether items and customer fields are frozen.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s OrderStatus) String() string {
	if code, ok := statusCodes[s]; ok {
		return code
	}
	return "unknown"
}

func (s OrderStatus) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshal order status %d: unknown", int(s))
	}
	return json.Marshal(s.Label())
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Order is the persisted order header. TotalPrice is fixed at creation (or at
// the last full modification) and never recomputed on read.
type Order struct {
	ID          int64           `json:"id"`
	Status      OrderStatus     `json:"status"`
	FullName    string          `json:"fullName"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	Wilaya      string          `json:"wilaya"`
	Address     string          `json:"address"`
	Notes       string          `json:"notes,omitempty"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Items       []OrderItem     `json:"items,omitempty"`
}

// OrderItem is one priced line of an order. Name fields are filled on reads
// that join the catalog.
type OrderItem struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"orderId"`
	ProductID    int64           `json:"productId"`
	VariantID    *int64          `json:"variantId,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	ProductName  string          `json:"productName,omitempty"`
	VariantTitle string          `json:"variantTitle,omitempty"`
	ImageURL     string          `json:"imageUrl,omitempty"`
}

// LineTotal is quantity times unit price, rounded to cents.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice).Round(2)
}

// ItemsSubtotal sums the line totals of items.
func ItemsSubtotal(items []OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}
