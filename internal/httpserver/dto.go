package httpserver

import (
	"time"

	"github.com/shopspring/decimal"
	"souq-orders/internal/domain"
	"souq-orders/internal/pricing"
	ordersvc "souq-orders/internal/service/order"
)

// money renders an amount as a JSON number rounded to 2 places.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

type processedItem struct {
	ProductID          int64   `json:"productId"`
	VariantID          *int64  `json:"variantId,omitempty"`
	Name               string  `json:"name"`
	Quantity           float64 `json:"quantity"`
	UnitPrice          float64 `json:"unitPrice"`
	LineTotal          float64 `json:"lineTotal"`
	Savings            float64 `json:"savings"`
	UsedDiscount       bool    `json:"usedDiscount"`
	UsedSpecialPricing bool    `json:"usedSpecialPricing"`
}

type addOrderResponse struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	OrderID        int64           `json:"orderId"`
	Subtotal       float64         `json:"subtotal"`
	DeliveryFee    float64         `json:"deliveryFee"`
	TotalPrice     float64         `json:"totalPrice"`
	ItemsCount     int             `json:"itemsCount"`
	ProcessedItems []processedItem `json:"processedItems"`
}

func toAddOrderResponse(r *ordersvc.Receipt) addOrderResponse {
	items := make([]processedItem, 0, len(r.Lines))
	for _, l := range r.Lines {
		items = append(items, processedItem{
			ProductID:          l.ProductID,
			VariantID:          l.VariantID,
			Name:               l.DisplayName,
			Quantity:           l.Quantity.InexactFloat64(),
			UnitPrice:          money(l.UnitPrice),
			LineTotal:          money(l.LineTotal),
			Savings:            money(l.Savings),
			UsedDiscount:       l.UsedDiscount,
			UsedSpecialPricing: l.UsedSpecialPricing,
		})
	}
	return addOrderResponse{
		Success:        true,
		Message:        "order created",
		OrderID:        r.Order.ID,
		Subtotal:       money(r.Subtotal),
		DeliveryFee:    money(r.Order.DeliveryFee),
		TotalPrice:     money(r.Order.TotalPrice),
		ItemsCount:     len(r.Lines),
		ProcessedItems: items,
	}
}

type pricingDetail struct {
	ProductID          int64   `json:"product_id"`
	VariantID          *int64  `json:"variant_id,omitempty"`
	Name               string  `json:"name"`
	ImageURL           string  `json:"image_url,omitempty"`
	Quantity           float64 `json:"quantity"`
	BasePrice          float64 `json:"base_price"`
	UnitPrice          float64 `json:"unit_price"`
	TotalPrice         float64 `json:"total_price"`
	Savings            float64 `json:"savings"`
	UsedDiscount       bool    `json:"used_discount"`
	UsedSpecialPricing bool    `json:"used_special_pricing"`
}

type wilayaOption struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	DeliveryFee       float64 `json:"delivery_fee"`
	TotalWithDelivery float64 `json:"total_with_delivery"`
}

type previewData struct {
	Subtotal       float64         `json:"subtotal"`
	TotalSavings   float64         `json:"total_savings"`
	PricingDetails []pricingDetail `json:"pricing_details"`
	Wilayas        []wilayaOption  `json:"wilayas"`
}

type previewResponse struct {
	Success bool        `json:"success"`
	Data    previewData `json:"data"`
}

func toPreviewResponse(p *ordersvc.Preview) previewResponse {
	details := make([]pricingDetail, 0, len(p.Lines))
	for _, l := range p.Lines {
		details = append(details, toPricingDetail(l))
	}
	wilayas := make([]wilayaOption, 0, len(p.DeliveryOptions))
	for _, o := range p.DeliveryOptions {
		wilayas = append(wilayas, wilayaOption{
			ID:                o.WilayaID,
			Name:              o.Name,
			DeliveryFee:       money(o.Fee),
			TotalWithDelivery: money(o.TotalWithDelivery),
		})
	}
	return previewResponse{
		Success: true,
		Data: previewData{
			Subtotal:       money(p.Subtotal),
			TotalSavings:   money(p.TotalSavings),
			PricingDetails: details,
			Wilayas:        wilayas,
		},
	}
}

func toPricingDetail(l pricing.Line) pricingDetail {
	return pricingDetail{
		ProductID:          l.ProductID,
		VariantID:          l.VariantID,
		Name:               l.DisplayName,
		ImageURL:           l.ImageURL,
		Quantity:           l.Quantity.InexactFloat64(),
		BasePrice:          money(l.BasePrice),
		UnitPrice:          money(l.UnitPrice),
		TotalPrice:         money(l.LineTotal),
		Savings:            money(l.Savings),
		UsedDiscount:       l.UsedDiscount,
		UsedSpecialPricing: l.UsedSpecialPricing,
	}
}

type orderItemResponse struct {
	ID           int64   `json:"id"`
	ProductID    int64   `json:"productId"`
	VariantID    *int64  `json:"variantId,omitempty"`
	ProductName  string  `json:"productName"`
	VariantTitle string  `json:"variantTitle,omitempty"`
	ImageURL     string  `json:"imageUrl,omitempty"`
	Quantity     float64 `json:"quantity"`
	UnitPrice    float64 `json:"unitPrice"`
	LineTotal    float64 `json:"lineTotal"`
}

type orderResponse struct {
	ID          int64               `json:"id"`
	Status      string              `json:"status"`
	StatusCode  string              `json:"statusCode"`
	FullName    string              `json:"fullName"`
	Email       string              `json:"email"`
	Phone       string              `json:"phone"`
	Wilaya      string              `json:"wilaya"`
	Address     string              `json:"address"`
	Notes       string              `json:"notes"`
	DeliveryFee float64             `json:"deliveryFee"`
	TotalPrice  float64             `json:"totalPrice"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	Items       []orderItemResponse `json:"items,omitempty"`
}

func toOrderResponse(o domain.Order) orderResponse {
	var items []orderItemResponse
	if o.Items != nil {
		items = make([]orderItemResponse, 0, len(o.Items))
		for _, it := range o.Items {
			items = append(items, orderItemResponse{
				ID:           it.ID,
				ProductID:    it.ProductID,
				VariantID:    it.VariantID,
				ProductName:  it.ProductName,
				VariantTitle: it.VariantTitle,
				ImageURL:     it.ImageURL,
				Quantity:     it.Quantity.InexactFloat64(),
				UnitPrice:    money(it.UnitPrice),
				LineTotal:    money(it.LineTotal()),
			})
		}
	}
	return orderResponse{
		ID:          o.ID,
		Status:      o.Status.Label(),
		StatusCode:  o.Status.Code(),
		FullName:    o.FullName,
		Email:       o.Email,
		Phone:       o.Phone,
		Wilaya:      o.Wilaya,
		Address:     o.Address,
		Notes:       o.Notes,
		DeliveryFee: money(o.DeliveryFee),
		TotalPrice:  money(o.TotalPrice),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		Items:       items,
	}
}

type listOrdersResponse struct {
	Success    bool                `json:"success"`
	Orders     []orderResponse     `json:"orders"`
	Pagination ordersvc.Pagination `json:"pagination"`
}

type statusRequest struct {
	Status string `json:"status"`
}
