// Package dto contains response types for the order status API.
package dto

import (
	"time"

	"github.com/grailpoint/storefront/internal/orders/domain"
	"github.com/grailpoint/storefront/internal/orders/usecase"
)

// OrderItemResponse is one order line in the status view.
type OrderItemResponse struct {
	ProductID      string  `json:"product_id"`
	VariantID      *string `json:"variant_id,omitempty"`
	Quantity       int     `json:"quantity"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	LineTotalCents int64   `json:"line_total_cents"`
}

// OrderEventResponse is one audit log entry in the status view.
type OrderEventResponse struct {
	Type      string    `json:"type"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ShippingResponse is the captured shipping address, present once paid.
type ShippingResponse struct {
	Name       *string `json:"name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Line1      *string `json:"line1,omitempty"`
	Line2      *string `json:"line2,omitempty"`
	City       *string `json:"city,omitempty"`
	State      *string `json:"state,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
	Country    *string `json:"country,omitempty"`
}

// GetOrderResponse is the full order-status page payload.
type GetOrderResponse struct {
	ID                string               `json:"id"`
	Status            string               `json:"status"`
	Fulfillment       string               `json:"fulfillment"`
	FulfillmentStatus *string              `json:"fulfillment_status,omitempty"`
	Currency          string               `json:"currency"`
	SubtotalCents     int64                `json:"subtotal_cents"`
	TaxCents          int64                `json:"tax_cents"`
	ShippingCents     int64                `json:"shipping_cents"`
	TotalCents        int64                `json:"total_cents"`
	RefundCents       int64                `json:"refund_cents"`
	RefundedAt        *time.Time           `json:"refunded_at,omitempty"`
	Items             []OrderItemResponse  `json:"items"`
	Events            []OrderEventResponse `json:"events"`
	Shipping          *ShippingResponse    `json:"shipping,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// MapOrderDetailsToResponse converts the assembled order view to the API
// response.
func MapOrderDetailsToResponse(details *usecase.OrderDetails) GetOrderResponse {
	order := details.Order

	items := make([]OrderItemResponse, 0, len(details.Items))
	for _, item := range details.Items {
		items = append(items, mapItem(item))
	}

	events := make([]OrderEventResponse, 0, len(details.Events))
	for _, event := range details.Events {
		if event == nil {
			continue
		}
		events = append(events, OrderEventResponse{
			Type:      string(event.Type),
			Message:   event.Message,
			CreatedAt: event.CreatedAt,
		})
	}

	return GetOrderResponse{
		ID:                order.ID.String(),
		Status:            string(order.Status),
		Fulfillment:       string(order.Fulfillment),
		FulfillmentStatus: order.FulfillmentStatus,
		Currency:          order.Currency,
		SubtotalCents:     order.Subtotal,
		TaxCents:          order.Tax,
		ShippingCents:     order.Shipping,
		TotalCents:        order.Total,
		RefundCents:       order.RefundAmount,
		RefundedAt:        order.RefundedAt,
		Items:             items,
		Events:            events,
		Shipping:          mapShipping(details.Shipping),
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
}

func mapItem(item domain.OrderItem) OrderItemResponse {
	response := OrderItemResponse{
		ProductID:      item.ProductID.String(),
		Quantity:       item.Quantity,
		UnitPriceCents: item.UnitPriceCents,
		LineTotalCents: item.LineTotalCents,
	}
	if item.VariantID != nil {
		variantID := item.VariantID.String()
		response.VariantID = &variantID
	}
	return response
}

func mapShipping(snapshot *domain.ShippingSnapshot) *ShippingResponse {
	if snapshot == nil {
		return nil
	}
	return &ShippingResponse{
		Name:       snapshot.Name,
		Phone:      snapshot.Phone,
		Line1:      snapshot.Line1,
		Line2:      snapshot.Line2,
		City:       snapshot.City,
		State:      snapshot.State,
		PostalCode: snapshot.PostalCode,
		Country:    snapshot.Country,
	}
}
