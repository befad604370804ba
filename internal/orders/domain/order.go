// Package domain defines the order aggregate and its lifecycle types.
// Orders are created at checkout start and evolve through a fixed state
// machine driven by payment-gateway events; financial amounts are stored in
// integer minor units (cents) and only ever move upward through refunds.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the lifecycle state of an order. An order holds
// exactly one status at a time; legal movements are defined in transitions.go.
type OrderStatus string

const (
	StatusPending           OrderStatus = "pending"
	StatusProcessing        OrderStatus = "processing"
	StatusPaid              OrderStatus = "paid"
	StatusFailed            OrderStatus = "failed"
	StatusRefundPending     OrderStatus = "refund_pending"
	StatusRefunded          OrderStatus = "refunded"
	StatusPartiallyRefunded OrderStatus = "partially_refunded"
	StatusRefundFailed      OrderStatus = "refund_failed"
)

// Fulfillment indicates how the customer receives the order. It is decided
// before payment and immutable after the order is paid.
type Fulfillment string

const (
	FulfillmentShip   Fulfillment = "ship"
	FulfillmentPickup Fulfillment = "pickup"
)

// Order is the aggregate root for a customer purchase.
type Order struct {
	// ID is the unique identifier of the order.
	ID uuid.UUID
	// Status is the current lifecycle state.
	Status OrderStatus
	// Fulfillment is "ship" or "pickup".
	Fulfillment Fulfillment
	// FulfillmentStatus tracks the admin shipping queue state (nil until a
	// shipping snapshot is recorded, then "unfulfilled").
	FulfillmentStatus *string
	// Currency is the ISO currency code for all amounts on this order.
	Currency string
	// Subtotal, Tax, Shipping and Total are amounts in minor units (cents).
	Subtotal int64
	Tax      int64
	Shipping int64
	Total    int64
	// RefundAmount is the cumulative refunded amount in cents. It never
	// decreases once refunds start.
	RefundAmount int64
	// RefundedAt is set on the first non-zero refund amount.
	RefundedAt *time.Time
	// PaymentIntentID is the gateway payment-intent reference, nil until
	// payment starts.
	PaymentIntentID *string
	// ChargeID is the gateway charge reference, nil until payment settles.
	ChargeID *string
	// UserID references the owning account; nil for guest checkouts.
	UserID *uuid.UUID
	// GuestEmail is the guest contact address; may be backfilled after
	// payment from gateway data.
	GuestEmail *string
	// TenantID identifies the connected gateway sub-account, when present.
	TenantID *string
	// TaxCalculationID references the gateway tax calculation used at
	// checkout, when tax was calculated.
	TaxCalculationID *string
	// TaxTransactionID references the committed gateway tax transaction.
	TaxTransactionID *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsGuest reports whether the order has no owning user account.
func (o *Order) IsGuest() bool {
	return o.UserID == nil
}

// ContactEmail returns the best known customer email, or empty string.
func (o *Order) ContactEmail() string {
	if o.GuestEmail != nil {
		return *o.GuestEmail
	}
	return ""
}

// OrderItem is an immutable order line. Quantities and prices are fixed at
// checkout; the payment core reads them for stock decrements and reporting
// but never mutates them.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	// VariantID references the purchased size variant; nil for products
	// without variants (no stock tracking applies).
	VariantID *uuid.UUID
	Quantity  int
	// UnitPriceCents and UnitCostCents are per-unit amounts in cents.
	UnitPriceCents int64
	UnitCostCents  int64
	LineTotalCents int64
}

// ShippingSnapshot is the address captured from the gateway payment data at
// payment time. One snapshot per order, write-once.
type ShippingSnapshot struct {
	OrderID    uuid.UUID
	Name       *string
	Phone      *string
	Line1      *string
	Line2      *string
	City       *string
	State      *string
	PostalCode *string
	Country    *string
	CreatedAt  time.Time
}
