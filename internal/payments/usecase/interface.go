// Package usecase implements the payment-event reconciliation pipeline: one
// handler per gateway event category, a fallback paid transition, and the
// marker-guarded side-effect dispatcher.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	ordersDomain "github.com/grailpoint/storefront/internal/orders/domain"
	paymentsDomain "github.com/grailpoint/storefront/internal/payments/domain"
)

// UseCase defines the interface for webhook event processing.
type UseCase interface {
	Process(ctx context.Context, event *paymentsDomain.Event) error
}

// OrderRepository defines the order ledger operations the pipeline needs.
// All status writes are conditional; a false return means a concurrent writer
// already moved the order.
type OrderRepository interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (*ordersDomain.Order, error)
	GetByPaymentReference(ctx context.Context, chargeID, paymentIntentID string) (*ordersDomain.Order, error)
	ConditionalUpdateStatus(
		ctx context.Context,
		orderID uuid.UUID,
		from []ordersDomain.OrderStatus,
		to ordersDomain.OrderStatus,
		paymentIntentID *string,
	) (bool, error)
	MarkPaidAndDecrementStock(
		ctx context.Context,
		orderID uuid.UUID,
		paymentIntentID string,
		chargeID *string,
		items []ordersDomain.OrderItem,
	) (bool, error)
	UpdateRefundSummary(ctx context.Context, orderID uuid.UUID, refundAmountCents int64, refundedAt *time.Time) error
	UpdateGuestEmail(ctx context.Context, orderID uuid.UUID, email string) error
	SetFulfillmentStatus(ctx context.Context, orderID uuid.UUID, status string) error
	SetTaxTransactionID(ctx context.Context, orderID uuid.UUID, taxTransactionID string) error
	GetItems(ctx context.Context, orderID uuid.UUID) ([]ordersDomain.OrderItem, error)
	InsertShippingSnapshot(ctx context.Context, snapshot *ordersDomain.ShippingSnapshot) error
	GetShippingSnapshot(ctx context.Context, orderID uuid.UUID) (*ordersDomain.ShippingSnapshot, error)
}

// OrderEventRepository defines the append-only order event log operations.
type OrderEventRepository interface {
	HasEvent(ctx context.Context, orderID uuid.UUID, eventType ordersDomain.OrderEventType) (bool, error)
	Append(ctx context.Context, event *ordersDomain.OrderEvent) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*ordersDomain.OrderEvent, error)
}

// ProcessedEventRepository defines the write-once processed-event store.
type ProcessedEventRepository interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	RecordProcessed(ctx context.Context, event *paymentsDomain.ProcessedEvent) error
}

// GatewayClient defines the outbound payment-gateway operations the pipeline
// consumes. Implementations must honor context deadlines.
type GatewayClient interface {
	ListRefunds(ctx context.Context, paymentIntentID string) ([]paymentsDomain.Refund, error)
	GetCharge(ctx context.Context, chargeID string) (*paymentsDomain.Charge, error)
	GetPaymentMethod(ctx context.Context, paymentMethodID string) (*paymentsDomain.PaymentMethod, error)
	// CreateTaxTransaction commits a tax transaction for a checkout tax
	// calculation on the given connected account and returns its reference.
	CreateTaxTransaction(ctx context.Context, taxCalculationID, reference, tenantID string) (string, error)
}

// Mailer sends customer-facing order emails. Fire-and-forget from this
// pipeline's perspective; errors are caught and logged only.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, order *ordersDomain.Order, items []ordersDomain.OrderItem) error
	SendPickupInstructions(ctx context.Context, order *ordersDomain.Order) error
}

// StaffNotifier tells the back office about a new paid order.
type StaffNotifier interface {
	NotifyNewOrder(ctx context.Context, order *ordersDomain.Order) error
}

// CatalogSyncer recomputes derived product metadata after stock changes.
type CatalogSyncer interface {
	SyncSizeTags(ctx context.Context, productIDs []uuid.UUID) error
}

// TaxRecorder appends a best-effort sales-tax ledger row for a paid order.
type TaxRecorder interface {
	RecordSale(ctx context.Context, order *ordersDomain.Order, items []ordersDomain.OrderItem) error
}

// CacheInvalidator drops downstream caches for the affected products.
type CacheInvalidator interface {
	InvalidateProducts(ctx context.Context, productIDs []uuid.UUID) error
}

// PickupThreads creates the pickup communication channel for an order.
type PickupThreads interface {
	EnsureThread(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) error
}
