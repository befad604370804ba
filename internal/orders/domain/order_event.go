package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderEventType is the machine-checkable marker of an order event log entry.
// The presence of a marker for an order is the idempotency gate for the side
// effect it represents: a retried gateway event must not re-fire an effect
// whose marker is already logged.
type OrderEventType string

const (
	OrderEventPaid                   OrderEventType = "paid"
	OrderEventPaymentFailed          OrderEventType = "payment_failed"
	OrderEventConfirmationEmailSent  OrderEventType = "confirmation_email_sent"
	OrderEventPickupInstructionsSent OrderEventType = "pickup_instructions_sent"
	OrderEventAdminOrderEmailSent    OrderEventType = "admin_order_email_sent"
)

// OrderEvent is one append-only audit entry in the per-order event log.
// Entries are never updated or deleted.
type OrderEvent struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Type      OrderEventType
	Message   string
	CreatedAt time.Time
}
