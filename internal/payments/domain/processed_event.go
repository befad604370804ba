package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProcessedEvent records one externally delivered event id that completed
// processing. Write-once; existence is the idempotency gate for the whole
// pipeline.
type ProcessedEvent struct {
	EventID     string
	EventType   EventType
	PayloadHash string
	// OrderID is recorded when the event payload resolved to an order.
	OrderID    *uuid.UUID
	ReceivedAt time.Time
}
