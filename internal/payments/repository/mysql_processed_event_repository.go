package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/grailpoint/storefront/internal/database"
	apperrors "github.com/grailpoint/storefront/internal/errors"
	paymentsDomain "github.com/grailpoint/storefront/internal/payments/domain"
)

// MySQLProcessedEventRepository implements the processed-event store for
// MySQL databases.
type MySQLProcessedEventRepository struct {
	db *sql.DB
}

// NewMySQLProcessedEventRepository creates a new MySQL processed-event
// repository instance.
func NewMySQLProcessedEventRepository(db *sql.DB) *MySQLProcessedEventRepository {
	return &MySQLProcessedEventRepository{db: db}
}

// Exists reports whether the event id has already completed processing.
func (m *MySQLProcessedEventRepository) Exists(
	ctx context.Context,
	eventID string,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT EXISTS(SELECT 1 FROM gateway_events WHERE event_id = ?)`

	var exists bool
	err := querier.QueryRowContext(ctx, query, eventID).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check processed event")
	}
	return exists, nil
}

// RecordProcessed inserts the write-once processed marker for an event id.
func (m *MySQLProcessedEventRepository) RecordProcessed(
	ctx context.Context,
	event *paymentsDomain.ProcessedEvent,
) error {
	querier := database.GetTx(ctx, m.db)

	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	query := `INSERT IGNORE INTO gateway_events (event_id, event_type, payload_hash, order_id, received_at)
			  VALUES (?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.EventID,
		event.EventType,
		event.PayloadHash,
		event.OrderID,
		event.ReceivedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to record processed event")
	}
	return nil
}
