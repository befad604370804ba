// Package repository implements the processed-event store, the write-once
// record of gateway event ids that completed processing.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/grailpoint/storefront/internal/database"
	apperrors "github.com/grailpoint/storefront/internal/errors"
	paymentsDomain "github.com/grailpoint/storefront/internal/payments/domain"
)

// PostgreSQLProcessedEventRepository implements the processed-event store for
// PostgreSQL databases.
type PostgreSQLProcessedEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLProcessedEventRepository creates a new PostgreSQL
// processed-event repository instance.
func NewPostgreSQLProcessedEventRepository(db *sql.DB) *PostgreSQLProcessedEventRepository {
	return &PostgreSQLProcessedEventRepository{db: db}
}

// Exists reports whether the event id has already completed processing.
func (p *PostgreSQLProcessedEventRepository) Exists(
	ctx context.Context,
	eventID string,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT EXISTS(SELECT 1 FROM gateway_events WHERE event_id = $1)`

	var exists bool
	err := querier.QueryRowContext(ctx, query, eventID).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check processed event")
	}
	return exists, nil
}

// RecordProcessed inserts the write-once processed marker for an event id.
// A concurrent duplicate insert is ignored: two deliveries of the same event
// may both finish processing, and either one may land the record.
func (p *PostgreSQLProcessedEventRepository) RecordProcessed(
	ctx context.Context,
	event *paymentsDomain.ProcessedEvent,
) error {
	querier := database.GetTx(ctx, p.db)

	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	query := `INSERT INTO gateway_events (event_id, event_type, payload_hash, order_id, received_at)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (event_id) DO NOTHING`

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
