package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/grailpoint/storefront/internal/database"
	apperrors "github.com/grailpoint/storefront/internal/errors"
	ordersDomain "github.com/grailpoint/storefront/internal/orders/domain"
)

// PostgreSQLOrderEventRepository implements the append-only order event log
// for PostgreSQL databases.
type PostgreSQLOrderEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLOrderEventRepository creates a new PostgreSQL order event
// repository instance.
func NewPostgreSQLOrderEventRepository(db *sql.DB) *PostgreSQLOrderEventRepository {
	return &PostgreSQLOrderEventRepository{db: db}
}

// HasEvent reports whether an event of the given type was already logged for
// the order. This is the idempotency gate for marker-guarded side effects.
func (p *PostgreSQLOrderEventRepository) HasEvent(
	ctx context.Context,
	orderID uuid.UUID,
	eventType ordersDomain.OrderEventType,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT EXISTS(SELECT 1 FROM order_events WHERE order_id = $1 AND type = $2)`

	var exists bool
	err := querier.QueryRowContext(ctx, query, orderID, eventType).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check order event")
	}
	return exists, nil
}

// Append writes a new entry to the order event log. Entries are never updated
// or deleted.
func (p *PostgreSQLOrderEventRepository) Append(
	ctx context.Context,
	event *ordersDomain.OrderEvent,
) error {
	querier := database.GetTx(ctx, p.db)

	if event.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return apperrors.Wrap(err, "failed to generate event id")
		}
		event.ID = id
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO order_events (id, order_id, type, message, created_at)
			  VALUES ($1, $2, $3, $4, $5)`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.ID,
		event.OrderID,
		event.Type,
		event.Message,
		event.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to append order event")
	}
	return nil
}

// ListByOrder retrieves the event log for an order in chronological order.
func (p *PostgreSQLOrderEventRepository) ListByOrder(
	ctx context.Context,
	orderID uuid.UUID,
) ([]*ordersDomain.OrderEvent, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, order_id, type, message, created_at
			  FROM order_events WHERE order_id = $1 ORDER BY created_at`

	rows, err := querier.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list order events")
	}
	defer rows.Close()

	var events []*ordersDomain.OrderEvent
	for rows.Next() {
		var event ordersDomain.OrderEvent
		err := rows.Scan(&event.ID, &event.OrderID, &event.Type, &event.Message, &event.CreatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan order event")
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate order events")
	}

	return events, nil
}
