// Package repository implements notification storage: the staff directory,
// in-app admin notifications and pickup threads.
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

// PostgreSQLNotificationRepository implements notification storage for
// PostgreSQL databases.
type PostgreSQLNotificationRepository struct {
	db *sql.DB
}

// NewPostgreSQLNotificationRepository creates a new PostgreSQL notification
// repository instance.
func NewPostgreSQLNotificationRepository(db *sql.DB) *PostgreSQLNotificationRepository {
	return &PostgreSQLNotificationRepository{db: db}
}

// ListNotifiableStaff returns the emails of staff members who opted into
// order notifications.
func (p *PostgreSQLNotificationRepository) ListNotifiableStaff(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT email FROM staff_profiles WHERE order_notifications_enabled = TRUE ORDER BY email`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list notifiable staff")
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan staff email")
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate staff profiles")
	}

	return emails, nil
}

// InsertAdminNotification records one in-app notification for the back
// office.
func (p *PostgreSQLNotificationRepository) InsertAdminNotification(
	ctx context.Context,
	kind string,
	order *ordersDomain.Order,
) error {
	querier := database.GetTx(ctx, p.db)

	id, err := uuid.NewV7()
	if err != nil {
		return apperrors.Wrap(err, "failed to generate notification id")
	}

	query := `INSERT INTO admin_notifications (id, kind, order_id, created_at)
			  VALUES ($1, $2, $3, $4)`

	_, err = querier.ExecContext(ctx, query, id, kind, order.ID, time.Now().UTC())
	if err != nil {
		return apperrors.Wrap(err, "failed to insert admin notification")
	}
	return nil
}

// EnsureThread creates the pickup communication thread for an order if it
// does not exist yet. Write-once per order.
func (p *PostgreSQLNotificationRepository) EnsureThread(
	ctx context.Context,
	orderID uuid.UUID,
	userID *uuid.UUID,
) error {
	querier := database.GetTx(ctx, p.db)

	id, err := uuid.NewV7()
	if err != nil {
		return apperrors.Wrap(err, "failed to generate thread id")
	}

	query := `INSERT INTO pickup_threads (id, order_id, user_id, created_at)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (order_id) DO NOTHING`

	_, err = querier.ExecContext(ctx, query, id, orderID, userID, time.Now().UTC())
	if err != nil {
		return apperrors.Wrap(err, "failed to ensure pickup thread")
	}
	return nil
}
