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

// MySQLNotificationRepository implements notification storage for MySQL
// databases.
type MySQLNotificationRepository struct {
	db *sql.DB
}

// NewMySQLNotificationRepository creates a new MySQL notification repository
// instance.
func NewMySQLNotificationRepository(db *sql.DB) *MySQLNotificationRepository {
	return &MySQLNotificationRepository{db: db}
}

// ListNotifiableStaff returns the emails of staff members who opted into
// order notifications.
func (m *MySQLNotificationRepository) ListNotifiableStaff(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, m.db)

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
func (m *MySQLNotificationRepository) InsertAdminNotification(
	ctx context.Context,
	kind string,
	order *ordersDomain.Order,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := uuid.NewV7()
	if err != nil {
		return apperrors.Wrap(err, "failed to generate notification id")
	}

	query := `INSERT INTO admin_notifications (id, kind, order_id, created_at)
			  VALUES (?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query, id, kind, order.ID, time.Now().UTC())
	if err != nil {
		return apperrors.Wrap(err, "failed to insert admin notification")
	}
	return nil
}

// EnsureThread creates the pickup communication thread for an order if it
// does not exist yet. Write-once per order via the unique order_id key.
func (m *MySQLNotificationRepository) EnsureThread(
	ctx context.Context,
	orderID uuid.UUID,
	userID *uuid.UUID,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := uuid.NewV7()
	if err != nil {
		return apperrors.Wrap(err, "failed to generate thread id")
	}

	query := `INSERT IGNORE INTO pickup_threads (id, order_id, user_id, created_at)
			  VALUES (?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query, id, orderID, userID, time.Now().UTC())
	if err != nil {
		return apperrors.Wrap(err, "failed to ensure pickup thread")
	}
	return nil
}
