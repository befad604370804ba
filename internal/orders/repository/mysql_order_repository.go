package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/grailpoint/storefront/internal/database"
	apperrors "github.com/grailpoint/storefront/internal/errors"
	ordersDomain "github.com/grailpoint/storefront/internal/orders/domain"
)

// MySQLOrderRepository implements order persistence for MySQL databases.
type MySQLOrderRepository struct {
	db *sql.DB
}

// NewMySQLOrderRepository creates a new MySQL order repository instance.
func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

// statusPlaceholders builds a "?, ?, ..." list plus the matching arguments for
// an IN clause, since MySQL has no array binding.
func statusPlaceholders(statuses []ordersDomain.OrderStatus) (string, []any) {
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		placeholders[i] = "?"
		args[i] = string(s)
	}
	return strings.Join(placeholders, ", "), args
}

// GetByID retrieves an order by its identifier.
func (m *MySQLOrderRepository) GetByID(
	ctx context.Context,
	orderID uuid.UUID,
) (*ordersDomain.Order, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	return scanOrder(querier.QueryRowContext(ctx, query, orderID))
}

// GetByPaymentReference resolves an order by its gateway charge reference or
// payment-intent reference. Refund events may carry either.
func (m *MySQLOrderRepository) GetByPaymentReference(
	ctx context.Context,
	chargeID string,
	paymentIntentID string,
) (*ordersDomain.Order, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + orderColumns + ` FROM orders
			  WHERE (charge_id = ? AND ? <> '') OR (payment_intent_id = ? AND ? <> '')
			  LIMIT 1`

	return scanOrder(querier.QueryRowContext(ctx, query, chargeID, chargeID, paymentIntentID, paymentIntentID))
}

// ConditionalUpdateStatus transitions an order to a new status only if its
// current status is one of the expected source statuses (compare-and-swap).
func (m *MySQLOrderRepository) ConditionalUpdateStatus(
	ctx context.Context,
	orderID uuid.UUID,
	from []ordersDomain.OrderStatus,
	to ordersDomain.OrderStatus,
	paymentIntentID *string,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	placeholders, statusArgs := statusPlaceholders(from)
	query := `UPDATE orders
			  SET status = ?,
			      payment_intent_id = COALESCE(?, payment_intent_id),
			      updated_at = ?
			  WHERE id = ? AND status IN (` + placeholders + `)`

	args := append([]any{to, paymentIntentID, time.Now().UTC(), orderID}, statusArgs...)

	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update order status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return affected > 0, nil
}

// MarkPaidAndDecrementStock performs the primary paid transition inside the
// surrounding TxManager transaction. See the PostgreSQL variant for the
// contract; the two must behave identically.
func (m *MySQLOrderRepository) MarkPaidAndDecrementStock(
	ctx context.Context,
	orderID uuid.UUID,
	paymentIntentID string,
	chargeID *string,
	items []ordersDomain.OrderItem,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	placeholders, statusArgs := statusPlaceholders(ordersDomain.PaidSources())
	query := `UPDATE orders
			  SET status = ?,
			      payment_intent_id = ?,
			      charge_id = COALESCE(?, charge_id),
			      updated_at = ?
			  WHERE id = ? AND status IN (` + placeholders + `)`

	args := append(
		[]any{ordersDomain.StatusPaid, paymentIntentID, chargeID, time.Now().UTC(), orderID},
		statusArgs...,
	)

	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to mark order paid")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return false, nil
	}

	decrement := `UPDATE product_variants
				  SET stock = stock - ?
				  WHERE id = ? AND stock >= ?`

	for _, item := range items {
		if item.VariantID == nil {
			continue
		}

		result, err := querier.ExecContext(ctx, decrement, item.Quantity, *item.VariantID, item.Quantity)
		if err != nil {
			return false, apperrors.Wrap(err, "failed to decrement variant stock")
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return false, apperrors.Wrap(err, "failed to read affected rows")
		}
		if rows == 0 {
			return false, ordersDomain.ErrInsufficientStock
		}
	}

	return true, nil
}

// UpdateRefundSummary overwrites the cumulative refund amount with a freshly
// recomputed total, guarded so the column stays monotonic.
func (m *MySQLOrderRepository) UpdateRefundSummary(
	ctx context.Context,
	orderID uuid.UUID,
	refundAmountCents int64,
	refundedAt *time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE orders
			  SET refund_amount_cents = ?,
			      refunded_at = COALESCE(refunded_at, ?),
			      updated_at = ?
			  WHERE id = ? AND refund_amount_cents <= ?`

	_, err := querier.ExecContext(
		ctx,
		query,
		refundAmountCents,
		refundedAt,
		time.Now().UTC(),
		orderID,
		refundAmountCents,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update refund summary")
	}
	return nil
}

// UpdateGuestEmail backfills the guest contact address resolved from gateway
// payment data. Only meaningful for orders without an owning user.
func (m *MySQLOrderRepository) UpdateGuestEmail(
	ctx context.Context,
	orderID uuid.UUID,
	email string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE orders
			  SET guest_email = ?, updated_at = ?
			  WHERE id = ? AND user_id IS NULL`

	_, err := querier.ExecContext(ctx, query, email, time.Now().UTC(), orderID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update guest email")
	}
	return nil
}

// SetFulfillmentStatus sets the admin shipping queue state for an order.
func (m *MySQLOrderRepository) SetFulfillmentStatus(
	ctx context.Context,
	orderID uuid.UUID,
	status string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE orders SET fulfillment_status = ?, updated_at = ? WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, status, time.Now().UTC(), orderID)
	if err != nil {
		return apperrors.Wrap(err, "failed to set fulfillment status")
	}
	return nil
}

// SetTaxTransactionID records the committed gateway tax transaction reference.
func (m *MySQLOrderRepository) SetTaxTransactionID(
	ctx context.Context,
	orderID uuid.UUID,
	taxTransactionID string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE orders SET tax_transaction_id = ?, updated_at = ? WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, taxTransactionID, time.Now().UTC(), orderID)
	if err != nil {
		return apperrors.Wrap(err, "failed to set tax transaction id")
	}
	return nil
}

// GetItems retrieves the immutable line items of an order.
func (m *MySQLOrderRepository) GetItems(
	ctx context.Context,
	orderID uuid.UUID,
) ([]ordersDomain.OrderItem, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, order_id, product_id, variant_id, quantity,
			  unit_price_cents, unit_cost_cents, line_total_cents
			  FROM order_items WHERE order_id = ? ORDER BY created_at`

	rows, err := querier.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list order items")
	}
	defer rows.Close()

	var items []ordersDomain.OrderItem
	for rows.Next() {
		var item ordersDomain.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.VariantID,
			&item.Quantity,
			&item.UnitPriceCents,
			&item.UnitCostCents,
			&item.LineTotalCents,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan order item")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate order items")
	}

	return items, nil
}

// InsertShippingSnapshot stores the address captured from gateway payment
// data. Write-once: a snapshot that already exists is left untouched.
func (m *MySQLOrderRepository) InsertShippingSnapshot(
	ctx context.Context,
	snapshot *ordersDomain.ShippingSnapshot,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT IGNORE INTO order_shipping
			  (order_id, name, phone, line1, line2, city, state, postal_code, country, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		snapshot.OrderID,
		snapshot.Name,
		snapshot.Phone,
		snapshot.Line1,
		snapshot.Line2,
		snapshot.City,
		snapshot.State,
		snapshot.PostalCode,
		snapshot.Country,
		time.Now().UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to insert shipping snapshot")
	}
	return nil
}

// GetShippingSnapshot retrieves the shipping address snapshot for an order.
func (m *MySQLOrderRepository) GetShippingSnapshot(
	ctx context.Context,
	orderID uuid.UUID,
) (*ordersDomain.ShippingSnapshot, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT order_id, name, phone, line1, line2, city, state, postal_code, country, created_at
			  FROM order_shipping WHERE order_id = ?`

	var snap ordersDomain.ShippingSnapshot
	err := querier.QueryRowContext(ctx, query, orderID).Scan(
		&snap.OrderID,
		&snap.Name,
		&snap.Phone,
		&snap.Line1,
		&snap.Line2,
		&snap.City,
		&snap.State,
		&snap.PostalCode,
		&snap.Country,
		&snap.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get shipping snapshot")
	}

	return &snap, nil
}
