// Package repository implements order persistence for PostgreSQL and MySQL.
// All status writes are conditional on the current status so that concurrent
// webhook deliveries and checkout confirmations can race safely; a write that
// matches no rows means another writer already moved the order and is treated
// as success by callers.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/grailpoint/storefront/internal/database"
	apperrors "github.com/grailpoint/storefront/internal/errors"
	ordersDomain "github.com/grailpoint/storefront/internal/orders/domain"
)

const orderColumns = `id, status, fulfillment, fulfillment_status, currency,
	subtotal_cents, tax_cents, shipping_cents, total_cents, refund_amount_cents,
	refunded_at, payment_intent_id, charge_id, user_id, guest_email, tenant_id,
	tax_calculation_id, tax_transaction_id, created_at, updated_at`

// PostgreSQLOrderRepository implements order persistence for PostgreSQL databases.
type PostgreSQLOrderRepository struct {
	db *sql.DB
}

// NewPostgreSQLOrderRepository creates a new PostgreSQL order repository instance.
func NewPostgreSQLOrderRepository(db *sql.DB) *PostgreSQLOrderRepository {
	return &PostgreSQLOrderRepository{db: db}
}

func scanOrder(row *sql.Row) (*ordersDomain.Order, error) {
	var order ordersDomain.Order
	err := row.Scan(
		&order.ID,
		&order.Status,
		&order.Fulfillment,
		&order.FulfillmentStatus,
		&order.Currency,
		&order.Subtotal,
		&order.Tax,
		&order.Shipping,
		&order.Total,
		&order.RefundAmount,
		&order.RefundedAt,
		&order.PaymentIntentID,
		&order.ChargeID,
		&order.UserID,
		&order.GuestEmail,
		&order.TenantID,
		&order.TaxCalculationID,
		&order.TaxTransactionID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan order")
	}
	return &order, nil
}

// GetByID retrieves an order by its identifier.
func (p *PostgreSQLOrderRepository) GetByID(
	ctx context.Context,
	orderID uuid.UUID,
) (*ordersDomain.Order, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	return scanOrder(querier.QueryRowContext(ctx, query, orderID))
}

// GetByPaymentReference resolves an order by its gateway charge reference or
// payment-intent reference. Refund events may carry either.
func (p *PostgreSQLOrderRepository) GetByPaymentReference(
	ctx context.Context,
	chargeID string,
	paymentIntentID string,
) (*ordersDomain.Order, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + orderColumns + ` FROM orders
			  WHERE (charge_id = $1 AND $1 <> '') OR (payment_intent_id = $2 AND $2 <> '')
			  LIMIT 1`

	return scanOrder(querier.QueryRowContext(ctx, query, chargeID, paymentIntentID))
}

// ConditionalUpdateStatus transitions an order to a new status only if its
// current status is one of the expected source statuses (compare-and-swap).
// Returns false when no row matched, meaning a concurrent writer already
// moved the order; callers treat that as a no-op success.
func (p *PostgreSQLOrderRepository) ConditionalUpdateStatus(
	ctx context.Context,
	orderID uuid.UUID,
	from []ordersDomain.OrderStatus,
	to ordersDomain.OrderStatus,
	paymentIntentID *string,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE orders
			  SET status = $1,
			      payment_intent_id = COALESCE($2, payment_intent_id),
			      updated_at = $3
			  WHERE id = $4 AND status = ANY($5)`

	result, err := querier.ExecContext(
		ctx,
		query,
		to,
		paymentIntentID,
		time.Now().UTC(),
		orderID,
		pq.Array(statusStrings(from)),
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update order status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return affected > 0, nil
}

// MarkPaidAndDecrementStock performs the primary paid transition: move the
// order from pending/processing to paid, record the gateway references, and
// decrement stock for every line item with a variant. Must run inside a
// TxManager transaction so a stock failure rolls back the status change.
// Returns false without error when the order already left the source
// statuses, which makes a second invocation a safe no-op.
func (p *PostgreSQLOrderRepository) MarkPaidAndDecrementStock(
	ctx context.Context,
	orderID uuid.UUID,
	paymentIntentID string,
	chargeID *string,
	items []ordersDomain.OrderItem,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE orders
			  SET status = $1,
			      payment_intent_id = $2,
			      charge_id = COALESCE($3, charge_id),
			      updated_at = $4
			  WHERE id = $5 AND status = ANY($6)`

	result, err := querier.ExecContext(
		ctx,
		query,
		ordersDomain.StatusPaid,
		paymentIntentID,
		chargeID,
		time.Now().UTC(),
		orderID,
		pq.Array(statusStrings(ordersDomain.PaidSources())),
	)
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
				  SET stock = stock - $1
				  WHERE id = $2 AND stock >= $1`

	for _, item := range items {
		if item.VariantID == nil {
			continue
		}

		result, err := querier.ExecContext(ctx, decrement, item.Quantity, *item.VariantID)
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
// recomputed total. The refund_amount guard keeps the column monotonic even
// when a degraded (single-event) recomputation produces a stale smaller sum.
func (p *PostgreSQLOrderRepository) UpdateRefundSummary(
	ctx context.Context,
	orderID uuid.UUID,
	refundAmountCents int64,
	refundedAt *time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE orders
			  SET refund_amount_cents = $1,
			      refunded_at = COALESCE(refunded_at, $2),
			      updated_at = $3
			  WHERE id = $4 AND refund_amount_cents <= $1`

	_, err := querier.ExecContext(
		ctx,
		query,
		refundAmountCents,
		refundedAt,
		time.Now().UTC(),
		orderID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update refund summary")
	}
	return nil
}

// UpdateGuestEmail backfills the guest contact address resolved from gateway
// payment data. Only meaningful for orders without an owning user.
func (p *PostgreSQLOrderRepository) UpdateGuestEmail(
	ctx context.Context,
	orderID uuid.UUID,
	email string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE orders
			  SET guest_email = $1, updated_at = $2
			  WHERE id = $3 AND user_id IS NULL`

	_, err := querier.ExecContext(ctx, query, email, time.Now().UTC(), orderID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update guest email")
	}
	return nil
}

// SetFulfillmentStatus sets the admin shipping queue state for an order.
func (p *PostgreSQLOrderRepository) SetFulfillmentStatus(
	ctx context.Context,
	orderID uuid.UUID,
	status string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE orders SET fulfillment_status = $1, updated_at = $2 WHERE id = $3`

	_, err := querier.ExecContext(ctx, query, status, time.Now().UTC(), orderID)
	if err != nil {
		return apperrors.Wrap(err, "failed to set fulfillment status")
	}
	return nil
}

// SetTaxTransactionID records the committed gateway tax transaction reference.
func (p *PostgreSQLOrderRepository) SetTaxTransactionID(
	ctx context.Context,
	orderID uuid.UUID,
	taxTransactionID string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE orders SET tax_transaction_id = $1, updated_at = $2 WHERE id = $3`

	_, err := querier.ExecContext(ctx, query, taxTransactionID, time.Now().UTC(), orderID)
	if err != nil {
		return apperrors.Wrap(err, "failed to set tax transaction id")
	}
	return nil
}

// GetItems retrieves the immutable line items of an order.
func (p *PostgreSQLOrderRepository) GetItems(
	ctx context.Context,
	orderID uuid.UUID,
) ([]ordersDomain.OrderItem, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, order_id, product_id, variant_id, quantity,
			  unit_price_cents, unit_cost_cents, line_total_cents
			  FROM order_items WHERE order_id = $1 ORDER BY created_at`

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
func (p *PostgreSQLOrderRepository) InsertShippingSnapshot(
	ctx context.Context,
	snapshot *ordersDomain.ShippingSnapshot,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO order_shipping
			  (order_id, name, phone, line1, line2, city, state, postal_code, country, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  ON CONFLICT (order_id) DO NOTHING`

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
func (p *PostgreSQLOrderRepository) GetShippingSnapshot(
	ctx context.Context,
	orderID uuid.UUID,
) (*ordersDomain.ShippingSnapshot, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT order_id, name, phone, line1, line2, city, state, postal_code, country, created_at
			  FROM order_shipping WHERE order_id = $1`

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

// statusStrings converts domain statuses to plain strings for array binding.
func statusStrings(statuses []ordersDomain.OrderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
