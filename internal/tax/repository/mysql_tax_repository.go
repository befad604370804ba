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

// MySQLTaxRepository implements the sales-tax ledger for MySQL databases.
type MySQLTaxRepository struct {
	db *sql.DB
}

// NewMySQLTaxRepository creates a new MySQL tax repository instance.
func NewMySQLTaxRepository(db *sql.DB) *MySQLTaxRepository {
	return &MySQLTaxRepository{db: db}
}

// RecordSale appends one ledger row for a paid order. INSERT IGNORE keeps the
// write idempotent under redelivery via the unique order_id key.
func (m *MySQLTaxRepository) RecordSale(
	ctx context.Context,
	order *ordersDomain.Order,
	items []ordersDomain.OrderItem,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := uuid.NewV7()
	if err != nil {
		return apperrors.Wrap(err, "failed to generate ledger id")
	}

	query := `INSERT IGNORE INTO sales_tax_ledger (id, order_id, jurisdiction, taxable_cents, tax_cents, recorded_at)
			  VALUES (?, ?, (SELECT country FROM order_shipping WHERE order_id = ?), ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		order.ID,
		order.ID,
		order.Subtotal,
		order.Tax,
		time.Now().UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to record sale in tax ledger")
	}
	return nil
}
