// Package repository implements the best-effort sales-tax ledger. One row per
// paid order; the webhook pipeline writes it as an unguarded side effect, so
// the insert must be idempotent on its own.
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

// PostgreSQLTaxRepository implements the sales-tax ledger for PostgreSQL
// databases.
type PostgreSQLTaxRepository struct {
	db *sql.DB
}

// NewPostgreSQLTaxRepository creates a new PostgreSQL tax repository instance.
func NewPostgreSQLTaxRepository(db *sql.DB) *PostgreSQLTaxRepository {
	return &PostgreSQLTaxRepository{db: db}
}

// RecordSale appends one ledger row for a paid order. The jurisdiction is the
// shipping country when a snapshot exists; conflicts on order_id are ignored
// so redelivered events cannot double-book the sale.
func (p *PostgreSQLTaxRepository) RecordSale(
	ctx context.Context,
	order *ordersDomain.Order,
	items []ordersDomain.OrderItem,
) error {
	querier := database.GetTx(ctx, p.db)

	id, err := uuid.NewV7()
	if err != nil {
		return apperrors.Wrap(err, "failed to generate ledger id")
	}

	query := `INSERT INTO sales_tax_ledger (id, order_id, jurisdiction, taxable_cents, tax_cents, recorded_at)
			  VALUES ($1, $2, (SELECT country FROM order_shipping WHERE order_id = $2), $3, $4, $5)
			  ON CONFLICT (order_id) DO NOTHING`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
