// Package repository implements derived-catalog maintenance over SQL. The
// payment pipeline calls it after stock changes; storefront reads depend on
// the derived columns being fresh but never on these writes succeeding.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/grailpoint/storefront/internal/database"
	apperrors "github.com/grailpoint/storefront/internal/errors"
)

// PostgreSQLCatalogRepository maintains derived product metadata for
// PostgreSQL databases.
type PostgreSQLCatalogRepository struct {
	db *sql.DB
}

// NewPostgreSQLCatalogRepository creates a new PostgreSQL catalog repository
// instance.
func NewPostgreSQLCatalogRepository(db *sql.DB) *PostgreSQLCatalogRepository {
	return &PostgreSQLCatalogRepository{db: db}
}

// SyncSizeTags recomputes each product's size_tags from its variants that
// still have stock. Selling out a size removes its tag; a restock brings it
// back on the next sync.
func (p *PostgreSQLCatalogRepository) SyncSizeTags(ctx context.Context, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}

	querier := database.GetTx(ctx, p.db)

	query := `UPDATE products p
			  SET size_tags = COALESCE(
				  (SELECT array_agg(v.size_label ORDER BY v.size_label)
				   FROM product_variants v
				   WHERE v.product_id = p.id AND v.stock > 0),
				  '{}'
			  ),
			  updated_at = NOW()
			  WHERE p.id = ANY($1)`

	if _, err := querier.ExecContext(ctx, query, pq.Array(productIDs)); err != nil {
		return apperrors.Wrap(err, "failed to sync size tags")
	}
	return nil
}

// InvalidateProducts bumps the cache version of the affected products.
// Storefront responses are cached keyed on (id, cache_version), so the bump
// makes every downstream cache entry stale without touching the cache itself.
func (p *PostgreSQLCatalogRepository) InvalidateProducts(ctx context.Context, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}

	querier := database.GetTx(ctx, p.db)

	query := `UPDATE products
			  SET cache_version = cache_version + 1, updated_at = NOW()
			  WHERE id = ANY($1)`

	if _, err := querier.ExecContext(ctx, query, pq.Array(productIDs)); err != nil {
		return apperrors.Wrap(err, "failed to invalidate product caches")
	}
	return nil
}
