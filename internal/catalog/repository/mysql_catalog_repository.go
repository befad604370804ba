package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/grailpoint/storefront/internal/database"
	apperrors "github.com/grailpoint/storefront/internal/errors"
)

// MySQLCatalogRepository maintains derived product metadata for MySQL
// databases. size_tags is a JSON array column since MySQL has no native
// array type.
type MySQLCatalogRepository struct {
	db *sql.DB
}

// NewMySQLCatalogRepository creates a new MySQL catalog repository instance.
func NewMySQLCatalogRepository(db *sql.DB) *MySQLCatalogRepository {
	return &MySQLCatalogRepository{db: db}
}

// SyncSizeTags recomputes each product's size_tags from its variants that
// still have stock.
func (m *MySQLCatalogRepository) SyncSizeTags(ctx context.Context, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}

	querier := database.GetTx(ctx, m.db)

	placeholders, args := idPlaceholders(productIDs)
	query := `UPDATE products p
			  SET p.size_tags = COALESCE(
				  (SELECT JSON_ARRAYAGG(v.size_label)
				   FROM product_variants v
				   WHERE v.product_id = p.id AND v.stock > 0),
				  JSON_ARRAY()
			  ),
			  p.updated_at = NOW()
			  WHERE p.id IN (` + placeholders + `)`

	if _, err := querier.ExecContext(ctx, query, args...); err != nil {
		return apperrors.Wrap(err, "failed to sync size tags")
	}
	return nil
}

// InvalidateProducts bumps the cache version of the affected products.
func (m *MySQLCatalogRepository) InvalidateProducts(ctx context.Context, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}

	querier := database.GetTx(ctx, m.db)

	placeholders, args := idPlaceholders(productIDs)
	query := `UPDATE products
			  SET cache_version = cache_version + 1, updated_at = NOW()
			  WHERE id IN (` + placeholders + `)`

	if _, err := querier.ExecContext(ctx, query, args...); err != nil {
		return apperrors.Wrap(err, "failed to invalidate product caches")
	}
	return nil
}

// idPlaceholders builds a "?, ?, ..." list plus the matching args for an IN
// clause over uuid ids.
func idPlaceholders(ids []uuid.UUID) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}
