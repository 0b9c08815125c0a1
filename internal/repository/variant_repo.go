package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gradeshop_api/internal/models"
)

const colorVariantSelect = `
        SELECT cv.id, cv.product_id, cv.color_id, c.name AS color_name, cv.variant_name, cv.sku,
               cv.price_override, cv.image_ref, cv.image_status, cv.stock_total, cv.is_active,
               cv.is_main_catalog, cv.created_at
        FROM color_variants cv
        JOIN colors c ON c.id = cv.color_id`

// FindColorVariant returns the color variant of a (product, color) pair.
func (s *SQLStore) FindColorVariant(ctx context.Context, productID, colorID int) (*models.ColorVariant, error) {
	q := colorVariantSelect + ` WHERE cv.product_id = $1 AND cv.color_id = $2`
	var cv models.ColorVariant
	if err := sqlx.GetContext(ctx, s.q, &cv, q, productID, colorID); err != nil {
		return nil, notFound(err)
	}
	return &cv, nil
}

// CountColorVariants returns how many color variants a product has.
func (s *SQLStore) CountColorVariants(ctx context.Context, productID int) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, s.q, &n, `SELECT COUNT(1) FROM color_variants WHERE product_id = $1`, productID); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// CreateColorVariant inserts cv and fills its id.
func (s *SQLStore) CreateColorVariant(ctx context.Context, cv *models.ColorVariant) error {
	const q = `
        INSERT INTO color_variants (product_id, color_id, variant_name, sku, price_override, image_ref,
                                    image_status, stock_total, is_active, is_main_catalog)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at`

	if cv.ImageStatus == "" {
		cv.ImageStatus = models.ImageNone
	}
	err := s.q.QueryRowxContext(ctx, q,
		cv.ProductID,
		cv.ColorID,
		cv.VariantName,
		cv.SKU,
		cv.PriceOverride,
		cv.ImageRef,
		cv.ImageStatus,
		cv.StockTotal,
		cv.IsActive,
		cv.IsMainCatalog,
	).Scan(&cv.ID, &cv.CreatedAt)
	return classify(err)
}

// CreateSizeVariant inserts sv unless the triple already exists.
func (s *SQLStore) CreateSizeVariant(ctx context.Context, sv *models.SizeVariant) error {
	const q = `
        INSERT INTO size_variants (product_id, color_id, size_id, stock, price_override)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (product_id, color_id, size_id) DO NOTHING
        RETURNING id`

	err := sqlx.GetContext(ctx, s.q, &sv.ID, q, sv.ProductID, sv.ColorID, sv.SizeID, sv.Stock, sv.PriceOverride)
	if errors.Is(err, sql.ErrNoRows) {
		const existing = `SELECT id FROM size_variants WHERE product_id = $1 AND color_id = $2 AND size_id = $3`
		return notFound(sqlx.GetContext(ctx, s.q, &sv.ID, existing, sv.ProductID, sv.ColorID, sv.SizeID))
	}
	return classify(err)
}

// LinkGrade associates a grade with a product color.
func (s *SQLStore) LinkGrade(ctx context.Context, productID, colorID, gradeID int) (int, error) {
	const q = `
        INSERT INTO product_color_grades (product_id, color_id, grade_id, stock_quantity)
        VALUES ($1, $2, $3, 0)
        ON CONFLICT (product_id, color_id, grade_id) DO NOTHING
        RETURNING id`

	var id int
	err := sqlx.GetContext(ctx, s.q, &id, q, productID, colorID, gradeID)
	if errors.Is(err, sql.ErrNoRows) {
		const existing = `SELECT id FROM product_color_grades WHERE product_id = $1 AND color_id = $2 AND grade_id = $3`
		err = notFound(sqlx.GetContext(ctx, s.q, &id, existing, productID, colorID, gradeID))
		return id, err
	}
	return id, classify(err)
}

// ListColorVariants returns the color variants of a product, main one first.
func (s *SQLStore) ListColorVariants(ctx context.Context, productID int) ([]models.ColorVariant, error) {
	q := colorVariantSelect + ` WHERE cv.product_id = $1 ORDER BY cv.is_main_catalog DESC, cv.id`
	var out []models.ColorVariant
	if err := sqlx.SelectContext(ctx, s.q, &out, q, productID); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// ListSizeVariants returns the size variants of a product.
func (s *SQLStore) ListSizeVariants(ctx context.Context, productID int) ([]models.SizeVariant, error) {
	const q = `
        SELECT sv.id, sv.product_id, sv.color_id, sz.name AS size_name, sv.size_id, sv.stock,
               sv.price_override, sv.created_at
        FROM size_variants sv
        JOIN sizes sz ON sz.id = sv.size_id
        WHERE sv.product_id = $1
        ORDER BY sv.color_id, sv.id`
	var out []models.SizeVariant
	if err := sqlx.SelectContext(ctx, s.q, &out, q, productID); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// ListPendingImages returns color variants whose image has not been mirrored yet.
func (s *SQLStore) ListPendingImages(ctx context.Context, limit int) ([]models.ColorVariant, error) {
	q := colorVariantSelect + ` WHERE cv.image_status = $1 ORDER BY cv.id LIMIT $2`
	var out []models.ColorVariant
	if err := sqlx.SelectContext(ctx, s.q, &out, q, models.ImagePending, limit); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// UpdateColorVariantImage stores the mirrored image reference and status.
func (s *SQLStore) UpdateColorVariantImage(ctx context.Context, id int, ref string, status models.ImageStatus) error {
	const q = `UPDATE color_variants SET image_ref = $2, image_status = $3 WHERE id = $1`
	res, err := s.q.ExecContext(ctx, q, id, ref, status)
	if err != nil {
		return classify(err)
	}
	return expectAffected(res)
}
