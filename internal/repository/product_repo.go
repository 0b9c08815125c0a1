package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gradeshop_api/internal/models"
)

const productColumns = `id, code, name, category_id, type_id, gender_id, description, base_price,
        suggested_price, is_active, stock_strategy, allow_oversell, created_at, updated_at`

// ProductFilter holds filters for admin product listings.
type ProductFilter struct {
	Search     string
	CategoryID int
	IsActive   *bool
	Page       int
	Limit      int
}

// GetProductByCode returns a single product by its business code.
func (s *SQLStore) GetProductByCode(ctx context.Context, code string) (*models.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE code = $1 LIMIT 1`
	var p models.Product
	if err := sqlx.GetContext(ctx, s.q, &p, q, code); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// GetProductByID returns a single product by id.
func (s *SQLStore) GetProductByID(ctx context.Context, id int) (*models.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1 LIMIT 1`
	var p models.Product
	if err := sqlx.GetContext(ctx, s.q, &p, q, id); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// CreateProduct inserts p and fills its id and timestamps.
func (s *SQLStore) CreateProduct(ctx context.Context, p *models.Product) error {
	const q = `
        INSERT INTO products (code, name, category_id, type_id, gender_id, description, base_price,
                              suggested_price, is_active, stock_strategy, allow_oversell)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id, created_at, updated_at`

	err := s.q.QueryRowxContext(ctx, q,
		p.Code,
		p.Name,
		p.CategoryID,
		p.TypeID,
		p.GenderID,
		p.Description,
		p.BasePrice,
		p.SuggestedPrice,
		p.IsActive,
		p.StockStrategy,
		p.AllowOversell,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return classify(err)
}

// PatchProduct applies a partial update; empty or nil patch fields keep the
// stored value.
func (s *SQLStore) PatchProduct(ctx context.Context, id int, patch models.ProductPatch) error {
	const q = `
        UPDATE products SET
            name            = COALESCE(NULLIF($2, ''), name),
            category_id     = COALESCE($3, category_id),
            type_id         = COALESCE($4, type_id),
            gender_id       = COALESCE($5, gender_id),
            description     = COALESCE(NULLIF($6, ''), description),
            suggested_price = COALESCE($7, suggested_price),
            allow_oversell  = COALESCE($8, allow_oversell),
            updated_at      = NOW()
        WHERE id = $1`

	res, err := s.q.ExecContext(ctx, q,
		id,
		patch.Name,
		patch.CategoryID,
		patch.TypeID,
		patch.GenderID,
		patch.Description,
		patch.SuggestedPrice,
		patch.AllowOversell,
	)
	if err != nil {
		return classify(err)
	}
	return expectAffected(res)
}

// SetStockStrategy switches the authoritative stock ledger of a product.
func (s *SQLStore) SetStockStrategy(ctx context.Context, id int, strategy models.StockStrategy) error {
	const q = `UPDATE products SET stock_strategy = $2, updated_at = NOW() WHERE id = $1`
	res, err := s.q.ExecContext(ctx, q, id, strategy)
	if err != nil {
		return classify(err)
	}
	return expectAffected(res)
}

// ListProducts returns a page of products and the total count.
func (s *SQLStore) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	offset := (filter.Page - 1) * filter.Limit

	where := `WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR code ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}
	if filter.CategoryID > 0 {
		where += fmt.Sprintf(" AND category_id = $%d", argIdx)
		args = append(args, filter.CategoryID)
		argIdx++
	}
	if filter.IsActive != nil {
		where += fmt.Sprintf(" AND is_active = $%d", argIdx)
		args = append(args, *filter.IsActive)
		argIdx++
	}

	var total int
	if err := sqlx.GetContext(ctx, s.q, &total, `SELECT COUNT(1) FROM products `+where, args...); err != nil {
		return nil, 0, classify(err)
	}

	listQuery := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY name, id LIMIT $%d OFFSET $%d`,
		productColumns, where, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	var products []models.Product
	if err := sqlx.SelectContext(ctx, s.q, &products, listQuery, args...); err != nil {
		return nil, 0, classify(err)
	}
	return products, total, nil
}
