package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gradeshop_api/internal/models"
)

// GetSizeStock returns the per-size stock of a (product, color, size) unit.
func (s *SQLStore) GetSizeStock(ctx context.Context, productID, colorID, sizeID int) (int, error) {
	const q = `SELECT stock FROM size_variants WHERE product_id = $1 AND color_id = $2 AND size_id = $3`
	var n int
	if err := sqlx.GetContext(ctx, s.q, &n, q, productID, colorID, sizeID); err != nil {
		return 0, notFound(err)
	}
	return n, nil
}

// SetSizeStock overwrites the stock of an existing size variant.
func (s *SQLStore) SetSizeStock(ctx context.Context, productID, colorID, sizeID, quantity int) error {
	const q = `UPDATE size_variants SET stock = $4 WHERE product_id = $1 AND color_id = $2 AND size_id = $3`
	res, err := s.q.ExecContext(ctx, q, productID, colorID, sizeID, quantity)
	if err != nil {
		return classify(err)
	}
	return expectAffected(res)
}

// GetGradeStock returns the kit count of a (product, color, grade) triple.
func (s *SQLStore) GetGradeStock(ctx context.Context, productID, colorID, gradeID int) (int, error) {
	const q = `SELECT stock_quantity FROM product_color_grades WHERE product_id = $1 AND color_id = $2 AND grade_id = $3`
	var n int
	if err := sqlx.GetContext(ctx, s.q, &n, q, productID, colorID, gradeID); err != nil {
		return 0, notFound(err)
	}
	return n, nil
}

// SetGradeStock upserts the kit count of a (product, color, grade) triple.
func (s *SQLStore) SetGradeStock(ctx context.Context, productID, colorID, gradeID, quantity int) error {
	const q = `
        INSERT INTO product_color_grades (product_id, color_id, grade_id, stock_quantity)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (product_id, color_id, grade_id) DO UPDATE SET stock_quantity = EXCLUDED.stock_quantity`
	_, err := s.q.ExecContext(ctx, q, productID, colorID, gradeID, quantity)
	return classify(err)
}

// ListGradeStock returns the grade associations of a product.
func (s *SQLStore) ListGradeStock(ctx context.Context, productID int) ([]models.ProductColorGrade, error) {
	const q = `
        SELECT pcg.id, pcg.product_id, pcg.color_id, pcg.grade_id, g.name AS grade_name, pcg.stock_quantity
        FROM product_color_grades pcg
        JOIN grades g ON g.id = pcg.grade_id
        WHERE pcg.product_id = $1
        ORDER BY pcg.color_id, g.name`
	var out []models.ProductColorGrade
	if err := sqlx.SelectContext(ctx, s.q, &out, q, productID); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// RefreshStockTotals implements StockStore.
func (s *SQLStore) RefreshStockTotals(ctx context.Context, productID int, strategy models.StockStrategy) error {
	var q string
	switch strategy {
	case models.StockPerSize:
		q = `
        UPDATE color_variants cv SET stock_total = COALESCE((
            SELECT SUM(sv.stock) FROM size_variants sv
            WHERE sv.product_id = cv.product_id AND sv.color_id = cv.color_id), 0)
        WHERE cv.product_id = $1`
	case models.StockPerGrade:
		q = `
        UPDATE color_variants cv SET stock_total = COALESCE((
            SELECT SUM(pcg.stock_quantity) FROM product_color_grades pcg
            WHERE pcg.product_id = cv.product_id AND pcg.color_id = cv.color_id), 0)
        WHERE cv.product_id = $1`
	default:
		return fmt.Errorf("unknown stock strategy %q", strategy)
	}
	_, err := s.q.ExecContext(ctx, q, productID)
	return classify(err)
}
