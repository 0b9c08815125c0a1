package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gradeshop_api/internal/models"
)

// FindGrade returns the grade with exactly this name.
func (s *SQLStore) FindGrade(ctx context.Context, name string) (*models.Grade, error) {
	const q = `SELECT id, name, description, created_at FROM grades WHERE name = $1`
	var g models.Grade
	if err := sqlx.GetContext(ctx, s.q, &g, q, name); err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

// GetGrade returns a grade by id.
func (s *SQLStore) GetGrade(ctx context.Context, id int) (*models.Grade, error) {
	const q = `SELECT id, name, description, created_at FROM grades WHERE id = $1`
	var g models.Grade
	if err := sqlx.GetContext(ctx, s.q, &g, q, id); err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

// CreateGrade inserts a grade without templates.
func (s *SQLStore) CreateGrade(ctx context.Context, name, description string) (int, error) {
	const q = `
        INSERT INTO grades (name, description) VALUES ($1, $2)
        ON CONFLICT (name) DO NOTHING
        RETURNING id`

	var id int
	if err := sqlx.GetContext(ctx, s.q, &id, q, name, description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrConstraintRace
		}
		return 0, classify(err)
	}
	return id, nil
}

// ListGrades returns all grades ordered by name.
func (s *SQLStore) ListGrades(ctx context.Context) ([]models.Grade, error) {
	const q = `SELECT id, name, description, created_at FROM grades ORDER BY name`
	var out []models.Grade
	if err := sqlx.SelectContext(ctx, s.q, &out, q); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// CreateGradeTemplate inserts one size line of a grade.
func (s *SQLStore) CreateGradeTemplate(ctx context.Context, t *models.GradeTemplate) error {
	const q = `
        INSERT INTO grade_templates (grade_id, size_id, required_quantity, display_order)
        VALUES ($1, $2, $3, $4)
        RETURNING id`
	err := s.q.QueryRowxContext(ctx, q, t.GradeID, t.SizeID, t.RequiredQuantity, t.DisplayOrder).Scan(&t.ID)
	return classify(err)
}

// ListGradeTemplates returns the templates of a grade in display order.
func (s *SQLStore) ListGradeTemplates(ctx context.Context, gradeID int) ([]models.GradeTemplate, error) {
	const q = `
        SELECT gt.id, gt.grade_id, gt.size_id, sz.name AS size_name, gt.required_quantity, gt.display_order
        FROM grade_templates gt
        JOIN sizes sz ON sz.id = gt.size_id
        WHERE gt.grade_id = $1
        ORDER BY gt.display_order, gt.id`
	var out []models.GradeTemplate
	if err := sqlx.SelectContext(ctx, s.q, &out, q, gradeID); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// UpdateGradeTemplateQuantity sets the required quantity of one size line.
func (s *SQLStore) UpdateGradeTemplateQuantity(ctx context.Context, gradeID, sizeID, quantity int) error {
	const q = `UPDATE grade_templates SET required_quantity = $3 WHERE grade_id = $1 AND size_id = $2`
	res, err := s.q.ExecContext(ctx, q, gradeID, sizeID, quantity)
	if err != nil {
		return classify(err)
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
