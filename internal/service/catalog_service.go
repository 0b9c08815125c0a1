package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gradeshop_api/internal/models"
	"github.com/GTDGit/gradeshop_api/internal/repository"
)

// ProductDetail is a product with its variants.
type ProductDetail struct {
	models.Product
	ColorVariants []models.ColorVariant `json:"variantes"`
	SizeVariants  []models.SizeVariant  `json:"tamanhos"`
}

// TemplateQuantityUpdate sets the required quantity of one grade size.
type TemplateQuantityUpdate struct {
	SizeID   int `json:"tamanho_id"`
	Quantity int `json:"quantidade"`
}

// CatalogService serves the read side of the admin catalog and grade
// template maintenance.
type CatalogService struct {
	store repository.Store
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(store repository.Store) *CatalogService {
	return &CatalogService{store: store}
}

// ListProducts returns a page of products and the total count.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]models.Product, int, error) {
	products, total, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, total, nil
}

// GetProduct returns a product with its color and size variants.
func (s *CatalogService) GetProduct(ctx context.Context, id int) (*ProductDetail, error) {
	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	colors, err := s.store.ListColorVariants(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list color variants: %w", err)
	}
	sizes, err := s.store.ListSizeVariants(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list size variants: %w", err)
	}
	if colors == nil {
		colors = []models.ColorVariant{}
	}
	if sizes == nil {
		sizes = []models.SizeVariant{}
	}
	return &ProductDetail{Product: *product, ColorVariants: colors, SizeVariants: sizes}, nil
}

// ListLookups returns all rows of a lookup kind.
func (s *CatalogService) ListLookups(ctx context.Context, kind models.LookupKind) ([]models.Lookup, error) {
	if !kind.Valid() {
		return nil, invalid(0, "kind", fmt.Sprintf("unknown lookup kind %q", kind))
	}
	out, err := s.store.ListLookups(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	if out == nil {
		out = []models.Lookup{}
	}
	return out, nil
}

// ListGrades returns all grades.
func (s *CatalogService) ListGrades(ctx context.Context) ([]models.Grade, error) {
	out, err := s.store.ListGrades(ctx)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	if out == nil {
		out = []models.Grade{}
	}
	return out, nil
}

// ListGradeTemplates returns the size lines of a grade.
func (s *CatalogService) ListGradeTemplates(ctx context.Context, gradeID int) ([]models.GradeTemplate, error) {
	if _, err := s.store.GetGrade(ctx, gradeID); err != nil {
		return nil, fmt.Errorf("get grade %d: %w", gradeID, err)
	}
	out, err := s.store.ListGradeTemplates(ctx, gradeID)
	if err != nil {
		return nil, fmt.Errorf("list templates of grade %d: %w", gradeID, err)
	}
	if out == nil {
		out = []models.GradeTemplate{}
	}
	return out, nil
}

// UpdateGradeTemplates sets required quantities of existing grade sizes and
// returns the resulting templates.
func (s *CatalogService) UpdateGradeTemplates(ctx context.Context, gradeID int, updates []TemplateQuantityUpdate) ([]models.GradeTemplate, error) {
	if len(updates) == 0 {
		return nil, invalid(0, "itens", "at least one item is required")
	}
	for i, u := range updates {
		if u.SizeID <= 0 {
			return nil, invalid(i, fmt.Sprintf("itens[%d].tamanho_id", i), "is required")
		}
		if u.Quantity < 0 {
			return nil, invalid(i, fmt.Sprintf("itens[%d].quantidade", i), "must not be negative")
		}
	}

	var out []models.GradeTemplate
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.GetGrade(ctx, gradeID); err != nil {
			return fmt.Errorf("get grade %d: %w", gradeID, err)
		}
		for _, u := range updates {
			if err := tx.UpdateGradeTemplateQuantity(ctx, gradeID, u.SizeID, u.Quantity); err != nil {
				return fmt.Errorf("grade %d size %d: %w", gradeID, u.SizeID, err)
			}
		}
		var err error
		out, err = tx.ListGradeTemplates(ctx, gradeID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int("grade_id", gradeID).Int("items", len(updates)).Msg("grade templates updated")
	return out, nil
}
