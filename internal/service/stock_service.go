package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gradeshop_api/internal/models"
	"github.com/GTDGit/gradeshop_api/internal/repository"
)

// StockInvalidator drops cached availability of a product after stock writes.
type StockInvalidator interface {
	InvalidateProduct(ctx context.Context, productID int)
}

// SizeStockUpdate sets the stock of one size variant.
type SizeStockUpdate struct {
	ColorID  int `json:"cor_id"`
	SizeID   int `json:"tamanho_id"`
	Quantity int `json:"quantidade"`
}

// GradeStockUpdate sets the kit count of one (color, grade) pair.
type GradeStockUpdate struct {
	ColorID  int `json:"cor_id"`
	GradeID  int `json:"grade_id"`
	Quantity int `json:"quantidade"`
}

// ProductStock lists both ledgers of a product. Only the one named by
// Strategy is authoritative.
type ProductStock struct {
	ProductID int                        `json:"produto_id"`
	Strategy  models.StockStrategy       `json:"estrategia_estoque"`
	Sizes     []models.SizeVariant       `json:"tamanhos"`
	Grades    []models.ProductColorGrade `json:"grades"`
}

// StockService is the stock management surface.
type StockService struct {
	store       repository.Store
	invalidator StockInvalidator
}

// NewStockService constructs a StockService. invalidator may be nil.
func NewStockService(store repository.Store, invalidator StockInvalidator) *StockService {
	return &StockService{store: store, invalidator: invalidator}
}

// GetStock returns the size and grade stock rows of a product.
func (s *StockService) GetStock(ctx context.Context, productID int) (*ProductStock, error) {
	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", productID, err)
	}
	sizes, err := s.store.ListSizeVariants(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list size stock: %w", err)
	}
	grades, err := s.store.ListGradeStock(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list grade stock: %w", err)
	}
	if sizes == nil {
		sizes = []models.SizeVariant{}
	}
	if grades == nil {
		grades = []models.ProductColorGrade{}
	}
	return &ProductStock{ProductID: productID, Strategy: product.StockStrategy, Sizes: sizes, Grades: grades}, nil
}

// UpdateSizeStock overwrites per-size stock. Every size variant must exist.
func (s *StockService) UpdateSizeStock(ctx context.Context, productID int, updates []SizeStockUpdate) error {
	if len(updates) == 0 {
		return invalid(0, "itens", "at least one item is required")
	}
	for i, u := range updates {
		if u.ColorID <= 0 || u.SizeID <= 0 {
			return invalid(i, fmt.Sprintf("itens[%d]", i), "cor_id and tamanho_id are required")
		}
		if u.Quantity < 0 {
			return invalid(i, fmt.Sprintf("itens[%d].quantidade", i), "must not be negative")
		}
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		product, err := tx.GetProductByID(ctx, productID)
		if err != nil {
			return fmt.Errorf("get product %d: %w", productID, err)
		}
		for _, u := range updates {
			if err := tx.SetSizeStock(ctx, productID, u.ColorID, u.SizeID, u.Quantity); err != nil {
				return fmt.Errorf("set stock color %d size %d: %w", u.ColorID, u.SizeID, err)
			}
		}
		return tx.RefreshStockTotals(ctx, productID, product.StockStrategy)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, productID)
	log.Info().Int("product_id", productID).Int("items", len(updates)).Msg("size stock updated")
	return nil
}

// UpdateGradeStock sets the kit count of (color, grade) pairs. The color
// variant and the grade must exist; the association row is created if needed.
func (s *StockService) UpdateGradeStock(ctx context.Context, productID int, updates []GradeStockUpdate) error {
	if len(updates) == 0 {
		return invalid(0, "itens", "at least one item is required")
	}
	for i, u := range updates {
		if u.ColorID <= 0 || u.GradeID <= 0 {
			return invalid(i, fmt.Sprintf("itens[%d]", i), "cor_id and grade_id are required")
		}
		if u.Quantity < 0 {
			return invalid(i, fmt.Sprintf("itens[%d].quantidade", i), "must not be negative")
		}
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		product, err := tx.GetProductByID(ctx, productID)
		if err != nil {
			return fmt.Errorf("get product %d: %w", productID, err)
		}
		for _, u := range updates {
			if _, err := tx.FindColorVariant(ctx, productID, u.ColorID); err != nil {
				return fmt.Errorf("color %d: %w", u.ColorID, err)
			}
			if _, err := tx.GetGrade(ctx, u.GradeID); err != nil {
				return fmt.Errorf("grade %d: %w", u.GradeID, err)
			}
			if err := tx.SetGradeStock(ctx, productID, u.ColorID, u.GradeID, u.Quantity); err != nil {
				return fmt.Errorf("set stock color %d grade %d: %w", u.ColorID, u.GradeID, err)
			}
		}
		return tx.RefreshStockTotals(ctx, productID, product.StockStrategy)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, productID)
	log.Info().Int("product_id", productID).Int("items", len(updates)).Msg("grade stock updated")
	return nil
}

// SetStrategy switches the authoritative ledger of a product and recomputes
// its color variant totals from it.
func (s *StockService) SetStrategy(ctx context.Context, productID int, raw string) (models.StockStrategy, error) {
	strategy, err := models.ParseStockStrategy(raw)
	if err != nil {
		return "", invalid(0, "estrategia_estoque", err.Error())
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.SetStockStrategy(ctx, productID, strategy); err != nil {
			return fmt.Errorf("set strategy of product %d: %w", productID, err)
		}
		return tx.RefreshStockTotals(ctx, productID, strategy)
	})
	if err != nil {
		return "", err
	}

	s.invalidate(ctx, productID)
	log.Info().Int("product_id", productID).Str("strategy", string(strategy)).Msg("stock strategy changed")
	return strategy, nil
}

func (s *StockService) invalidate(ctx context.Context, productID int) {
	if s.invalidator != nil {
		s.invalidator.InvalidateProduct(ctx, productID)
	}
}
