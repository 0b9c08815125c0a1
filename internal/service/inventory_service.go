package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/GTDGit/gradeshop_api/internal/models"
	"github.com/GTDGit/gradeshop_api/internal/repository"
)

// UnboundedQuantity is reported for products that may be oversold.
const UnboundedQuantity = math.MaxInt32

// InventoryAccessor answers availability for one product under one stock
// strategy. unitID is a size id or a grade id depending on the strategy.
type InventoryAccessor interface {
	Strategy() models.StockStrategy
	AvailableQuantity(ctx context.Context, colorID, unitID int) (int, error)
}

type accessorFactory func(stock repository.StockStore, product *models.Product) InventoryAccessor

var inventoryStrategies = map[models.StockStrategy]accessorFactory{
	models.StockPerSize: func(stock repository.StockStore, p *models.Product) InventoryAccessor {
		return &PerSizeInventory{stock: stock, product: p}
	},
	models.StockPerGrade: func(stock repository.StockStore, p *models.Product) InventoryAccessor {
		return &PerGradeInventory{stock: stock, product: p}
	},
}

// NewInventoryAccessor returns the accessor for the product's strategy.
func NewInventoryAccessor(stock repository.StockStore, product *models.Product) (InventoryAccessor, error) {
	factory, ok := inventoryStrategies[product.StockStrategy]
	if !ok {
		return nil, fmt.Errorf("product %d: unknown stock strategy %q", product.ID, product.StockStrategy)
	}
	return factory(stock, product), nil
}

// PerSizeInventory reads the stock of each size variant.
type PerSizeInventory struct {
	stock   repository.StockStore
	product *models.Product
}

func (i *PerSizeInventory) Strategy() models.StockStrategy { return models.StockPerSize }

// AvailableQuantity returns the size variant stock for sizeID.
func (i *PerSizeInventory) AvailableQuantity(ctx context.Context, colorID, sizeID int) (int, error) {
	if i.product.AllowOversell {
		return UnboundedQuantity, nil
	}
	n, err := i.stock.GetSizeStock(ctx, i.product.ID, colorID, sizeID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	return n, err
}

// PerGradeInventory reads the pooled kit count of a (product, color, grade)
// triple. The sizes inside the grade never affect the result.
type PerGradeInventory struct {
	stock   repository.StockStore
	product *models.Product
}

func (i *PerGradeInventory) Strategy() models.StockStrategy { return models.StockPerGrade }

// AvailableQuantity returns the kit count for gradeID.
func (i *PerGradeInventory) AvailableQuantity(ctx context.Context, colorID, gradeID int) (int, error) {
	if i.product.AllowOversell {
		return UnboundedQuantity, nil
	}
	n, err := i.stock.GetGradeStock(ctx, i.product.ID, colorID, gradeID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	return n, err
}

// Availability is the storefront view of one sellable unit.
type Availability struct {
	ProductID int                  `json:"produto_id"`
	ColorID   int                  `json:"cor_id"`
	UnitID    int                  `json:"unidade_id"`
	Strategy  models.StockStrategy `json:"estrategia_estoque"`
	Quantity  int                  `json:"quantidade"`
	Unbounded bool                 `json:"ilimitado"`
}

// InventoryService resolves availability through the product's accessor.
type InventoryService struct {
	store repository.Store
}

// NewInventoryService constructs an InventoryService.
func NewInventoryService(store repository.Store) *InventoryService {
	return &InventoryService{store: store}
}

// AccessorFor loads the product and returns its accessor.
func (s *InventoryService) AccessorFor(ctx context.Context, productID int) (InventoryAccessor, error) {
	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", productID, err)
	}
	return NewInventoryAccessor(s.store, product)
}

// AvailableQuantity returns how many units of (colorID, unitID) can be sold.
func (s *InventoryService) AvailableQuantity(ctx context.Context, productID, colorID, unitID int) (int, error) {
	accessor, err := s.AccessorFor(ctx, productID)
	if err != nil {
		return 0, err
	}
	return accessor.AvailableQuantity(ctx, colorID, unitID)
}

// Availability is AvailableQuantity with the strategy that produced it.
func (s *InventoryService) Availability(ctx context.Context, productID, colorID, unitID int) (*Availability, error) {
	accessor, err := s.AccessorFor(ctx, productID)
	if err != nil {
		return nil, err
	}
	n, err := accessor.AvailableQuantity(ctx, colorID, unitID)
	if err != nil {
		return nil, fmt.Errorf("available quantity: %w", err)
	}
	return &Availability{
		ProductID: productID,
		ColorID:   colorID,
		UnitID:    unitID,
		Strategy:  accessor.Strategy(),
		Quantity:  n,
		Unbounded: n == UnboundedQuantity,
	}, nil
}
