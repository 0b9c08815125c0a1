package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gradeshop_api/internal/models"
	"github.com/GTDGit/gradeshop_api/internal/repository"
	"github.com/GTDGit/gradeshop_api/internal/testutil"
)

// seedImported imports rec and returns the stored product.
func seedImported(t *testing.T, store *testutil.MemStore, rec ImportProduct) *models.Product {
	t.Helper()
	ctx := context.Background()
	_, err := NewImportService(store, nil, nil, 0).Reconcile(ctx, []ImportProduct{rec}, ImportOptions{})
	require.NoError(t, err)
	p, err := store.GetProductByCode(ctx, rec.Code)
	require.NoError(t, err)
	return p
}

type stockIDs struct {
	colorID int
	sizeIDs []int
	gradeID int
}

func idsOf(t *testing.T, store *testutil.MemStore, color, grade string) stockIDs {
	t.Helper()
	ctx := context.Background()
	c, err := store.FindLookup(ctx, models.LookupColor, color)
	require.NoError(t, err)
	g, err := store.FindGrade(ctx, grade)
	require.NoError(t, err)
	tpls, err := store.ListGradeTemplates(ctx, g.ID)
	require.NoError(t, err)
	ids := stockIDs{colorID: c.ID, gradeID: g.ID}
	for _, tpl := range tpls {
		ids.sizeIDs = append(ids.sizeIDs, tpl.SizeID)
	}
	return ids
}

func TestNewInventoryAccessor_Strategies(t *testing.T) {
	store := testutil.NewMemStore()

	a, err := NewInventoryAccessor(store, &models.Product{StockStrategy: models.StockPerSize})
	require.NoError(t, err)
	assert.IsType(t, &PerSizeInventory{}, a)
	assert.Equal(t, models.StockPerSize, a.Strategy())

	a, err = NewInventoryAccessor(store, &models.Product{StockStrategy: models.StockPerGrade})
	require.NoError(t, err)
	assert.IsType(t, &PerGradeInventory{}, a)

	_, err = NewInventoryAccessor(store, &models.Product{ID: 9, StockStrategy: "per_box"})
	assert.Error(t, err)
}

func TestAvailableQuantity_LedgersAreDecoupled(t *testing.T) {
	store := testutil.NewMemStore()
	ctx := context.Background()
	p := seedImported(t, store, sku1("Azul", "Grade Masculina"))
	ids := idsOf(t, store, "Azul", "Grade Masculina")

	require.NoError(t, store.SetSizeStock(ctx, p.ID, ids.colorID, ids.sizeIDs[0], 4))
	require.NoError(t, store.SetGradeStock(ctx, p.ID, ids.colorID, ids.gradeID, 2))

	inv := NewInventoryService(store)

	n, err := inv.AvailableQuantity(ctx, p.ID, ids.colorID, ids.sizeIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = NewStockService(store, nil).SetStrategy(ctx, p.ID, string(models.StockPerGrade))
	require.NoError(t, err)

	n, err = inv.AvailableQuantity(ctx, p.ID, ids.colorID, ids.gradeID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Size stock changes do not move the kit count.
	require.NoError(t, store.SetSizeStock(ctx, p.ID, ids.colorID, ids.sizeIDs[0], 0))
	n, err = inv.AvailableQuantity(ctx, p.ID, ids.colorID, ids.gradeID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAvailableQuantity_MissingRowIsZero(t *testing.T) {
	store := testutil.NewMemStore()
	ctx := context.Background()
	p := seedImported(t, store, sku1("Azul", "Grade Masculina"))

	n, err := NewInventoryService(store).AvailableQuantity(ctx, p.ID, 999, 999)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	pg := &PerGradeInventory{stock: store, product: p}
	n, err = pg.AvailableQuantity(ctx, 999, 999)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAvailability_Oversell(t *testing.T) {
	store := testutil.NewMemStore()
	ctx := context.Background()
	oversell := true
	rec := sku1("Azul", "Grade Masculina")
	rec.AllowOversell = &oversell
	p := seedImported(t, store, rec)

	a, err := NewInventoryService(store).Availability(ctx, p.ID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, UnboundedQuantity, a.Quantity)
	assert.True(t, a.Unbounded)
	assert.Equal(t, models.StockPerSize, a.Strategy)
}

func TestAvailability_UnknownProduct(t *testing.T) {
	_, err := NewInventoryService(testutil.NewMemStore()).Availability(context.Background(), 42, 1, 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAvailability_StorageError(t *testing.T) {
	store := testutil.NewMemStore()
	p := seedImported(t, store, sku1("Azul", "Grade Masculina"))
	store.FailOn("GetSizeStock", repository.ErrStorageUnavailable)

	_, err := NewInventoryService(store).Availability(context.Background(), p.ID, 1, 1)
	assert.ErrorIs(t, err, repository.ErrStorageUnavailable)
}
