package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gradeshop_api/internal/models"
	"github.com/GTDGit/gradeshop_api/internal/repository"
	"github.com/GTDGit/gradeshop_api/internal/testutil"
)

type countingInvalidator struct {
	products []int
}

func (c *countingInvalidator) InvalidateProduct(_ context.Context, productID int) {
	c.products = append(c.products, productID)
}

func colorTotal(t *testing.T, store *testutil.MemStore, productID, colorID int) int {
	t.Helper()
	cvs, err := store.ListColorVariants(context.Background(), productID)
	require.NoError(t, err)
	for _, cv := range cvs {
		if cv.ColorID == colorID {
			return cv.StockTotal
		}
	}
	t.Fatalf("color %d not found", colorID)
	return 0
}

func TestUpdateSizeStock(t *testing.T) {
	store := testutil.NewMemStore()
	ctx := context.Background()
	p := seedImported(t, store, sku1("Azul", "Grade Masculina"))
	ids := idsOf(t, store, "Azul", "Grade Masculina")
	inv := &countingInvalidator{}
	svc := NewStockService(store, inv)

	err := svc.UpdateSizeStock(ctx, p.ID, []SizeStockUpdate{
		{ColorID: ids.colorID, SizeID: ids.sizeIDs[0], Quantity: 3},
		{ColorID: ids.colorID, SizeID: ids.sizeIDs[1], Quantity: 5},
	})
	require.NoError(t, err)

	assert.Equal(t, 8, colorTotal(t, store, p.ID, ids.colorID))
	assert.Equal(t, []int{p.ID}, inv.products)

	stock, err := svc.GetStock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StockPerSize, stock.Strategy)
	assert.Len(t, stock.Sizes, 7)
	assert.Equal(t, 3, stock.Sizes[0].Stock)
	require.Len(t, stock.Grades, 1)
	assert.Equal(t, "Grade Masculina", stock.Grades[0].GradeName)
}

func TestUpdateSizeStock_UnknownSizeRollsBack(t *testing.T) {
	store := testutil.NewMemStore()
	ctx := context.Background()
	p := seedImported(t, store, sku1("Azul", "Grade Masculina"))
	ids := idsOf(t, store, "Azul", "Grade Masculina")
	inv := &countingInvalidator{}

	err := NewStockService(store, inv).UpdateSizeStock(ctx, p.ID, []SizeStockUpdate{
		{ColorID: ids.colorID, SizeID: ids.sizeIDs[0], Quantity: 3},
		{ColorID: ids.colorID, SizeID: 9999, Quantity: 1},
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, inv.products)

	n, err := store.GetSizeStock(ctx, p.ID, ids.colorID, ids.sizeIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUpdateSizeStock_Validation(t *testing.T) {
	svc := NewStockService(testutil.NewMemStore(), nil)
	ctx := context.Background()

	var verr *ValidationError
	assert.True(t, errors.As(svc.UpdateSizeStock(ctx, 1, nil), &verr))

	err := svc.UpdateSizeStock(ctx, 1, []SizeStockUpdate{{ColorID: 1, SizeID: 1, Quantity: -1}})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "itens[0].quantidade", verr.Field)

	err = svc.UpdateSizeStock(ctx, 1, []SizeStockUpdate{{ColorID: 1, Quantity: 1}})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "itens[0]", verr.Field)
}

func TestUpdateGradeStock(t *testing.T) {
	store := testutil.NewMemStore()
	ctx := context.Background()
	p := seedImported(t, store, sku1("Azul", "Grade Masculina"))
	ids := idsOf(t, store, "Azul", "Grade Masculina")
	svc := NewStockService(store, nil)

	_, err := svc.SetStrategy(ctx, p.ID, "per_grade")
	require.NoError(t, err)

	err = svc.UpdateGradeStock(ctx, p.ID, []GradeStockUpdate{{ColorID: ids.colorID, GradeID: ids.gradeID, Quantity: 6}})
	require.NoError(t, err)

	n, err := store.GetGradeStock(ctx, p.ID, ids.colorID, ids.gradeID)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, 6, colorTotal(t, store, p.ID, ids.colorID))
}

func TestUpdateGradeStock_RequiresColorAndGrade(t *testing.T) {
	store := testutil.NewMemStore()
	ctx := context.Background()
	p := seedImported(t, store, sku1("Azul", "Grade Masculina"))
	ids := idsOf(t, store, "Azul", "Grade Masculina")
	svc := NewStockService(store, nil)

	err := svc.UpdateGradeStock(ctx, p.ID, []GradeStockUpdate{{ColorID: 9999, GradeID: ids.gradeID, Quantity: 1}})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = svc.UpdateGradeStock(ctx, p.ID, []GradeStockUpdate{{ColorID: ids.colorID, GradeID: 9999, Quantity: 1}})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 1, store.Count("product_color_grades"))
}

func TestSetStrategy(t *testing.T) {
	store := testutil.NewMemStore()
	ctx := context.Background()
	p := seedImported(t, store, sku1("Azul", "Grade Masculina"))
	ids := idsOf(t, store, "Azul", "Grade Masculina")
	inv := &countingInvalidator{}
	svc := NewStockService(store, inv)

	require.NoError(t, store.SetSizeStock(ctx, p.ID, ids.colorID, ids.sizeIDs[0], 10))
	require.NoError(t, store.SetGradeStock(ctx, p.ID, ids.colorID, ids.gradeID, 2))

	got, err := svc.SetStrategy(ctx, p.ID, "per_grade")
	require.NoError(t, err)
	assert.Equal(t, models.StockPerGrade, got)
	assert.Equal(t, 2, colorTotal(t, store, p.ID, ids.colorID))

	_, err = svc.SetStrategy(ctx, p.ID, "per_size")
	require.NoError(t, err)
	assert.Equal(t, 10, colorTotal(t, store, p.ID, ids.colorID))
	assert.Len(t, inv.products, 2)

	_, err = svc.SetStrategy(ctx, p.ID, "per_box")
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = svc.SetStrategy(ctx, 9999, "per_size")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
