package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gradeshop_api/internal/models"
	"github.com/GTDGit/gradeshop_api/internal/repository"
	"github.com/GTDGit/gradeshop_api/internal/testutil"
)

type recordingScheduler struct {
	mu   sync.Mutex
	jobs []imageJob
}

func (r *recordingScheduler) Enqueue(colorVariantID int, sourceURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, imageJob{colorVariantID: colorVariantID, sourceURL: sourceURL})
}

func sku1(color, grade string) ImportProduct {
	return ImportProduct{
		Code:     "SKU1",
		Name:     "X",
		Category: "Chinelos",
		Type:     "Casual",
		Variants: []ImportVariant{{Color: color, Price: 39.9, Grade: grade}},
	}
}

func TestReconcile_CreateThenReimport(t *testing.T) {
	store := testutil.NewMemStore()
	svc := NewImportService(store, nil, nil, 0)
	ctx := context.Background()

	first, err := svc.Reconcile(ctx, []ImportProduct{sku1("Azul", "Grade Masculina")}, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.ProductsCreated)
	assert.Equal(t, 1, first.VariantsCreated)
	assert.Equal(t, []string{"Chinelos"}, first.CategoriesCreated)
	assert.Equal(t, []string{"Casual"}, first.TypesCreated)
	assert.Equal(t, []string{"Azul"}, first.ColorsCreated)
	assert.Equal(t, []string{"Grade Masculina"}, first.GradesCreated)
	require.Len(t, first.Products, 1)
	assert.Equal(t, ProductCreated, first.Products[0].Status)
	assert.Len(t, first.Products[0].Variants[0].SizeVariantIDs, 7)

	sizeRows := store.Count("size_variants")

	second, err := svc.Reconcile(ctx, []ImportProduct{sku1("Azul", "Grade Masculina")}, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.ProductsCreated)
	assert.Equal(t, 1, second.ProductsUpdated)
	assert.Equal(t, 0, second.VariantsCreated)
	assert.Equal(t, 1, second.VariantsExisting)
	assert.Empty(t, second.ColorsCreated)
	assert.Empty(t, second.GradesCreated)
	assert.Equal(t, VariantExisting, second.Products[0].Variants[0].Status)
	assert.Equal(t, first.Products[0].Variants[0].ColorVariantID, second.Products[0].Variants[0].ColorVariantID)

	assert.Equal(t, 1, store.Count("products"))
	assert.Equal(t, 1, store.Count("color_variants"))
	assert.Equal(t, sizeRows, store.Count("size_variants"))
}

func TestReconcile_ProductFields(t *testing.T) {
	store := testutil.NewMemStore()
	svc := NewImportService(store, nil, nil, 0)
	ctx := context.Background()

	suggested := 59.9
	oversell := true
	rec := sku1("Azul", "Grade Feminina")
	rec.Gender = "Feminino"
	rec.Description = "Chinelo de dedo"
	rec.SuggestedPrice = &suggested
	rec.AllowOversell = &oversell

	report, err := svc.Reconcile(ctx, []ImportProduct{rec}, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Feminino"}, report.GendersCreated)

	p, err := store.GetProductByCode(ctx, "SKU1")
	require.NoError(t, err)
	assert.Equal(t, "X", p.Name)
	assert.Equal(t, 39.9, p.BasePrice)
	assert.Equal(t, 59.9, *p.SuggestedPrice)
	assert.True(t, p.AllowOversell)
	assert.True(t, p.IsActive)
	assert.Equal(t, models.StockPerSize, p.StockStrategy)
	require.NotNil(t, p.GenderID)
}

func TestReconcile_SameColorTwiceInBatch(t *testing.T) {
	store := testutil.NewMemStore()
	svc := NewImportService(store, nil, nil, 0)

	rec := sku1("Azul", "Grade Masculina")
	rec.Variants = append(rec.Variants, ImportVariant{Color: "Azul", Price: 49.9, Grade: "Grade Feminina"})

	report, err := svc.Reconcile(context.Background(), []ImportProduct{rec}, ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.VariantsCreated)
	assert.Equal(t, 1, report.VariantsExisting)
	assert.Equal(t, []string{"Grade Masculina"}, report.GradesCreated)
	assert.Equal(t, 1, store.Count("color_variants"))
	assert.Equal(t, 1, store.Count("grades"))
}

func TestReconcile_SameProductTwiceInBatch(t *testing.T) {
	store := testutil.NewMemStore()
	svc := NewImportService(store, nil, nil, 0)

	report, err := svc.Reconcile(context.Background(), []ImportProduct{
		sku1("Azul", "Grade Masculina"),
		sku1("Preto", "Grade Masculina"),
	}, ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.ProductsCreated)
	assert.Equal(t, 1, report.ProductsUpdated)
	assert.Equal(t, 2, report.VariantsCreated)
	assert.Equal(t, []string{"Azul", "Preto"}, report.ColorsCreated)
	assert.Equal(t, 1, store.Count("products"))
	assert.Equal(t, 2, store.Count("color_variants"))
}

func TestReconcile_InfantilGrade(t *testing.T) {
	store := testutil.NewMemStore()
	svc := NewImportService(store, nil, nil, 0)

	report, err := svc.Reconcile(context.Background(), []ImportProduct{sku1("Rosa", "Grade Infantil")}, ImportOptions{})
	require.NoError(t, err)
	assert.Len(t, report.Products[0].Variants[0].SizeVariantIDs, 14)

	g, err := store.FindGrade(context.Background(), "Grade Infantil")
	require.NoError(t, err)
	tpls, err := store.ListGradeTemplates(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, "20", tpls[0].SizeName)
	assert.Equal(t, "33", tpls[len(tpls)-1].SizeName)
}

func TestReconcile_PartialUpdate(t *testing.T) {
	store := testutil.NewMemStore()
	svc := NewImportService(store, nil, nil, 0)
	ctx := context.Background()

	_, err := svc.Reconcile(ctx, []ImportProduct{sku1("Azul", "Grade Masculina")}, ImportOptions{})
	require.NoError(t, err)

	report, err := svc.Reconcile(ctx, []ImportProduct{{
		Code:     "SKU1",
		Name:     "X Renomeado",
		Variants: []ImportVariant{{Color: "Branco", Price: 120, Grade: "Grade Masculina"}},
	}}, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.ProductsUpdated)
	assert.Equal(t, 1, report.VariantsCreated)

	p, err := store.GetProductByCode(ctx, "SKU1")
	require.NoError(t, err)
	assert.Equal(t, "X Renomeado", p.Name)
	assert.Equal(t, 39.9, p.BasePrice)

	cvs, err := store.ListColorVariants(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, cvs, 2)
	assert.Equal(t, "Azul", cvs[0].ColorName)
	assert.True(t, cvs[0].IsMainCatalog)
	assert.Equal(t, "X Renomeado - Branco", cvs[1].VariantName)
}

func TestReconcile_NewProductNeedsName(t *testing.T) {
	store := testutil.NewMemStore()
	svc := NewImportService(store, nil, nil, 0)

	rec := sku1("Azul", "Grade Masculina")
	rec.Name = ""
	_, err := svc.Reconcile(context.Background(), []ImportProduct{rec}, ImportOptions{})

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.False(t, batchErr.Partial)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "products[0].nome", verr.Field)
	assert.Equal(t, 0, store.Count("products"))
	assert.Equal(t, 0, store.Count(string(models.LookupCategory)))
}

func TestReconcile_ValidationFields(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(p *ImportProduct)
		field string
	}{
		{"missing code", func(p *ImportProduct) { p.Code = " " }, "products[0].codigo"},
		{"no variants", func(p *ImportProduct) { p.Variants = nil }, "products[0].variantes"},
		{"missing color", func(p *ImportProduct) { p.Variants[0].Color = "" }, "products[0].variantes[0].cor"},
		{"zero price", func(p *ImportProduct) { p.Variants[0].Price = 0 }, "products[0].variantes[0].preco"},
		{"missing grade", func(p *ImportProduct) { p.Variants[0].Grade = "" }, "products[0].variantes[0].grade"},
		{"missing category", func(p *ImportProduct) { p.Category = "" }, "products[0].categoria"},
		{"missing type", func(p *ImportProduct) { p.Type = "" }, "products[0].tipo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMemStore()
			rec := sku1("Azul", "Grade Masculina")
			tt.edit(&rec)

			_, err := NewImportService(store, nil, nil, 0).Reconcile(context.Background(), []ImportProduct{rec}, ImportOptions{})

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, 0, store.Count("products"))
		})
	}
}

func TestReconcile_BatchLimits(t *testing.T) {
	svc := NewImportService(testutil.NewMemStore(), nil, nil, 1)

	_, err := svc.Reconcile(context.Background(), nil, ImportOptions{})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = svc.Reconcile(context.Background(), []ImportProduct{sku1("Azul", "G"), sku1("Preto", "G")}, ImportOptions{})
	assert.True(t, errors.As(err, &verr))
}

func TestReconcile_BestEffortStopsAtFirstFailure(t *testing.T) {
	store := testutil.NewMemStore()
	svc := NewImportService(store, nil, nil, 0)

	good := sku1("Azul", "Grade Masculina")
	bad := ImportProduct{Code: "SKU2", Category: "Chinelos", Type: "Casual",
		Variants: []ImportVariant{{Color: "Preto", Price: 10, Grade: "Grade Masculina"}}}
	never := sku1("Verde", "Grade Masculina")
	never.Code = "SKU3"

	_, err := svc.Reconcile(context.Background(), []ImportProduct{good, bad, never}, ImportOptions{})

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 1, batchErr.FailedRecord)
	assert.Equal(t, 1, batchErr.CommittedRecords)
	assert.True(t, batchErr.Partial)

	assert.Equal(t, 1, store.Count("products"))
	_, err = store.GetProductByCode(context.Background(), "SKU3")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	// The failed record's color must not leak out of its rolled back transaction.
	_, err = store.FindLookup(context.Background(), models.LookupColor, "Preto")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReconcile_StrictRollsBackEverything(t *testing.T) {
	store := testutil.NewMemStore()
	svc := NewImportService(store, nil, nil, 0)

	second := sku1("Preto", "Grade Feminina")
	second.Code = "SKU2"
	calls := 0
	store.Hook("CreateSizeVariant", func() error {
		calls++
		if calls > 7 {
			return repository.ErrStorageUnavailable
		}
		return nil
	})

	_, err := svc.Reconcile(context.Background(), []ImportProduct{sku1("Azul", "Grade Masculina"), second},
		ImportOptions{Mode: ImportModeStrict})

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 1, batchErr.FailedRecord)
	assert.False(t, batchErr.Partial)
	assert.ErrorIs(t, err, repository.ErrStorageUnavailable)

	assert.Equal(t, 0, store.Count("products"))
	assert.Equal(t, 0, store.Count("grades"))
	assert.Equal(t, 0, store.Count(string(models.LookupColor)))
}

func TestReconcile_StrictValidatesUpFront(t *testing.T) {
	store := testutil.NewMemStore()
	svc := NewImportService(store, nil, nil, 0)

	bad := sku1("Azul", "Grade Masculina")
	bad.Code = "SKU2"
	bad.Variants[0].Price = -1

	_, err := svc.Reconcile(context.Background(), []ImportProduct{sku1("Azul", "Grade Masculina"), bad},
		ImportOptions{Mode: ImportModeStrict})

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 1, batchErr.FailedRecord)
	assert.Equal(t, 0, store.Count("products"))
}

func TestReconcile_StorageUnavailable(t *testing.T) {
	store := testutil.NewMemStore()
	store.FailOn("WithTx", repository.ErrStorageUnavailable)

	_, err := NewImportService(store, nil, nil, 0).Reconcile(context.Background(),
		[]ImportProduct{sku1("Azul", "Grade Masculina")}, ImportOptions{})
	assert.ErrorIs(t, err, repository.ErrStorageUnavailable)
}

func TestReconcile_SchedulesImagesAfterCommit(t *testing.T) {
	store := testutil.NewMemStore()
	sched := &recordingScheduler{}
	svc := NewImportService(store, nil, sched, 0)
	ctx := context.Background()

	rec := sku1("Azul", "Grade Masculina")
	rec.Variants[0].Photo = "https://img.example.com/azul.jpg"
	rec.Variants = append(rec.Variants, ImportVariant{Color: "Preto", Price: 39.9, Grade: "Grade Masculina"})

	report, err := svc.Reconcile(ctx, []ImportProduct{rec}, ImportOptions{})
	require.NoError(t, err)

	require.Len(t, sched.jobs, 1)
	assert.Equal(t, report.Products[0].Variants[0].ColorVariantID, sched.jobs[0].colorVariantID)
	assert.Equal(t, "https://img.example.com/azul.jpg", sched.jobs[0].sourceURL)

	// Re-importing an existing color does not schedule again.
	_, err = svc.Reconcile(ctx, []ImportProduct{rec}, ImportOptions{})
	require.NoError(t, err)
	assert.Len(t, sched.jobs, 1)
}

func TestReconcile_NoImagesForFailedRecord(t *testing.T) {
	store := testutil.NewMemStore()
	sched := &recordingScheduler{}
	store.FailOn("LinkGrade", repository.ErrStorageUnavailable)

	rec := sku1("Azul", "Grade Masculina")
	rec.Variants[0].Photo = "https://img.example.com/azul.jpg"
	_, err := NewImportService(store, nil, sched, 0).Reconcile(context.Background(), []ImportProduct{rec}, ImportOptions{})

	require.Error(t, err)
	assert.Empty(t, sched.jobs)
	assert.Equal(t, 0, store.Count("color_variants"))
}

func TestReconcile_RejectsNonFinitePrices(t *testing.T) {
	nan := math.NaN()
	inf := math.Inf(1)
	tests := []struct {
		name  string
		edit  func(*ImportProduct)
		field string
	}{
		{"NaN price", func(p *ImportProduct) { p.Variants[0].Price = nan }, "products[0].variantes[0].preco"},
		{"Inf price", func(p *ImportProduct) { p.Variants[0].Price = inf }, "products[0].variantes[0].preco"},
		{"NaN suggested price", func(p *ImportProduct) { p.SuggestedPrice = &nan }, "products[0].preco_sugerido"},
		{"Inf suggested price", func(p *ImportProduct) { p.SuggestedPrice = &inf }, "products[0].preco_sugerido"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMemStore()
			rec := sku1("Azul", "Grade Masculina")
			tt.edit(&rec)

			_, err := NewImportService(store, nil, nil, 0).Reconcile(context.Background(), []ImportProduct{rec}, ImportOptions{})
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, 0, store.Count("products"))
		})
	}
}

func TestReconcile_InvalidatesCommittedProducts(t *testing.T) {
	ctx := context.Background()
	sku2 := sku1("Preto", "Grade Masculina")
	sku2.Code = "SKU2"
	broken := sku1("Azul", "Grade Masculina")
	broken.Code = ""

	t.Run("best effort", func(t *testing.T) {
		inv := &countingInvalidator{}
		svc := NewImportService(testutil.NewMemStore(), nil, nil, 0).WithInvalidator(inv)

		_, err := svc.Reconcile(ctx, []ImportProduct{sku1("Azul", "Grade Masculina"), sku2, broken}, ImportOptions{})
		var batchErr *BatchError
		require.ErrorAs(t, err, &batchErr)
		assert.Equal(t, 2, batchErr.CommittedRecords)
		assert.Len(t, inv.products, 2)
	})

	t.Run("strict", func(t *testing.T) {
		inv := &countingInvalidator{}
		svc := NewImportService(testutil.NewMemStore(), nil, nil, 0).WithInvalidator(inv)

		_, err := svc.Reconcile(ctx, []ImportProduct{sku1("Azul", "Grade Masculina"), broken}, ImportOptions{Mode: ImportModeStrict})
		require.Error(t, err)
		assert.Empty(t, inv.products)

		report, err := svc.Reconcile(ctx, []ImportProduct{sku1("Azul", "Grade Masculina"), sku1("Verde", "Grade Masculina")},
			ImportOptions{Mode: ImportModeStrict})
		require.NoError(t, err)
		assert.Equal(t, []int{report.Products[0].ID}, inv.products)
	})

	t.Run("single", func(t *testing.T) {
		inv := &countingInvalidator{}
		svc := NewImportService(testutil.NewMemStore(), nil, nil, 0).WithInvalidator(inv)

		report, err := svc.ImportSingle(ctx, sku1("Azul", "Grade Masculina"))
		require.NoError(t, err)
		assert.Equal(t, []int{report.Products[0].ID}, inv.products)
	})
}

func TestImportSingle(t *testing.T) {
	store := testutil.NewMemStore()
	svc := NewImportService(store, nil, nil, 0)
	ctx := context.Background()

	report, err := svc.ImportSingle(ctx, sku1("Azul", "Grade Feminina"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.ProductsCreated)
	assert.Equal(t, 1, report.VariantsCreated)

	_, err = svc.ImportSingle(ctx, sku1("Preto", "Grade Feminina"))
	assert.ErrorIs(t, err, repository.ErrDuplicateKey)
	assert.Equal(t, 1, store.Count("color_variants"))
}

func TestImportSingle_ExactlyOneVariant(t *testing.T) {
	rec := sku1("Azul", "Grade Feminina")
	rec.Variants = append(rec.Variants, ImportVariant{Color: "Preto", Price: 1, Grade: "Grade Feminina"})

	_, err := NewImportService(testutil.NewMemStore(), nil, nil, 0).ImportSingle(context.Background(), rec)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "products[0].variantes", verr.Field)
}
