package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gradeshop_api/internal/models"
	"github.com/GTDGit/gradeshop_api/internal/repository"
)

// ImportMode selects the transaction scope of a batch import.
type ImportMode int

const (
	// ImportModeBestEffort commits each record in its own transaction and
	// stops at the first failing record. Earlier records stay committed.
	ImportModeBestEffort ImportMode = iota
	// ImportModeStrict validates every record up front and commits the batch
	// in one transaction, or nothing.
	ImportModeStrict
)

func (m ImportMode) String() string {
	if m == ImportModeStrict {
		return "strict"
	}
	return "best_effort"
}

// ImportOptions tunes a Reconcile call.
type ImportOptions struct {
	Mode ImportMode
}

// ImageScheduler receives image sources of new color variants once their
// record has committed. Enqueue must not block.
type ImageScheduler interface {
	Enqueue(colorVariantID int, sourceURL string)
}

// ImportService reconciles external catalog records onto the product graph.
type ImportService struct {
	store       repository.Store
	profiles    *GradeProfiles
	images      ImageScheduler
	invalidator StockInvalidator
	maxBatch    int
}

// NewImportService constructs an ImportService. images may be nil, in which
// case pending images are left for the periodic sweep.
func NewImportService(store repository.Store, profiles *GradeProfiles, images ImageScheduler, maxBatch int) *ImportService {
	if profiles == nil {
		profiles = DefaultGradeProfiles()
	}
	return &ImportService{store: store, profiles: profiles, images: images, maxBatch: maxBatch}
}

// WithInvalidator makes committed records drop the cached availability of
// their product. A re-import may flip vender_infinito, which the storefront
// answer depends on.
func (s *ImportService) WithInvalidator(invalidator StockInvalidator) *ImportService {
	s.invalidator = invalidator
	return s
}

// Reconcile imports records in input order and returns the aggregated report.
// On failure the returned error is a *BatchError.
func (s *ImportService) Reconcile(ctx context.Context, records []ImportProduct, opts ImportOptions) (*BatchReport, error) {
	if len(records) == 0 {
		return nil, invalid(0, "products", "at least one product is required")
	}
	if s.maxBatch > 0 && len(records) > s.maxBatch {
		return nil, invalid(0, "products", fmt.Sprintf("at most %d products per batch", s.maxBatch))
	}

	normalized := make([]ImportProduct, len(records))
	for i, rec := range records {
		normalized[i] = rec.normalized()
	}

	start := time.Now()
	var (
		report *BatchReport
		err    error
	)
	if opts.Mode == ImportModeStrict {
		report, err = s.reconcileStrict(ctx, normalized)
	} else {
		report, err = s.reconcileBestEffort(ctx, normalized)
	}
	if err != nil {
		log.Warn().Err(err).Str("mode", opts.Mode.String()).Int("records", len(records)).Msg("import failed")
		return nil, err
	}

	log.Info().
		Str("mode", opts.Mode.String()).
		Int("records", len(records)).
		Int("products_created", report.ProductsCreated).
		Int("products_updated", report.ProductsUpdated).
		Int("variants_created", report.VariantsCreated).
		Int("variants_existing", report.VariantsExisting).
		Dur("duration", time.Since(start)).
		Msg("import finished")
	return report, nil
}

func (s *ImportService) reconcileBestEffort(ctx context.Context, records []ImportProduct) (*BatchReport, error) {
	report := newBatchReport()
	committed := 0
	for i, rec := range records {
		if err := rec.validate(i); err != nil {
			return nil, batchError(err, i, committed)
		}

		var res *recordResult
		err := s.store.WithTx(ctx, func(tx repository.Store) error {
			var err error
			res, err = s.reconcileRecord(ctx, tx, i, rec)
			return err
		})
		if err != nil {
			return nil, batchError(err, i, committed)
		}

		committed++
		report.merge(res)
		s.scheduleImages(res.images)
		s.invalidate(ctx, res.product.ID)
	}
	return report, nil
}

func (s *ImportService) reconcileStrict(ctx context.Context, records []ImportProduct) (*BatchReport, error) {
	for i, rec := range records {
		if err := rec.validate(i); err != nil {
			return nil, batchError(err, i, 0)
		}
	}

	report := newBatchReport()
	var (
		images   []imageJob
		products []int
	)
	failed := 0
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		for i, rec := range records {
			failed = i
			res, err := s.reconcileRecord(ctx, tx, i, rec)
			if err != nil {
				return err
			}
			report.merge(res)
			images = append(images, res.images...)
			products = append(products, res.product.ID)
		}
		return nil
	})
	if err != nil {
		return nil, batchError(err, failed, 0)
	}

	s.scheduleImages(images)
	s.invalidate(ctx, products...)
	return report, nil
}

// ImportSingle imports exactly one new product with one variant. An existing
// code is rejected with repository.ErrDuplicateKey rather than updated.
func (s *ImportService) ImportSingle(ctx context.Context, rec ImportProduct) (*BatchReport, error) {
	rec = rec.normalized()
	if err := rec.validate(0); err != nil {
		return nil, err
	}
	if len(rec.Variants) != 1 {
		return nil, invalid(0, productField(0, "variantes"), "exactly one variant is required")
	}

	var res *recordResult
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		_, err := tx.GetProductByCode(ctx, rec.Code)
		if err == nil {
			return fmt.Errorf("product %s: %w", rec.Code, repository.ErrDuplicateKey)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("get product %s: %w", rec.Code, err)
		}
		res, err = s.reconcileRecord(ctx, tx, 0, rec)
		return err
	})
	if err != nil {
		return nil, err
	}

	report := newBatchReport()
	report.merge(res)
	s.scheduleImages(res.images)
	s.invalidate(ctx, res.product.ID)

	log.Info().Str("product_code", rec.Code).Int("product_id", res.product.ID).Msg("single product imported")
	return report, nil
}

// reconcileRecord runs one record against tx. Components are bound to tx so
// every write of the record shares its transaction.
func (s *ImportService) reconcileRecord(ctx context.Context, tx repository.Store, idx int, rec ImportProduct) (*recordResult, error) {
	resolver := NewEntityResolver(tx)
	synth := NewGradeSynthesizer(tx, resolver, s.profiles)
	fanout := NewVariantFanout(tx)

	res := &recordResult{product: ProductReport{Code: rec.Code, Variants: []VariantReport{}}}

	product, err := tx.GetProductByCode(ctx, rec.Code)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		product, err = s.createProduct(ctx, tx, resolver, idx, rec, res)
		if err != nil {
			return nil, err
		}
		res.product.Status = ProductCreated
	case err != nil:
		return nil, fmt.Errorf("get product %s: %w", rec.Code, err)
	default:
		if err := s.updateProduct(ctx, tx, resolver, rec, product, res); err != nil {
			return nil, err
		}
		res.product.Status = ProductUpdated
	}
	res.product.ID = product.ID

	for j, v := range rec.Variants {
		vr := VariantReport{Color: v.Color, Grade: v.Grade, SizeVariantIDs: []int{}}

		colorID, created, err := resolver.ResolveOrCreate(ctx, models.LookupColor, v.Color)
		if err != nil {
			return nil, locate(err, idx, variantField(idx, j, "cor"))
		}
		if created {
			res.colors = append(res.colors, v.Color)
		}

		existing, err := tx.FindColorVariant(ctx, product.ID, colorID)
		if err == nil {
			vr.Status = VariantExisting
			vr.ColorVariantID = existing.ID
			res.product.Variants = append(res.product.Variants, vr)
			log.Debug().Str("product_code", rec.Code).Str("color", v.Color).Msg("color variant exists, skipping")
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("find color variant %s/%s: %w", rec.Code, v.Color, err)
		}

		gradeID, gradeCreated, err := synth.ResolveOrCreateGrade(ctx, v.Grade)
		if err != nil {
			return nil, locate(err, idx, variantField(idx, j, "grade"))
		}
		if gradeCreated {
			res.grades = append(res.grades, v.Grade)
		}

		out, err := fanout.Fanout(ctx, FanoutInput{
			ProductID:   product.ID,
			ColorID:     colorID,
			GradeID:     gradeID,
			UnitPrice:   v.Price,
			ImageRef:    v.Photo,
			SKU:         v.SKU,
			VariantName: fmt.Sprintf("%s - %s", product.Name, v.Color),
		})
		if err != nil {
			return nil, fmt.Errorf("fan out %s/%s: %w", rec.Code, v.Color, err)
		}

		vr.ColorVariantID = out.ColorVariantID
		if out.Existing {
			vr.Status = VariantExisting
		} else {
			vr.Status = VariantCreated
			vr.SizeVariantIDs = out.SizeVariantIDs
			if out.ImagePending {
				res.images = append(res.images, imageJob{colorVariantID: out.ColorVariantID, sourceURL: v.Photo})
			}
		}
		res.product.Variants = append(res.product.Variants, vr)
	}

	log.Debug().
		Str("product_code", rec.Code).
		Str("status", string(res.product.Status)).
		Int("variants", len(res.product.Variants)).
		Msg("record reconciled")
	return res, nil
}

func (s *ImportService) createProduct(ctx context.Context, tx repository.Store, resolver *EntityResolver, idx int, rec ImportProduct, res *recordResult) (*models.Product, error) {
	if rec.Name == "" {
		return nil, invalid(idx, productField(idx, "nome"), "is required for a new product")
	}
	if rec.Category == "" {
		return nil, invalid(idx, productField(idx, "categoria"), "is required for a new product")
	}
	if rec.Type == "" {
		return nil, invalid(idx, productField(idx, "tipo"), "is required for a new product")
	}

	categoryID, err := resolveNamed(ctx, resolver, models.LookupCategory, rec.Category, &res.categories)
	if err != nil {
		return nil, locate(err, idx, productField(idx, "categoria"))
	}
	typeID, err := resolveNamed(ctx, resolver, models.LookupType, rec.Type, &res.types)
	if err != nil {
		return nil, locate(err, idx, productField(idx, "tipo"))
	}

	product := &models.Product{
		Code:           rec.Code,
		Name:           rec.Name,
		CategoryID:     categoryID,
		TypeID:         typeID,
		Description:    rec.Description,
		BasePrice:      rec.Variants[0].Price,
		SuggestedPrice: rec.SuggestedPrice,
		IsActive:       true,
		StockStrategy:  models.StockPerSize,
	}
	if rec.AllowOversell != nil {
		product.AllowOversell = *rec.AllowOversell
	}
	if rec.Gender != "" {
		genderID, err := resolveNamed(ctx, resolver, models.LookupGender, rec.Gender, &res.genders)
		if err != nil {
			return nil, locate(err, idx, productField(idx, "genero"))
		}
		product.GenderID = &genderID
	}

	if err := tx.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("create product %s: %w", rec.Code, err)
	}
	log.Info().Str("product_code", rec.Code).Int("product_id", product.ID).Msg("product created")
	return product, nil
}

func (s *ImportService) updateProduct(ctx context.Context, tx repository.Store, resolver *EntityResolver, rec ImportProduct, product *models.Product, res *recordResult) error {
	patch := models.ProductPatch{
		Name:           rec.Name,
		Description:    rec.Description,
		SuggestedPrice: rec.SuggestedPrice,
		AllowOversell:  rec.AllowOversell,
	}

	lookups := []struct {
		kind    models.LookupKind
		name    string
		created *[]string
		target  **int
	}{
		{models.LookupCategory, rec.Category, &res.categories, &patch.CategoryID},
		{models.LookupType, rec.Type, &res.types, &patch.TypeID},
		{models.LookupGender, rec.Gender, &res.genders, &patch.GenderID},
	}
	for _, l := range lookups {
		if l.name == "" {
			continue
		}
		id, err := resolveNamed(ctx, resolver, l.kind, l.name, l.created)
		if err != nil {
			return err
		}
		*l.target = &id
	}

	if patch.Empty() {
		return nil
	}
	if err := tx.PatchProduct(ctx, product.ID, patch); err != nil {
		return fmt.Errorf("update product %s: %w", rec.Code, err)
	}
	if patch.Name != "" {
		product.Name = patch.Name
	}
	log.Debug().Str("product_code", rec.Code).Int("product_id", product.ID).Msg("product updated")
	return nil
}

func (s *ImportService) scheduleImages(jobs []imageJob) {
	if s.images == nil {
		return
	}
	for _, j := range jobs {
		s.images.Enqueue(j.colorVariantID, j.sourceURL)
	}
}

func resolveNamed(ctx context.Context, resolver *EntityResolver, kind models.LookupKind, name string, created *[]string) (int, error) {
	id, isNew, err := resolver.ResolveOrCreate(ctx, kind, name)
	if err != nil {
		return 0, err
	}
	if isNew {
		*created = append(*created, name)
	}
	return id, nil
}

// locate fills in the record and field of a ValidationError raised below the
// coordinator; other errors pass through.
func locate(err error, record int, field string) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return invalid(record, field, verr.Message)
	}
	return err
}

func batchError(err error, record, committed int) error {
	return &BatchError{
		Err:              err,
		FailedRecord:     record,
		CommittedRecords: committed,
		Partial:          committed > 0,
	}
}

func (s *ImportService) invalidate(ctx context.Context, productIDs ...int) {
	if s.invalidator == nil {
		return
	}
	seen := make(map[int]bool, len(productIDs))
	for _, id := range productIDs {
		if !seen[id] {
			seen[id] = true
			s.invalidator.InvalidateProduct(ctx, id)
		}
	}
}
