package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gradeshop_api/internal/models"
	"github.com/GTDGit/gradeshop_api/internal/repository"
)

// FanoutPolicy decides what happens when the color variant already exists.
type FanoutPolicy string

// FanoutPolicySkipIfExists keeps the first submission of a (product, color)
// pair authoritative: an existing color variant is reported and left alone.
const FanoutPolicySkipIfExists FanoutPolicy = "skip_if_exists"

// FanoutInput describes one product color to materialize from a grade.
type FanoutInput struct {
	ProductID   int
	ColorID     int
	GradeID     int
	UnitPrice   float64
	ImageRef    string
	SKU         string
	VariantName string
}

// FanoutResult lists the rows produced by a fan-out.
type FanoutResult struct {
	ColorVariantID int
	SizeVariantIDs []int
	Existing       bool
	ImagePending   bool
}

// VariantFanout creates the color variant and per-size variants implied by a
// grade's templates.
type VariantFanout struct {
	store  repository.Store
	policy FanoutPolicy
}

// NewVariantFanout constructs a VariantFanout with the skip-if-exists policy.
func NewVariantFanout(store repository.Store) *VariantFanout {
	return &VariantFanout{store: store, policy: FanoutPolicySkipIfExists}
}

// Policy returns the existing-variant policy in effect.
func (f *VariantFanout) Policy() FanoutPolicy {
	return f.policy
}

// Fanout materializes in.ColorID for in.ProductID. Prices and images of an
// existing color variant are not synced.
func (f *VariantFanout) Fanout(ctx context.Context, in FanoutInput) (*FanoutResult, error) {
	existing, err := f.store.FindColorVariant(ctx, in.ProductID, in.ColorID)
	if err == nil {
		return &FanoutResult{ColorVariantID: existing.ID, SizeVariantIDs: []int{}, Existing: true}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find color variant: %w", err)
	}

	count, err := f.store.CountColorVariants(ctx, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("count color variants: %w", err)
	}

	price := in.UnitPrice
	cv := &models.ColorVariant{
		ProductID:     in.ProductID,
		ColorID:       in.ColorID,
		VariantName:   in.VariantName,
		PriceOverride: &price,
		ImageStatus:   models.ImageNone,
		IsActive:      true,
		IsMainCatalog: count == 0,
	}
	if in.SKU != "" {
		sku := in.SKU
		cv.SKU = &sku
	}
	if in.ImageRef != "" {
		ref := in.ImageRef
		cv.ImageRef = &ref
		cv.ImageStatus = models.ImagePending
	}
	if err := f.store.CreateColorVariant(ctx, cv); err != nil {
		return nil, fmt.Errorf("create color variant: %w", err)
	}

	templates, err := f.store.ListGradeTemplates(ctx, in.GradeID)
	if err != nil {
		return nil, fmt.Errorf("list grade templates: %w", err)
	}
	if len(templates) == 0 {
		log.Warn().
			Int("product_id", in.ProductID).
			Int("color_id", in.ColorID).
			Int("grade_id", in.GradeID).
			Msg("grade has no templates, color variant has no sizes")
	}

	result := &FanoutResult{
		ColorVariantID: cv.ID,
		SizeVariantIDs: make([]int, 0, len(templates)),
		ImagePending:   cv.ImageStatus == models.ImagePending,
	}
	for _, t := range templates {
		if t.RequiredQuantity < 0 {
			continue
		}
		sv := &models.SizeVariant{
			ProductID:     in.ProductID,
			ColorID:       in.ColorID,
			SizeID:        t.SizeID,
			PriceOverride: &price,
		}
		if err := f.store.CreateSizeVariant(ctx, sv); err != nil {
			return nil, fmt.Errorf("create size variant %s: %w", t.SizeName, err)
		}
		result.SizeVariantIDs = append(result.SizeVariantIDs, sv.ID)
	}

	if _, err := f.store.LinkGrade(ctx, in.ProductID, in.ColorID, in.GradeID); err != nil {
		return nil, fmt.Errorf("link grade: %w", err)
	}

	return result, nil
}
