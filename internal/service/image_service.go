package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gradeshop_api/internal/models"
	"github.com/GTDGit/gradeshop_api/internal/repository"
	"github.com/GTDGit/gradeshop_api/pkg/imagefetch"
)

// ImageFetcher downloads a source image.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*imagefetch.Image, error)
}

// ObjectUploader stores an object and returns its public URL.
type ObjectUploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ImageMirrorService copies supplier images of color variants into our own
// bucket. It runs outside import transactions.
type ImageMirrorService struct {
	store    repository.VariantStore
	fetcher  ImageFetcher
	uploader ObjectUploader
}

// NewImageMirrorService constructs an ImageMirrorService.
func NewImageMirrorService(store repository.VariantStore, fetcher ImageFetcher, uploader ObjectUploader) *ImageMirrorService {
	return &ImageMirrorService{store: store, fetcher: fetcher, uploader: uploader}
}

// Mirror downloads sourceURL and stores it as the image of the color
// variant. On failure the variant keeps the source URL with status failed.
func (s *ImageMirrorService) Mirror(ctx context.Context, colorVariantID int, sourceURL string) error {
	img, err := s.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		s.markFailed(ctx, colorVariantID, sourceURL, err)
		return fmt.Errorf("fetch image of color variant %d: %w", colorVariantID, err)
	}

	key := fmt.Sprintf("products/variants/%d/%s%s", colorVariantID, uuid.NewString(), img.Extension())
	ref, err := s.uploader.Upload(ctx, key, img.Data, img.ContentType)
	if err != nil {
		s.markFailed(ctx, colorVariantID, sourceURL, err)
		return fmt.Errorf("upload image of color variant %d: %w", colorVariantID, err)
	}

	if err := s.store.UpdateColorVariantImage(ctx, colorVariantID, ref, models.ImageStored); err != nil {
		return fmt.Errorf("store image of color variant %d: %w", colorVariantID, err)
	}
	log.Info().Int("color_variant_id", colorVariantID).Str("ref", ref).Msg("image mirrored")
	return nil
}

// Pending returns color variants whose image still awaits mirroring.
func (s *ImageMirrorService) Pending(ctx context.Context, limit int) ([]models.ColorVariant, error) {
	return s.store.ListPendingImages(ctx, limit)
}

func (s *ImageMirrorService) markFailed(ctx context.Context, colorVariantID int, sourceURL string, cause error) {
	log.Warn().Err(cause).Int("color_variant_id", colorVariantID).Str("source", sourceURL).Msg("image mirror failed")
	if err := s.store.UpdateColorVariantImage(ctx, colorVariantID, sourceURL, models.ImageFailed); err != nil {
		log.Error().Err(err).Int("color_variant_id", colorVariantID).Msg("failed to mark image as failed")
	}
}
