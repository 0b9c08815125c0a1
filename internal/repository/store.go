package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gradeshop_api/internal/models"
)

// LookupStore persists the simple named lookup entities.
type LookupStore interface {
	FindLookup(ctx context.Context, kind models.LookupKind, name string) (*models.Lookup, error)
	// CreateLookup returns ErrConstraintRace when a row with the same name
	// already exists.
	CreateLookup(ctx context.Context, kind models.LookupKind, name, description string) (int, error)
	ListLookups(ctx context.Context, kind models.LookupKind) ([]models.Lookup, error)
}

// ProductStore persists products.
type ProductStore interface {
	GetProductByCode(ctx context.Context, code string) (*models.Product, error)
	GetProductByID(ctx context.Context, id int) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	PatchProduct(ctx context.Context, id int, patch models.ProductPatch) error
	SetStockStrategy(ctx context.Context, id int, strategy models.StockStrategy) error
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, int, error)
}

// GradeStore persists grades and their size templates.
type GradeStore interface {
	FindGrade(ctx context.Context, name string) (*models.Grade, error)
	GetGrade(ctx context.Context, id int) (*models.Grade, error)
	// CreateGrade returns ErrConstraintRace when the name is already taken.
	CreateGrade(ctx context.Context, name, description string) (int, error)
	ListGrades(ctx context.Context) ([]models.Grade, error)
	CreateGradeTemplate(ctx context.Context, t *models.GradeTemplate) error
	ListGradeTemplates(ctx context.Context, gradeID int) ([]models.GradeTemplate, error)
	UpdateGradeTemplateQuantity(ctx context.Context, gradeID, sizeID, quantity int) error
}

// VariantStore persists color variants, size variants and grade links.
type VariantStore interface {
	FindColorVariant(ctx context.Context, productID, colorID int) (*models.ColorVariant, error)
	CountColorVariants(ctx context.Context, productID int) (int, error)
	CreateColorVariant(ctx context.Context, cv *models.ColorVariant) error
	// CreateSizeVariant is a no-op for an existing (product, color, size)
	// triple; sv.ID is set either way.
	CreateSizeVariant(ctx context.Context, sv *models.SizeVariant) error
	// LinkGrade is a no-op for an existing (product, color, grade) triple.
	LinkGrade(ctx context.Context, productID, colorID, gradeID int) (int, error)
	ListColorVariants(ctx context.Context, productID int) ([]models.ColorVariant, error)
	ListSizeVariants(ctx context.Context, productID int) ([]models.SizeVariant, error)
	ListPendingImages(ctx context.Context, limit int) ([]models.ColorVariant, error)
	UpdateColorVariantImage(ctx context.Context, id int, ref string, status models.ImageStatus) error
}

// StockStore reads and writes both stock ledgers.
type StockStore interface {
	GetSizeStock(ctx context.Context, productID, colorID, sizeID int) (int, error)
	SetSizeStock(ctx context.Context, productID, colorID, sizeID, quantity int) error
	GetGradeStock(ctx context.Context, productID, colorID, gradeID int) (int, error)
	SetGradeStock(ctx context.Context, productID, colorID, gradeID, quantity int) error
	ListGradeStock(ctx context.Context, productID int) ([]models.ProductColorGrade, error)
	// RefreshStockTotals recomputes color_variants.stock_total from the
	// ledger selected by strategy.
	RefreshStockTotals(ctx context.Context, productID int, strategy models.StockStrategy) error
}

// Store is the transactional catalog data store consumed by the services.
type Store interface {
	LookupStore
	ProductStore
	GradeStore
	VariantStore
	StockStore

	// WithTx runs fn inside one transaction; fn's error rolls it back.
	// Calling WithTx on a store that is already transactional reuses it.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

// SQLStore implements Store on PostgreSQL through sqlx.
type SQLStore struct {
	db *sqlx.DB
	q  sqlx.ExtContext
	tx *sqlx.Tx
}

// NewStore creates a Store backed by db.
func NewStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, q: db}
}

// WithTx implements Store.
func (s *SQLStore) WithTx(ctx context.Context, fn func(tx Store) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", classify(err))
	}
	txStore := &SQLStore{db: s.db, q: tx, tx: tx}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Warn().Err(rbErr).Msg("transaction rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", classify(err))
	}
	return nil
}
