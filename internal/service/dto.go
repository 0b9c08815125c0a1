package service

import (
	"math"
	"strings"
)

// ImportRequest is the body of a bulk import call.
type ImportRequest struct {
	Products []ImportProduct `json:"products"`
}

// ImportProduct is one product record of a bulk import. Name, Category and
// Type are only required when the code is not yet known.
type ImportProduct struct {
	Code           string          `json:"codigo"`
	Name           string          `json:"nome"`
	Category       string          `json:"categoria"`
	Type           string          `json:"tipo"`
	Gender         string          `json:"genero,omitempty"`
	Description    string          `json:"descricao,omitempty"`
	SuggestedPrice *float64        `json:"preco_sugerido,omitempty"`
	AllowOversell  *bool           `json:"vender_infinito,omitempty"`
	Variants       []ImportVariant `json:"variantes"`
}

// ImportVariant is one color of an imported product.
type ImportVariant struct {
	Color string  `json:"cor"`
	Price float64 `json:"preco"`
	Grade string  `json:"grade"`
	Photo string  `json:"foto,omitempty"`
	SKU   string  `json:"sku,omitempty"`
}

func (p ImportProduct) normalized() ImportProduct {
	p.Code = strings.TrimSpace(p.Code)
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.Type = strings.TrimSpace(p.Type)
	p.Gender = strings.TrimSpace(p.Gender)
	p.Description = strings.TrimSpace(p.Description)

	variants := make([]ImportVariant, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = ImportVariant{
			Color: strings.TrimSpace(v.Color),
			Price: v.Price,
			Grade: strings.TrimSpace(v.Grade),
			Photo: strings.TrimSpace(v.Photo),
			SKU:   strings.TrimSpace(v.SKU),
		}
	}
	p.Variants = variants
	return p
}

// validate checks the fields that do not depend on stored state.
func (p ImportProduct) validate(record int) error {
	if p.Code == "" {
		return invalid(record, productField(record, "codigo"), "is required")
	}
	if len(p.Variants) == 0 {
		return invalid(record, productField(record, "variantes"), "at least one variant is required")
	}
	if p.SuggestedPrice != nil && !(*p.SuggestedPrice >= 0 && finite(*p.SuggestedPrice)) {
		return invalid(record, productField(record, "preco_sugerido"), "must be a finite number, not negative")
	}
	for j, v := range p.Variants {
		if v.Color == "" {
			return invalid(record, variantField(record, j, "cor"), "is required")
		}
		if !(v.Price > 0 && finite(v.Price)) {
			return invalid(record, variantField(record, j, "preco"), "must be a finite number greater than zero")
		}
		if v.Grade == "" {
			return invalid(record, variantField(record, j, "grade"), "is required")
		}
	}
	return nil
}

// finite rejects the NaN and Inf that strconv.ParseFloat accepts.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ProductStatus is the outcome of reconciling one product record.
type ProductStatus string

const (
	ProductCreated ProductStatus = "created"
	ProductUpdated ProductStatus = "updated"
)

// VariantStatus is the outcome of reconciling one variant.
type VariantStatus string

const (
	VariantCreated  VariantStatus = "created"
	VariantExisting VariantStatus = "existing"
)

// BatchReport aggregates the outcome of an import call.
type BatchReport struct {
	ProductsCreated   int             `json:"produtos_novos"`
	ProductsUpdated   int             `json:"produtos_atualizados"`
	VariantsCreated   int             `json:"variantes_novas"`
	VariantsExisting  int             `json:"variantes_existentes"`
	CategoriesCreated []string        `json:"categorias_criadas"`
	TypesCreated      []string        `json:"tipos_criados"`
	GendersCreated    []string        `json:"generos_criados"`
	ColorsCreated     []string        `json:"cores_criadas"`
	GradesCreated     []string        `json:"grades_criadas"`
	Products          []ProductReport `json:"produtos"`
}

// ProductReport is the per-record part of a BatchReport.
type ProductReport struct {
	Code     string          `json:"codigo"`
	ID       int             `json:"id"`
	Status   ProductStatus   `json:"status"`
	Variants []VariantReport `json:"variantes"`
}

// VariantReport is the per-variant part of a ProductReport.
type VariantReport struct {
	Color          string        `json:"cor"`
	Grade          string        `json:"grade"`
	Status         VariantStatus `json:"status"`
	ColorVariantID int           `json:"color_variant_id"`
	SizeVariantIDs []int         `json:"size_variant_ids"`
}

func newBatchReport() *BatchReport {
	return &BatchReport{
		CategoriesCreated: []string{},
		TypesCreated:      []string{},
		GendersCreated:    []string{},
		ColorsCreated:     []string{},
		GradesCreated:     []string{},
		Products:          []ProductReport{},
	}
}

// recordResult is the outcome of one committed record.
type recordResult struct {
	product    ProductReport
	categories []string
	types      []string
	genders    []string
	colors     []string
	grades     []string
	images     []imageJob
}

type imageJob struct {
	colorVariantID int
	sourceURL      string
}

func (r *BatchReport) merge(res *recordResult) {
	switch res.product.Status {
	case ProductCreated:
		r.ProductsCreated++
	case ProductUpdated:
		r.ProductsUpdated++
	}
	for _, v := range res.product.Variants {
		if v.Status == VariantCreated {
			r.VariantsCreated++
		} else {
			r.VariantsExisting++
		}
	}
	r.CategoriesCreated = appendUnique(r.CategoriesCreated, res.categories...)
	r.TypesCreated = appendUnique(r.TypesCreated, res.types...)
	r.GendersCreated = appendUnique(r.GendersCreated, res.genders...)
	r.ColorsCreated = appendUnique(r.ColorsCreated, res.colors...)
	r.GradesCreated = appendUnique(r.GradesCreated, res.grades...)
	r.Products = append(r.Products, res.product)
}

func appendUnique(list []string, names ...string) []string {
	for _, n := range names {
		seen := false
		for _, existing := range list {
			if existing == n {
				seen = true
				break
			}
		}
		if !seen {
			list = append(list, n)
		}
	}
	return list
}
