package models

import (
	"fmt"
	"time"
)

// StockStrategy selects which stock ledger is authoritative for a product.
type StockStrategy string

const (
	// StockPerSize tracks stock on each size variant.
	StockPerSize StockStrategy = "per_size"
	// StockPerGrade tracks stock as complete grade kits per color.
	StockPerGrade StockStrategy = "per_grade"
)

// ParseStockStrategy validates a raw strategy value.
func ParseStockStrategy(v string) (StockStrategy, error) {
	switch StockStrategy(v) {
	case StockPerSize, StockPerGrade:
		return StockStrategy(v), nil
	}
	return "", fmt.Errorf("unknown stock strategy %q", v)
}

// Product is a catalog entry identified by its external business code.
type Product struct {
	ID             int           `db:"id" json:"id"`
	Code           string        `db:"code" json:"codigo"`
	Name           string        `db:"name" json:"nome"`
	CategoryID     int           `db:"category_id" json:"categoria_id"`
	TypeID         int           `db:"type_id" json:"tipo_id"`
	GenderID       *int          `db:"gender_id" json:"genero_id,omitempty"`
	Description    string        `db:"description" json:"descricao"`
	BasePrice      float64       `db:"base_price" json:"preco_base"`
	SuggestedPrice *float64      `db:"suggested_price" json:"preco_sugerido,omitempty"`
	IsActive       bool          `db:"is_active" json:"ativo"`
	StockStrategy  StockStrategy `db:"stock_strategy" json:"estrategia_estoque"`
	AllowOversell  bool          `db:"allow_oversell" json:"vender_infinito"`
	CreatedAt      time.Time     `db:"created_at" json:"-"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updatedAt"`
}

// ProductPatch carries the fields of a partial product update. Nil or zero
// fields are left untouched.
type ProductPatch struct {
	Name           string
	CategoryID     *int
	TypeID         *int
	GenderID       *int
	Description    string
	SuggestedPrice *float64
	AllowOversell  *bool
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.Name == "" && p.CategoryID == nil && p.TypeID == nil && p.GenderID == nil &&
		p.Description == "" && p.SuggestedPrice == nil && p.AllowOversell == nil
}
