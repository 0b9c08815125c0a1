package models

import "time"

// ImageStatus tracks mirroring of a color variant's source image.
type ImageStatus string

const (
	ImageNone    ImageStatus = "none"
	ImagePending ImageStatus = "pending"
	ImageStored  ImageStatus = "stored"
	ImageFailed  ImageStatus = "failed"
)

// ColorVariant is a product in one color. StockTotal is a denormalized summary
// of the authoritative ledger for the product's stock strategy.
type ColorVariant struct {
	ID            int         `db:"id" json:"id"`
	ProductID     int         `db:"product_id" json:"produto_id"`
	ColorID       int         `db:"color_id" json:"cor_id"`
	ColorName     string      `db:"color_name" json:"cor"`
	VariantName   string      `db:"variant_name" json:"nome_variante"`
	SKU           *string     `db:"sku" json:"sku,omitempty"`
	PriceOverride *float64    `db:"price_override" json:"preco,omitempty"`
	ImageRef      *string     `db:"image_ref" json:"foto,omitempty"`
	ImageStatus   ImageStatus `db:"image_status" json:"foto_status"`
	StockTotal    int         `db:"stock_total" json:"estoque_total"`
	IsActive      bool        `db:"is_active" json:"ativo"`
	IsMainCatalog bool        `db:"is_main_catalog" json:"principal"`
	CreatedAt     time.Time   `db:"created_at" json:"-"`
}

// SizeVariant is a purchasable (product, color, size) unit.
type SizeVariant struct {
	ID            int       `db:"id" json:"id"`
	ProductID     int       `db:"product_id" json:"produto_id"`
	ColorID       int       `db:"color_id" json:"cor_id"`
	SizeID        int       `db:"size_id" json:"tamanho_id"`
	SizeName      string    `db:"size_name" json:"tamanho"`
	Stock         int       `db:"stock" json:"estoque"`
	PriceOverride *float64  `db:"price_override" json:"preco,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"-"`
}

// ProductColorGrade associates a grade with a product color and holds the
// number of complete kits available.
type ProductColorGrade struct {
	ID            int    `db:"id" json:"id"`
	ProductID     int    `db:"product_id" json:"produto_id"`
	ColorID       int    `db:"color_id" json:"cor_id"`
	GradeID       int    `db:"grade_id" json:"grade_id"`
	GradeName     string `db:"grade_name" json:"grade"`
	StockQuantity int    `db:"stock_quantity" json:"estoque"`
}
