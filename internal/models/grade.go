package models

import "time"

// Grade is a named kit of sizes sold as one unit.
type Grade struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"nome"`
	Description string    `db:"description" json:"descricao"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
}

// GradeTemplate is one size line of a grade. SizeName is filled by joins.
type GradeTemplate struct {
	ID               int    `db:"id" json:"id"`
	GradeID          int    `db:"grade_id" json:"grade_id"`
	SizeID           int    `db:"size_id" json:"tamanho_id"`
	SizeName         string `db:"size_name" json:"tamanho"`
	RequiredQuantity int    `db:"required_quantity" json:"quantidade"`
	DisplayOrder     int    `db:"display_order" json:"ordem"`
}
