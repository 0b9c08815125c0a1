package models

import "time"

// LookupKind enumerates the simple named entities resolved during import.
type LookupKind string

const (
	LookupCategory LookupKind = "category"
	LookupType     LookupKind = "type"
	LookupGender   LookupKind = "gender"
	LookupColor    LookupKind = "color"
	LookupSize     LookupKind = "size"
)

// LookupKinds lists every kind in display order.
var LookupKinds = []LookupKind{LookupCategory, LookupType, LookupGender, LookupColor, LookupSize}

// Valid reports whether k is a known kind.
func (k LookupKind) Valid() bool {
	for _, known := range LookupKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Lookup is a row of one of the named lookup tables.
type Lookup struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"nome"`
	Description string    `db:"description" json:"descricao"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
}
