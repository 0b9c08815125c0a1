package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gradeshop_api/internal/models"
)

var lookupTables = map[models.LookupKind]string{
	models.LookupCategory: "categories",
	models.LookupType:     "product_types",
	models.LookupGender:   "genders",
	models.LookupColor:    "colors",
	models.LookupSize:     "sizes",
}

func lookupTable(kind models.LookupKind) (string, error) {
	table, ok := lookupTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown lookup kind %q", kind)
	}
	return table, nil
}

// FindLookup returns the row of kind with exactly this name.
func (s *SQLStore) FindLookup(ctx context.Context, kind models.LookupKind, name string) (*models.Lookup, error) {
	table, err := lookupTable(kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT id, name, description, created_at FROM %s WHERE name = $1`, table)

	var l models.Lookup
	if err := sqlx.GetContext(ctx, s.q, &l, q, name); err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

// CreateLookup inserts a new named row and returns its id.
func (s *SQLStore) CreateLookup(ctx context.Context, kind models.LookupKind, name, description string) (int, error) {
	table, err := lookupTable(kind)
	if err != nil {
		return 0, err
	}
	q := fmt.Sprintf(`
        INSERT INTO %s (name, description) VALUES ($1, $2)
        ON CONFLICT (name) DO NOTHING
        RETURNING id`, table)

	var id int
	if err := sqlx.GetContext(ctx, s.q, &id, q, name, description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrConstraintRace
		}
		return 0, classify(err)
	}
	return id, nil
}

// ListLookups returns every row of kind ordered by name.
func (s *SQLStore) ListLookups(ctx context.Context, kind models.LookupKind) ([]models.Lookup, error) {
	table, err := lookupTable(kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT id, name, description, created_at FROM %s ORDER BY name`, table)

	var out []models.Lookup
	if err := sqlx.SelectContext(ctx, s.q, &out, q); err != nil {
		return nil, classify(err)
	}
	return out, nil
}
