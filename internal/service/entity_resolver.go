package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gradeshop_api/internal/models"
	"github.com/GTDGit/gradeshop_api/internal/repository"
)

var defaultLookupDescriptions = map[models.LookupKind]string{
	models.LookupCategory: "Categoria criada pela importação",
	models.LookupType:     "Tipo criado pela importação",
	models.LookupGender:   "Gênero criado pela importação",
	models.LookupColor:    "Cor criada pela importação",
	models.LookupSize:     "Tamanho criado pela importação",
}

// EntityResolver maps names of simple lookup entities onto ids, creating
// missing rows on first reference.
type EntityResolver struct {
	store repository.LookupStore
}

// NewEntityResolver constructs an EntityResolver over store. Pass the
// transactional store when resolution must join a transaction.
func NewEntityResolver(store repository.LookupStore) *EntityResolver {
	return &EntityResolver{store: store}
}

// ResolveOrCreate returns the id of the kind row named name, inserting it when
// absent. created reports whether this call inserted the row. A lost insert
// race is retried once through the lookup; if the winning row is still not
// visible repository.ErrConstraintRace is returned.
func (r *EntityResolver) ResolveOrCreate(ctx context.Context, kind models.LookupKind, name string) (id int, created bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false, invalid(0, string(kind), "name is required")
	}

	existing, err := r.store.FindLookup(ctx, kind, name)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return 0, false, fmt.Errorf("find %s %q: %w", kind, name, err)
	}

	id, err = r.store.CreateLookup(ctx, kind, name, defaultLookupDescriptions[kind])
	if err == nil {
		log.Debug().Str("kind", string(kind)).Str("name", name).Int("id", id).Msg("lookup created")
		return id, true, nil
	}
	if !errors.Is(err, repository.ErrConstraintRace) {
		return 0, false, fmt.Errorf("create %s %q: %w", kind, name, err)
	}

	log.Debug().Str("kind", string(kind)).Str("name", name).Msg("lookup insert raced, retrying lookup")
	existing, err = r.store.FindLookup(ctx, kind, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, false, fmt.Errorf("resolve %s %q: %w", kind, name, repository.ErrConstraintRace)
		}
		return 0, false, fmt.Errorf("find %s %q: %w", kind, name, err)
	}
	return existing.ID, false, nil
}
