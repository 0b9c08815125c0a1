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

// GradeSynthesizer resolves grades by name and creates missing ones with a
// size template chosen from the profile table.
type GradeSynthesizer struct {
	grades   repository.GradeStore
	resolver *EntityResolver
	profiles *GradeProfiles
}

// NewGradeSynthesizer constructs a GradeSynthesizer. Sizes are resolved
// through resolver.
func NewGradeSynthesizer(grades repository.GradeStore, resolver *EntityResolver, profiles *GradeProfiles) *GradeSynthesizer {
	if profiles == nil {
		profiles = DefaultGradeProfiles()
	}
	return &GradeSynthesizer{grades: grades, resolver: resolver, profiles: profiles}
}

// ResolveOrCreateGrade returns the id of the grade named name. An existing
// grade is returned as is; its templates are never regenerated. A new grade
// gets one template per profile size with a required quantity of zero.
func (g *GradeSynthesizer) ResolveOrCreateGrade(ctx context.Context, name string) (id int, created bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false, invalid(0, "grade", "name is required")
	}

	existing, err := g.grades.FindGrade(ctx, name)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return 0, false, fmt.Errorf("find grade %q: %w", name, err)
	}

	profile := g.profiles.Classify(name)
	id, err = g.grades.CreateGrade(ctx, name, fmt.Sprintf("Grade gerada pela importação (perfil %s)", profile.Name))
	if errors.Is(err, repository.ErrConstraintRace) {
		// Another writer created it along with its templates.
		existing, err = g.grades.FindGrade(ctx, name)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return 0, false, fmt.Errorf("resolve grade %q: %w", name, repository.ErrConstraintRace)
			}
			return 0, false, fmt.Errorf("find grade %q: %w", name, err)
		}
		return existing.ID, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("create grade %q: %w", name, err)
	}

	for order, size := range profile.Sizes {
		sizeID, _, err := g.resolver.ResolveOrCreate(ctx, models.LookupSize, size)
		if err != nil {
			return 0, false, fmt.Errorf("grade %q size %s: %w", name, size, err)
		}
		tpl := &models.GradeTemplate{
			GradeID:          id,
			SizeID:           sizeID,
			RequiredQuantity: 0,
			DisplayOrder:     order,
		}
		if err := g.grades.CreateGradeTemplate(ctx, tpl); err != nil {
			return 0, false, fmt.Errorf("grade %q template %s: %w", name, size, err)
		}
	}

	log.Info().
		Str("grade", name).
		Str("profile", profile.Name).
		Int("sizes", len(profile.Sizes)).
		Msg("grade synthesized")

	return id, true, nil
}
