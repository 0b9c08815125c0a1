package service

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// GradeProfile maps grade names containing any of Keywords onto a size list.
// Sizes may be given literally or as an inclusive numeric From..To range.
type GradeProfile struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Sizes    []string `yaml:"sizes"`
	From     int      `yaml:"from"`
	To       int      `yaml:"to"`
}

// GradeProfiles is the ordered table used to synthesize templates for new
// grades. The first profile with a matching keyword wins; Default applies
// when none match.
type GradeProfiles struct {
	Profiles []GradeProfile `yaml:"profiles"`
	Default  GradeProfile   `yaml:"default"`
}

// DefaultGradeProfiles returns the built-in table.
func DefaultGradeProfiles() *GradeProfiles {
	return &GradeProfiles{
		Profiles: []GradeProfile{
			{Name: "feminino", Keywords: []string{"feminin"}, Sizes: sizeRange(34, 40)},
			{Name: "masculino", Keywords: []string{"masculin"}, Sizes: sizeRange(38, 44)},
			{Name: "infantil", Keywords: []string{"infantil", "criança", "crianca"}, Sizes: sizeRange(20, 33)},
		},
		Default: GradeProfile{Name: "unissex", Sizes: sizeRange(35, 42)},
	}
}

// LoadGradeProfiles reads a YAML profile table from path. An empty path
// yields the built-in table.
func LoadGradeProfiles(path string) (*GradeProfiles, error) {
	if path == "" {
		return DefaultGradeProfiles(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grade profiles: %w", err)
	}
	return ParseGradeProfiles(data)
}

// ParseGradeProfiles decodes and validates a YAML profile table.
func ParseGradeProfiles(data []byte) (*GradeProfiles, error) {
	var p GradeProfiles
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse grade profiles: %w", err)
	}
	for i := range p.Profiles {
		p.Profiles[i].expand()
	}
	p.Default.expand()
	if p.Default.Name == "" {
		p.Default.Name = "default"
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate rejects profiles without sizes or keywords and duplicate sizes.
func (p *GradeProfiles) Validate() error {
	for _, profile := range p.Profiles {
		if profile.Name == "" {
			return errors.New("grade profile without name")
		}
		if len(profile.Keywords) == 0 {
			return fmt.Errorf("grade profile %q has no keywords", profile.Name)
		}
		for _, kw := range profile.Keywords {
			if strings.TrimSpace(kw) == "" {
				return fmt.Errorf("grade profile %q has an empty keyword", profile.Name)
			}
		}
		if err := profile.validateSizes(); err != nil {
			return err
		}
	}
	return p.Default.validateSizes()
}

// Classify returns the profile for a grade name. Matching is a
// case-insensitive substring test.
func (p *GradeProfiles) Classify(gradeName string) GradeProfile {
	lower := strings.ToLower(gradeName)
	for _, profile := range p.Profiles {
		for _, kw := range profile.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return profile
			}
		}
	}
	return p.Default
}

func (g *GradeProfile) expand() {
	if len(g.Sizes) == 0 && g.From > 0 && g.To >= g.From {
		g.Sizes = sizeRange(g.From, g.To)
	}
	for i, s := range g.Sizes {
		g.Sizes[i] = strings.TrimSpace(s)
	}
}

func (g GradeProfile) validateSizes() error {
	if len(g.Sizes) == 0 {
		return fmt.Errorf("grade profile %q has no sizes", g.Name)
	}
	seen := make(map[string]bool, len(g.Sizes))
	for _, s := range g.Sizes {
		if s == "" {
			return fmt.Errorf("grade profile %q has an empty size", g.Name)
		}
		if seen[s] {
			return fmt.Errorf("grade profile %q repeats size %s", g.Name, s)
		}
		seen[s] = true
	}
	return nil
}

func sizeRange(from, to int) []string {
	out := make([]string, 0, to-from+1)
	for n := from; n <= to; n++ {
		out = append(out, strconv.Itoa(n))
	}
	return out
}
