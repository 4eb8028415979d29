package services

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gastos/internal/core"
)

// DefaultCategories is the set seeded into an empty category store.
func DefaultCategories() []core.NewCategory {
	return []core.NewCategory{
		{Name: "Alimentos", Color: "emerald"},
		{Name: "Transporte", Color: "blue"},
		{Name: "Vivienda", Color: "amber"},
		{Name: "Entretenimiento", Color: "indigo"},
	}
}

// SeedFile is the YAML shape accepted in place of the built-in defaults:
//
//	categories:
//	  - name: Alimentos
//	    color: emerald
type SeedFile struct {
	Categories []SeedCategory `yaml:"categories"`
}

type SeedCategory struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// LoadSeedFile reads path; an empty path returns DefaultCategories.
func LoadSeedFile(path string) ([]core.NewCategory, error) {
	if path == "" {
		return DefaultCategories(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &core.ParseError{Document: path, Err: err}
	}

	out := make([]core.NewCategory, 0, len(f.Categories))
	seen := make(map[string]bool, len(f.Categories))
	for i, c := range f.Categories {
		nc := core.NewCategory{Name: c.Name, Color: c.Color}
		if err := nc.Validate(); err != nil {
			return nil, &core.ParseError{Document: path, Err: fmt.Errorf("category %d: %w", i, err)}
		}
		if seen[nc.Name] {
			return nil, &core.ParseError{Document: path, Err: fmt.Errorf("category %d: %w", i, &core.DuplicateNameError{Name: nc.Name})}
		}
		seen[nc.Name] = true
		out = append(out, nc)
	}
	return out, nil
}
