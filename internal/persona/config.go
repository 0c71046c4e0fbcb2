package persona

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Built-in persona names
const (
	Developer  = "Developer"
	Planner    = "Planner"
	NoviceUser = "Novice User"
	Designer   = "Designer"
	Marketer   = "Marketer"
)

// BuiltinProfiles returns the personas shipped with protoeval
func BuiltinProfiles() []Profile {
	return []Profile{
		{
			Name:            Developer,
			Description:     "Backend developer with five years of experience. Cares about technical detail and prefers efficiency and logical structure.",
			Characteristics: "tech-savvy, logical thinker, values efficiency, prefers functionality over elaborate UI",
		},
		{
			Name:            Planner,
			Description:     "Product planner with three years of experience. Balances user experience against business value.",
			Characteristics: "user-centred, weighs business impact, prefers data-driven decisions",
		},
		{
			Name:            NoviceUser,
			Description:     "A general user in their forties who is not comfortable with IT. Prefers intuitive, simple interfaces.",
			Characteristics: "not tech-savvy, values intuitiveness, avoids complex features, needs clear guidance",
		},
		{
			Name:            Designer,
			Description:     "UI/UX designer who cares about visual consistency and user experience.",
			Characteristics: "values visual consistency, user experience expert, considers accessibility, follows trends",
		},
		{
			Name:            Marketer,
			Description:     "Digital marketer focused on conversion rate and user engagement.",
			Characteristics: "conversion-focused, interested in engagement, prefers clear CTAs, considers branding",
		},
	}
}

// DefaultSelection is the preselection used by the built-in catalog
func DefaultSelection() []string {
	return []string{Developer, NoviceUser}
}

// DefaultCatalog returns the built-in catalog
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(BuiltinProfiles(), DefaultSelection())
	if err != nil {
		// built-in table is static
		panic(err)
	}
	return c
}

// LoadCatalog loads a persona catalog from a YAML file.
// An empty path returns the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		log.Debug().Msg("Using built-in persona catalog")
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona catalog: %w", err)
	}

	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse persona catalog %s: %w", path, err)
	}

	defaults := file.DefaultSelection
	if len(defaults) == 0 && len(file.Personas) > 0 {
		defaults = []string{file.Personas[0].Name}
	}

	catalog, err := NewCatalog(file.Personas, defaults)
	if err != nil {
		return nil, fmt.Errorf("invalid persona catalog %s: %w", path, err)
	}

	log.Debug().Str("path", path).Int("count", len(file.Personas)).Msg("Loaded persona catalog")
	return catalog, nil
}
