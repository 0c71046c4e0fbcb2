package persona

// Profile describes a hypothetical evaluator used to condition the model prompt
type Profile struct {
	Name            string `yaml:"name" json:"name"`
	Description     string `yaml:"description" json:"description"`
	Characteristics string `yaml:"characteristics" json:"characteristics"`
	// Voice is an optional TTS voice id used when narrating this persona's results
	Voice string `yaml:"voice,omitempty" json:"voice,omitempty"`
}

// CatalogFile represents the structure of a persona catalog YAML file
type CatalogFile struct {
	Personas         []Profile `yaml:"personas"`
	DefaultSelection []string  `yaml:"default_selection,omitempty"`
}
