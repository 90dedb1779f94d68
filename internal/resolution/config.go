package resolution

import (
	"os"

	"gopkg.in/yaml.v3"

	apperrors "allie-graph/pkg/errors"
)

// ============================================================================
// Matching Configuration
// ============================================================================

// TypeConfig controls how entities of one type are matched. Fuzzy properties
// compare by similarity, exact properties only count when identical.
type TypeConfig struct {
	KeyProperties   []string `yaml:"keyProperties"`
	FuzzyProperties []string `yaml:"fuzzyProperties"`
	ExactProperties []string `yaml:"exactProperties"`
	MinScore        float64  `yaml:"minScore"`
}

// Config holds per-type matching configuration plus the fallback applied to
// types without their own entry.
type Config struct {
	Types   map[string]TypeConfig `yaml:"types"`
	Default TypeConfig            `yaml:"default"`
}

// DefaultConfig returns the built-in matching configuration.
func DefaultConfig() *Config {
	return &Config{
		Types: map[string]TypeConfig{
			"person": {
				KeyProperties:   []string{"name", "email", "phone"},
				FuzzyProperties: []string{"name"},
				ExactProperties: []string{"email", "phone", "birthdate"},
				MinScore:        0.75,
			},
			"location": {
				KeyProperties:   []string{"name", "address"},
				FuzzyProperties: []string{"name"},
				ExactProperties: []string{"coordinates"},
				MinScore:        0.7,
			},
			"event": {
				KeyProperties:   []string{"title", "startDate", "location"},
				FuzzyProperties: []string{"title", "description"},
				ExactProperties: []string{"startDate", "endDate"},
				MinScore:        0.8,
			},
			"task": {
				KeyProperties:   []string{"title", "description"},
				FuzzyProperties: []string{"title", "description"},
				ExactProperties: []string{"dueDate"},
				MinScore:        0.7,
			},
			"provider": {
				KeyProperties:   []string{"name", "type"},
				FuzzyProperties: []string{"name"},
				ExactProperties: []string{"phone", "email"},
				MinScore:        0.75,
			},
			"document": {
				KeyProperties:   []string{"title", "content"},
				FuzzyProperties: []string{"title"},
				ExactProperties: []string{"creationDate", "fileType"},
				MinScore:        0.8,
			},
		},
		Default: TypeConfig{
			KeyProperties:   []string{"name", "title", "id"},
			FuzzyProperties: []string{"name", "title", "description"},
			ExactProperties: []string{},
			MinScore:        0.7,
		},
	}
}

// LoadConfig reads a YAML matching configuration and overlays it on the
// defaults. Types in the file replace the default entry for that type.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigValidationFailed("resolution_config", err.Error())
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, apperrors.NewConfigValidationFailed("resolution_config", err.Error())
	}

	config := DefaultConfig()
	for typeName, typeConfig := range override.Types {
		config.Types[typeName] = typeConfig
	}
	if override.Default.MinScore > 0 || len(override.Default.FuzzyProperties) > 0 {
		config.Default = override.Default
	}
	return config, nil
}

// TypeFor returns the matching configuration for an entity type.
func (c *Config) TypeFor(entityType string) TypeConfig {
	if typeConfig, ok := c.Types[entityType]; ok {
		return typeConfig
	}
	return c.Default
}
