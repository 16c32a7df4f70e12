package analyzer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings controls the analysis agent. They are loaded from an optional
// YAML file; defaults apply when the file does not exist.
type Settings struct {
	Model            string  `yaml:"model"`
	MaxTokens        int     `yaml:"max_tokens"`
	Temperature      float64 `yaml:"temperature"`
	ContentMaxTokens int     `yaml:"content_max_tokens"`
}

func DefaultSettings() *Settings {
	return &Settings{
		Model:            "claude-sonnet-4-5",
		MaxTokens:        2000,
		Temperature:      0.0,
		ContentMaxTokens: 8000,
	}
}

// LoadSettings reads settings from the given YAML file, falling back to
// defaults when the file is missing. Unset fields keep their defaults.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	if err := settings.validate(); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}

	return settings, nil
}

func (s *Settings) validate() error {
	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if s.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive")
	}
	if s.Temperature < 0 || s.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1")
	}
	if s.ContentMaxTokens <= 0 {
		return fmt.Errorf("content max tokens must be positive")
	}
	return nil
}
