package hud

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Speed units.
const (
	UnitKmh = "kmh"
	UnitMph = "mph"
)

// Settings are the viewer's presentation preferences. The tracker treats
// them as an immutable value; changing a preference means loading a new one.
type Settings struct {
	SpeedUnit      string `yaml:"speed_unit" validate:"oneof=kmh mph"`
	StreamerMode   bool   `yaml:"streamer_mode"`
	PanelCollapsed bool   `yaml:"panel_collapsed"`
}

func DefaultSettings() Settings {
	return Settings{SpeedUnit: UnitMph}
}

var validate = validator.New()

func (s Settings) Validate() error {
	return validate.Struct(s)
}

// LoadSettings reads settings from a YAML file. A missing file yields the
// defaults; keys absent from the file keep their default values.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return DefaultSettings(), fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return s, nil
}

// SaveSettings writes s to path as YAML.
func SaveSettings(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
