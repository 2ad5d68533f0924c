package config

import (
	"github.com/watchfire-io/hookwatch/internal/models"
)

// LoadSettings loads the global settings from ~/.hookwatch/settings.yaml.
// If the file doesn't exist, returns default settings.
func LoadSettings() (*models.Settings, error) {
	path, err := GlobalSettingsFile()
	if err != nil {
		return nil, err
	}
	settings, err := LoadYAMLOrDefault(path, models.NewSettings)
	if err != nil {
		return nil, err
	}
	settings.ApplyDefaults()
	return settings, nil
}

// LoadSettingsOrDefault is LoadSettings for hook paths that must not fail:
// an unreadable file yields the defaults.
func LoadSettingsOrDefault() *models.Settings {
	settings, err := LoadSettings()
	if err != nil {
		return models.NewSettings()
	}
	return settings
}

// SaveSettings saves the global settings to ~/.hookwatch/settings.yaml.
func SaveSettings(settings *models.Settings) error {
	path, err := GlobalSettingsFile()
	if err != nil {
		return err
	}
	return SaveYAML(path, settings)
}
