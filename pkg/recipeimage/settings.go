package recipeimage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CachedSettings is the persisted record of the most recently used project
// paths and image scale. It is written under the user config directory so
// the next invocation can offer the previous values as defaults.
type CachedSettings struct {
	ResourcePackPath string  `json:"resource_pack_path" yaml:"resource_pack_path"`
	BehaviorPackPath string  `json:"behavior_pack_path" yaml:"behavior_pack_path"`
	WorkspacePath    string  `json:"local_data_path" yaml:"local_data_path"`
	ImageScale       float64 `json:"image_scale" yaml:"image_scale"`
}

// SettingsPath returns the location of the settings cache file.
func SettingsPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(
		base, "Shapescape", "recipe-image-generator", "cache", "settings.json"), nil
}

// LoadCachedSettings reads the settings cache. A missing or unreadable cache
// yields zero-value settings with scale 1, never an error.
func LoadCachedSettings() CachedSettings {
	settings := CachedSettings{ImageScale: 1}
	path, err := SettingsPath()
	if err != nil {
		return settings
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return settings
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		GetLogger().Warn("Cannot parse settings cache %s: %v", path, err)
		return CachedSettings{ImageScale: 1}
	}
	if settings.ImageScale <= 0 {
		settings.ImageScale = 1
	}
	return settings
}

// Save writes the settings cache, creating the cache directory if needed.
func (s CachedSettings) Save() error {
	path, err := SettingsPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyTo fills the unset fields of a config from the cached settings.
func (s CachedSettings) ApplyTo(config *Config) {
	if config.ResourcePack == "" {
		config.ResourcePack = s.ResourcePackPath
	}
	if config.BehaviorPack == "" {
		config.BehaviorPack = s.BehaviorPackPath
	}
	if config.Workspace == "" {
		config.Workspace = s.WorkspacePath
	}
	if config.Scale <= 0 {
		config.Scale = s.ImageScale
	}
}

// FromConfig captures the reusable parts of a config for the next run.
func FromConfig(config *Config) CachedSettings {
	return CachedSettings{
		ResourcePackPath: config.ResourcePack,
		BehaviorPackPath: config.BehaviorPack,
		WorkspacePath:    config.Workspace,
		ImageScale:       config.Scale,
	}
}
