package recipeimage

import (
	"os"
	"strconv"
	"sync"
)

// Config contains all configuration options for a Project.
type Config struct {
	// ResourcePack is the path to the project's resource pack.
	ResourcePack string
	// BehaviorPack is the path to the project's behavior pack.
	BehaviorPack string
	// Workspace is the project workspace directory. Generated images,
	// project templates, fonts and the project data map live here.
	Workspace string
	// SharedData is the shared asset database directory (templates, RP,
	// block-images, data_map shared between projects).
	SharedData string
	// Template is the name of the template to render, without extension.
	Template string
	// Scale is the global multiplier applied to every generated image.
	Scale float64
	// Interactive enables the interactive texture-resolution fallback.
	Interactive bool
	// LogLevel controls the verbosity of logging (debug, info, warn, error)
	LogLevel string
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Template: "custom_template",
		Scale:    1,
		LogLevel: "info",
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	if val := os.Getenv("RECIPE_IMAGE_RESOURCE_PACK"); val != "" {
		config.ResourcePack = val
	}
	if val := os.Getenv("RECIPE_IMAGE_BEHAVIOR_PACK"); val != "" {
		config.BehaviorPack = val
	}
	if val := os.Getenv("RECIPE_IMAGE_WORKSPACE"); val != "" {
		config.Workspace = val
	}
	if val := os.Getenv("RECIPE_IMAGE_SHARED_DATA"); val != "" {
		config.SharedData = val
	}
	if val := os.Getenv("RECIPE_IMAGE_TEMPLATE"); val != "" {
		config.Template = val
	}
	if val := os.Getenv("RECIPE_IMAGE_SCALE"); val != "" {
		if scale, err := strconv.ParseFloat(val, 64); err == nil && scale > 0 {
			config.Scale = scale
		}
	}
	if val := os.Getenv("RECIPE_IMAGE_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	return config
}

// GetGlobalConfig returns the process-wide configuration, initializing it
// from the environment on first use.
func GetGlobalConfig() *Config {
	configOnce.Do(func() {
		globalConfig = ConfigFromEnvironment()
	})
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()
	return globalConfig
}

// SetGlobalConfig replaces the process-wide configuration.
func SetGlobalConfig(config *Config) {
	configOnce.Do(func() {})
	globalConfigMutex.Lock()
	defer globalConfigMutex.Unlock()
	globalConfig = config
}
