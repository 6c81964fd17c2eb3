package recipeimage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedSettingsRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	saved := CachedSettings{
		ResourcePackPath: "/packs/rp",
		BehaviorPackPath: "/packs/bp",
		WorkspacePath:    "/work",
		ImageScale:       2,
	}
	require.NoError(t, saved.Save())

	loaded := LoadCachedSettings()
	assert.Equal(t, saved, loaded)
}

func TestLoadCachedSettingsMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	loaded := LoadCachedSettings()
	assert.Empty(t, loaded.WorkspacePath)
	assert.Equal(t, float64(1), loaded.ImageScale)
}

func TestLoadCachedSettingsMalformed(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	writeFile(t, filepath.Join(
		configHome, "Shapescape", "recipe-image-generator", "cache", "settings.json"),
		"{not json at all]")

	loaded := LoadCachedSettings()
	assert.Equal(t, float64(1), loaded.ImageScale)
}

func TestCachedSettingsApplyTo(t *testing.T) {
	settings := CachedSettings{
		ResourcePackPath: "/packs/rp",
		BehaviorPackPath: "/packs/bp",
		WorkspacePath:    "/work",
		ImageScale:       2,
	}

	// Unset fields are filled in.
	config := DefaultConfig()
	config.Scale = 0
	settings.ApplyTo(config)
	assert.Equal(t, "/packs/rp", config.ResourcePack)
	assert.Equal(t, "/work", config.Workspace)
	assert.Equal(t, float64(2), config.Scale)

	// Explicit values win over the cache.
	config = DefaultConfig()
	config.Workspace = "/elsewhere"
	settings.ApplyTo(config)
	assert.Equal(t, "/elsewhere", config.Workspace)
	assert.Equal(t, float64(1), config.Scale)
}

func TestFromConfig(t *testing.T) {
	config := &Config{
		ResourcePack: "/packs/rp",
		BehaviorPack: "/packs/bp",
		Workspace:    "/work",
		Scale:        1.5,
	}
	got := FromConfig(config)
	assert.Equal(t, "/packs/rp", got.ResourcePackPath)
	assert.Equal(t, 1.5, got.ImageScale)
}
