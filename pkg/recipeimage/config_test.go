package recipeimage

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.Template != "custom_template" {
		t.Errorf("Template = %q, want %q", config.Template, "custom_template")
	}
	if config.Scale != 1 {
		t.Errorf("Scale = %v, want 1", config.Scale)
	}
	if config.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", config.LogLevel, "info")
	}
	if config.Interactive {
		t.Error("Interactive should default to false")
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("RECIPE_IMAGE_RESOURCE_PACK", "/packs/rp")
	t.Setenv("RECIPE_IMAGE_BEHAVIOR_PACK", "/packs/bp")
	t.Setenv("RECIPE_IMAGE_WORKSPACE", "/work")
	t.Setenv("RECIPE_IMAGE_SHARED_DATA", "/shared")
	t.Setenv("RECIPE_IMAGE_TEMPLATE", "my_book")
	t.Setenv("RECIPE_IMAGE_SCALE", "2.5")
	t.Setenv("RECIPE_IMAGE_LOG_LEVEL", "debug")

	config := ConfigFromEnvironment()
	if config.ResourcePack != "/packs/rp" {
		t.Errorf("ResourcePack = %q", config.ResourcePack)
	}
	if config.BehaviorPack != "/packs/bp" {
		t.Errorf("BehaviorPack = %q", config.BehaviorPack)
	}
	if config.Workspace != "/work" {
		t.Errorf("Workspace = %q", config.Workspace)
	}
	if config.SharedData != "/shared" {
		t.Errorf("SharedData = %q", config.SharedData)
	}
	if config.Template != "my_book" {
		t.Errorf("Template = %q", config.Template)
	}
	if config.Scale != 2.5 {
		t.Errorf("Scale = %v", config.Scale)
	}
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", config.LogLevel)
	}
}

func TestConfigFromEnvironmentInvalidScale(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "big"},
		{"zero", "0"},
		{"negative", "-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RECIPE_IMAGE_SCALE", tt.value)
			config := ConfigFromEnvironment()
			if config.Scale != 1 {
				t.Errorf("Scale = %v, want the default 1", config.Scale)
			}
		})
	}
}

func TestSetGlobalConfig(t *testing.T) {
	original := GetGlobalConfig()
	defer SetGlobalConfig(original)

	replacement := DefaultConfig()
	replacement.Template = "replacement"
	SetGlobalConfig(replacement)

	if got := GetGlobalConfig(); got.Template != "replacement" {
		t.Errorf("GetGlobalConfig().Template = %q, want %q", got.Template, "replacement")
	}
}

func TestNewProjectValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "missing workspace",
			config:  &Config{SharedData: "/shared"},
			wantErr: true,
		},
		{
			name:    "missing shared data",
			config:  &Config{Workspace: "/work"},
			wantErr: true,
		},
		{
			name:   "complete",
			config: &Config{Workspace: "/work", SharedData: "/shared", Scale: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProject(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewProject() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewProjectNormalizesScale(t *testing.T) {
	p, err := NewProject(&Config{Workspace: "/work", SharedData: "/shared", Scale: -3})
	if err != nil {
		t.Fatal(err)
	}
	if p.Config().Scale != 1 {
		t.Errorf("Scale = %v, want 1", p.Config().Scale)
	}
}
