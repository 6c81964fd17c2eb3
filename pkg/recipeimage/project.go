package recipeimage

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// TexturePathGetter supplies a texture path for an item that no automatic
// resolution stage could find. Implementations may block (the GUI shell
// forwards the request across a queue); returning ErrTextureDeclined passes
// the request on to the next registered getter.
type TexturePathGetter func(item string, data int, recipeName string) (string, error)

// Project drives the template resolution, texture resolution and image
// compositing pipeline for one workspace.
type Project struct {
	config *Config
	logger *Logger
	cache  *DataMapCache

	interactive    atomic.Bool
	textureGetters []TexturePathGetter

	// Assigned at plan time per emitted page, monotonically increasing,
	// shared across the whole run, never reused.
	imageNumber int
}

// NewProject creates a project around the given configuration. The
// configuration must name a workspace and the shared data directory; both
// are required before any rendering can be attempted.
func NewProject(config *Config) (*Project, error) {
	if config == nil {
		config = GetGlobalConfig()
	}
	if config.Workspace == "" {
		return nil, NewTemplateError("the workspace directory is not configured")
	}
	if config.SharedData == "" {
		return nil, NewTemplateError(
			"the shared data directory is not configured; point it at a " +
				"checkout of the shared asset database")
	}
	if config.Scale <= 0 {
		config.Scale = 1
	}
	p := &Project{
		config: config,
		logger: GetLogger(),
		cache:  NewDataMapCache(),
	}
	p.interactive.Store(config.Interactive)
	return p, nil
}

// Config returns the project's configuration.
func (p *Project) Config() *Config {
	return p.config
}

// Cache returns the project's data-map cache.
func (p *Project) Cache() *DataMapCache {
	return p.cache
}

// SetInteractive toggles the interactive texture-resolution fallback. The
// flag may be flipped at any time, including mid-run.
func (p *Project) SetInteractive(enabled bool) {
	p.interactive.Store(enabled)
}

// InteractiveEnabled reports whether the interactive fallback is active.
func (p *Project) InteractiveEnabled() bool {
	return p.interactive.Load()
}

// RegisterTextureGetter appends an interactive texture getter. Getters are
// invoked in registration order.
func (p *Project) RegisterTextureGetter(getter TexturePathGetter) {
	p.textureGetters = append(p.textureGetters, getter)
}

// Resource-pack search roots, project before shared.
func (p *Project) rpPaths() []string {
	return []string{
		p.config.ResourcePack,
		filepath.Join(p.config.SharedData, "RP"),
	}
}

// Block-image search roots, workspace before shared.
func (p *Project) blockImagesPaths() []string {
	return []string{
		filepath.Join(p.config.Workspace, "block-images"),
		filepath.Join(p.config.SharedData, "block-images"),
	}
}

func (p *Project) imageDirs() []string {
	return []string{
		filepath.Join(p.config.Workspace, "images"),
		filepath.Join(p.config.SharedData, "images"),
	}
}

func (p *Project) fontDirs() []string {
	return []string{
		filepath.Join(p.config.Workspace, "fonts"),
		filepath.Join(p.config.SharedData, "fonts"),
	}
}

func (p *Project) templateDirs() []string {
	return []string{
		filepath.Join(p.config.Workspace, "templates"),
		filepath.Join(p.config.SharedData, "templates"),
	}
}

// OutputDir is where generated images are written.
func (p *Project) OutputDir() string {
	return filepath.Join(p.config.Workspace, "generated-images")
}

// LoadTemplate loads a template document by name, searching the workspace
// templates directory before the shared one.
func (p *Project) LoadTemplate(name string) (map[string]interface{}, error) {
	path, err := FindExistingSubpath(p.templateDirs(), name+".json")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &TemplateError{
			Message: "cannot parse template " + path, Cause: err}
	}
	return doc, nil
}

// RecipeFiles returns the paths of every recipe document in the behavior
// pack, in lexical walk order.
func (p *Project) RecipeFiles() []string {
	var paths []string
	root := filepath.Join(p.config.BehaviorPack, "recipes")
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	return paths
}

// loadRecipeProperties reads the workspace's recipe property document. A
// missing document yields an empty store; a malformed one is fatal.
func (p *Project) loadRecipeProperties() (*RecipeProperties, error) {
	props := NewRecipeProperties()
	path := filepath.Join(p.config.Workspace, "recipe_properties.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return props, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, &props.Bags); err != nil {
		return nil, &TemplateError{
			Message: "recipe_properties.json must be a mapping", Cause: err}
	}
	return props, nil
}
