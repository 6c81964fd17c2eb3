package recipeimage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TextureMap maps an item identifier to a map from data variant (as string)
// to a symbolic texture path ("RP/..." or "block-images/...").
type TextureMap map[string]map[string]string

// Merge returns a new texture map holding the entries of base overridden by
// the entries of override. Overriding happens per item identifier, the way
// project-local maps take precedence over shared ones.
func (m TextureMap) Merge(override TextureMap) TextureMap {
	result := make(TextureMap, len(m)+len(override))
	for k, v := range m {
		result[k] = v
	}
	for k, v := range override {
		result[k] = v
	}
	return result
}

// Lookup resolves an item identifier plus data variant to a symbolic path.
func (m TextureMap) Lookup(item string, data int) (string, bool) {
	variants, ok := m[item]
	if !ok {
		return "", false
	}
	path, ok := variants[fmt.Sprint(data)]
	return path, ok
}

// DataMapCache caches the persisted data-map documents and the texture maps
// derived from resource packs for the lifetime of one run. It is constructed
// once per run and passed by reference to resolution calls; the cached maps
// are mutated in place when the interactive fallback persists a new path.
type DataMapCache struct {
	dataMaps map[string]TextureMap
	rpMaps   map[string]TextureMap
}

// NewDataMapCache creates an empty cache.
func NewDataMapCache() *DataMapCache {
	return &DataMapCache{
		dataMaps: make(map[string]TextureMap),
		rpMaps:   make(map[string]TextureMap),
	}
}

// DataMap returns the data-map document at path, loading it on first use.
// A missing or unreadable document yields an empty, still-cached map.
func (c *DataMapCache) DataMap(path string) TextureMap {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if m, ok := c.dataMaps[abs]; ok {
		return m
	}
	m := TextureMap{}
	if data, err := os.ReadFile(abs); err == nil {
		if err := yaml.Unmarshal(data, &m); err != nil {
			GetLogger().Warn("Cannot parse data map %s: %v", abs, err)
			m = TextureMap{}
		}
	}
	c.dataMaps[abs] = m
	return m
}

// SaveDataMap flushes the cached data map back to its file. Documents are
// read leniently but written as plain JSON with sorted keys so the output
// stays diff-friendly.
func (c *DataMapCache) SaveDataMap(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	m := c.DataMap(abs)
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(abs, data, 0o644)
}

// ResourcePackMap returns the texture map derived from a resource pack's
// textures/item_texture.json document, loading it on first use. A missing
// document yields an empty, still-cached map.
func (c *DataMapCache) ResourcePackMap(rpPath string) TextureMap {
	abs, err := filepath.Abs(rpPath)
	if err != nil {
		abs = rpPath
	}
	if m, ok := c.rpMaps[abs]; ok {
		return m
	}
	m, err := textureMapFromResourcePack(abs)
	if err != nil {
		m = TextureMap{}
	}
	c.rpMaps[abs] = m
	return m
}

func textureMapFromResourcePack(rpPath string) (TextureMap, error) {
	path := filepath.Join(rpPath, "textures", "item_texture.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		TextureData map[string]struct {
			Textures interface{} `yaml:"textures"`
		} `yaml:"texture_data"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	result := TextureMap{}
	for name, entry := range doc.TextureData {
		switch textures := entry.Textures.(type) {
		case string:
			result[name] = map[string]string{"0": "RP/" + textures}
		case []interface{}:
			variants := make(map[string]string, len(textures))
			for i, t := range textures {
				s, ok := t.(string)
				if !ok {
					continue
				}
				variants[fmt.Sprint(i)] = "RP/" + s
			}
			result[name] = variants
		default:
			GetLogger().Warn(
				"Texture %q in %s is not a string or a list of strings. Skipped.",
				name, path)
		}
	}
	return result, nil
}

// Raster extensions tried when resolving a symbolic path, in preference
// order.
var textureExtensions = []string{".png", ".tga"}

// FindExistingSubpath returns the first root/subpath combination that names
// an existing file, trying the roots in declared priority order.
func FindExistingSubpath(roots []string, subpath string) (string, error) {
	searched := make([]string, 0, len(roots))
	for _, root := range roots {
		candidate := filepath.Join(root, subpath)
		searched = append(searched, candidate)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", &PathNotFoundError{Subpath: subpath, Searched: searched}
}

// ResolveSymbolicPath turns a stored symbolic path into a concrete file
// path. The leading prefix tag selects which roots to search ("RP/" for the
// resource-pack roots, "block-images/" for the block-image roots); the
// concrete file is found by trying the known raster extensions in order.
func ResolveSymbolicPath(
	symbolic string, rpPaths, blockImagesPaths []string,
) (string, error) {
	type prefixed struct {
		root   string
		prefix string
	}
	var candidates []prefixed
	for _, p := range rpPaths {
		candidates = append(candidates, prefixed{p, "RP/"})
	}
	for _, p := range blockImagesPaths {
		candidates = append(candidates, prefixed{p, "block-images/"})
	}
	for _, c := range candidates {
		if !strings.HasPrefix(symbolic, c.prefix) {
			continue
		}
		base := filepath.Join(c.root, strings.TrimPrefix(symbolic, c.prefix))
		for _, ext := range textureExtensions {
			if _, err := os.Stat(base + ext); err == nil {
				return base + ext, nil
			}
		}
	}
	return "", NewTextureNotFoundError("", "could not find image from path: "+symbolic)
}
