package recipeimage

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"gopkg.in/yaml.v3"
)

// Items declare their icon inline in the behavior pack starting with this
// format version; older items keep the icon in the resource pack.
var minIconFormatVersion = [3]int{1, 16, 100}

// ResolveTexture maps a recipe key to a lazy image provider through the
// layered fallback chain: spawn-egg wildcard synthesis, pack icon
// resolution, the persisted data maps and finally the interactive getters.
// The recipe name is only used for interactive requests and messages.
// It fails with a TextureNotFoundError when every stage is exhausted.
func (p *Project) ResolveTexture(key RecipeKey, recipeName string) (ImageProvider, error) {
	if key.IsWildcard() {
		return p.spawnEggProvider(key.Actor)
	}

	// Find the item in the behavior pack, then find its icon name and then
	// find the texture based on the icon name.
	if iconName, err := p.iconName(key); err == nil {
		if provider, err := p.textureFromMap(iconName, key.Data, p.mergedRPTextureMap()); err == nil {
			return provider, nil
		}
	}

	// Persisted data maps keyed by the bare item identifier.
	dataMap := p.cache.DataMap(filepath.Join(p.config.SharedData, "data_map.json")).
		Merge(p.cache.DataMap(filepath.Join(p.config.Workspace, "data_map.json")))
	if provider, err := p.textureFromMap(key.Item, key.Data, dataMap); err == nil {
		return provider, nil
	}

	// Interactive fallback: ask the registered getters, persist the answer.
	if p.InteractiveEnabled() {
		for _, getter := range p.textureGetters {
			path, err := getter(key.Item, key.Data, recipeName)
			if err != nil {
				if errors.Is(err, ErrTextureDeclined) || IsTextureNotFound(err) {
					continue
				}
				return nil, err
			}
			if err := p.saveInDataMap(key.Item, key.Data, path); err != nil {
				return nil, err
			}
			resolved := path
			return func() (image.Image, error) { return OpenImage(resolved) }, nil
		}
	}
	return nil, NewTextureNotFoundError(
		key.String(), "no resolution stage succeeded")
}

// mergedRPTextureMap merges the shared and project resource-pack texture
// maps, project entries taking precedence.
func (p *Project) mergedRPTextureMap() TextureMap {
	shared := p.cache.ResourcePackMap(filepath.Join(p.config.SharedData, "RP"))
	project := p.cache.ResourcePackMap(p.config.ResourcePack)
	return shared.Merge(project)
}

func (p *Project) textureFromMap(name string, data int, m TextureMap) (ImageProvider, error) {
	symbolic, ok := m.Lookup(name, data)
	if !ok {
		return nil, NewTextureNotFoundError(name, "not present in texture map")
	}
	path, err := ResolveSymbolicPath(symbolic, p.rpPaths(), p.blockImagesPaths())
	if err != nil {
		return nil, err
	}
	return func() (image.Image, error) { return OpenImage(path) }, nil
}

// iconName scans the behavior-pack item documents for the item's declared
// icon texture name, falling back to the resource-pack documents that carry
// the icon in the older format.
func (p *Project) iconName(key RecipeKey) (string, error) {
	// Behavior pack, format version >= 1.16.100 (icon declared inline).
	// Item documents normally declare format_version at the top level, but
	// some declare it inside minecraft:item; both are accepted.
	name, found := scanItemDocs(
		filepath.Join(p.config.BehaviorPack, "items"), key.Item,
		func(doc, item map[string]interface{}) (string, bool) {
			version, ok := doc["format_version"]
			if !ok {
				version = item["format_version"]
			}
			if !formatVersionAtLeast(version, minIconFormatVersion) {
				return "", false
			}
			components, _ := item["components"].(map[string]interface{})
			icon, _ := components["minecraft:icon"].(map[string]interface{})
			texture, ok := icon["texture"].(string)
			return texture, ok
		})
	if found {
		return name, nil
	}
	// Resource packs, older format (icon is a plain string).
	for _, rp := range p.rpPaths() {
		name, found = scanItemDocs(
			filepath.Join(rp, "items"), key.Item,
			func(_, item map[string]interface{}) (string, bool) {
				components, _ := item["components"].(map[string]interface{})
				texture, ok := components["minecraft:icon"].(string)
				return texture, ok
			})
		if found {
			return name, nil
		}
	}
	return "", NewTextureNotFoundError(
		key.String(), "unable to find the icon name")
}

// scanItemDocs walks the item documents under root, looking for one whose
// identifier matches and whose extract function yields an icon name.
// Malformed documents are skipped.
func scanItemDocs(
	root, identifier string,
	extract func(doc, item map[string]interface{}) (string, bool),
) (string, bool) {
	var result string
	var found bool
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || found || !strings.HasSuffix(path, ".json") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil
		}
		item, _ := doc["minecraft:item"].(map[string]interface{})
		desc, _ := item["description"].(map[string]interface{})
		if id, _ := desc["identifier"].(string); id != identifier {
			return nil
		}
		if name, ok := extract(doc, item); ok {
			result, found = name, true
		}
		return nil
	})
	return result, found
}

func formatVersionAtLeast(raw interface{}, min [3]int) bool {
	version, ok := raw.(string)
	if !ok {
		return false
	}
	parts := strings.Split(version, ".")
	for i := 0; i < 3; i++ {
		value := 0
		if i < len(parts) {
			n, err := strconv.Atoi(parts[i])
			if err != nil {
				return false
			}
			value = n
		}
		if value != min[i] {
			return value > min[i]
		}
	}
	return true
}

// spawnEggProvider searches the entity definitions of the resource packs for
// the named actor. An entity with an explicit spawn-egg texture resolves
// through the texture map; otherwise the egg bitmap is synthesized from the
// entity's base and overlay colors.
func (p *Project) spawnEggProvider(actor string) (ImageProvider, error) {
	var provider ImageProvider
	for _, rp := range p.rpPaths() {
		root := filepath.Join(rp, "entity")
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || provider != nil || !strings.HasSuffix(path, ".json") {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil
			}
			var doc map[string]interface{}
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return nil
			}
			entity, _ := doc["minecraft:client_entity"].(map[string]interface{})
			desc, _ := entity["description"].(map[string]interface{})
			if id, _ := desc["identifier"].(string); id != actor {
				return nil
			}
			spawnEgg, ok := desc["spawn_egg"].(map[string]interface{})
			if !ok {
				return nil
			}
			candidate, err := p.spawnEggFromEntity(spawnEgg)
			if err != nil {
				GetLogger().Warn("Failed to load entity data from %s: %v", path, err)
				return nil
			}
			provider = candidate
			return nil
		})
		if provider != nil {
			return provider, nil
		}
	}
	return nil, NewTextureNotFoundError(
		spawnEggItem, "unable to find the spawn egg texture of "+actor)
}

func (p *Project) spawnEggFromEntity(spawnEgg map[string]interface{}) (ImageProvider, error) {
	if rawTexture, exists := spawnEgg["texture"]; exists {
		texture, ok := rawTexture.(string)
		if !ok {
			return nil, NewTextureNotFoundError(spawnEggItem, "spawn egg texture is not a string")
		}
		index := 0
		if n, ok := spawnEgg["texture_index"].(int); ok {
			index = n
		}
		return p.textureFromMap(texture, index, p.mergedRPTextureMap())
	}

	// No explicit texture: synthesize the egg from the declared colors.
	// The color strings come as #123456 or #0x123456; the last 6 digits
	// matter.
	baseColor, err := parseHexColor(stringOrDefault(spawnEgg["base_color"], "#000000"))
	if err != nil {
		return nil, err
	}
	overlayColor, err := parseHexColor(stringOrDefault(spawnEgg["overlay_color"], "#000000"))
	if err != nil {
		return nil, err
	}
	basePath, err := FindExistingSubpath(p.rpPaths(), filepath.Join("textures", "items", "spawn_egg.png"))
	if err != nil {
		return nil, err
	}
	overlayPath, err := FindExistingSubpath(p.rpPaths(), filepath.Join("textures", "items", "spawn_egg_overlay.png"))
	if err != nil {
		return nil, err
	}
	return func() (image.Image, error) {
		return synthesizeSpawnEgg(baseColor, overlayColor, basePath, overlayPath)
	}, nil
}

func stringOrDefault(raw interface{}, fallback string) string {
	if s, ok := raw.(string); ok {
		return s
	}
	return fallback
}

// parseHexColor decodes the last six hex digits of a color string as RGB
// with full opacity.
func parseHexColor(s string) (color.NRGBA, error) {
	if len(s) < 6 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	s = s[len(s)-6:]
	value, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{
		R: uint8(value >> 16),
		G: uint8(value >> 8),
		B: uint8(value),
		A: 255,
	}, nil
}

// synthesizeSpawnEgg tints the base and overlay egg silhouettes with their
// colors and composites the overlay atop the base.
func synthesizeSpawnEgg(
	baseColor, overlayColor color.NRGBA, basePath, overlayPath string,
) (image.Image, error) {
	baseImg, err := OpenImage(basePath)
	if err != nil {
		return nil, err
	}
	overlayImg, err := OpenImage(overlayPath)
	if err != nil {
		return nil, err
	}
	base := MultiplyColor(baseImg, baseColor)
	overlay := MultiplyColor(overlayImg, overlayColor)
	return imaging.Overlay(base, overlay, image.Point{}, 1.0), nil
}

// saveInDataMap persists an interactively chosen texture path into whichever
// data map (project or shared) the path belongs to, classified by whether it
// lives under a resource-pack tree or a block-images tree. The map file is
// flushed immediately.
func (p *Project) saveInDataMap(item string, data int, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	type target struct {
		prefix string
		source string
		mapVal string
	}
	targets := []target{
		{"RP", p.config.ResourcePack,
			filepath.Join(p.config.Workspace, "data_map.json")},
		{"RP", filepath.Join(p.config.SharedData, "RP"),
			filepath.Join(p.config.SharedData, "data_map.json")},
		{"block-images", filepath.Join(p.config.Workspace, "block-images"),
			filepath.Join(p.config.Workspace, "data_map.json")},
		{"block-images", filepath.Join(p.config.SharedData, "block-images"),
			filepath.Join(p.config.SharedData, "data_map.json")},
	}
	for _, t := range targets {
		if t.source == "" {
			continue
		}
		source, err := filepath.Abs(t.source)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(source, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		// Strip the extension; symbolic paths are stored without one.
		rel = strings.TrimSuffix(rel, filepath.Ext(rel))
		symbolic := t.prefix + "/" + filepath.ToSlash(rel)

		dataMap := p.cache.DataMap(t.mapVal)
		if _, ok := dataMap[item]; !ok {
			dataMap[item] = map[string]string{}
		}
		dataMap[item][fmt.Sprint(data)] = symbolic
		return p.cache.SaveDataMap(t.mapVal)
	}
	return NewTextureNotFoundError(item,
		"path "+path+" is not relative to a resource pack or block-images tree")
}
