package recipeimage

import (
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// InitWorkspace seeds the project workspace with the example workspace
// shipped in the shared data directory: the block-images, fonts,
// generated-images, images and templates directories plus the initial
// data_map.json. Entries that already exist are left alone.
func (p *Project) InitWorkspace() error {
	example := filepath.Join(p.config.SharedData, "example-workspace")
	for _, dir := range []string{
		"block-images", "fonts", "generated-images", "images", "templates",
	} {
		source := filepath.Join(example, dir)
		target := filepath.Join(p.config.Workspace, dir)
		if _, err := os.Stat(target); err == nil {
			continue
		}
		p.logger.Info("Copying %s to %s", source, target)
		if err := copyTree(source, target); err != nil {
			return err
		}
	}
	source := filepath.Join(example, "data_map.json")
	target := filepath.Join(p.config.Workspace, "data_map.json")
	if _, err := os.Stat(target); err == nil {
		return nil
	}
	return copyFile(source, target)
}

func copyTree(source, target string) error {
	return filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(target, rel)
		if d.IsDir() {
			return os.MkdirAll(dest, 0o755)
		}
		return copyFile(path, dest)
	})
}

func copyFile(source, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// UpdateRecipeProperties scans the behavior pack's recipes and seeds an
// entry with empty "description" and "name" lists for every recipe the
// workspace property document does not know yet. Existing entries keep
// their values; unparsable recipe files are logged and skipped.
func (p *Project) UpdateRecipeProperties() error {
	path := filepath.Join(p.config.Workspace, "recipe_properties.json")
	properties := map[string]map[string]interface{}{}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &properties); err != nil {
			return NewTemplateError("cannot parse " + path + ": " + err.Error())
		}
	}
	for _, recipePath := range p.RecipeFiles() {
		recipe, err := LoadRecipe(recipePath)
		if err != nil {
			p.logger.Warn("Skipping %s: %v", recipePath, err)
			continue
		}
		entry, ok := properties[recipe.Name]
		if !ok {
			entry = map[string]interface{}{}
			properties[recipe.Name] = entry
		}
		if _, ok := entry["description"]; !ok {
			entry["description"] = []interface{}{}
		}
		if _, ok := entry["name"]; !ok {
			entry["name"] = []interface{}{}
		}
	}
	data, err := json.MarshalIndent(properties, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DumpRecipeProperties renders the workspace property document into a
// Markdown listing next to it (recipe_properties.md). Entries whose every
// field is empty are omitted. When a lang file is given, recipe identifiers
// with a matching item translation key get their display name appended.
func (p *Project) DumpRecipeProperties(translations map[string]string) (string, error) {
	source := filepath.Join(p.config.Workspace, "recipe_properties.json")
	data, err := os.ReadFile(source)
	if err != nil {
		return "", NewTemplateError("please set up the project first")
	}
	properties := map[string]map[string]interface{}{}
	if err := yaml.Unmarshal(data, &properties); err != nil {
		return "", NewTemplateError("cannot parse " + source + ": " + err.Error())
	}

	lines := []string{
		"This file is just a list of the variables from the",
		"recipe_properties.json file. It is not meant to be",
		"modified.",
	}
	recipes := make([]string, 0, len(properties))
	for name := range properties {
		recipes = append(recipes, name)
	}
	sort.Strings(recipes)
	for _, name := range recipes {
		heading := "# " + name
		if translations != nil {
			_, item := SplitRecipeName(name)
			if display, ok := translations["item."+name+".name"]; ok {
				heading += " (" + display + ")"
			} else if display, ok := translations["item."+item+".name"]; ok {
				heading += " (" + display + ")"
			}
		}
		section := []string{heading}
		valid := false

		fields := make([]string, 0, len(properties[name]))
		for field := range properties[name] {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			section = append(section, "## "+field)
			switch value := properties[name][field].(type) {
			case string:
				section = append(section, value)
				valid = true
			case []interface{}:
				for _, item := range value {
					section = append(section, propertyString(item))
				}
				valid = len(value) > 0 || valid
			}
		}
		section = append(section, "")
		if valid {
			lines = append(lines, section...)
		}
	}

	target := filepath.Join(p.config.Workspace, "recipe_properties.md")
	if err := os.WriteFile(target, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return "", err
	}
	return target, nil
}

// ListTemplates enumerates the template names available to the project:
// every JSON file under the workspace and shared template directories,
// relative to its directory and with the extension stripped.
func (p *Project) ListTemplates() []string {
	var result []string
	for _, dir := range p.templateDirs() {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if !strings.EqualFold(filepath.Ext(path), ".json") {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return nil
			}
			rel = strings.TrimSuffix(rel, filepath.Ext(rel))
			result = append(result, filepath.ToSlash(rel))
			return nil
		})
	}
	return result
}

var langLineRegex = regexp.MustCompile(`^([a-zA-Z0-9_\.]+)=(.+)`)

// LoadLangFile parses a Minecraft .lang translation file into a map. Lines
// that do not look like key=value pairs (comments, blanks) are ignored.
func LoadLangFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	translations := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		if m := langLineRegex.FindStringSubmatch(line); m != nil {
			translations[strings.TrimSpace(m[1])] = strings.TrimSpace(m[2])
		}
	}
	return translations, nil
}
