package recipeimage

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestInitWorkspace(t *testing.T) {
	p := testProject(t)
	example := filepath.Join(p.config.SharedData, "example-workspace")
	writeFile(t, filepath.Join(example, "templates", "custom_template.json"), `{}`)
	writeFile(t, filepath.Join(example, "fonts", "readme.txt"), "fonts go here")
	writeFile(t, filepath.Join(example, "images", "background.png"), "x")
	writeFile(t, filepath.Join(example, "block-images", "stone.png"), "x")
	require.NoError(t, os.MkdirAll(filepath.Join(example, "generated-images"), 0o755))
	writeFile(t, filepath.Join(example, "data_map.json"), `{}`)

	require.NoError(t, p.InitWorkspace())

	assert.FileExists(t, filepath.Join(p.config.Workspace, "templates", "custom_template.json"))
	assert.FileExists(t, filepath.Join(p.config.Workspace, "fonts", "readme.txt"))
	assert.FileExists(t, filepath.Join(p.config.Workspace, "data_map.json"))
	assert.DirExists(t, filepath.Join(p.config.Workspace, "generated-images"))
}

func TestInitWorkspaceKeepsExistingFiles(t *testing.T) {
	p := testProject(t)
	example := filepath.Join(p.config.SharedData, "example-workspace")
	writeFile(t, filepath.Join(example, "templates", "custom_template.json"), `{"from": "example"}`)
	for _, dir := range []string{"block-images", "fonts", "generated-images", "images"} {
		require.NoError(t, os.MkdirAll(filepath.Join(example, dir), 0o755))
	}
	writeFile(t, filepath.Join(example, "data_map.json"), `{"from": "example"}`)

	// Existing entries must survive.
	writeFile(t, filepath.Join(p.config.Workspace, "templates", "mine.json"), `{}`)
	writeFile(t, filepath.Join(p.config.Workspace, "data_map.json"), `{"from": "workspace"}`)

	require.NoError(t, p.InitWorkspace())

	data, err := os.ReadFile(filepath.Join(p.config.Workspace, "data_map.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "workspace")
	assert.NoFileExists(t, filepath.Join(p.config.Workspace, "templates", "custom_template.json"))
	assert.FileExists(t, filepath.Join(p.config.Workspace, "templates", "mine.json"))
}

func TestUpdateRecipeProperties(t *testing.T) {
	p := testProject(t)
	fixtureRecipe(t, p, "a.json", "demo:a")
	fixtureRecipe(t, p, "b.json", "demo:b")
	// An existing entry keeps its values.
	writeFile(t, filepath.Join(p.config.Workspace, "recipe_properties.json"), `{
		"demo:a": {"name": ["Old Name"]}
	}`)

	require.NoError(t, p.UpdateRecipeProperties())

	data, err := os.ReadFile(filepath.Join(p.config.Workspace, "recipe_properties.json"))
	require.NoError(t, err)
	properties := map[string]map[string]interface{}{}
	require.NoError(t, yaml.Unmarshal(data, &properties))

	require.Contains(t, properties, "demo:a")
	require.Contains(t, properties, "demo:b")
	assert.Equal(t, []interface{}{"Old Name"}, properties["demo:a"]["name"])
	// The scan only seeds the missing fields.
	assert.Contains(t, properties["demo:a"], "description")
	assert.Empty(t, properties["demo:a"]["description"])
	assert.Contains(t, properties["demo:b"], "name")
	assert.Empty(t, properties["demo:b"]["name"])
}

func TestDumpRecipeProperties(t *testing.T) {
	p := testProject(t)
	writeFile(t, filepath.Join(p.config.Workspace, "recipe_properties.json"), `{
		"demo:a": {"name": ["Iron Sword"], "description": ["Sharp."]},
		"demo:empty": {"name": [], "description": []}
	}`)

	target, err := p.DumpRecipeProperties(map[string]string{
		"item.demo:a.name": "Iron Sword Item",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# demo:a (Iron Sword Item)")
	assert.Contains(t, text, "Iron Sword")
	assert.Contains(t, text, "Sharp.")
	// Entries with no content at all are omitted.
	assert.NotContains(t, text, "demo:empty")
}

func TestDumpRecipePropertiesRequiresSetup(t *testing.T) {
	p := testProject(t)
	_, err := p.DumpRecipeProperties(nil)
	assert.Error(t, err)
}

func TestListTemplates(t *testing.T) {
	p := testProject(t)
	writeFile(t, filepath.Join(p.config.Workspace, "templates", "custom_book.json"), `{}`)
	writeFile(t, filepath.Join(p.config.Workspace, "templates", "pages", "intro.json"), `{}`)
	writeFile(t, filepath.Join(p.config.SharedData, "templates", "shared_book.json"), `{}`)
	writeFile(t, filepath.Join(p.config.Workspace, "templates", "notes.txt"), "not a template")

	got := p.ListTemplates()
	sort.Strings(got)
	assert.Equal(t, []string{"custom_book", "pages/intro", "shared_book"}, got)
}

func TestLoadLangFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "en_US.lang")
	writeFile(t, path, `
## comment line
item.sword.name=Iron Sword
tile.demo_block.name=Block of Demo
malformed line
`)
	translations, err := LoadLangFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Iron Sword", translations["item.sword.name"])
	assert.Equal(t, "Block of Demo", translations["tile.demo_block.name"])
	assert.NotContains(t, translations, "malformed line")
}

func TestLoadLangFileMissing(t *testing.T) {
	_, err := LoadLangFile(filepath.Join(t.TempDir(), "absent.lang"))
	assert.Error(t, err)
}
