package recipeimage

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

// fixtureRecipe writes a one-ingredient shaped recipe to the behavior pack.
func fixtureRecipe(t *testing.T, p *Project, file, identifier string) {
	t.Helper()
	writeFile(t, filepath.Join(p.config.BehaviorPack, "recipes", file), `{
		"minecraft:recipe_shaped": {
			"description": {"identifier": "`+identifier+`"},
			"pattern": ["P"],
			"key": {"P": {"item": "demo:log"}},
			"result": {"item": "demo:plank"}
		}
	}`)
}

// fixtureTextures makes demo:log and demo:plank resolvable via the
// workspace data map.
func fixtureTextures(t *testing.T, p *Project) {
	t.Helper()
	writeFile(t, filepath.Join(p.config.Workspace, "data_map.json"), `{
		"demo:log": {"0": "block-images/log"},
		"demo:plank": {"0": "block-images/plank"}
	}`)
	writePNG(t, filepath.Join(p.config.Workspace, "block-images", "log.png"),
		color.NRGBA{100, 60, 20, 255})
	writePNG(t, filepath.Join(p.config.Workspace, "block-images", "plank.png"),
		color.NRGBA{200, 160, 90, 255})
}

func TestPlanSinglePageTemplate(t *testing.T) {
	p := testProject(t)
	fixtureRecipe(t, p, "plank.json", "demo:plank")
	fixtureTextures(t, p)
	writeFile(t, filepath.Join(p.config.Workspace, "templates", "custom_template.json"), `{
		"size": [64, 64],
		"foreground": [
			{
				"item_type": "recipe_shaped",
				"recipe_pattern": "demo:.*",
				"offset": [0, 0],
				"size": [64, 64],
				"items": {
					"0,0": {"offset": [4, 4], "size": [16, 16]},
					"result": {"offset": [40, 24], "size": [16, 16]}
				}
			}
		]
	}`)

	actions, err := p.Plan(p.RecipeFiles())
	if err != nil {
		t.Fatalf("Plan() unexpected error: %v", err)
	}
	// The page repeats until the recipe pool is exhausted; one recipe
	// means exactly one page.
	if len(actions) != 1 {
		t.Fatalf("len(actions) = %d, want 1", len(actions))
	}
	if actions[0].Index != 1 {
		t.Errorf("Index = %d, want 1", actions[0].Index)
	}

	if err := actions[0].Run(); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	want := filepath.Join(p.OutputDir(), "0001_custom_template.png")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected output %s: %v", want, err)
	}
	if got := actions[0].RenderedName(); got != "0001_custom_template.png" {
		t.Errorf("RenderedName() = %q", got)
	}
}

func TestPlanRepeatsPageUntilPoolEmpty(t *testing.T) {
	p := testProject(t)
	fixtureRecipe(t, p, "a.json", "demo:a")
	fixtureRecipe(t, p, "b.json", "demo:b")
	fixtureRecipe(t, p, "c.json", "demo:c")
	writeFile(t, filepath.Join(p.config.Workspace, "templates", "custom_template.json"), `{
		"size": [32, 32],
		"foreground": [
			{
				"item_type": "recipe_shaped",
				"recipe_pattern": "demo:.*",
				"offset": [0, 0],
				"size": [32, 32],
				"items": {}
			}
		]
	}`)

	actions, err := p.Plan(p.RecipeFiles())
	if err != nil {
		t.Fatalf("Plan() unexpected error: %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("len(actions) = %d, want 3", len(actions))
	}
	for i, action := range actions {
		if action.Index != i+1 {
			t.Errorf("actions[%d].Index = %d, want %d", i, action.Index, i+1)
		}
	}
}

func TestPlanEmitsFirstPageWithoutRecipes(t *testing.T) {
	p := testProject(t)
	writeFile(t, filepath.Join(p.config.Workspace, "templates", "custom_template.json"), `{
		"size": [32, 32],
		"foreground": [
			{
				"item_type": "recipe_shaped",
				"recipe_pattern": "demo:.*",
				"offset": [0, 0],
				"size": [32, 32],
				"items": {}
			}
		]
	}`)

	actions, err := p.Plan(nil)
	if err != nil {
		t.Fatalf("Plan() unexpected error: %v", err)
	}
	// The first repetition of a page is always emitted even when no
	// recipe matches.
	if len(actions) != 1 {
		t.Fatalf("len(actions) = %d, want 1", len(actions))
	}
}

func TestPlanRecipePatternFiltering(t *testing.T) {
	p := testProject(t)
	fixtureRecipe(t, p, "a.json", "demo:a")
	fixtureRecipe(t, p, "b.json", "other:b")
	writeFile(t, filepath.Join(p.config.Workspace, "templates", "custom_template.json"), `{
		"size": [32, 32],
		"foreground": [
			{
				"item_type": "recipe_shaped",
				"recipe_pattern": "demo:.*",
				"offset": [0, 0],
				"size": [32, 32],
				"items": {}
			}
		]
	}`)

	actions, err := p.Plan(p.RecipeFiles())
	if err != nil {
		t.Fatalf("Plan() unexpected error: %v", err)
	}
	// The pattern must match the whole name; only demo:a is consumed and
	// the final forced page is not emitted twice.
	if len(actions) != 1 {
		t.Fatalf("len(actions) = %d, want 1", len(actions))
	}
}

func TestPlanBookTemplate(t *testing.T) {
	p := testProject(t)
	fixtureRecipe(t, p, "a.json", "demo:a")
	fixtureRecipe(t, p, "b.json", "other:b")
	writeFile(t, filepath.Join(p.config.Workspace, "templates", "page.json"), `{
		"size": [32, 32],
		"output_file_name": "$last_recipe_namespace",
		"foreground": [
			{
				"item_type": "recipe_shaped",
				"recipe_pattern": ".*",
				"offset": [0, 0],
				"size": [32, 32],
				"items": {}
			}
		]
	}`)
	writeFile(t, filepath.Join(p.config.Workspace, "templates", "custom_template.json"), `{
		"pages": [
			{"page": "page", "recipe_pattern": "demo:.*"},
			{"page": "page"}
		]
	}`)

	actions, err := p.Plan(p.RecipeFiles())
	if err != nil {
		t.Fatalf("Plan() unexpected error: %v", err)
	}
	// Slot one consumes demo:a (plus a forced empty repetition is not
	// emitted because the first page consumed a recipe and the second
	// consumed none); slot two consumes other:b the same way.
	if len(actions) != 2 {
		t.Fatalf("len(actions) = %d, want 2", len(actions))
	}
	for _, action := range actions {
		if err := action.Run(); err != nil {
			t.Fatalf("Run() unexpected error: %v", err)
		}
	}
	for _, want := range []string{"0001_demo.png", "0002_other.png"} {
		if _, err := os.Stat(filepath.Join(p.OutputDir(), want)); err != nil {
			t.Errorf("expected output %s: %v", want, err)
		}
	}
}

func TestPlanBookScopeVariables(t *testing.T) {
	p := testProject(t)
	fixtureRecipe(t, p, "a.json", "demo:a")
	if err := os.WriteFile(
		filepath.Join(p.config.Workspace, "mc.ttf"), goregular.TTF, 0o644,
	); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(p.config.Workspace, "templates", "page.json"), `{
		"size": [64, 32],
		"output_file_name": "$var.chapter",
		"foreground": [
			{
				"item_type": "recipe_shaped",
				"recipe_pattern": ".*",
				"offset": [0, 0],
				"size": [32, 32],
				"items": {}
			},
			{
				"item_type": "text",
				"text": "$var.chapter",
				"font": "../mc.ttf",
				"offset": [2, 2],
				"scale": 10
			}
		]
	}`)
	writeFile(t, filepath.Join(p.config.Workspace, "templates", "custom_template.json"), `{
		"pages": [
			{"page": "page", "scope": {"chapter": "Weapons"}}
		]
	}`)

	actions, err := p.Plan(p.RecipeFiles())
	if err != nil {
		t.Fatalf("Plan() unexpected error: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("len(actions) = %d, want 1", len(actions))
	}
	if err := actions[0].Run(); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if got := actions[0].RenderedName(); got != "0001_Weapons.png" {
		t.Errorf("RenderedName() = %q, want %q", got, "0001_Weapons.png")
	}
}

func TestRunSkipsMissingTextures(t *testing.T) {
	p := testProject(t)
	fixtureRecipe(t, p, "a.json", "demo:a")
	// No textures at all: the recipe element is skipped with a warning
	// and the page still renders.
	writeFile(t, filepath.Join(p.config.Workspace, "templates", "custom_template.json"), `{
		"size": [32, 32],
		"foreground": [
			{
				"item_type": "recipe_shaped",
				"recipe_pattern": ".*",
				"offset": [0, 0],
				"size": [32, 32],
				"items": {
					"result": {"offset": [0, 0], "size": [16, 16]}
				}
			}
		]
	}`)

	actions, err := p.Plan(p.RecipeFiles())
	if err != nil {
		t.Fatalf("Plan() unexpected error: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("len(actions) = %d, want 1", len(actions))
	}
	if err := actions[0].Run(); err != nil {
		t.Fatalf("Run() should skip unresolvable textures, got: %v", err)
	}
}

func TestPlanPropagatesLastRecipeProperties(t *testing.T) {
	p := testProject(t)
	fixtureRecipe(t, p, "a.json", "demo:a")
	if err := os.WriteFile(
		filepath.Join(p.config.Workspace, "mc.ttf"), goregular.TTF, 0o644,
	); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(p.config.Workspace, "recipe_properties.json"), `{
		"demo:a": {"title": "Plank"}
	}`)
	writeFile(t, filepath.Join(p.config.Workspace, "templates", "custom_template.json"), `{
		"size": [64, 32],
		"output_file_name": "$last_recipe_name",
		"foreground": [
			{
				"item_type": "recipe_shaped",
				"recipe_pattern": ".*",
				"offset": [0, 0],
				"size": [32, 32],
				"items": {}
			},
			{
				"item_type": "text",
				"text": "$last_recipe.title",
				"font": "../mc.ttf",
				"offset": [2, 2],
				"scale": 10
			}
		]
	}`)

	actions, err := p.Plan(p.RecipeFiles())
	if err != nil {
		t.Fatalf("Plan() unexpected error: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("len(actions) = %d, want 1", len(actions))
	}
	if err := actions[0].Run(); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if got := actions[0].RenderedName(); got != "0001_a.png" {
		t.Errorf("RenderedName() = %q, want %q", got, "0001_a.png")
	}
}

func TestPlanUnknownTemplate(t *testing.T) {
	p := testProject(t)
	if _, err := p.Plan(nil); !IsPathNotFound(err) {
		t.Errorf("Plan() error = %v, want PathNotFoundError", err)
	}
}

func TestPlanInvalidRecipeSkipped(t *testing.T) {
	p := testProject(t)
	writeFile(t, filepath.Join(p.config.BehaviorPack, "recipes", "bad.json"),
		`{"minecraft:recipe_smithing": {}}`)
	fixtureRecipe(t, p, "good.json", "demo:good")
	writeFile(t, filepath.Join(p.config.Workspace, "templates", "custom_template.json"), `{
		"size": [32, 32],
		"foreground": [
			{
				"item_type": "recipe_shaped",
				"recipe_pattern": ".*",
				"offset": [0, 0],
				"size": [32, 32],
				"items": {}
			}
		]
	}`)

	actions, err := p.Plan(p.RecipeFiles())
	if err != nil {
		t.Fatalf("Plan() unexpected error: %v", err)
	}
	if len(actions) != 1 {
		t.Errorf("len(actions) = %d, want 1 (bad recipe skipped)", len(actions))
	}
}
