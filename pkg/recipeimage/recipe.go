package recipeimage

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// Matches the molang query that names an entity for spawn-egg data values.
	actorIDWildcardRegex = regexp.MustCompile(
		`^(?:(?:query)|(?:q))\.get_actor_info_id\('([a-zA-Z0-9_]+:[a-zA-Z0-9_]+)'\)$`)

	// The newer convention of naming spawn eggs without molang queries.
	newSpawnEggRegex = regexp.MustCompile(
		`^((?:[a-zA-Z0-9_]+:)?[a-zA-Z0-9_]+)_spawn_egg$`)

	// An item that carries its data value in the name (e.g. "stone:1" or
	// "minecraft:stone:1").
	itemWithDataRegex = regexp.MustCompile(
		`^((?:[a-zA-Z0-9_]+:)?[a-zA-Z0-9_]+):([1-9][0-9]*)$`)
)

// The only item identifier that may carry an actor-id wildcard data value.
const spawnEggItem = "minecraft:spawn_egg"

// RecipeKey is an ingredient or result reference: an item identifier plus a
// data-variant selector. For spawn-egg items the data value may instead be a
// wildcard naming an entity identifier; Actor is non-empty in that case and
// Data is meaningless.
type RecipeKey struct {
	Item  string
	Data  int
	Actor string
}

// IsWildcard reports whether the key's data value is an actor-id wildcard.
func (k RecipeKey) IsWildcard() bool {
	return k.Actor != ""
}

func (k RecipeKey) String() string {
	if k.IsWildcard() {
		return fmt.Sprintf("%s[%s]", k.Item, k.Actor)
	}
	return fmt.Sprintf("%s:%d", k.Item, k.Data)
}

// parseRecipeKey normalizes the three accepted key notations (bare
// identifier, "item:data" compact form and the structured {item, data} form)
// into a single RecipeKey.
func parseRecipeKey(raw interface{}) (RecipeKey, error) {
	if raw == nil {
		return RecipeKey{}, NewInvalidRecipeError("recipe key data doesn't exist")
	}

	// Convert the compact string forms into the structured form.
	if s, ok := raw.(string); ok {
		if m := itemWithDataRegex.FindStringSubmatch(s); m != nil {
			data, _ := strconv.Atoi(m[2])
			raw = map[string]interface{}{"item": m[1], "data": data}
		} else {
			raw = map[string]interface{}{"item": s}
		}
	}

	obj, ok := raw.(map[string]interface{})
	if !ok {
		return RecipeKey{}, NewInvalidRecipeError(
			"recipe key is not a mapping or a string")
	}
	item, ok := obj["item"].(string)
	if !ok {
		return RecipeKey{}, NewInvalidRecipeError(
			"recipe key property 'item' is not a string")
	}

	if m := newSpawnEggRegex.FindStringSubmatch(item); m != nil {
		// CASE: spawn egg
		actor := m[1]
		if !strings.Contains(actor, ":") {
			actor = "minecraft:" + actor
		}
		return RecipeKey{Item: spawnEggItem, Actor: actor}, nil
	}
	if m := itemWithDataRegex.FindStringSubmatch(item); m != nil {
		// CASE: item with data embedded in the name
		if _, exists := obj["data"]; exists {
			return RecipeKey{}, NewInvalidRecipeError(
				"recipe key is ambiguous, providing the data value both " +
					"in the item name and the data property")
		}
		data, _ := strconv.Atoi(m[2])
		return RecipeKey{Item: m[1], Data: data}, nil
	}

	// CASE: other items
	if !strings.Contains(item, ":") {
		item = "minecraft:" + item
	}
	key := RecipeKey{Item: item}

	dataRaw, exists := obj["data"]
	if !exists {
		return key, nil
	}
	switch data := dataRaw.(type) {
	case int:
		key.Data = data
		return key, nil
	case string:
		if m := actorIDWildcardRegex.FindStringSubmatch(data); m != nil {
			if key.Item != spawnEggItem {
				return RecipeKey{}, NewInvalidRecipeError(fmt.Sprintf(
					"the actor-id wildcard is only supported for %q not %q",
					spawnEggItem, key.Item))
			}
			key.Actor = m[1]
			return key, nil
		}
		// Could be a string that is a number.
		if n, err := strconv.Atoi(data); err == nil {
			key.Data = n
			return key, nil
		}
		return RecipeKey{}, NewInvalidRecipeError(
			"recipe key property 'data' is not an int or an actor-id wildcard")
	default:
		return RecipeKey{}, NewInvalidRecipeError(
			"recipe key property 'data' is not a string or int")
	}
}

// RecipeKind distinguishes the three recipe shapes.
type RecipeKind int

const (
	RecipeCrafting RecipeKind = iota
	RecipeFurnace
	RecipeBrewing
)

func (k RecipeKind) String() string {
	switch k {
	case RecipeCrafting:
		return "crafting"
	case RecipeFurnace:
		return "furnace"
	case RecipeBrewing:
		return "brewing"
	default:
		return "unknown"
	}
}

// Recipe is a parsed recipe document, normalized into one of three shapes.
// Crafting recipes own Pattern, Keys and Result; furnace recipes own Input
// and Output; brewing recipes own Input, Reagent and Output. A Recipe is
// never mutated after construction.
type Recipe struct {
	Kind RecipeKind
	Name string

	// Crafting only. Pattern is always exactly 3 rows of 3 single-character
	// symbols; a space marks an empty cell. Every non-space symbol has an
	// entry in Keys.
	Pattern [3]string
	Keys    map[string]RecipeKey
	Result  RecipeKey

	// Furnace and brewing.
	Input  RecipeKey
	Output RecipeKey
	// Brewing only.
	Reagent RecipeKey
}

// ParseRecipe parses a single recipe document. The document must carry
// exactly one of the recognized recipe-type keys; anything else fails with
// an InvalidRecipeError.
func ParseRecipe(data []byte) (*Recipe, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &InvalidRecipeError{Message: fmt.Sprintf("malformed document: %v", err)}
	}

	if shaped, ok := doc["minecraft:recipe_shaped"].(map[string]interface{}); ok {
		return parseCraftingRecipe(shaped, true)
	}
	if shapeless, ok := doc["minecraft:recipe_shapeless"].(map[string]interface{}); ok {
		return parseCraftingRecipe(shapeless, false)
	}
	if furnace, ok := doc["minecraft:recipe_furnace"].(map[string]interface{}); ok {
		return parseFurnaceRecipe(furnace)
	}
	if brewing, ok := doc["minecraft:recipe_brewing_mix"].(map[string]interface{}); ok {
		return parseBrewingRecipe(brewing)
	}
	return nil, NewInvalidRecipeError(
		"unknown recipe type (only minecraft:recipe_shaped, " +
			"minecraft:recipe_shapeless, minecraft:recipe_furnace and " +
			"minecraft:recipe_brewing_mix are supported)")
}

// LoadRecipe reads and parses a recipe file.
func LoadRecipe(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &InvalidRecipeError{Path: path, Message: err.Error()}
	}
	recipe, err := ParseRecipe(data)
	if err != nil {
		var ire *InvalidRecipeError
		if ok := asInvalidRecipe(err, &ire); ok {
			ire.Path = path
		}
		return nil, err
	}
	return recipe, nil
}

func asInvalidRecipe(err error, target **InvalidRecipeError) bool {
	ire, ok := err.(*InvalidRecipeError)
	if ok {
		*target = ire
	}
	return ok
}

func recipeName(doc map[string]interface{}) (string, error) {
	desc, ok := doc["description"].(map[string]interface{})
	if !ok {
		return "", NewInvalidRecipeError("recipe name is not a string")
	}
	name, ok := desc["identifier"].(string)
	if !ok {
		return "", NewInvalidRecipeError("recipe name is not a string")
	}
	return name, nil
}

func parseCraftingRecipe(doc map[string]interface{}, shaped bool) (*Recipe, error) {
	name, err := recipeName(doc)
	if err != nil {
		return nil, err
	}
	recipe := &Recipe{Kind: RecipeCrafting, Name: name}

	if shaped {
		if err := loadPattern(doc, recipe); err != nil {
			return nil, err
		}
		if err := loadKeys(doc, recipe); err != nil {
			return nil, err
		}
	} else {
		if err := packIngredients(doc, recipe); err != nil {
			return nil, err
		}
	}

	result, err := loadResult(doc, name)
	if err != nil {
		return nil, err
	}
	recipe.Result = result
	return recipe, nil
}

// loadPattern normalizes a shaped pattern into exactly 3x3 by padding any
// missing rows and columns with blanks. Oversized patterns are an error.
func loadPattern(doc map[string]interface{}, recipe *Recipe) error {
	rawPattern, ok := doc["pattern"].([]interface{})
	if !ok {
		return NewInvalidRecipeError("pattern is not a list")
	}
	if len(rawPattern) > 3 {
		return NewInvalidRecipeError("pattern is not 3x3")
	}
	for i := 0; i < 3; i++ {
		if i >= len(rawPattern) {
			recipe.Pattern[i] = "   "
			continue
		}
		row, ok := rawPattern[i].(string)
		if !ok {
			return NewInvalidRecipeError("pattern row is not a string")
		}
		if len(row) > 3 {
			return NewInvalidRecipeError("pattern is not 3x3")
		}
		recipe.Pattern[i] = row + strings.Repeat(" ", 3-len(row))
	}
	return nil
}

func loadKeys(doc map[string]interface{}, recipe *Recipe) error {
	rawKeys, ok := doc["key"].(map[string]interface{})
	if !ok {
		return NewInvalidRecipeError("recipe 'key' property is not a mapping")
	}
	recipe.Keys = make(map[string]RecipeKey, len(rawKeys))
	for symbol, raw := range rawKeys {
		key, err := parseRecipeKey(raw)
		if err != nil {
			return err
		}
		recipe.Keys[symbol] = key
	}
	// Patterns may only use defined key symbols.
	for _, row := range recipe.Pattern {
		for _, c := range row {
			symbol := string(c)
			if symbol == " " {
				continue
			}
			if _, ok := recipe.Keys[symbol]; !ok {
				return NewInvalidRecipeError(fmt.Sprintf(
					"pattern %q uses an undefined key %q", row, symbol))
			}
		}
	}
	return nil
}

// packIngredients derives a 3x3 pattern from a shapeless ingredient list by
// packing the ingredient instances left to right, top to bottom. An
// ingredient with a count contributes that many cells.
func packIngredients(doc map[string]interface{}, recipe *Recipe) error {
	rawIngredients, ok := doc["ingredients"].([]interface{})
	if !ok {
		return NewInvalidRecipeError("recipe 'ingredients' property is not a list")
	}
	recipe.Keys = make(map[string]RecipeKey, len(rawIngredients))
	var symbols []string
	for i, raw := range rawIngredients {
		symbol := strconv.Itoa(i)
		count := 1
		if obj, ok := raw.(map[string]interface{}); ok {
			if c, ok := obj["count"].(int); ok {
				count = c
			}
		} else if _, ok := raw.(string); !ok {
			return NewInvalidRecipeError(
				"recipe 'ingredients' property is not a list of strings or mappings")
		}
		key, err := parseRecipeKey(raw)
		if err != nil {
			return err
		}
		recipe.Keys[symbol] = key
		for j := 0; j < count; j++ {
			symbols = append(symbols, symbol)
		}
	}
	if len(symbols) > 9 {
		return NewInvalidRecipeError(
			"shapeless recipes can have at most 9 ingredients; ingredients " +
				"that use a 'count' greater than 1 are counted as multiple " +
				"ingredients")
	}
	for i := 0; i < 3; i++ {
		row := [3]string{" ", " ", " "}
		for j := 0; j < 3; j++ {
			index := i*3 + j
			if index < len(symbols) {
				row[j] = symbols[index]
			}
		}
		recipe.Pattern[i] = row[0] + row[1] + row[2]
	}
	return nil
}

func loadResult(doc map[string]interface{}, name string) (RecipeKey, error) {
	raw, exists := doc["result"]
	if !exists {
		return RecipeKey{}, NewInvalidRecipeError(
			"crafting recipe doesn't define the result item")
	}
	if list, ok := raw.([]interface{}); ok {
		if len(list) == 0 {
			return RecipeKey{}, NewInvalidRecipeError(
				"crafting recipe doesn't define the result item")
		}
		if len(list) > 1 {
			GetLogger().Warn(
				"Crafting recipe %q defines multiple results. This feature "+
					"isn't currently supported. Only the first result will "+
					"be used.", name)
		}
		raw = list[0]
	}
	return parseRecipeKey(raw)
}

func parseFurnaceRecipe(doc map[string]interface{}) (*Recipe, error) {
	name, err := recipeName(doc)
	if err != nil {
		return nil, err
	}
	recipe := &Recipe{Kind: RecipeFurnace, Name: name}

	input, exists := doc["input"]
	if !exists {
		return nil, NewInvalidRecipeError("recipe 'input' property is missing")
	}
	if recipe.Input, err = parseRecipeKey(input); err != nil {
		return nil, err
	}
	output, exists := doc["output"]
	if !exists {
		return nil, NewInvalidRecipeError("recipe 'output' property is missing")
	}
	if recipe.Output, err = parseRecipeKey(output); err != nil {
		return nil, err
	}
	return recipe, nil
}

func parseBrewingRecipe(doc map[string]interface{}) (*Recipe, error) {
	name, err := recipeName(doc)
	if err != nil {
		return nil, err
	}
	recipe := &Recipe{Kind: RecipeBrewing, Name: name}

	input, exists := doc["input"]
	if !exists {
		return nil, NewInvalidRecipeError("recipe 'input' property is missing")
	}
	if recipe.Input, err = parseRecipeKey(input); err != nil {
		return nil, err
	}
	reagent, exists := doc["reagent"]
	if !exists {
		return nil, NewInvalidRecipeError("recipe 'reagent' property is missing")
	}
	if recipe.Reagent, err = parseRecipeKey(reagent); err != nil {
		return nil, err
	}
	output, exists := doc["output"]
	if !exists {
		return nil, NewInvalidRecipeError("recipe 'output' property is missing")
	}
	if recipe.Output, err = parseRecipeKey(output); err != nil {
		return nil, err
	}
	return recipe, nil
}
