package recipeimage

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
)

// elementKind is the closed set of foreground item kinds.
type elementKind int

const (
	elementRecipe elementKind = iota
	elementImage
	elementText
)

// element is one planned foreground item of a page. Recipe elements own the
// recipe they consumed from the pool; image and text elements carry a
// snapshot of the property bag that was current when they were planned.
type element struct {
	kind   elementKind
	layout map[string]interface{}

	// elementRecipe
	recipe *Recipe

	// elementImage and elementText
	lastBag PropertyBag

	// elementText
	fontPath   string
	textColor  color.NRGBA
	alignment  string
	anchor     string
	spacing    float64
	antiAlias  bool
	lineLength int
}

// Action is one planned unit of render work: a single output page. The
// index and output name inputs are fixed at plan time; texture resolution,
// token substitution and compositing happen when Run is invoked. Actions
// reference the run's shared Counters and RecipeProperties and therefore
// must execute strictly sequentially, in plan order.
type Action struct {
	Index int

	project        *Project
	template       map[string]interface{}
	templateName   string
	backgroundPath string
	scale          float64
	elements       []element
	lastRecipe     string
	counters       Counters
	props          *RecipeProperties
	scope          map[string]interface{}

	outputName string
}

// RenderedName returns the output file name chosen by Run, or the empty
// string before the action has run.
func (a *Action) RenderedName() string {
	return a.outputName
}

// Plan parses the recipe files, loads the configured template and walks it
// into an ordered sequence of deferred render actions. Recipes are consumed
// from the pool as page items claim them. Invalid recipe files are logged
// and skipped; structural template mistakes abort planning.
func (p *Project) Plan(recipePaths []string) ([]*Action, error) {
	p.imageNumber = 0

	template, err := p.LoadTemplate(p.config.Template)
	if err != nil {
		return nil, err
	}
	var recipes []*Recipe
	for _, path := range recipePaths {
		recipe, err := LoadRecipe(path)
		if err != nil {
			p.logger.Warn("Skipping %s: %v", path, err)
			continue
		}
		recipes = append(recipes, recipe)
	}
	if err := os.MkdirAll(p.OutputDir(), 0o755); err != nil {
		return nil, err
	}

	counters := Counters{}
	props, err := p.loadRecipeProperties()
	if err != nil {
		return nil, err
	}

	rawPages, isBook := template["pages"]
	if !isBook {
		// PAGE TEMPLATE
		return p.planPages(template, &recipes, counters, props, "", nil)
	}

	// BOOK TEMPLATE
	pages, ok := rawPages.([]interface{})
	if !ok {
		return nil, NewTemplateError("the 'pages' property of the template must be a list")
	}
	var actions []*Action
	for _, rawPage := range pages {
		page, ok := rawPage.(map[string]interface{})
		if !ok {
			return nil, NewTemplateError("every page of a book must be a mapping")
		}
		pageActions, err := p.planBookSlot(page, &recipes, counters, props)
		if err != nil {
			return nil, err
		}
		actions = append(actions, pageActions...)
	}
	return actions, nil
}

// planBookSlot handles one entry of a book's page list: either an inline
// page definition or a reference to another page template file, optionally
// restricted by an extra recipe pattern and carrying a slot-local scope.
func (p *Project) planBookSlot(
	page map[string]interface{}, recipes *[]*Recipe,
	counters Counters, props *RecipeProperties,
) ([]*Action, error) {
	rawRef, isRef := page["page"]
	if !isRef {
		// A PAGE DEFINITION INSIDE THE LIST
		return p.planPages(page, recipes, counters, props, "", nil)
	}

	ref, ok := rawRef.(string)
	if !ok {
		return nil, NewTemplateError(
			"the 'page' property of the page must be a string with a " +
				"reference to an existing template")
	}
	pattern := ""
	if raw, exists := page["recipe_pattern"]; exists {
		if pattern, ok = raw.(string); !ok {
			return nil, NewTemplateError(
				"the 'recipe_pattern' property of the page must be a string")
		}
	}
	var scope map[string]interface{}
	if raw, exists := page["scope"]; exists {
		if scope, ok = raw.(map[string]interface{}); !ok {
			return nil, NewTemplateError(
				"the 'scope' property of the page must be a mapping")
		}
	} else {
		scope = map[string]interface{}{}
	}
	loaded, err := p.LoadTemplate(ref)
	if err != nil {
		return nil, err
	}
	return p.planPages(loaded, recipes, counters, props, pattern, scope)
}

// planPages repeats one page layout until it declines to consume any
// recipe or produce any element. The first repetition is always emitted,
// guaranteeing a page exists for templates that carry page-level decoration
// regardless of recipe availability.
func (p *Project) planPages(
	template map[string]interface{}, recipes *[]*Recipe,
	counters Counters, props *RecipeProperties,
	pagePattern string, scope map[string]interface{},
) ([]*Action, error) {
	backgroundPath := ""
	if raw, exists := template["background"]; exists {
		subpath, ok := raw.(string)
		if !ok {
			return nil, NewTemplateError("the 'background' property must be a string")
		}
		path, err := FindExistingSubpath(p.imageDirs(), subpath)
		if err != nil {
			return nil, err
		}
		backgroundPath = path
	}

	templateName := p.config.Template
	if i := strings.LastIndex(templateName, "."); i >= 0 {
		templateName = templateName[:i]
	}

	var actions []*Action
	force := true // the first page of this template is always emitted
	for {
		action, err := p.buildPageAction(
			template, recipes, backgroundPath, counters, props,
			templateName, force, pagePattern, scope)
		if err != nil {
			return nil, err
		}
		force = false
		if action == nil {
			break
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// buildPageAction plans one repetition of a page. It returns nil when the
// page produced no element or consumed no recipe, unless force is set.
func (p *Project) buildPageAction(
	template map[string]interface{}, recipes *[]*Recipe,
	backgroundPath string, counters Counters, props *RecipeProperties,
	templateName string, force bool, pagePattern string,
	scope map[string]interface{},
) (*Action, error) {
	scale := p.config.Scale * floatOrDefault(template["scale"], 1)

	rawForeground, ok := template["foreground"].([]interface{})
	if !ok {
		return nil, NewTemplateError("the 'foreground' property of the page must be a list")
	}

	oldPoolSize := len(*recipes)
	var elements []element
	for _, rawItem := range rawForeground {
		item, ok := rawItem.(map[string]interface{})
		if !ok {
			return nil, NewTemplateError("every foreground item must be a mapping")
		}
		el, ok, err := p.buildElement(item, recipes, props, pagePattern)
		if err != nil {
			return nil, err
		}
		if ok {
			elements = append(elements, el)
		}
	}

	if !force {
		// If no recipes were consumed there is no more work to do.
		if len(*recipes) == oldPoolSize || len(elements) == 0 {
			return nil, nil
		}
	}

	p.imageNumber++
	return &Action{
		Index:          p.imageNumber,
		project:        p,
		template:       template,
		templateName:   templateName,
		backgroundPath: backgroundPath,
		scale:          scale,
		elements:       elements,
		// The property bag keeps changing as later pages match recipes;
		// the output name needs the value from this point of the plan.
		lastRecipe: props.LastRecipe,
		counters:   counters,
		props:      props,
		scope:      scope,
	}, nil
}

var recipeItemTypes = map[string]RecipeKind{
	"recipe_shaped":  RecipeCrafting,
	"recipe_furnace": RecipeFurnace,
	"recipe_brewing": RecipeBrewing,
}

// buildElement plans a single foreground item. Recipe items scan the
// remaining pool for the first matching recipe and consume it; when nothing
// matches they contribute no element and reset the last-recipe marker.
func (p *Project) buildElement(
	item map[string]interface{}, recipes *[]*Recipe,
	props *RecipeProperties, pagePattern string,
) (element, bool, error) {
	itemType, ok := item["item_type"].(string)
	if !ok {
		return element{}, false, NewTemplateError("foreground item has no 'item_type'")
	}

	if _, isRecipe := recipeItemTypes[itemType]; isRecipe || itemType == "recipe_any" {
		return p.buildRecipeElement(itemType, item, recipes, props, pagePattern)
	}
	switch itemType {
	case "image":
		if _, ok := item["image"].(string); !ok {
			return element{}, false, NewTemplateError(
				"the 'image' property of an image item must be a string")
		}
		if _, _, err := offsetOf(item); err != nil {
			return element{}, false, err
		}
		return element{
			kind:    elementImage,
			layout:  item,
			lastBag: props.LastBag(),
		}, true, nil
	case "text":
		return p.buildTextElement(item, props)
	default:
		return element{}, false, NewTemplateError(
			"unknown foreground item type: " + itemType)
	}
}

func (p *Project) buildRecipeElement(
	itemType string, item map[string]interface{}, recipes *[]*Recipe,
	props *RecipeProperties, pagePattern string,
) (element, bool, error) {
	accepted := map[RecipeKind]bool{}
	if kind, ok := recipeItemTypes[itemType]; ok {
		accepted[kind] = true
	} else {
		// recipe_any accepts the kinds it carries sub-layouts for.
		for name, kind := range recipeItemTypes {
			if _, exists := item[name]; exists {
				accepted[kind] = true
			}
		}
	}

	rawPattern, ok := item["recipe_pattern"].(string)
	if !ok {
		return element{}, false, NewTemplateError(
			"the 'recipe_pattern' property of a recipe item must be a string")
	}
	itemRegex, err := compileFullMatch(rawPattern)
	if err != nil {
		return element{}, false, NewTemplateError(
			"invalid recipe_pattern " + rawPattern + ": " + err.Error())
	}
	var pageRegex *regexp.Regexp
	if pagePattern != "" {
		if pageRegex, err = compileFullMatch(pagePattern); err != nil {
			return element{}, false, NewTemplateError(
				"invalid page recipe_pattern " + pagePattern + ": " + err.Error())
		}
	}

	// Find the first accepted recipe remaining in the pool.
	matched := -1
	for i, recipe := range *recipes {
		if !accepted[recipe.Kind] {
			continue
		}
		if !itemRegex.MatchString(recipe.Name) {
			continue
		}
		if pageRegex != nil && !pageRegex.MatchString(recipe.Name) {
			continue
		}
		matched = i
		break
	}
	if matched < 0 {
		props.LastRecipe = ""
		return element{}, false, nil
	}

	recipe := (*recipes)[matched]
	*recipes = append((*recipes)[:matched], (*recipes)[matched+1:]...)
	props.LastRecipe = recipe.Name

	layout := item
	if itemType == "recipe_any" {
		subKey := map[RecipeKind]string{
			RecipeCrafting: "recipe_shaped",
			RecipeFurnace:  "recipe_furnace",
			RecipeBrewing:  "recipe_brewing",
		}[recipe.Kind]
		if layout, ok = item[subKey].(map[string]interface{}); !ok {
			return element{}, false, NewTemplateError(
				"the '" + subKey + "' property of a recipe_any item must be a mapping")
		}
	}
	if _, _, err := offsetOf(layout); err != nil {
		return element{}, false, err
	}
	return element{kind: elementRecipe, layout: layout, recipe: recipe}, true, nil
}

func (p *Project) buildTextElement(
	item map[string]interface{}, props *RecipeProperties,
) (element, bool, error) {
	rawFont, ok := item["font"].(string)
	if !ok {
		return element{}, false, NewTemplateError(
			"the 'font' property of a text item must be a string")
	}
	fontPath, err := FindExistingSubpath(p.fontDirs(), rawFont)
	if err != nil {
		return element{}, false, err
	}

	alignment := stringOrDefault(item["alignment"], "left")
	switch alignment {
	case "left", "center", "right":
	default:
		return element{}, false, NewTemplateError(
			"unknown alignment type: '" + alignment + "'")
	}

	textColor := color.NRGBA{255, 255, 255, 255}
	if raw, exists := item["color"]; exists {
		values, err := intListOf(raw, "color")
		if err != nil {
			return element{}, false, err
		}
		channels := [4]int{255, 255, 255, 255}
		copy(channels[:], values)
		textColor = color.NRGBA{
			R: uint8(channels[0]), G: uint8(channels[1]),
			B: uint8(channels[2]), A: uint8(channels[3]),
		}
	}

	lineLength := 0
	if raw, exists := item["line_length"]; exists {
		if lineLength, ok = raw.(int); !ok {
			return element{}, false, NewTemplateError("line_length must be an integer")
		}
	}
	if _, _, err := offsetOf(item); err != nil {
		return element{}, false, err
	}

	return element{
		kind:       elementText,
		layout:     item,
		lastBag:    props.LastBag(),
		fontPath:   fontPath,
		textColor:  textColor,
		alignment:  alignment,
		anchor:     stringOrDefault(item["anchor"], "la"),
		spacing:    floatOrDefault(item["spacing"], 1),
		antiAlias:  boolOrDefault(item["anti_alias"], false),
		lineLength: lineLength,
	}, true, nil
}

// Run renders the action's page: it builds the background canvas, applies
// every foreground element in declared order and writes the bitmap to the
// output directory. A missing texture skips that one element with a
// warning; other element failures abort this action only.
func (a *Action) Run() error {
	size, err := sizeOf(a.template)
	if err != nil {
		return err
	}
	background, err := BuildComposite(size, a.scale, a.backgroundPath, nil)
	if err != nil {
		return err
	}
	for _, el := range a.elements {
		if err := a.applyElement(background, el); err != nil {
			if IsTextureNotFound(err) {
				a.project.logger.Warn("%v", err)
				continue
			}
			return err
		}
	}
	name, err := a.OutputName()
	if err != nil {
		return err
	}
	a.outputName = name
	path := filepath.Join(a.project.OutputDir(), name)
	return imaging.Save(background, path)
}

// OutputName resolves the action's output file name, including the 4-digit
// plan-time index prefix. Resolving may advance counters; it is intended to
// be called once, by Run.
func (a *Action) OutputName() (string, error) {
	pattern := "${template_name}"
	if raw, exists := a.template["output_file_name"]; exists {
		if s, ok := raw.(string); ok {
			pattern = s
		} else {
			a.project.logger.Warn("output_file_name is not a string, using default")
		}
	}
	text := ResolveOutputName(pattern, a.lastRecipe, a.templateName)

	// Resolve again so counters and variables work in file names.
	bag := PropertyBag(nil)
	if a.lastRecipe != "" {
		if b, ok := a.props.Bags[a.lastRecipe]; ok {
			bag = b
		} else {
			bag = PropertyBag{}
		}
	}
	text = ResolveText(text, a.counters, bag, a.scope)
	return fmt.Sprintf("%04d_%s", a.Index, strings.TrimSpace(text+".png")), nil
}

func (a *Action) applyElement(background *image.NRGBA, el element) error {
	switch el.kind {
	case elementRecipe:
		return a.applyRecipeElement(background, el)
	case elementImage:
		return a.applyImageElement(background, el)
	case elementText:
		return a.applyTextElement(background, el)
	default:
		return NewTemplateError("unreachable foreground element kind")
	}
}

// slotProviders builds the texture providers for the slots of a recipe
// element, keyed the way the layout's "items" mapping refers to them:
// "row,col" grid cells plus result for crafting, input/output for furnace,
// input/reagent/output for brewing.
func (a *Action) slotProviders(
	recipe *Recipe, items map[string]interface{},
) (map[string]ImageProvider, error) {
	providers := map[string]ImageProvider{}
	resolve := func(slot string, key RecipeKey) error {
		if _, wanted := items[slot]; !wanted {
			return nil
		}
		provider, err := a.project.ResolveTexture(key, recipe.Name)
		if err != nil {
			return err
		}
		providers[slot] = provider
		return nil
	}

	switch recipe.Kind {
	case RecipeCrafting:
		for i, row := range recipe.Pattern {
			for j, symbol := range strings.Split(row, "") {
				if symbol == " " {
					continue
				}
				slot := fmt.Sprintf("%d,%d", i, j)
				if _, wanted := items[slot]; !wanted {
					continue
				}
				provider, err := a.project.ResolveTexture(recipe.Keys[symbol], recipe.Name)
				if err != nil {
					return nil, err
				}
				providers[slot] = provider
			}
		}
		if err := resolve("result", recipe.Result); err != nil {
			return nil, err
		}
	case RecipeFurnace:
		if err := resolve("input", recipe.Input); err != nil {
			return nil, err
		}
		if err := resolve("output", recipe.Output); err != nil {
			return nil, err
		}
	case RecipeBrewing:
		if err := resolve("input", recipe.Input); err != nil {
			return nil, err
		}
		if err := resolve("reagent", recipe.Reagent); err != nil {
			return nil, err
		}
		if err := resolve("output", recipe.Output); err != nil {
			return nil, err
		}
	}
	return providers, nil
}

func (a *Action) applyRecipeElement(background *image.NRGBA, el element) error {
	items, ok := el.layout["items"].(map[string]interface{})
	if !ok {
		return NewTemplateError("the 'items' property of a recipe item must be a mapping")
	}
	providers, err := a.slotProviders(el.recipe, items)
	if err != nil {
		return err
	}

	trueBackground := ""
	if raw, exists := el.layout["background"]; exists {
		subpath, ok := raw.(string)
		if !ok {
			return NewTemplateError("the 'background' property must be a string")
		}
		if trueBackground, err = FindExistingSubpath(a.project.imageDirs(), subpath); err != nil {
			return err
		}
	}

	// Slot keys are iterated in sorted order so overlapping slots render
	// deterministically.
	slots := make([]string, 0, len(items))
	for slot := range items {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	var subimages []Subimage
	for _, slot := range slots {
		provider, ok := providers[slot]
		if !ok {
			continue // sometimes some slots are empty
		}
		slotLayout, ok := items[slot].(map[string]interface{})
		if !ok {
			return NewTemplateError("every recipe slot must be a mapping")
		}
		x, y, err := offsetOf(slotLayout)
		if err != nil {
			return err
		}
		w, h, err := pairOf(slotLayout, "size")
		if err != nil {
			return err
		}
		subimages = append(subimages, Subimage{
			X: x, Y: y, Scale: 1,
			Provider: provider,
			Box: &PadBox{
				Width: w, Height: h,
				AlignX: AlignXMiddle, AlignY: AlignBottom,
			},
		})
	}

	size, err := sizeOf(el.layout)
	if err != nil {
		return err
	}
	foreground, err := BuildComposite(
		size, floatOrDefault(el.layout["scale"], 1)*a.scale,
		trueBackground, subimages)
	if err != nil {
		return err
	}
	x, y, err := offsetOf(el.layout)
	if err != nil {
		return err
	}
	OverlayImage(background, foreground, image.Pt(
		int(float64(x)*a.scale), int(float64(y)*a.scale)))
	return nil
}

func (a *Action) applyImageElement(background *image.NRGBA, el element) error {
	// The path expression is resolved here rather than at plan time:
	// resolving may advance counters even when the image ends up missing.
	subpath := ResolveText(
		el.layout["image"].(string), a.counters, el.lastBag, a.scope)
	if subpath == "" {
		return nil
	}
	path, err := FindExistingSubpath(a.project.imageDirs(), subpath)
	if err != nil {
		a.project.logger.Warn("Unable to find image:\n%v", err)
		return nil
	}

	var box *PadBox
	if _, exists := el.layout["size"]; exists {
		w, h, err := pairOf(el.layout, "size")
		if err != nil {
			return err
		}
		box = &PadBox{Width: w, Height: h, AlignX: AlignXMiddle, AlignY: AlignYMiddle}
	}
	x, y, err := offsetOf(el.layout)
	if err != nil {
		return err
	}
	return PasteSubimage(background, a.scale, Subimage{
		X: x, Y: y,
		Scale:    floatOrDefault(el.layout["scale"], 1),
		Provider: func() (image.Image, error) { return OpenImage(path) },
		Box:      box,
	})
}

func (a *Action) applyTextElement(background *image.NRGBA, el element) error {
	text := propertyString(el.layout["text"])
	text = ResolveText(text, a.counters, el.lastBag, a.scope)
	if el.lineLength > 0 {
		text = WrapText(text, el.lineLength)
	}
	x, y, err := offsetOf(el.layout)
	if err != nil {
		return err
	}
	return PasteText(background, a.scale, TextSpec{
		Text: text,
		X:    x, Y: y,
		Size:        floatOrDefault(el.layout["scale"], 12),
		FontPath:    el.fontPath,
		Color:       el.textColor,
		Alignment:   el.alignment,
		Anchor:      el.anchor,
		LineSpacing: el.spacing,
		AntiAlias:   el.antiAlias,
	})
}

// compileFullMatch anchors a recipe pattern so it must match the whole name.
func compileFullMatch(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")$")
}

// Conversions from the loosely typed template documents.

func floatOrDefault(raw interface{}, fallback float64) float64 {
	switch v := raw.(type) {
	case int:
		return float64(v)
	case float64:
		return v
	default:
		return fallback
	}
}

func boolOrDefault(raw interface{}, fallback bool) bool {
	if b, ok := raw.(bool); ok {
		return b
	}
	return fallback
}

func intListOf(raw interface{}, name string) ([]int, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, NewTemplateError("the '" + name + "' property must be a list of integers")
	}
	values := make([]int, len(list))
	for i, item := range list {
		n, ok := item.(int)
		if !ok {
			return nil, NewTemplateError("the '" + name + "' property must be a list of integers")
		}
		values[i] = n
	}
	return values, nil
}

func pairOf(layout map[string]interface{}, name string) (int, int, error) {
	values, err := intListOf(layout[name], name)
	if err != nil {
		return 0, 0, err
	}
	if len(values) != 2 {
		return 0, 0, NewTemplateError("the '" + name + "' property must hold two integers")
	}
	return values[0], values[1], nil
}

func offsetOf(layout map[string]interface{}) (int, int, error) {
	return pairOf(layout, "offset")
}

// sizeOf reads an optional [width, height] size property.
func sizeOf(layout map[string]interface{}) (*image.Point, error) {
	raw, exists := layout["size"]
	if !exists {
		return nil, nil
	}
	values, err := intListOf(raw, "size")
	if err != nil {
		return nil, err
	}
	if len(values) != 2 {
		return nil, NewTemplateError("the 'size' property must hold two integers")
	}
	return &image.Point{X: values[0], Y: values[1]}, nil
}
