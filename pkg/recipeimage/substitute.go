package recipeimage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Counters keeps the named, run-scoped integer sequences advanced by
// $counter tokens. It is created empty at the start of a run and mutated
// only as a side effect of token resolution.
type Counters map[string]int

// PropertyBag is the property map of a single recipe. Leaf values are
// strings or lists of strings.
type PropertyBag map[string]interface{}

// RecipeProperties maps recipe names to their property bags and tracks the
// name of the most recently matched recipe. LastRecipe is updated on every
// match attempt, including failed ones (then it is the empty string).
type RecipeProperties struct {
	Bags       map[string]PropertyBag
	LastRecipe string
}

// NewRecipeProperties creates an empty property store.
func NewRecipeProperties() *RecipeProperties {
	return &RecipeProperties{Bags: make(map[string]PropertyBag)}
}

// LastBag returns the bag of the most recently matched recipe, or nil when
// no recipe has matched since LastRecipe was last reset. A matched recipe
// without a property entry yields an empty, non-nil bag: its fields resolve
// to empty strings without collapsing the surrounding text.
func (p *RecipeProperties) LastBag() PropertyBag {
	if p.LastRecipe == "" {
		return nil
	}
	if bag, ok := p.Bags[p.LastRecipe]; ok {
		return bag
	}
	return PropertyBag{}
}

// SplitRecipeName splits a recipe identifier into namespace and name at the
// first colon. The namespace defaults to "minecraft" when absent.
func SplitRecipeName(identifier string) (namespace, name string) {
	if i := strings.Index(identifier, ":"); i >= 0 {
		return identifier[:i], identifier[i+1:]
	}
	return "minecraft", identifier
}

// Token grammar of the in-text substitution language. Both the plain and
// the brace-delimited forms are accepted with identical semantics.
var (
	counterTokenRegex = regexp.MustCompile(
		`^\$counter\.([A-Za-z_][A-Za-z0-9_]*)(?:\:([1-9][0-9]*))?(?:\:(\+?\d+|\-\d+))?`)
	counterBracesTokenRegex = regexp.MustCompile(
		`^\$\{counter\.([A-Za-z_][A-Za-z0-9_]*)(?:\:([1-9][0-9]*))?(?:\:(\+?\d+|\-\d+))?\}`)
	lastRecipeTokenRegex = regexp.MustCompile(
		`^\$last_recipe\.([A-Za-z_][A-Za-z0-9_]*)`)
	lastRecipeBracesTokenRegex = regexp.MustCompile(
		`^\$\{last_recipe\.([A-Za-z_][A-Za-z0-9_]*)\}`)
	varTokenRegex = regexp.MustCompile(
		`^\$var\.([A-Za-z_][A-Za-z0-9_]*)`)
	varBracesTokenRegex = regexp.MustCompile(
		`^\$\{var\.([A-Za-z_][A-Za-z0-9_]*)\}`)
	plainTextRegex = regexp.MustCompile(`^[^\$]+`)
)

type textTokenType int

const (
	tokenCounter textTokenType = iota
	tokenLastRecipe
	tokenVar
	tokenLiteral
)

type textToken struct {
	kind textTokenType
	// literal text for tokenLiteral; the token's name/field otherwise
	value string
	// counter parameters
	start  int
	offset int
}

// tokenizeText splits input into substitution tokens. Patterns are tried in
// priority order at each position; a lone '$' that starts no token is
// literal text.
func tokenizeText(input string) []textToken {
	var tokens []textToken
	for pos := 0; pos < len(input); {
		rest := input[pos:]
		if m := counterTokenRegex.FindStringSubmatch(rest); m != nil {
			tokens = append(tokens, counterToken(m))
			pos += len(m[0])
			continue
		}
		if m := counterBracesTokenRegex.FindStringSubmatch(rest); m != nil {
			tokens = append(tokens, counterToken(m))
			pos += len(m[0])
			continue
		}
		if m := lastRecipeTokenRegex.FindStringSubmatch(rest); m != nil {
			tokens = append(tokens, textToken{kind: tokenLastRecipe, value: m[1]})
			pos += len(m[0])
			continue
		}
		if m := lastRecipeBracesTokenRegex.FindStringSubmatch(rest); m != nil {
			tokens = append(tokens, textToken{kind: tokenLastRecipe, value: m[1]})
			pos += len(m[0])
			continue
		}
		if m := varTokenRegex.FindStringSubmatch(rest); m != nil {
			tokens = append(tokens, textToken{kind: tokenVar, value: m[1]})
			pos += len(m[0])
			continue
		}
		if m := varBracesTokenRegex.FindStringSubmatch(rest); m != nil {
			tokens = append(tokens, textToken{kind: tokenVar, value: m[1]})
			pos += len(m[0])
			continue
		}
		if m := plainTextRegex.FindString(rest); m != "" {
			tokens = append(tokens, textToken{kind: tokenLiteral, value: m})
			pos += len(m)
			continue
		}
		// A lone '$' that matches nothing else.
		tokens = append(tokens, textToken{kind: tokenLiteral, value: "$"})
		pos++
	}
	return tokens
}

func counterToken(m []string) textToken {
	token := textToken{kind: tokenCounter, value: m[1], start: 1}
	if m[2] != "" {
		if start, err := strconv.Atoi(m[2]); err == nil {
			token.start = start
		}
	}
	if m[3] != "" {
		if offset, err := strconv.Atoi(strings.TrimPrefix(m[3], "+")); err == nil {
			token.offset = offset
		}
	}
	return token
}

// ResolveText resolves the substitution tokens of text against the counter
// state, the property bag of the last matched recipe and the page-local
// scope. A nil lastBag (no recipe matched yet) or nil scope (no scope
// active) collapses the entire surrounding text to the empty string as soon
// as a $last_recipe or $var token is hit; templates rely on this to
// suppress whole captions.
//
// Counter tokens mutate counters as a side effect: the first reference to a
// name initializes it to its start value (default 1), every reference
// returns the current value plus the token's offset and then advances the
// counter by 1 + offset.
func ResolveText(
	text string, counters Counters, lastBag PropertyBag,
	scope map[string]interface{},
) string {
	var sb strings.Builder
	for _, token := range tokenizeText(text) {
		switch token.kind {
		case tokenCounter:
			if _, ok := counters[token.value]; !ok {
				counters[token.value] = token.start
			}
			value := counters[token.value]
			counters[token.value] = value + 1 + token.offset
			sb.WriteString(strconv.Itoa(value + token.offset))
		case tokenLastRecipe:
			if lastBag == nil {
				return ""
			}
			sb.WriteString(propertyString(lastBag[token.value]))
		case tokenVar:
			if scope == nil {
				return ""
			}
			sb.WriteString(propertyString(scope[token.value]))
		case tokenLiteral:
			sb.WriteString(token.value)
		}
	}
	return sb.String()
}

// propertyString renders a property value: strings pass through, lists are
// joined with newlines.
func propertyString(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []string:
		return strings.Join(value, "\n")
	case []interface{}:
		parts := make([]string, len(value))
		for i, item := range value {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprint(value)
	}
}

// Token grammar of the output file name language.
var (
	lastRecipeNameRegex      = regexp.MustCompile(`^\$(?:last_recipe_name|\{last_recipe_name\})`)
	lastRecipeNamespaceRegex = regexp.MustCompile(`^\$(?:last_recipe_namespace|\{last_recipe_namespace\})`)
	templateNameRegex        = regexp.MustCompile(`^\$(?:template_name|\{template_name\})`)
)

// ResolveOutputName resolves the output_file_name pattern of a template.
// lastRecipe is the identifier of the last matched recipe; when it is empty
// the name and namespace tokens substitute the literal "unknown" with a
// warning. templateName is the template's base name without extension.
func ResolveOutputName(pattern, lastRecipe, templateName string) string {
	recipeNamespace, recipeName := "", ""
	if lastRecipe != "" {
		recipeNamespace, recipeName = SplitRecipeName(lastRecipe)
	}

	var sb strings.Builder
	for pos := 0; pos < len(pattern); {
		rest := pattern[pos:]
		// The namespace token is checked first: $last_recipe_name is a
		// prefix of $last_recipe_namespace, so the longer token must win.
		if m := lastRecipeNamespaceRegex.FindString(rest); m != "" {
			if lastRecipe == "" {
				GetLogger().Warn(
					"The name of the file contains a reference to the " +
						"namespace of the last recipe, but the last recipe " +
						"is unknown. The namespace of the last recipe will " +
						"be replaced with 'unknown'.")
				sb.WriteString("unknown")
			} else {
				sb.WriteString(recipeNamespace)
			}
			pos += len(m)
			continue
		}
		if m := lastRecipeNameRegex.FindString(rest); m != "" {
			if lastRecipe == "" {
				GetLogger().Warn(
					"The name of the file contains a reference to the name " +
						"of the last recipe, but the last recipe is unknown. " +
						"The name of the last recipe will be replaced with " +
						"'unknown'.")
				sb.WriteString("unknown")
			} else {
				sb.WriteString(recipeName)
			}
			pos += len(m)
			continue
		}
		if m := templateNameRegex.FindString(rest); m != "" {
			sb.WriteString(templateName)
			pos += len(m)
			continue
		}
		if m := plainTextRegex.FindString(rest); m != "" {
			sb.WriteString(m)
			pos += len(m)
			continue
		}
		sb.WriteString("$")
		pos++
	}
	return sb.String()
}

// WrapText wraps text at width columns with a greedy word-by-word fill.
// Explicit line breaks are preserved and do not count towards the width.
// Words longer than the width are broken.
func WrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	var outputLines []string
	for _, line := range strings.Split(text, "\n") {
		outputLines = append(outputLines, wrapLine(line, width)...)
	}
	return strings.Join(outputLines, "\n")
}

func wrapLine(line string, width int) []string {
	words := strings.Fields(line)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := ""
	for _, word := range words {
		for len(word) > width {
			// Flush the current line and break the oversized word.
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			lines = append(lines, word[:width])
			word = word[width:]
		}
		if current == "" {
			current = word
		} else if len(current)+1+len(word) <= width {
			current += " " + word
		} else {
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
