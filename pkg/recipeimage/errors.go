package recipeimage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTextureDeclined is returned by an interactive texture getter that does
// not want to answer a request. The resolution chain treats it like a missing
// texture and moves on to the next getter.
var ErrTextureDeclined = errors.New("texture request declined")

// InvalidRecipeError represents a malformed or unrecognized recipe document.
// It is fatal to that one file; the caller logs it and skips the file.
type InvalidRecipeError struct {
	Path    string
	Message string
}

func (e *InvalidRecipeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("invalid recipe %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("invalid recipe: %s", e.Message)
}

// NewInvalidRecipeError creates a new invalid recipe error
func NewInvalidRecipeError(message string) error {
	return &InvalidRecipeError{Message: message}
}

// TextureNotFoundError reports that every stage of the texture resolution
// chain was exhausted for an item. It is recoverable: the visual element is
// omitted from its page and the run continues.
type TextureNotFoundError struct {
	Item    string
	Message string
}

func (e *TextureNotFoundError) Error() string {
	if e.Item != "" && e.Message != "" {
		return fmt.Sprintf("texture not found for %s: %s", e.Item, e.Message)
	}
	if e.Item != "" {
		return fmt.Sprintf("texture not found for %s", e.Item)
	}
	return fmt.Sprintf("texture not found: %s", e.Message)
}

// NewTextureNotFoundError creates a new texture not found error
func NewTextureNotFoundError(item, message string) error {
	return &TextureNotFoundError{Item: item, Message: message}
}

// PathNotFoundError reports that a referenced file was absent from every
// search root it was looked up in.
type PathNotFoundError struct {
	Subpath  string
	Searched []string
}

func (e *PathNotFoundError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "unable to locate %q, searched paths:", e.Subpath)
	for _, s := range e.Searched {
		fmt.Fprintf(&sb, "\n\t- %s", s)
	}
	return sb.String()
}

// TemplateError represents a structural mistake in a template document
// (wrong type for pages, scope, line_length and similar). It indicates
// broken template authoring, not a missing asset, and is fatal to the run.
type TemplateError struct {
	Message string
	Cause   error
}

func (e *TemplateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("template error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("template error: %s", e.Message)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// NewTemplateError creates a new template error
func NewTemplateError(message string) error {
	return &TemplateError{Message: message}
}

// IsTextureNotFound reports whether err is a TextureNotFoundError anywhere
// in its chain.
func IsTextureNotFound(err error) bool {
	var tnf *TextureNotFoundError
	return errors.As(err, &tnf)
}

// IsPathNotFound reports whether err is a PathNotFoundError anywhere in its
// chain.
func IsPathNotFound(err error) bool {
	var pnf *PathNotFoundError
	return errors.As(err, &pnf)
}
