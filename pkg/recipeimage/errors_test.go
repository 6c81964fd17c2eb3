package recipeimage

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "InvalidRecipeError with path",
			err:     &InvalidRecipeError{Path: "recipes/a.json", Message: "pattern is not 3x3"},
			wantMsg: "invalid recipe recipes/a.json: pattern is not 3x3",
		},
		{
			name:    "InvalidRecipeError without path",
			err:     NewInvalidRecipeError("pattern is not 3x3"),
			wantMsg: "invalid recipe: pattern is not 3x3",
		},
		{
			name:    "TextureNotFoundError with item",
			err:     NewTextureNotFoundError("demo:stone:0", "no resolution stage succeeded"),
			wantMsg: "texture not found for demo:stone:0: no resolution stage succeeded",
		},
		{
			name:    "TextureNotFoundError without item",
			err:     NewTextureNotFoundError("", "cannot decode file"),
			wantMsg: "texture not found: cannot decode file",
		},
		{
			name:    "TemplateError",
			err:     NewTemplateError("the 'pages' property of the template must be a list"),
			wantMsg: "template error: the 'pages' property of the template must be a list",
		},
		{
			name: "TemplateError with cause",
			err: &TemplateError{
				Message: "cannot parse template",
				Cause:   errors.New("unexpected token"),
			},
			wantMsg: "template error: cannot parse template: unexpected token",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestPathNotFoundErrorListsSearched(t *testing.T) {
	err := &PathNotFoundError{
		Subpath:  "images/bg.png",
		Searched: []string{"/work/images/bg.png", "/shared/images/bg.png"},
	}
	msg := err.Error()
	for _, want := range []string{
		`unable to locate "images/bg.png"`,
		"/work/images/bg.png",
		"/shared/images/bg.png",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() missing %q:\n%s", want, msg)
		}
	}
}

func TestTemplateErrorUnwrap(t *testing.T) {
	cause := errors.New("unexpected token")
	err := &TemplateError{Message: "cannot parse", Cause: cause}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the wrapped cause")
	}
}

func TestErrorPredicates(t *testing.T) {
	textureErr := NewTextureNotFoundError("demo:stone", "gone")
	pathErr := &PathNotFoundError{Subpath: "x"}

	if !IsTextureNotFound(textureErr) {
		t.Error("IsTextureNotFound() should match a TextureNotFoundError")
	}
	if IsTextureNotFound(pathErr) {
		t.Error("IsTextureNotFound() should not match a PathNotFoundError")
	}
	if !IsPathNotFound(pathErr) {
		t.Error("IsPathNotFound() should match a PathNotFoundError")
	}

	// Predicates look through wrapping.
	wrapped := fmt.Errorf("loading element: %w", textureErr)
	if !IsTextureNotFound(wrapped) {
		t.Error("IsTextureNotFound() should match through wrapping")
	}
}

func TestErrTextureDeclined(t *testing.T) {
	wrapped := fmt.Errorf("getter: %w", ErrTextureDeclined)
	if !errors.Is(wrapped, ErrTextureDeclined) {
		t.Error("errors.Is() should match the sentinel through wrapping")
	}
}
