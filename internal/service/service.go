package service

import (
	"context"
	"errors"
	"html/template"
	"strconv"
	"strings"

	"go-kb-app/internal/slug"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	// ErrHasArticles is returned when deleting a category or subcategory
	// that still owns articles.
	ErrHasArticles = errors.New("cannot delete while articles are filed under it")
	// ErrInvalidCredentials is returned for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Renderer turns Markdown source into sanitized HTML.
type Renderer interface {
	Render(src string) (template.HTML, error)
}

// RenderCache stores rendered HTML keyed by source digest.
type RenderCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// IsValidationError reports whether err carries per-field validation errors.
func IsValidationError(err error) bool {
	var errs validation.Errors
	return errors.As(err, &errs)
}

// FieldErrors flattens per-field validation errors into messages keyed by
// field name. It returns nil for any other error.
func FieldErrors(err error) map[string]string {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return nil
	}
	out := make(map[string]string, len(errs))
	for field, e := range errs {
		out[field] = e.Error()
	}
	return out
}

func fieldError(field, code, message string) error {
	return validation.Errors{field: validation.NewError(code, message)}
}

// resolveSlug derives a slug from name and makes it unique with exists.
// current is the entity's slug on edit and is kept when name still produces
// the same base.
func resolveSlug(field, name, current string, exists slug.ExistsFunc) (string, error) {
	base := slug.Generate(name)
	if base == "" {
		return "", fieldError(field, "validation_slug_empty", "must contain at least one letter or digit")
	}
	if current != "" && sameBase(current, base) {
		return current, nil
	}
	return slug.MakeUnique(base, exists)
}

// sameBase reports whether s is base or base followed by a numeric suffix.
func sameBase(s, base string) bool {
	if s == base {
		return true
	}
	suffix, ok := strings.CutPrefix(s, base+"-")
	if !ok || suffix == "" {
		return false
	}
	_, err := strconv.Atoi(suffix)
	return err == nil
}
