// Package slug derives URL-safe identifiers from display names and resolves
// collisions within a uniqueness scope.
package slug

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxAttempts bounds the number of candidates MakeUnique will try.
const MaxAttempts = 10000

// ErrSlugExhausted is returned when MakeUnique runs out of candidates.
var ErrSlugExhausted = errors.New("slug: no unused candidate found")

var (
	// disallowed matches anything that isn't a letter, digit, whitespace, underscore or hyphen.
	disallowed = regexp.MustCompile(`[^a-z0-9\s_-]`)
	// separators collapses runs of whitespace, underscores and hyphens into one hyphen.
	separators = regexp.MustCompile(`[\s_-]+`)

	validSlug = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// ExistsFunc reports whether candidate is already taken in the caller's scope.
type ExistsFunc func(candidate string) (bool, error)

// Generate converts text into a lowercase, hyphen-separated slug.
// Example: "Hello, World!" → "hello-world". The result is empty when text
// holds no letters or digits; callers must reject that before persisting.
func Generate(text string) string {
	s := strings.ToLower(strings.TrimSpace(fold(text)))
	s = disallowed.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// fold strips combining marks so "Café" becomes "Cafe".
func fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

// MakeUnique returns base if it is free, otherwise the first free candidate
// of base-1, base-2, ...
func MakeUnique(base string, exists ExistsFunc) (string, error) {
	candidate := base
	for i := 1; i <= MaxAttempts; i++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", fmt.Errorf("slug: checking %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("%w after %d attempts for %q", ErrSlugExhausted, MaxAttempts, base)
}

// IsValid reports whether s is a canonical slug.
func IsValid(s string) bool {
	return validSlug.MatchString(s)
}
