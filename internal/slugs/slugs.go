// Package slugs derives URL and file name safe identifiers for tags and
// photos.
package slugs

import (
	"net/url"
	"strings"

	"github.com/goliatone/go-slug"
)

// Normalize applies the go-slug rules. Values go-slug cannot represent, for
// example titles written entirely in CJK, fall back to a lower-cased path
// escape so the result is never empty for non-empty input.
func Normalize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if normalized, err := slug.Normalize(value); err == nil && normalized != "" {
		return normalized
	}
	return strings.ToLower(url.PathEscape(value))
}

// IsValid reports whether value already matches the go-slug rules.
func IsValid(value string) bool {
	return slug.IsValid(value)
}
