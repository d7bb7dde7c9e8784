package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var categorySlugRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// Slugs that collide with routing or would be confusing as category pages.
var reservedCategorySlugs = map[string]struct{}{
	"admin":      {},
	"api":        {},
	"auth":       {},
	"categories": {},
	"category":   {},
	"comments":   {},
	"flags":      {},
	"health":     {},
	"locations":  {},
	"login":      {},
	"logout":     {},
	"metrics":    {},
	"posts":      {},
	"profile":    {},
	"signup":     {},
	"static":     {},
	"uploads":    {},
	"users":      {},
}

// ValidateCategorySlug validates category slug format and reserved names.
// Slugs may contain letters, digits, hyphens, and underscores.
func ValidateCategorySlug(slug string) error {
	if !categorySlugRegex.MatchString(slug) {
		return fmt.Errorf("slug must be 1-64 characters and contain only letters, numbers, hyphens, and underscores")
	}

	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") ||
		strings.HasPrefix(slug, "_") || strings.HasSuffix(slug, "_") {
		return fmt.Errorf("slug cannot start or end with a hyphen or underscore")
	}

	if _, exists := reservedCategorySlugs[strings.ToLower(slug)]; exists {
		return fmt.Errorf("slug is reserved")
	}

	return nil
}
