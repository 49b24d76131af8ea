package catalog

import (
	"strings"

	"storefront/internal/domain"
)

// Filter returns the products that belong to categoryID (when non-nil) and
// whose name or description contains search, ignoring case (when search is
// non-empty). Relative order is preserved and the input is never modified.
// A product without a description can only match on its name.
func Filter(products []domain.Product, categoryID *string, search string) []domain.Product {
	needle := strings.ToLower(search)
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if categoryID != nil && p.CategoryID != *categoryID {
			continue
		}
		if needle != "" && !matches(p, needle) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matches(p domain.Product, needle string) bool {
	if strings.Contains(strings.ToLower(p.Name), needle) {
		return true
	}
	return p.Description != nil && strings.Contains(strings.ToLower(*p.Description), needle)
}
