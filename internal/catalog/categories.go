package catalog

import "strings"

var canonicalCategories = []string{
	"Laptops & Computers",
	"CC TV & Cameras",
	"Home Equipment",
	"TV & Audio",
	"Phones & PCs",
	"Gaming & Fun",
	"Audio Equipment",
	"Accessories",
}

var categoryAliases = map[string]string{
	"laptops":     "Laptops & Computers",
	"cameras":     "CC TV & Cameras",
	"home":        "Home Equipment",
	"tv-audio":    "TV & Audio",
	"phones":      "Phones & PCs",
	"gaming":      "Gaming & Fun",
	"audio":       "Audio Equipment",
	"accessories": "Accessories",
}

// Categories returns the canonical category names in display order.
func Categories() []string {
	return append([]string(nil), canonicalCategories...)
}

// CanonicalCategory maps a query-parameter alias to its catalog category name.
func CanonicalCategory(alias string) (string, bool) {
	name, ok := categoryAliases[strings.ToLower(strings.TrimSpace(alias))]
	return name, ok
}

// MergeCategory adds the canonical category for alias to criteria. Unknown aliases and
// categories already selected leave criteria untouched.
func MergeCategory(criteria Criteria, alias string) (Criteria, bool) {
	name, ok := CanonicalCategory(alias)
	if !ok {
		return criteria, false
	}
	for _, existing := range criteria.Categories {
		if existing == name {
			return criteria, false
		}
	}
	next := criteria.Clone()
	next.Categories = append(next.Categories, name)
	return next, true
}
