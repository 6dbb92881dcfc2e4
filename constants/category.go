package constants

import (
	"strings"
)

type Category string

const (
	Food          Category = "Food"
	Travel        Category = "Travel"
	Shopping      Category = "Shopping"
	Utilities     Category = "Utilities"
	Entertainment Category = "Entertainment"
	Medical       Category = "Medical"
	Uncategorized Category = "Uncategorized"
)

// allCategories is the closed world of category labels. Order matters: the
// categorizer walks it front to back and the first keyword hit wins.
var allCategories = []Category{
	Food,
	Travel,
	Shopping,
	Utilities,
	Entertainment,
	Medical,
	Uncategorized,
}

func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps free-form input onto a member of the category set.
// Unknown labels fall back to Uncategorized with ok=false.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Uncategorized, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// labels the earlier prototypes emitted for the same buckets
	synonyms := map[string]Category{
		"dining":        Food,
		"restaurant":    Food,
		"groceries":     Food,
		"transport":     Travel,
		"commute":       Travel,
		"bills":         Utilities,
		"utility":       Utilities,
		"health":        Medical,
		"pharmacy":      Medical,
		"other":         Uncategorized,
		"uncategorised": Uncategorized,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Uncategorized, false
}
