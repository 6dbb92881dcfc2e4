// Package category assigns exactly one category label to a text blob.
package category

import (
	"log/slog"
	"strings"

	"billscan/constants"
	"billscan/internal/rules"
)

// Categorizer applies the configured keyword table with an explicit
// first-match policy: categories in configured order, keywords in configured
// order, first case-insensitive substring hit wins. Not best-match, not
// frequency-weighted.
type Categorizer struct {
	rules  *rules.Compiled
	logger *slog.Logger
}

func NewCategorizer(rs *rules.Compiled, logger *slog.Logger) *Categorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Categorizer{rules: rs, logger: logger}
}

// Categorize returns a member of the configured category set, falling back
// to the default bucket when no keyword matches.
func (c *Categorizer) Categorize(text string) constants.Category {
	lowered := strings.ToLower(text)
	for _, cat := range c.rules.Categories {
		for _, kw := range cat.Keywords {
			if strings.Contains(lowered, kw) {
				return cat.Name
			}
		}
	}
	return c.rules.DefaultCategory
}
