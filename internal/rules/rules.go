// Package rules holds the versioned extraction and categorization ruleset.
// Behavior the earlier prototypes hardcoded (keyword tables, field regexes)
// lives here as data, loadable from YAML and compiled once per session.
package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"billscan/constants"
)

// CategoryRule maps a category name to its keyword set. Keywords are matched
// as case-insensitive substrings, in order, first match wins.
type CategoryRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Patterns holds the ordered regex rules per field. Earlier entries have
// priority; every pattern is applied case-insensitively.
type Patterns struct {
	// Amount patterns need two capture groups: 1 = optional currency marker,
	// 2 = the numeric token.
	Amount []string `yaml:"amount"`
	// TotalLabel marks a line whose amount is preferred over all others.
	TotalLabel string `yaml:"total_label"`
	// Date, InvoiceNumber and Vendor capture the field value in group 1.
	Date          []string `yaml:"date"`
	InvoiceNumber []string `yaml:"invoice_number"`
	Vendor        []string `yaml:"vendor"`
}

// Ruleset is the externally loadable configuration document.
type Ruleset struct {
	Version         int            `yaml:"version"`
	DefaultCategory string         `yaml:"default_category"`
	DefaultCurrency string         `yaml:"default_currency"`
	Categories      []CategoryRule `yaml:"categories"`
	Patterns        Patterns       `yaml:"patterns"`
}

// Load reads and parses the ruleset at path, filling gaps from the compiled
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset: %w", err)
	}

	rs := Default()
	if err := yaml.Unmarshal(data, rs); err != nil {
		return nil, fmt.Errorf("parse ruleset: %w", err)
	}
	applyDefaults(rs)
	return rs, nil
}

func applyDefaults(rs *Ruleset) {
	def := Default()
	if rs.Version == 0 {
		rs.Version = def.Version
	}
	if rs.DefaultCategory == "" {
		rs.DefaultCategory = def.DefaultCategory
	}
	if rs.DefaultCurrency == "" {
		rs.DefaultCurrency = def.DefaultCurrency
	}
	if len(rs.Categories) == 0 {
		rs.Categories = def.Categories
	}
	if len(rs.Patterns.Amount) == 0 {
		rs.Patterns.Amount = def.Patterns.Amount
	}
	if rs.Patterns.TotalLabel == "" {
		rs.Patterns.TotalLabel = def.Patterns.TotalLabel
	}
	if len(rs.Patterns.Date) == 0 {
		rs.Patterns.Date = def.Patterns.Date
	}
	if len(rs.Patterns.InvoiceNumber) == 0 {
		rs.Patterns.InvoiceNumber = def.Patterns.InvoiceNumber
	}
	if len(rs.Patterns.Vendor) == 0 {
		rs.Patterns.Vendor = def.Patterns.Vendor
	}
}

// OverrideDefaultCurrency replaces the default currency when cur is
// non-empty. Deployment configuration wins over both the shipped and the
// loaded ruleset value.
func (rs *Ruleset) OverrideDefaultCurrency(cur string) {
	if cur != "" {
		rs.DefaultCurrency = cur
	}
}

// CompiledCategory is a category rule with lowercased keywords.
type CompiledCategory struct {
	Name     constants.Category
	Keywords []string
}

// Compiled is an immutable, regex-compiled view of a Ruleset. It is built
// once at session start and shared read-only by the pipeline.
type Compiled struct {
	Version         int
	DefaultCategory constants.Category
	DefaultCurrency constants.Currency
	Categories      []CompiledCategory
	Amount          []*regexp.Regexp
	TotalLabel      *regexp.Regexp
	Date            []*regexp.Regexp
	InvoiceNumber   []*regexp.Regexp
	Vendor          []*regexp.Regexp
}

// Compile validates the ruleset and compiles every pattern.
func (rs *Ruleset) Compile() (*Compiled, error) {
	if len(rs.Categories) == 0 {
		return nil, fmt.Errorf("ruleset has no categories")
	}

	c := &Compiled{
		Version:         rs.Version,
		DefaultCategory: constants.Category(rs.DefaultCategory),
		DefaultCurrency: constants.CanonicalizeCurrency(rs.DefaultCurrency),
	}
	if c.DefaultCategory == "" {
		c.DefaultCategory = constants.Uncategorized
	}

	seen := make(map[string]struct{}, len(rs.Categories))
	for _, cat := range rs.Categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			return nil, fmt.Errorf("category with empty name")
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate category %q", name)
		}
		seen[name] = struct{}{}

		kws := make([]string, 0, len(cat.Keywords))
		for _, kw := range cat.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		c.Categories = append(c.Categories, CompiledCategory{
			Name:     constants.Category(name),
			Keywords: kws,
		})
	}

	var err error
	if c.Amount, err = compileAll("amount", rs.Patterns.Amount); err != nil {
		return nil, err
	}
	if c.TotalLabel, err = regexp.Compile(rs.Patterns.TotalLabel); err != nil {
		return nil, fmt.Errorf("compile total_label pattern: %w", err)
	}
	if c.Date, err = compileAll("date", rs.Patterns.Date); err != nil {
		return nil, err
	}
	if c.InvoiceNumber, err = compileAll("invoice_number", rs.Patterns.InvoiceNumber); err != nil {
		return nil, err
	}
	if c.Vendor, err = compileAll("vendor", rs.Patterns.Vendor); err != nil {
		return nil, err
	}
	return c, nil
}

func compileAll(field string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile %s pattern %d: %w", field, i, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// IsKnown reports whether label is a member of the configured category set
// (including the default bucket). The category field on a record is closed
// world: it must always satisfy this.
func (c *Compiled) IsKnown(label string) bool {
	if label == string(c.DefaultCategory) {
		return true
	}
	for _, cat := range c.Categories {
		if label == string(cat.Name) {
			return true
		}
	}
	return false
}

// CategoryNames returns the configured labels in iteration order, default last.
func (c *Compiled) CategoryNames() []string {
	out := make([]string, 0, len(c.Categories)+1)
	for _, cat := range c.Categories {
		out = append(out, string(cat.Name))
	}
	if !contains(out, string(c.DefaultCategory)) {
		out = append(out, string(c.DefaultCategory))
	}
	return out
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
