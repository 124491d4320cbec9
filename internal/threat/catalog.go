// Package threat detects weighted threat-pattern families in script text.
//
// The detection logic is generic scoring over a declarative table: each
// Family names a set of regular expressions, a weight, a category label,
// and whether repeated matches amplify the score. The built-in table is
// embedded from catalog.yaml; pack files can append more families.
package threat

import (
	_ "embed"
	"fmt"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// MaxMultiplier caps how many matches a count-multiplier family is paid for.
const MaxMultiplier = 5

// Family is one threat-pattern family as declared in YAML.
type Family struct {
	ID              string   `yaml:"id"`
	Category        string   `yaml:"category"`
	Weight          int      `yaml:"weight"`
	CountMultiplier bool     `yaml:"count_multiplier,omitempty"`
	Patterns        []string `yaml:"patterns"`

	compiled []*regexp.Regexp
}

// Regexps returns the compiled patterns, in declaration order.
func (f *Family) Regexps() []*regexp.Regexp {
	return f.compiled
}

// catalogFile is the on-disk shape of catalog.yaml and of pack files.
type catalogFile struct {
	Version     string   `yaml:"version"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Author      string   `yaml:"author"`
	Families    []Family `yaml:"families"`
}

// Catalog is an ordered, compiled, read-only set of families. A Catalog is
// safe for concurrent use by any number of analyses once built.
type Catalog struct {
	families []*Family
	byID     map[string]*Family
}

// Families returns the families in catalog order. Callers must not modify
// the returned families.
func (c *Catalog) Families() []*Family {
	return c.families
}

// Lookup returns the family with the given id.
func (c *Catalog) Lookup(id string) (*Family, bool) {
	f, ok := c.byID[id]
	return f, ok
}

// Len returns the number of families.
func (c *Catalog) Len() int {
	return len(c.families)
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the built-in catalog. It is parsed and compiled once per
// process; every caller shares the same instance.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(builtinCatalog)
		if err != nil {
			panic(fmt.Sprintf("threat: built-in catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{byID: make(map[string]*Family)}
	if err := c.add(file.Families); err != nil {
		return nil, err
	}
	return c, nil
}

// add validates, compiles and appends families. On error c is unchanged.
func (c *Catalog) add(families []Family) error {
	staged := make([]*Family, 0, len(families))
	seen := make(map[string]bool)

	for i := range families {
		f := families[i]
		if f.ID == "" {
			return fmt.Errorf("family %d: missing id", i)
		}
		if _, dup := c.byID[f.ID]; dup || seen[f.ID] {
			return fmt.Errorf("family %q: duplicate id", f.ID)
		}
		if f.Weight <= 0 {
			return fmt.Errorf("family %q: weight must be positive, got %d", f.ID, f.Weight)
		}
		if len(f.Patterns) == 0 {
			return fmt.Errorf("family %q: no patterns", f.ID)
		}

		f.compiled = make([]*regexp.Regexp, len(f.Patterns))
		for j, p := range f.Patterns {
			re, err := regexp.Compile("(?im)" + p)
			if err != nil {
				return fmt.Errorf("family %q pattern %d: %w", f.ID, j, err)
			}
			f.compiled[j] = re
		}

		seen[f.ID] = true
		staged = append(staged, &f)
	}

	for _, f := range staged {
		c.families = append(c.families, f)
		c.byID[f.ID] = f
	}
	return nil
}

// clone returns a catalog sharing the (immutable) families of c.
func (c *Catalog) clone() *Catalog {
	out := &Catalog{
		families: make([]*Family, len(c.families)),
		byID:     make(map[string]*Family, len(c.byID)),
	}
	copy(out.families, c.families)
	for k, v := range c.byID {
		out.byID[k] = v
	}
	return out
}
