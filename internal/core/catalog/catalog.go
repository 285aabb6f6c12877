// Package catalog holds the read-only lookup tables the engine runs on:
// canonical schemas, header keyword hints, expense super-categories and
// industry benchmarks.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/sme-health/internal/core/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

const OtherSuperCategory = "other"

type Schema struct {
	Required []string `yaml:"required"`
	Optional []string `yaml:"optional"`
}

// Fields returns required fields followed by optional ones.
func (s Schema) Fields() []string {
	out := make([]string, 0, len(s.Required)+len(s.Optional))
	out = append(out, s.Required...)
	return append(out, s.Optional...)
}

type SuperCategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type document struct {
	Schemas                map[string]Schema                   `yaml:"schemas"`
	Hints                  map[string][]string                 `yaml:"hints"`
	ExpenseSuperCategories []SuperCategory                     `yaml:"expense_super_categories"`
	Benchmarks             map[string]domain.IndustryBenchmark `yaml:"benchmarks"`
}

// Catalog is immutable after Load and safe for concurrent use.
type Catalog struct {
	schemas    map[domain.DatasetKind]Schema
	hints      map[string][]string
	supers     []SuperCategory
	benchmarks map[string]domain.IndustryBenchmark
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(defaultCatalog)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded tables are invalid: %v", err))
		}
		defaultCat = c
	})
	return defaultCat
}

// Load parses a catalog document. Every dataset kind must have a schema.
func Load(raw []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		schemas:    make(map[domain.DatasetKind]Schema, len(doc.Schemas)),
		hints:      make(map[string][]string, len(doc.Hints)),
		supers:     doc.ExpenseSuperCategories,
		benchmarks: make(map[string]domain.IndustryBenchmark, len(doc.Benchmarks)),
	}
	for name, schema := range doc.Schemas {
		kind, ok := domain.ParseDatasetKind(name)
		if !ok {
			return nil, fmt.Errorf("unknown dataset kind %q", name)
		}
		c.schemas[kind] = schema
	}
	for _, kind := range domain.DatasetKinds {
		if _, ok := c.schemas[kind]; !ok {
			return nil, fmt.Errorf("missing schema for %q", kind)
		}
	}
	for field, keywords := range doc.Hints {
		lowered := make([]string, len(keywords))
		for i, kw := range keywords {
			lowered[i] = strings.ToLower(kw)
		}
		c.hints[field] = lowered
	}
	for name, b := range doc.Benchmarks {
		c.benchmarks[strings.ToLower(name)] = b
	}
	return c, nil
}

func (c *Catalog) Schema(kind domain.DatasetKind) Schema {
	return c.schemas[kind]
}

// Hints returns the keyword list for a canonical field, or nil when the
// field is never matched heuristically.
func (c *Catalog) Hints(field string) []string {
	return c.hints[field]
}

// SuperCategory maps a free-text expense category onto a coarse group.
func (c *Catalog) SuperCategory(category string) string {
	s := strings.ToLower(category)
	for _, sc := range c.supers {
		for _, kw := range sc.Keywords {
			if strings.Contains(s, kw) {
				return sc.Name
			}
		}
	}
	return OtherSuperCategory
}

// Benchmark looks up industry medians by case-insensitive label.
func (c *Catalog) Benchmark(industry string) (domain.IndustryBenchmark, bool) {
	b, ok := c.benchmarks[strings.ToLower(strings.TrimSpace(industry))]
	return b, ok
}
