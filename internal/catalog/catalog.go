// Package catalog holds the fixed product list offered when tagging media.
package catalog

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed products.yaml
var productsYAML []byte

// Product is a catalog entry that can be attached to media as a tag.
type Product struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Price    string `yaml:"price" json:"price"`
	Category string `yaml:"category" json:"category"`
}

// Catalog is an immutable, ordered product list.
type Catalog struct {
	products []Product
}

// Parse decodes a YAML product list.
func Parse(data []byte) (*Catalog, error) {
	var products []Product
	if err := yaml.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	seen := make(map[string]bool, len(products))
	for _, p := range products {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("catalog entry %q is missing an id or name", p.ID)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate catalog id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return &Catalog{products: products}, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(productsYAML)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// All returns every product in catalog order.
func (c *Catalog) All() []Product {
	return slices.Clone(c.products)
}

// Get returns the product with id.
func (c *Catalog) Get(id string) (Product, bool) {
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Filter returns products whose name or category contains query,
// case-insensitively. An empty query returns everything.
func (c *Catalog) Filter(query string) []Product {
	q := strings.ToLower(query)
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Category), q) {
			out = append(out, p)
		}
	}
	return out
}
