// Package target holds the static list of sources a run visits.
package target

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Shape hints at the kind of content a source is expected to carry. It is
// informational only; extraction always looks for tables and paragraphs.
type Shape string

const (
	ShapeTable     Shape = "table"
	ShapeText      Shape = "text"
	ShapeHeadlines Shape = "headlines"
)

// Descriptor identifies one source to visit.
type Descriptor struct {
	URL      string `yaml:"url" json:"url" toml:"url" validate:"required,url,startswith=http"`
	Category string `yaml:"category" json:"category" toml:"category" validate:"required"`
	Shape    Shape  `yaml:"shape" json:"shape" toml:"shape" validate:"omitempty,oneof=table text headlines"`
}

// ErrEmpty is returned when a registry would contain no targets.
var ErrEmpty = errors.New("target: registry is empty")

var validate = validator.New()

// Validate checks a single descriptor.
func (d Descriptor) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("target %q: %w", d.URL, err)
	}
	return nil
}

// Registry is an ordered, immutable list of descriptors. Order is the visit
// order and the order of records in the output.
type Registry struct {
	items []Descriptor
}

// New validates and copies descs into a Registry.
func New(descs []Descriptor) (Registry, error) {
	if len(descs) == 0 {
		return Registry{}, ErrEmpty
	}
	items := make([]Descriptor, 0, len(descs))
	for i, d := range descs {
		d.URL = strings.TrimSpace(d.URL)
		d.Category = strings.TrimSpace(d.Category)
		if err := d.Validate(); err != nil {
			return Registry{}, fmt.Errorf("targets[%d]: %w", i, err)
		}
		items = append(items, d)
	}
	return Registry{items: items}, nil
}

// Len reports the number of targets.
func (r Registry) Len() int { return len(r.items) }

// All returns a copy of the descriptors in registry order.
func (r Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.items))
	copy(out, r.items)
	return out
}

// Default returns the built-in list of Indian income tax reference pages.
func Default() Registry {
	return Registry{items: []Descriptor{
		{URL: "https://cleartax.in/s/income-tax-slabs", Category: "tax_slabs", Shape: ShapeTable},
		{URL: "https://taxguru.in/income-tax/income-tax-slab-rate-financial-year-2025-26.html", Category: "detailed_rates", Shape: ShapeText},
		{URL: "https://www.hdfcbank.com/personal/resources/learning-centre/save/income-tax-slabs", Category: "bank_view", Shape: ShapeTable},
		{URL: "https://www.bankbazaar.com/tax/income-tax-slabs.html", Category: "market_view", Shape: ShapeTable},
		{URL: "https://economictimes.indiatimes.com/wealth/tax", Category: "news_updates", Shape: ShapeHeadlines},
	}}
}
