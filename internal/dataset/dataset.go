package dataset

import (
	"github.com/pkg/errors"
)

// Sample is one labeled training example.
type Sample struct {
	Category string
	Name     string
}

// Dataset holds the normalized corpus: an ordered catalog of categories and
// the names belonging to each. Catalog order is fixed at load time and
// defines the integer label space (label = catalog position).
type Dataset struct {
	catalog []string
	labels  map[string]int
	names   map[string][]string
}

// New returns an empty Dataset.
func New() *Dataset {
	return &Dataset{
		labels: make(map[string]int),
		names:  make(map[string][]string),
	}
}

// Add appends a name to a category, registering the category at the end of
// the catalog on first sight.
func (d *Dataset) Add(category, name string) {
	if _, ok := d.labels[category]; !ok {
		d.labels[category] = len(d.catalog)
		d.catalog = append(d.catalog, category)
	}
	d.names[category] = append(d.names[category], name)
}

// Catalog returns the ordered category list. Callers must not mutate it.
func (d *Dataset) Catalog() []string {
	return d.catalog
}

// Label returns the integer label for a category.
func (d *Dataset) Label(category string) (int, error) {
	i, ok := d.labels[category]
	if !ok {
		return 0, errors.Errorf("dataset: unknown category %q", category)
	}
	return i, nil
}

// Names returns the names recorded under a category, in insertion order.
func (d *Dataset) Names(category string) []string {
	return d.names[category]
}

// Len returns the total number of samples across all categories.
func (d *Dataset) Len() int {
	n := 0
	for _, ns := range d.names {
		n += len(ns)
	}
	return n
}
