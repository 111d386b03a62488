package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrCatalogNotFound is returned for an unknown catalog name
	ErrCatalogNotFound = errors.New("catalog not found")
	// ErrItemNotFound is returned for an unknown item id
	ErrItemNotFound = errors.New("item not found")
	// ErrInvalidCatalog is returned when a catalog definition is malformed
	ErrInvalidCatalog = errors.New("invalid catalog")
)

// MatchMode selects how a criterion is compared with an item field
type MatchMode string

const (
	MatchIgnore   MatchMode = ""
	MatchExact    MatchMode = "exact"
	MatchContains MatchMode = "contains"
)

// Criteria are the browse inputs a shopper supplies
type Criteria struct {
	SearchTerm string `json:"search"`
	Category   string `json:"category"`
	Location   string `json:"location"`
}

// Catalog is a named, ordered, read-only list of items and the fields its
// criteria apply to.
type Catalog struct {
	Name         string    `json:"name" yaml:"name"`
	Title        string    `json:"title" yaml:"title"`
	SearchFields []Field   `json:"search_fields" yaml:"search_fields"`
	CategoryMode MatchMode `json:"category_match" yaml:"category_match"`
	LocationMode MatchMode `json:"location_match" yaml:"location_match"`
	// Purchasable catalogs can feed the cart; land is enquiry only
	Purchasable bool   `json:"purchasable" yaml:"purchasable"`
	Items       []Item `json:"items" yaml:"items"`
}

// Validate checks names, match modes and item id uniqueness
func (c *Catalog) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCatalog)
	}
	for _, m := range []MatchMode{c.CategoryMode, c.LocationMode} {
		switch m {
		case MatchIgnore, MatchExact, MatchContains:
		default:
			return fmt.Errorf("%w: %s: unknown match mode %q", ErrInvalidCatalog, c.Name, m)
		}
	}
	seen := make(map[string]struct{}, len(c.Items))
	for i, it := range c.Items {
		if it.ID == "" {
			return fmt.Errorf("%w: %s: item %d has no id", ErrInvalidCatalog, c.Name, i)
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("%w: %s: duplicate item id %q", ErrInvalidCatalog, c.Name, it.ID)
		}
		if it.Price < 0 {
			return fmt.Errorf("%w: %s: item %q has negative price", ErrInvalidCatalog, c.Name, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}

func match(mode MatchMode, field Field, value string) Predicate {
	switch mode {
	case MatchExact:
		return Equals(field, value)
	case MatchContains:
		return Contains(field, value)
	}
	return always
}

// Predicates translates criteria into this catalog's predicates
func (c *Catalog) Predicates(cr Criteria) []Predicate {
	return []Predicate{
		Search(cr.SearchTerm, c.SearchFields...),
		match(c.CategoryMode, FieldCategory, cr.Category),
		match(c.LocationMode, FieldLocation, cr.Location),
	}
}

// Filter returns the items matching cr in catalog order
func (c *Catalog) Filter(cr Criteria) []Item {
	return Filter(c.Items, c.Predicates(cr)...)
}

// Find returns the item with id
func (c *Catalog) Find(id string) (Item, error) {
	for _, it := range c.Items {
		if it.ID == id {
			return it, nil
		}
	}
	return Item{}, fmt.Errorf("%w: %s/%s", ErrItemNotFound, c.Name, id)
}

// Facets lists the distinct select-box values of a catalog
type Facets struct {
	Categories []string `json:"categories"`
	Locations  []string `json:"locations"`
}

// Facets returns distinct categories and locations in first-seen order
func (c *Catalog) Facets() Facets {
	f := Facets{Categories: []string{}, Locations: []string{}}
	seenCat := map[string]bool{}
	seenLoc := map[string]bool{}
	for _, it := range c.Items {
		if it.Category != "" && !seenCat[it.Category] {
			seenCat[it.Category] = true
			f.Categories = append(f.Categories, it.Category)
		}
		if c.LocationMode != MatchIgnore && it.Location != "" && !seenLoc[it.Location] {
			seenLoc[it.Location] = true
			f.Locations = append(f.Locations, it.Location)
		}
	}
	return f
}

// Registry holds catalogs by name
type Registry struct {
	catalogs map[string]*Catalog
}

// NewRegistry validates and indexes catalogs. Later duplicates are rejected.
func NewRegistry(catalogs ...*Catalog) (*Registry, error) {
	r := &Registry{catalogs: make(map[string]*Catalog, len(catalogs))}
	for _, c := range catalogs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.catalogs[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate catalog %q", ErrInvalidCatalog, c.Name)
		}
		r.catalogs[c.Name] = c
	}
	return r, nil
}

// Get returns the catalog called name
func (r *Registry) Get(name string) (*Catalog, error) {
	c, ok := r.catalogs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, name)
	}
	return c, nil
}

// Names returns catalog names sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.catalogs))
	for n := range r.catalogs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Item resolves an item across the registry
func (r *Registry) Item(catalogName, id string) (*Catalog, Item, error) {
	c, err := r.Get(catalogName)
	if err != nil {
		return nil, Item{}, err
	}
	it, err := c.Find(id)
	if err != nil {
		return nil, Item{}, err
	}
	return c, it, nil
}
