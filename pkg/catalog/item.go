// Package catalog holds the read-only product, supply and land listings and
// the filter used to browse them.
//
// A Catalog is a fixed list of Items plus the rules for how a search term,
// category and location select from it. Filtering never mutates the source
// list and preserves its order.
package catalog

// Field names an Item attribute that predicates can inspect
type Field string

const (
	FieldName     Field = "name"
	FieldVendor   Field = "vendor"
	FieldCategory Field = "category"
	FieldLocation Field = "location"
)

// Item is one read-only catalog record. Land listings use the extra
// Size, Duration, SoilType and WaterAccess attributes.
type Item struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Category    string  `json:"category" yaml:"category"`
	Location    string  `json:"location,omitempty" yaml:"location,omitempty"`
	Vendor      string  `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Price       float64 `json:"price" yaml:"price"`
	PriceLabel  string  `json:"price_label" yaml:"price_label"`
	Available   bool    `json:"available" yaml:"available"`
	Rating      float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Image       string  `json:"image,omitempty" yaml:"image,omitempty"`

	Size        string `json:"size,omitempty" yaml:"size,omitempty"`
	Duration    string `json:"duration,omitempty" yaml:"duration,omitempty"`
	SoilType    string `json:"soil_type,omitempty" yaml:"soil_type,omitempty"`
	WaterAccess string `json:"water_access,omitempty" yaml:"water_access,omitempty"`
}

// Field returns the value of f, or "" for an unknown field
func (it Item) Field(f Field) string {
	switch f {
	case FieldName:
		return it.Name
	case FieldVendor:
		return it.Vendor
	case FieldCategory:
		return it.Category
	case FieldLocation:
		return it.Location
	}
	return ""
}
