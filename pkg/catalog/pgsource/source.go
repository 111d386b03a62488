// Package pgsource loads catalogs from PostgreSQL.
//
// Items live in one table, catalog_items, keyed by (catalog, id) and ordered
// by position. Catalog definitions (search fields, match modes) come from a
// base set, normally the builtin catalogs; rows for an unknown catalog name
// get a name-search, exact-match definition.
package pgsource

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/itsneelabh/agrimarket/pkg/catalog"
	"github.com/itsneelabh/agrimarket/pkg/logger"
)

// PostgreSQL error codes the source distinguishes
const (
	PgErrUndefinedTable    = "42P01" // undefined_table
	PgErrConnectionFailure = "08006" // connection_failure
)

// ErrSchemaMissing is returned when catalog_items does not exist
var ErrSchemaMissing = errors.New("catalog_items table does not exist")

// ItemRecord is the catalog_items row
type ItemRecord struct {
	Catalog     string `gorm:"primaryKey;type:varchar(64)"`
	ID          string `gorm:"primaryKey;type:varchar(64)"`
	Position    int    `gorm:"not null;default:0;index"`
	Name        string `gorm:"not null"`
	Category    string `gorm:"index"`
	Location    string
	Vendor      string
	Price       float64 `gorm:"not null;default:0"`
	PriceLabel  string
	Available   bool `gorm:"not null;default:true"`
	Rating      float64
	Description string
	Image       string
	Size        string
	Duration    string
	SoilType    string
	WaterAccess string
}

// TableName pins the table name
func (ItemRecord) TableName() string {
	return "catalog_items"
}

func (r ItemRecord) toItem() catalog.Item {
	return catalog.Item{
		ID:          r.ID,
		Name:        r.Name,
		Category:    r.Category,
		Location:    r.Location,
		Vendor:      r.Vendor,
		Price:       r.Price,
		PriceLabel:  r.PriceLabel,
		Available:   r.Available,
		Rating:      r.Rating,
		Description: r.Description,
		Image:       r.Image,
		Size:        r.Size,
		Duration:    r.Duration,
		SoilType:    r.SoilType,
		WaterAccess: r.WaterAccess,
	}
}

func fromItem(catalogName string, position int, it catalog.Item) ItemRecord {
	return ItemRecord{
		Catalog:     catalogName,
		ID:          it.ID,
		Position:    position,
		Name:        it.Name,
		Category:    it.Category,
		Location:    it.Location,
		Vendor:      it.Vendor,
		Price:       it.Price,
		PriceLabel:  it.PriceLabel,
		Available:   it.Available,
		Rating:      it.Rating,
		Description: it.Description,
		Image:       it.Image,
		Size:        it.Size,
		Duration:    it.Duration,
		SoilType:    it.SoilType,
		WaterAccess: it.WaterAccess,
	}
}

// Source reads catalogs through GORM
type Source struct {
	db  *gorm.DB
	log logger.Logger
}

// Open connects to PostgreSQL using dsn
func Open(dsn string, log logger.Logger) (*Source, error) {
	if log == nil {
		log = logger.NewNop()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to catalog database: %w", err)
	}
	log.Info("Connected to catalog database")
	return New(db, log), nil
}

// New wraps an existing connection
func New(db *gorm.DB, log logger.Logger) *Source {
	if log == nil {
		log = logger.NewNop()
	}
	return &Source{db: db, log: log}
}

// Migrate creates or updates the catalog_items table
func (s *Source) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&ItemRecord{}); err != nil {
		return fmt.Errorf("failed to migrate catalog_items: %w", err)
	}
	return nil
}

// Import replaces the rows of c with its items
func (s *Source) Import(ctx context.Context, c *catalog.Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}
	records := make([]ItemRecord, 0, len(c.Items))
	for i, it := range c.Items {
		records = append(records, fromItem(c.Name, i, it))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("catalog = ?", c.Name).Delete(&ItemRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.Create(&records).Error
	})
	if err != nil {
		return classify(err)
	}
	s.log.Info("Imported catalog", "catalog", c.Name, "items", len(records))
	return nil
}

// Load reads every catalog in the table and overlays it on base
func (s *Source) Load(ctx context.Context, base []*catalog.Catalog) (*catalog.Registry, error) {
	var rows []ItemRecord
	if err := s.query(ctx).Find(&rows).Error; err != nil {
		return nil, classify(err)
	}
	overlay := Group(base, rows)
	s.log.Debug("Loaded catalogs from database", "rows", len(rows), "catalogs", len(overlay))
	return catalog.Merge(base, overlay)
}

func (s *Source) query(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&ItemRecord{}).Order("catalog, position, id")
}

// Close releases the underlying connection pool
func (s *Source) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Group turns ordered rows into catalogs, borrowing definitions from base
func Group(base []*catalog.Catalog, rows []ItemRecord) []*catalog.Catalog {
	defs := make(map[string]*catalog.Catalog, len(base))
	for _, c := range base {
		defs[c.Name] = c
	}

	var out []*catalog.Catalog
	index := map[string]*catalog.Catalog{}
	for _, row := range rows {
		c, ok := index[row.Catalog]
		if !ok {
			c = definition(defs[row.Catalog], row.Catalog)
			index[row.Catalog] = c
			out = append(out, c)
		}
		c.Items = append(c.Items, row.toItem())
	}
	return out
}

func definition(def *catalog.Catalog, name string) *catalog.Catalog {
	if def == nil {
		return &catalog.Catalog{
			Name:         name,
			Title:        name,
			SearchFields: []catalog.Field{catalog.FieldName},
			CategoryMode: catalog.MatchExact,
			LocationMode: catalog.MatchExact,
		}
	}
	return &catalog.Catalog{
		Name:         def.Name,
		Title:        def.Title,
		SearchFields: append([]catalog.Field(nil), def.SearchFields...),
		CategoryMode: def.CategoryMode,
		LocationMode: def.LocationMode,
		Purchasable:  def.Purchasable,
	}
}

func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == PgErrUndefinedTable {
		return fmt.Errorf("%w: %v", ErrSchemaMissing, err)
	}
	return fmt.Errorf("catalog database: %w", err)
}
