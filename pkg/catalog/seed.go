package catalog

// Built-in catalog names
const (
	Marketplace = "marketplace"
	Shop        = "shop"
	Land        = "land"
)

// Builtin returns fresh copies of the seed catalogs
func Builtin() []*Catalog {
	return []*Catalog{marketplaceCatalog(), shopCatalog(), landCatalog()}
}

// BuiltinRegistry indexes the seed catalogs
func BuiltinRegistry() *Registry {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		panic(err) // seed data is static
	}
	return r
}

func marketplaceCatalog() *Catalog {
	return &Catalog{
		Name:         Marketplace,
		Title:        "Farmers Marketplace",
		SearchFields: []Field{FieldName, FieldVendor},
		CategoryMode: MatchExact,
		LocationMode: MatchExact,
		Purchasable:  true,
		Items: []Item{
			{ID: "mkt-1", Name: "Organic Tomatoes", Vendor: "Green Valley Farm", Location: "California", Price: 4.99, PriceLabel: "$4.99/lb", Rating: 4.8, Category: "Vegetables", Available: true, Description: "Fresh, organic tomatoes grown without pesticides"},
			{ID: "mkt-2", Name: "Sweet Corn", Vendor: "Sunny Acres", Location: "Iowa", Price: 3.50, PriceLabel: "$3.50/dozen", Rating: 4.9, Category: "Vegetables", Available: true, Description: "Non-GMO sweet corn, picked fresh daily"},
			{ID: "mkt-3", Name: "Honey Crisp Apples", Vendor: "Mountain View Orchard", Location: "Washington", Price: 5.99, PriceLabel: "$5.99/lb", Rating: 4.7, Category: "Fruits", Available: false, Description: "Crisp, sweet apples perfect for snacking"},
			{ID: "mkt-4", Name: "Fresh Lettuce", Vendor: "Organic Gardens", Location: "Arizona", Price: 2.99, PriceLabel: "$2.99/head", Rating: 4.6, Category: "Vegetables", Available: true, Description: "Hydroponically grown, pesticide-free lettuce"},
			{ID: "mkt-5", Name: "Free-Range Eggs", Vendor: "Happy Hen Farm", Location: "Vermont", Price: 6.99, PriceLabel: "$6.99/dozen", Rating: 4.9, Category: "Dairy & Eggs", Available: true, Description: "Farm-fresh eggs from pasture-raised hens"},
			{ID: "mkt-6", Name: "Raw Honey", Vendor: "Wildflower Apiaries", Location: "Texas", Price: 12.99, PriceLabel: "$12.99/jar", Rating: 4.8, Category: "Pantry", Available: true, Description: "Pure, unfiltered wildflower honey"},
		},
	}
}

func shopCatalog() *Catalog {
	return &Catalog{
		Name:         Shop,
		Title:        "Farm Supply Shop",
		SearchFields: []Field{FieldName},
		CategoryMode: MatchExact,
		Purchasable:  true,
		Items: []Item{
			{ID: "shop-1", Name: "Premium Fertilizer", Vendor: "AgriSupply Co.", Category: "Fertilizers", Price: 29.99, PriceLabel: "$29.99", Rating: 4.8, Available: true, Description: "High-quality organic fertilizer for all crops"},
			{ID: "shop-2", Name: "Heirloom Tomato Seeds", Vendor: "AgriSupply Co.", Category: "Seeds", Price: 4.99, PriceLabel: "$4.99", Rating: 4.9, Available: true, Description: "Non-GMO heirloom tomato seeds, 50 pack"},
			{ID: "shop-3", Name: "Professional Pruning Shears", Vendor: "AgriSupply Co.", Category: "Tools", Price: 45.99, PriceLabel: "$45.99", Rating: 4.7, Available: true, Description: "Heavy-duty steel pruning shears with ergonomic grip"},
			{ID: "shop-4", Name: "Drip Irrigation Kit", Vendor: "AgriSupply Co.", Category: "Irrigation", Price: 89.99, PriceLabel: "$89.99", Rating: 4.6, Available: true, Description: "Complete drip irrigation system for up to 100 plants"},
			{ID: "shop-5", Name: "Soil pH Test Kit", Vendor: "AgriSupply Co.", Category: "Testing", Price: 19.99, PriceLabel: "$19.99", Rating: 4.5, Available: true, Description: "Digital soil pH and moisture meter"},
			{ID: "shop-6", Name: "Organic Pesticide Spray", Vendor: "AgriSupply Co.", Category: "Pesticides", Price: 24.99, PriceLabel: "$24.99", Rating: 4.4, Available: false, Description: "Natural, eco-friendly pest control solution"},
			{ID: "shop-7", Name: "Garden Hoe Set", Vendor: "AgriSupply Co.", Category: "Tools", Price: 34.99, PriceLabel: "$34.99", Rating: 4.7, Available: true, Description: "3-piece professional garden hoe set"},
			{ID: "shop-8", Name: "Greenhouse Thermometer", Vendor: "AgriSupply Co.", Category: "Monitoring", Price: 15.99, PriceLabel: "$15.99", Rating: 4.3, Available: true, Description: "Digital min/max thermometer with humidity display"},
		},
	}
}

func landCatalog() *Catalog {
	return &Catalog{
		Name:         Land,
		Title:        "Land Leasing",
		SearchFields: []Field{FieldName, FieldLocation},
		CategoryMode: MatchExact,
		LocationMode: MatchContains,
		Items: []Item{
			{ID: "land-1", Name: "Prime Agricultural Land - 50 Acres", Location: "Central Valley, California", Size: "50 acres", Category: "Cropland", Price: 2500, PriceLabel: "$2,500/month", Duration: "12 months minimum", SoilType: "Clay Loam", WaterAccess: "Irrigation available", Description: "Fertile agricultural land perfect for crop production", Available: true, Vendor: "Valley Farms LLC"},
			{ID: "land-2", Name: "Organic Certified Farmland", Location: "Iowa Countryside", Size: "25 acres", Category: "Organic", Price: 1800, PriceLabel: "$1,800/month", Duration: "24 months", SoilType: "Rich Black Soil", WaterAccess: "Natural water source", Description: "USDA certified organic land ready for sustainable farming", Available: true, Vendor: "Green Earth Holdings"},
			{ID: "land-3", Name: "Greenhouse Complex with Land", Location: "Arizona Desert", Size: "15 acres + facilities", Category: "Greenhouse", Price: 4200, PriceLabel: "$4,200/month", Duration: "36 months", SoilType: "Controlled Environment", WaterAccess: "Hydroponic system", Description: "Modern greenhouse facilities for year-round production", Available: false, Vendor: "Desert Growth Systems"},
			{ID: "land-4", Name: "Pasture Land for Livestock", Location: "Texas Hill Country", Size: "100 acres", Category: "Pasture", Price: 1200, PriceLabel: "$1,200/month", Duration: "18 months", SoilType: "Sandy Loam", WaterAccess: "Multiple water wells", Description: "Rolling pasture perfect for cattle or sheep grazing", Available: true, Vendor: "Lone Star Ranch"},
		},
	}
}
