package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/cartsmash/backend/internal/domain"
)

// StaticProvider serves the reference catalog and retailer fee schedules.
// Both are loaded once at process start and never mutated afterwards.
type StaticProvider struct {
	catalog   *domain.Catalog
	schedules map[string]domain.RetailerFeeSchedule
}

// entryRecord is the JSON file shape for one catalog entry
type entryRecord struct {
	Key   string              `json:"key"`
	Entry domain.CatalogEntry `json:"entry"`
}

// fileFormat is the JSON file shape for a full reference table
type fileFormat struct {
	Entries   []entryRecord                `json:"entries"`
	Retailers []domain.RetailerFeeSchedule `json:"retailers"`
}

// NewStaticProvider builds a provider from the built-in reference table
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		catalog:   defaultCatalog(),
		schedules: defaultSchedules(),
	}
}

// LoadFromFile builds a provider from a JSON reference table on disk
func LoadFromFile(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var file fileFormat
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}
	if len(file.Entries) == 0 {
		return nil, fmt.Errorf("catalog file %s contains no entries", path)
	}

	catalog := domain.NewCatalog()
	for _, record := range file.Entries {
		catalog.Add(record.Key, record.Entry)
	}

	schedules := make(map[string]domain.RetailerFeeSchedule, len(file.Retailers))
	for _, schedule := range file.Retailers {
		schedules[schedule.Key] = schedule
	}
	if len(schedules) == 0 {
		schedules = defaultSchedules()
	}

	return &StaticProvider{catalog: catalog, schedules: schedules}, nil
}

// Catalog returns the reference catalog
func (p *StaticProvider) Catalog() *domain.Catalog {
	return p.catalog
}

// FeeSchedule returns the fee schedule for a retailer key
func (p *StaticProvider) FeeSchedule(retailerKey string) (domain.RetailerFeeSchedule, bool) {
	schedule, ok := p.schedules[retailerKey]
	return schedule, ok
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// defaultSchedules returns the built-in retailer fee schedules
func defaultSchedules() map[string]domain.RetailerFeeSchedule {
	return map[string]domain.RetailerFeeSchedule{
		"instacart": {
			Key:             "instacart",
			Name:            "Instacart",
			BaseDeliveryFee: price("3.99"),
			ServiceFee:      price("2.00"),
			MinimumOrder:    price("35.00"),
		},
		"kroger": {
			Key:             "kroger",
			Name:            "Kroger Delivery",
			BaseDeliveryFee: price("4.95"),
			ServiceFee:      price("1.50"),
			MinimumOrder:    price("35.00"),
		},
	}
}

// defaultCatalog returns the built-in grocery reference table.
// Insertion order matters: it is the tie-break order during matching.
func defaultCatalog() *domain.Catalog {
	c := domain.NewCatalog()
	all := []string{"instacart", "kroger"}

	c.Add("milk", domain.CatalogEntry{
		ID: "dairy-001", CanonicalName: "Whole Milk 1 Gallon",
		Category: domain.CategoryDairy, UnitPrice: price("3.49"), Unit: "gallon",
		Retailers:        all,
		AlternativeNames: []string{"2% milk", "oat milk"},
		Nutrition:        map[string]float64{"calories": 150, "protein": 8, "fat": 8},
	})
	c.Add("2% milk", domain.CatalogEntry{
		ID: "dairy-002", CanonicalName: "2% Reduced Fat Milk 1 Gallon",
		Category: domain.CategoryDairy, UnitPrice: price("3.39"), Unit: "gallon",
		Retailers: all,
		Nutrition: map[string]float64{"calories": 120, "protein": 8, "fat": 5},
	})
	c.Add("oat milk", domain.CatalogEntry{
		ID: "dairy-003", CanonicalName: "Oat Milk Original 64 oz",
		Category: domain.CategoryDairy, UnitPrice: price("4.99"), Unit: "carton",
		Retailers: []string{"instacart"},
		Nutrition: map[string]float64{"calories": 120, "protein": 3, "fat": 5},
	})
	c.Add("eggs", domain.CatalogEntry{
		ID: "dairy-004", CanonicalName: "Large Grade A Eggs",
		Category: domain.CategoryDairy, UnitPrice: price("4.29"), Unit: "dozen",
		Retailers: all,
		Nutrition: map[string]float64{"calories": 70, "protein": 6, "fat": 5},
	})
	c.Add("butter", domain.CatalogEntry{
		ID: "dairy-005", CanonicalName: "Salted Butter 1 lb",
		Category: domain.CategoryDairy, UnitPrice: price("4.79"), Unit: "lb",
		Retailers:        all,
		AlternativeNames: []string{"margarine"},
	})
	c.Add("cheddar cheese", domain.CatalogEntry{
		ID: "dairy-006", CanonicalName: "Sharp Cheddar Cheese Block 8 oz",
		Category: domain.CategoryDairy, UnitPrice: price("3.99"), Unit: "block",
		Retailers: all,
	})
	c.Add("greek yogurt", domain.CatalogEntry{
		ID: "dairy-007", CanonicalName: "Plain Greek Yogurt 32 oz",
		Category: domain.CategoryDairy, UnitPrice: price("5.49"), Unit: "tub",
		Retailers: all,
		Nutrition: map[string]float64{"calories": 100, "protein": 17},
	})

	c.Add("chicken breast", domain.CatalogEntry{
		ID: "meat-001", CanonicalName: "Boneless Skinless Chicken Breast",
		Category: domain.CategoryMeat, UnitPrice: price("5.99"), Unit: "lb",
		Retailers:        all,
		AlternativeNames: []string{"chicken thighs", "turkey breast"},
		Nutrition:        map[string]float64{"calories": 165, "protein": 31, "fat": 3.6},
	})
	c.Add("chicken thighs", domain.CatalogEntry{
		ID: "meat-002", CanonicalName: "Boneless Chicken Thighs",
		Category: domain.CategoryMeat, UnitPrice: price("4.49"), Unit: "lb",
		Retailers: all,
	})
	c.Add("ground beef", domain.CatalogEntry{
		ID: "meat-003", CanonicalName: "Ground Beef 80/20",
		Category: domain.CategoryMeat, UnitPrice: price("5.49"), Unit: "lb",
		Retailers:        all,
		AlternativeNames: []string{"ground turkey"},
	})
	c.Add("ground turkey", domain.CatalogEntry{
		ID: "meat-004", CanonicalName: "Lean Ground Turkey",
		Category: domain.CategoryMeat, UnitPrice: price("5.99"), Unit: "lb",
		Retailers: []string{"kroger"},
	})
	c.Add("turkey breast", domain.CatalogEntry{
		ID: "meat-005", CanonicalName: "Turkey Breast Cutlets",
		Category: domain.CategoryMeat, UnitPrice: price("6.99"), Unit: "lb",
		Retailers: []string{"instacart"},
	})
	c.Add("salmon", domain.CatalogEntry{
		ID: "meat-006", CanonicalName: "Atlantic Salmon Fillet",
		Category: domain.CategoryMeat, UnitPrice: price("9.99"), Unit: "lb",
		Retailers: all,
		Nutrition: map[string]float64{"calories": 208, "protein": 20, "fat": 13},
	})

	c.Add("bananas", domain.CatalogEntry{
		ID: "produce-001", CanonicalName: "Bananas",
		Category: domain.CategoryProduce, UnitPrice: price("0.59"), Unit: "lb",
		Retailers: all,
	})
	c.Add("apples", domain.CatalogEntry{
		ID: "produce-002", CanonicalName: "Honeycrisp Apples",
		Category: domain.CategoryProduce, UnitPrice: price("2.49"), Unit: "lb",
		Retailers: all,
	})
	c.Add("spinach", domain.CatalogEntry{
		ID: "produce-003", CanonicalName: "Baby Spinach 5 oz",
		Category: domain.CategoryProduce, UnitPrice: price("2.99"), Unit: "bag",
		Retailers:        all,
		AlternativeNames: []string{"romaine lettuce"},
	})
	c.Add("romaine lettuce", domain.CatalogEntry{
		ID: "produce-004", CanonicalName: "Romaine Lettuce Hearts",
		Category: domain.CategoryProduce, UnitPrice: price("3.49"), Unit: "pack",
		Retailers: all,
	})
	c.Add("avocados", domain.CatalogEntry{
		ID: "produce-005", CanonicalName: "Hass Avocados",
		Category: domain.CategoryProduce, UnitPrice: price("1.25"), Unit: "each",
		Retailers: all,
	})
	c.Add("tomatoes", domain.CatalogEntry{
		ID: "produce-006", CanonicalName: "Roma Tomatoes",
		Category: domain.CategoryProduce, UnitPrice: price("1.79"), Unit: "lb",
		Retailers: all,
	})
	c.Add("yellow onions", domain.CatalogEntry{
		ID: "produce-007", CanonicalName: "Yellow Onions 3 lb",
		Category: domain.CategoryProduce, UnitPrice: price("2.29"), Unit: "bag",
		Retailers: all,
	})

	c.Add("bread", domain.CatalogEntry{
		ID: "bakery-001", CanonicalName: "Whole Wheat Sandwich Bread",
		Category: domain.CategoryBakery, UnitPrice: price("2.99"), Unit: "loaf",
		Retailers:        all,
		AlternativeNames: []string{"sourdough bread"},
	})
	c.Add("sourdough bread", domain.CatalogEntry{
		ID: "bakery-002", CanonicalName: "Sourdough Bread Loaf",
		Category: domain.CategoryBakery, UnitPrice: price("3.99"), Unit: "loaf",
		Retailers: []string{"instacart"},
	})
	c.Add("bagels", domain.CatalogEntry{
		ID: "bakery-003", CanonicalName: "Plain Bagels 6 Count",
		Category: domain.CategoryBakery, UnitPrice: price("3.49"), Unit: "bag",
		Retailers: all,
	})

	c.Add("rice", domain.CatalogEntry{
		ID: "pantry-001", CanonicalName: "Long Grain White Rice 5 lb",
		Category: domain.CategoryPantry, UnitPrice: price("4.99"), Unit: "bag",
		Retailers:        all,
		AlternativeNames: []string{"brown rice"},
	})
	c.Add("brown rice", domain.CatalogEntry{
		ID: "pantry-002", CanonicalName: "Whole Grain Brown Rice 2 lb",
		Category: domain.CategoryPantry, UnitPrice: price("3.29"), Unit: "bag",
		Retailers: all,
	})
	c.Add("pasta", domain.CatalogEntry{
		ID: "pantry-003", CanonicalName: "Spaghetti Pasta 16 oz",
		Category: domain.CategoryPantry, UnitPrice: price("1.49"), Unit: "box",
		Retailers: all,
	})
	c.Add("olive oil", domain.CatalogEntry{
		ID: "pantry-004", CanonicalName: "Extra Virgin Olive Oil 16.9 oz",
		Category: domain.CategoryPantry, UnitPrice: price("8.99"), Unit: "bottle",
		Retailers: all,
	})
	c.Add("peanut butter", domain.CatalogEntry{
		ID: "pantry-005", CanonicalName: "Creamy Peanut Butter 16 oz",
		Category: domain.CategoryPantry, UnitPrice: price("2.79"), Unit: "jar",
		Retailers: all,
		Nutrition: map[string]float64{"calories": 190, "protein": 7, "fat": 16},
	})

	c.Add("frozen peas", domain.CatalogEntry{
		ID: "frozen-001", CanonicalName: "Frozen Sweet Peas 12 oz",
		Category: domain.CategoryFrozen, UnitPrice: price("1.69"), Unit: "bag",
		Retailers: all,
	})
	c.Add("frozen pizza", domain.CatalogEntry{
		ID: "frozen-002", CanonicalName: "Frozen Cheese Pizza",
		Category: domain.CategoryFrozen, UnitPrice: price("5.99"), Unit: "each",
		Retailers: all,
	})

	c.Add("orange juice", domain.CatalogEntry{
		ID: "beverage-001", CanonicalName: "Orange Juice No Pulp 52 oz",
		Category: domain.CategoryBeverages, UnitPrice: price("3.99"), Unit: "carton",
		Retailers: all,
	})
	c.Add("coffee", domain.CatalogEntry{
		ID: "beverage-002", CanonicalName: "Medium Roast Ground Coffee 12 oz",
		Category: domain.CategoryBeverages, UnitPrice: price("7.99"), Unit: "bag",
		Retailers: all,
	})
	c.Add("sparkling water", domain.CatalogEntry{
		ID: "beverage-003", CanonicalName: "Sparkling Water 12 Pack",
		Category: domain.CategoryBeverages, UnitPrice: price("4.49"), Unit: "pack",
		Retailers: all,
	})

	return c
}
