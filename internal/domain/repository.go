package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CatalogProvider supplies the reference catalog and retailer fee schedules,
// both loaded at process start
type CatalogProvider interface {
	Catalog() *Catalog
	FeeSchedule(retailerKey string) (RetailerFeeSchedule, bool)
}

// RetailerClient defines the interface for retailer product APIs
type RetailerClient interface {
	// SearchProducts queries the retailer's product-search API directly
	SearchProducts(ctx context.Context, query string) ([]ProductMatch, error)

	// SearchCatalog runs a broader keyword search against the retailer catalog
	SearchCatalog(ctx context.Context, query string) ([]ProductMatch, error)

	// CreateRecipePage synthesizes a recipe from the given ingredients and
	// returns the generated checkout-page URL
	CreateRecipePage(ctx context.Context, title string, ingredients []string) (string, error)
}

// PageFetcher retrieves raw page text for a URL
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// PageParser recovers product listings from fetched page text
type PageParser interface {
	ParseProducts(page string) []ProductMatch
}
