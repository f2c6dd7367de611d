package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductMatch is a ranked product returned by an external retailer search
type ProductMatch struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	PackageSize string          `json:"packageSize,omitempty"`
	Confidence  float64         `json:"confidence"`
}

// Search strategy identifiers, in attempt order
const (
	StrategyDirect  = "direct"
	StrategyRecipe  = "recipe"
	StrategyCatalog = "catalog"
)

// SearchResult carries ranked matches and the strategy that produced them
type SearchResult struct {
	Matches  []ProductMatch `json:"matches"`
	Strategy string         `json:"strategy"`
}

// CircuitStatus reports the state of one strategy's circuit breaker
type CircuitStatus struct {
	Strategy   string        `json:"strategy"`
	Open       bool          `json:"open"`
	RetryAfter time.Duration `json:"retryAfter"`
}
