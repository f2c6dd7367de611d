package domain

import "github.com/shopspring/decimal"

// Category classifies catalog entries into store departments
type Category string

const (
	CategoryProduce   Category = "produce"
	CategoryDairy     Category = "dairy"
	CategoryMeat      Category = "meat"
	CategoryBakery    Category = "bakery"
	CategoryPantry    Category = "pantry"
	CategoryFrozen    Category = "frozen"
	CategoryBeverages Category = "beverages"
	CategoryOther     Category = "other"
)

// CatalogEntry is a reference product loaded at startup.
// Entries are immutable during a request and never mutated by user action.
type CatalogEntry struct {
	ID               string             `json:"id"`
	CanonicalName    string             `json:"canonicalName"`
	Category         Category           `json:"category"`
	UnitPrice        decimal.Decimal    `json:"unitPrice"`
	Unit             string             `json:"unit"` // e.g. "lb", "dozen", "box"
	Retailers        []string           `json:"availableRetailers"`
	AlternativeNames []string           `json:"alternativeNames,omitempty"` // common substitutes
	Nutrition        map[string]float64 `json:"nutrition,omitempty"`
}

// Catalog is an insertion-ordered product reference table.
// Iteration order is preserved so tie-breaking during matching stays
// deterministic across runs.
type Catalog struct {
	keys    []string
	entries map[string]*CatalogEntry
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		entries: make(map[string]*CatalogEntry),
	}
}

// Add registers an entry under a lookup key. Re-adding an existing key
// replaces the entry but keeps its original position.
func (c *Catalog) Add(key string, entry CatalogEntry) {
	if _, exists := c.entries[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.entries[key] = &entry
}

// Lookup returns the entry stored under the exact key
func (c *Catalog) Lookup(key string) (*CatalogEntry, bool) {
	entry, ok := c.entries[key]
	return entry, ok
}

// Keys returns lookup keys in insertion order
func (c *Catalog) Keys() []string {
	return c.keys
}

// Get returns the entry at a known key without the presence flag
func (c *Catalog) Get(key string) *CatalogEntry {
	return c.entries[key]
}

// Len returns the number of entries
func (c *Catalog) Len() int {
	return len(c.keys)
}

// MatchQuery is a transient validation request, created per call
type MatchQuery struct {
	RawText            string          `json:"rawText"`
	Quantity           decimal.Decimal `json:"quantity"` // defaults to 1 when zero
	PreferredRetailers []string        `json:"preferredRetailers,omitempty"`
}

// Suggestion is a catalog entry summary offered when a match fails.
// Deliberately not the full entry, so a failed match never implies
// a confident one.
type Suggestion struct {
	Name      string          `json:"name"`
	Category  Category        `json:"category"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Alternative label values
const (
	AlternativeCommonSubstitute = "common substitute"
	AlternativeSameCategory     = "same category"
)

// Alternative is a related product attached to a successful match
type Alternative struct {
	Name      string          `json:"name"`
	Category  Category        `json:"category"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Kind      string          `json:"kind"`
}

// MatchResult is the output of a single product validation
type MatchResult struct {
	IsValid    bool          `json:"isValid"`
	Confidence float64       `json:"confidence"`
	Entry      *CatalogEntry `json:"matchedEntry,omitempty"`

	// Populated by the validator on success
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	Retailers    []string        `json:"retailers,omitempty"`
	Alternatives []Alternative   `json:"alternatives,omitempty"`

	// Populated on failure
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	Reason      string       `json:"reason,omitempty"`
}

// BatchOutcome aggregates a sequence of match results
type BatchOutcome struct {
	TotalItems     int              `json:"totalItems"`
	ValidItems     int              `json:"validItems"`
	InvalidItems   int              `json:"invalidItems"`
	CategoryCounts map[Category]int `json:"categoryCounts"`
	ValidationRate float64          `json:"validationRate"` // 0 when TotalItems is 0
}
