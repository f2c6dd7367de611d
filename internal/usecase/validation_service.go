package usecase

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cartsmash/backend/internal/domain"
)

const defaultAlternativesLimit = 8

// ValidationConfig holds configuration for the validation service
type ValidationConfig struct {
	Matching          MatchConfig
	AlternativesLimit int
}

// ValidationService validates single products against the reference catalog,
// attaching pricing, retailer availability, and alternative products
type ValidationService struct {
	provider domain.CatalogProvider
	matcher  *MatchingService
	altLimit int
	logger   zerolog.Logger
}

// NewValidationService creates a new validation service with dependencies
func NewValidationService(provider domain.CatalogProvider, config ValidationConfig, logger zerolog.Logger) *ValidationService {
	altLimit := config.AlternativesLimit
	if altLimit <= 0 {
		altLimit = defaultAlternativesLimit
	}

	return &ValidationService{
		provider: provider,
		matcher:  NewMatchingService(config.Matching, logger),
		altLimit: altLimit,
		logger:   logger,
	}
}

// Validate matches one query against the catalog and enriches the result
// with pricing and availability. Match failures are data, not errors; an
// error return is reserved for malformed requests and cancellation.
func (s *ValidationService) Validate(ctx context.Context, query domain.MatchQuery) (*domain.MatchResult, error) {
	if strings.TrimSpace(query.RawText) == "" {
		return &domain.MatchResult{
			IsValid: false,
			Reason:  "empty query",
		}, nil
	}
	if query.Quantity.IsNegative() {
		return nil, domain.ErrInvalidRequest
	}

	result, err := s.matcher.FindMatch(ctx, query.RawText, s.provider.Catalog())
	if err != nil {
		return nil, err
	}
	if !result.IsValid {
		return result, nil
	}

	quantity := query.Quantity
	if quantity.IsZero() {
		quantity = decimal.NewFromInt(1)
	}

	result.TotalPrice = result.Entry.UnitPrice.Mul(quantity).Round(2)
	result.Retailers = filterRetailers(result.Entry.Retailers, query.PreferredRetailers)
	result.Alternatives = s.alternatives(result.Entry)

	return result, nil
}

// filterRetailers intersects availability with the caller's preference.
// An empty preference means "any" and passes availability through.
func filterRetailers(available, preferred []string) []string {
	if len(preferred) == 0 {
		return available
	}

	want := make(map[string]bool, len(preferred))
	for _, r := range preferred {
		want[r] = true
	}

	var filtered []string
	for _, r := range available {
		if want[r] {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// alternatives collects up to the limit: catalog entries named as common
// substitutes first, then remaining same-category entries
func (s *ValidationService) alternatives(matched *domain.CatalogEntry) []domain.Alternative {
	catalog := s.provider.Catalog()
	var alternatives []domain.Alternative
	seen := map[string]bool{matched.ID: true}

	for _, name := range matched.AlternativeNames {
		if len(alternatives) >= s.altLimit {
			return alternatives
		}
		entry, ok := catalog.Lookup(NormalizeQuery(name))
		if !ok || seen[entry.ID] {
			continue
		}
		seen[entry.ID] = true
		alternatives = append(alternatives, domain.Alternative{
			Name:      entry.CanonicalName,
			Category:  entry.Category,
			UnitPrice: entry.UnitPrice,
			Kind:      domain.AlternativeCommonSubstitute,
		})
	}

	for _, key := range catalog.Keys() {
		if len(alternatives) >= s.altLimit {
			break
		}
		entry := catalog.Get(key)
		if seen[entry.ID] || entry.Category != matched.Category {
			continue
		}
		seen[entry.ID] = true
		alternatives = append(alternatives, domain.Alternative{
			Name:      entry.CanonicalName,
			Category:  entry.Category,
			UnitPrice: entry.UnitPrice,
			Kind:      domain.AlternativeSameCategory,
		})
	}

	return alternatives
}
