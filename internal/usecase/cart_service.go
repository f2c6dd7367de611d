package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cartsmash/backend/internal/domain"
)

// Cart math defaults
const (
	defaultTaxRate      = "0.08" // flat approximation, not jurisdiction-aware
	defaultSurcharge    = "5.00" // added to delivery below the minimum order
	defaultBatchWorkers = 3
)

// CartConfig holds configuration for the cart service
type CartConfig struct {
	TaxRate              decimal.Decimal
	SmallBasketSurcharge decimal.Decimal
	BatchWorkers         int
	PromoCodes           []domain.PromoCode
}

// CartService validates item batches and prices full carts against a
// retailer's fee schedule
type CartService struct {
	provider  domain.CatalogProvider
	validator *ValidationService
	taxRate   decimal.Decimal
	surcharge decimal.Decimal
	workers   int
	promos    map[string]domain.PromoCode
	logger    zerolog.Logger
}

// NewCartService creates a new cart service with dependencies
func NewCartService(provider domain.CatalogProvider, validator *ValidationService, config CartConfig, logger zerolog.Logger) *CartService {
	taxRate := config.TaxRate
	if taxRate.IsZero() {
		taxRate = decimal.RequireFromString(defaultTaxRate)
	}
	surcharge := config.SmallBasketSurcharge
	if surcharge.IsZero() {
		surcharge = decimal.RequireFromString(defaultSurcharge)
	}
	workers := config.BatchWorkers
	if workers <= 0 {
		workers = defaultBatchWorkers
	}

	promos := make(map[string]domain.PromoCode, len(config.PromoCodes))
	for _, p := range config.PromoCodes {
		promos[strings.ToUpper(p.Code)] = p
	}

	return &CartService{
		provider:  provider,
		validator: validator,
		taxRate:   taxRate,
		surcharge: surcharge,
		workers:   workers,
		promos:    promos,
		logger:    logger,
	}
}

// ValidateBatch validates every item independently. A failed item never
// aborts the batch; results are index-aligned with the input regardless of
// completion order.
func (s *CartService) ValidateBatch(ctx context.Context, items []domain.MatchQuery) ([]*domain.MatchResult, domain.BatchOutcome) {
	results := make([]*domain.MatchResult, len(items))

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := s.validator.Validate(ctx, items[i])
			if err != nil {
				result = &domain.MatchResult{IsValid: false, Reason: err.Error()}
			}
			results[i] = result
		}(i)
	}
	wg.Wait()

	return results, summarize(results)
}

// summarize aggregates pass/fail counts and a per-category histogram
func summarize(results []*domain.MatchResult) domain.BatchOutcome {
	outcome := domain.BatchOutcome{
		TotalItems:     len(results),
		CategoryCounts: make(map[domain.Category]int),
	}

	for _, r := range results {
		if r.IsValid {
			outcome.ValidItems++
			outcome.CategoryCounts[r.Entry.Category]++
		} else {
			outcome.InvalidItems++
		}
	}

	if outcome.TotalItems > 0 {
		outcome.ValidationRate = float64(outcome.ValidItems) / float64(outcome.TotalItems)
	}
	return outcome
}

// CalculateCart validates every requested item and prices the resulting cart
// against the retailer's fee schedule. Unknown promo codes apply no discount
// and raise no error.
func (s *CartService) CalculateCart(ctx context.Context, items []domain.MatchQuery, retailerKey, promoCode string) (*domain.CartCalculation, error) {
	schedule, ok := s.provider.FeeSchedule(retailerKey)
	if !ok {
		return nil, domain.ErrUnknownRetailer
	}

	results, _ := s.ValidateBatch(ctx, items)

	calc := &domain.CartCalculation{
		LineItems:        []domain.CartLineItem{},
		UnavailableItems: []domain.UnavailableItem{},
	}

	subtotal := decimal.Zero
	for i, result := range results {
		if !result.IsValid {
			calc.UnavailableItems = append(calc.UnavailableItems, domain.UnavailableItem{
				OriginalQuery: items[i].RawText,
				Reason:        result.Reason,
				Suggestions:   result.Suggestions,
			})
			continue
		}

		quantity := items[i].Quantity
		if quantity.IsZero() {
			quantity = decimal.NewFromInt(1)
		}
		calc.LineItems = append(calc.LineItems, domain.CartLineItem{
			Name:      result.Entry.CanonicalName,
			Quantity:  quantity,
			UnitPrice: result.Entry.UnitPrice,
			LineTotal: result.TotalPrice,
		})
		subtotal = subtotal.Add(result.TotalPrice)
	}

	calc.Subtotal = subtotal.Round(2)
	calc.MeetsMinimumOrder = calc.Subtotal.GreaterThanOrEqual(schedule.MinimumOrder)

	calc.DeliveryFee = schedule.BaseDeliveryFee
	if !calc.MeetsMinimumOrder {
		calc.DeliveryFee = calc.DeliveryFee.Add(s.surcharge)
	}
	calc.ServiceFee = schedule.ServiceFee
	calc.Tax = calc.Subtotal.Mul(s.taxRate).Round(2)

	calc.Discount, calc.AppliedPromo = s.discount(calc.Subtotal, promoCode)

	total := calc.Subtotal.
		Add(calc.DeliveryFee).
		Add(calc.ServiceFee).
		Add(calc.Tax).
		Sub(calc.Discount).
		Round(2)
	if total.IsNegative() {
		total = decimal.Zero
	}
	calc.Total = total

	s.logger.Debug().
		Str("retailer", retailerKey).
		Int("lineItems", len(calc.LineItems)).
		Int("unavailable", len(calc.UnavailableItems)).
		Str("total", calc.Total.StringFixed(2)).
		Msg("cart calculated")

	return calc, nil
}

// discount resolves a promo code against the known table. The discount is
// clamped to the subtotal so a flat-amount code never drives the total
// negative on its own.
func (s *CartService) discount(subtotal decimal.Decimal, promoCode string) (decimal.Decimal, string) {
	code := strings.ToUpper(strings.TrimSpace(promoCode))
	if code == "" {
		return decimal.Zero, ""
	}

	promo, ok := s.promos[code]
	if !ok {
		// Unknown codes are silently ignored
		return decimal.Zero, ""
	}

	var discount decimal.Decimal
	if promo.PercentOff.IsPositive() {
		discount = subtotal.Mul(promo.PercentOff).Div(decimal.NewFromInt(100)).Round(2)
	} else {
		discount = promo.AmountOff.Round(2)
	}

	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount, promo.Code
}
