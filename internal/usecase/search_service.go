package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cartsmash/backend/internal/domain"
)

// Orchestrator defaults
const (
	defaultCallTimeout    = 12 * time.Second
	defaultResultTTL      = 5 * time.Minute
	defaultCheckoutURLTTL = 30 * 24 * time.Hour
	recipeKeepThreshold   = 0.3
	recipeResultLimit     = 3
)

// SearchConfig holds configuration for the search orchestrator
type SearchConfig struct {
	Retailer       string
	CallTimeout    time.Duration
	ResultTTL      time.Duration
	CheckoutURLTTL time.Duration
	Breaker        BreakerConfig
}

// SearchService runs retailer product searches through ordered fallback
// strategies, each guarded by its own circuit breaker: the direct product
// API, a synthesized recipe page scraped for listings, then a generic
// catalog search.
type SearchService struct {
	retailer string
	client   domain.RetailerClient
	pages    domain.PageFetcher
	parser   domain.PageParser
	cache    domain.CacheRepository
	breakers map[string]*CircuitBreaker

	callTimeout    time.Duration
	resultTTL      time.Duration
	checkoutURLTTL time.Duration
	logger         zerolog.Logger
}

// NewSearchService creates a search orchestrator with dependencies
func NewSearchService(
	client domain.RetailerClient,
	pages domain.PageFetcher,
	parser domain.PageParser,
	cache domain.CacheRepository,
	config SearchConfig,
	logger zerolog.Logger,
) *SearchService {
	retailer := config.Retailer
	if retailer == "" {
		retailer = "instacart"
	}
	callTimeout := config.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	resultTTL := config.ResultTTL
	if resultTTL <= 0 {
		resultTTL = defaultResultTTL
	}
	checkoutTTL := config.CheckoutURLTTL
	if checkoutTTL <= 0 {
		checkoutTTL = defaultCheckoutURLTTL
	}

	return &SearchService{
		retailer: retailer,
		client:   client,
		pages:    pages,
		parser:   parser,
		cache:    cache,
		breakers: map[string]*CircuitBreaker{
			domain.StrategyDirect:  NewCircuitBreaker(config.Breaker),
			domain.StrategyRecipe:  NewCircuitBreaker(config.Breaker),
			domain.StrategyCatalog: NewCircuitBreaker(config.Breaker),
		},
		callTimeout:    callTimeout,
		resultTTL:      resultTTL,
		checkoutURLTTL: checkoutTTL,
		logger:         logger,
	}
}

// Search attempts each strategy in order and returns the first non-empty
// ranked result set. When every strategy is short-circuited or failed, the
// returned error carries per-circuit status and a retry hint.
func (s *SearchService) Search(ctx context.Context, query string) (*domain.SearchResult, error) {
	normalized := NormalizeQuery(query)
	if normalized == "" {
		return nil, domain.ErrInvalidRequest
	}

	emptySuccesses := 0
	strategies := []struct {
		name string
		run  func(context.Context, string) ([]domain.ProductMatch, error)
	}{
		{domain.StrategyDirect, s.searchDirect},
		{domain.StrategyRecipe, s.searchRecipePage},
		{domain.StrategyCatalog, s.searchCatalog},
	}

	for _, strategy := range strategies {
		breaker := s.breakers[strategy.name]
		if !breaker.Allow() {
			s.logger.Warn().
				Str("strategy", strategy.name).
				Str("query", normalized).
				Msg("strategy short-circuited")
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		matches, err := strategy.run(callCtx, normalized)
		cancel()

		if err != nil {
			breaker.RecordFailure()
			s.logger.Warn().
				Err(err).
				Str("strategy", strategy.name).
				Str("query", normalized).
				Msg("strategy attempt failed")
			continue
		}

		breaker.RecordSuccess()
		if len(matches) > 0 {
			return &domain.SearchResult{Matches: matches, Strategy: strategy.name}, nil
		}
		emptySuccesses++
	}

	// A strategy that answered with no data means the product genuinely was
	// not found; no answers at all means the service is degraded.
	if emptySuccesses > 0 {
		return nil, domain.ErrProductNotFound
	}
	status := s.circuitStatus()
	return nil, &domain.UnavailableError{
		Circuits:   status,
		RetryAfter: minRetryAfter(status),
	}
}

// searchDirect queries the retailer's product-search API and scores each
// result against the query
func (s *SearchService) searchDirect(ctx context.Context, query string) ([]domain.ProductMatch, error) {
	matches, err := s.client.SearchProducts(ctx, query)
	if err != nil {
		return nil, err
	}
	return rankMatches(query, matches, 0, 0), nil
}

// searchRecipePage synthesizes a single-ingredient recipe, fetches the
// generated page, and recovers product listings from its embedded data.
// Successful results are cached per (retailer, query).
func (s *SearchService) searchRecipePage(ctx context.Context, query string) ([]domain.ProductMatch, error) {
	cacheKey := fmt.Sprintf("search:%s:%s", s.retailer, query)
	if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
		if matches, ok := decodeCachedMatches(cached); ok {
			return matches, nil
		}
	}

	pageURL, err := s.client.CreateRecipePage(ctx, query, []string{query})
	if err != nil {
		return nil, err
	}

	page, err := s.pages.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	matches := rankMatches(query, s.parser.ParseProducts(page), recipeKeepThreshold, recipeResultLimit)
	if len(matches) > 0 {
		if err := s.cache.Set(ctx, cacheKey, matches, s.resultTTL); err != nil {
			s.logger.Warn().Err(err).Str("key", cacheKey).Msg("result cache write failed")
		}
	}
	return matches, nil
}

// searchCatalog runs the broader keyword search
func (s *SearchService) searchCatalog(ctx context.Context, query string) ([]domain.ProductMatch, error) {
	matches, err := s.client.SearchCatalog(ctx, query)
	if err != nil {
		return nil, err
	}
	return rankMatches(query, matches, 0, 0), nil
}

// CheckoutURL returns a retailer checkout-page URL for the given item list,
// generating one via the recipe API on a cache miss. URLs are stable for a
// given item set, so they are cached by a content hash of the normalized
// list under the long-lived TTL.
func (s *SearchService) CheckoutURL(ctx context.Context, items []string) (string, error) {
	if len(items) == 0 {
		return "", domain.ErrInvalidRequest
	}

	cacheKey := fmt.Sprintf("checkout:%s:%s", s.retailer, itemListHash(items))
	if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
		if url, ok := cached.(string); ok && url != "" {
			return url, nil
		}
	}

	breaker := s.breakers[domain.StrategyRecipe]
	if !breaker.Allow() {
		status := s.circuitStatus()
		return "", &domain.UnavailableError{
			Circuits:   status,
			RetryAfter: minRetryAfter(status),
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	url, err := s.client.CreateRecipePage(callCtx, "Shopping List", items)
	if err != nil {
		breaker.RecordFailure()
		return "", err
	}
	breaker.RecordSuccess()

	if err := s.cache.Set(ctx, cacheKey, url, s.checkoutURLTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", cacheKey).Msg("checkout URL cache write failed")
	}
	return url, nil
}

// CircuitStatus reports every strategy's breaker state
func (s *SearchService) CircuitStatus() []domain.CircuitStatus {
	return s.circuitStatus()
}

func (s *SearchService) circuitStatus() []domain.CircuitStatus {
	names := []string{domain.StrategyDirect, domain.StrategyRecipe, domain.StrategyCatalog}
	status := make([]domain.CircuitStatus, 0, len(names))
	for _, name := range names {
		breaker := s.breakers[name]
		status = append(status, domain.CircuitStatus{
			Strategy:   name,
			Open:       breaker.IsOpen(),
			RetryAfter: breaker.RemainingCooldown(),
		})
	}
	return status
}

// rankMatches scores, filters, deduplicates by name, and sorts descending.
// A zero threshold keeps everything; a zero limit means unlimited.
func rankMatches(query string, matches []domain.ProductMatch, threshold float64, limit int) []domain.ProductMatch {
	seen := make(map[string]bool, len(matches))
	ranked := make([]domain.ProductMatch, 0, len(matches))

	for _, m := range matches {
		key := strings.ToLower(strings.TrimSpace(m.Name))
		if key == "" || seen[key] {
			continue
		}
		m.Confidence = Score(query, m.Name)
		if m.Confidence <= threshold {
			continue
		}
		seen[key] = true
		ranked = append(ranked, m)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// itemListHash produces a stable content hash of the normalized item list
func itemListHash(items []string) string {
	normalized := make([]string, 0, len(items))
	for _, item := range items {
		if n := NormalizeQuery(item); n != "" {
			normalized = append(normalized, n)
		}
	}
	sort.Strings(normalized)

	sum := sha256.Sum256([]byte(strings.Join(normalized, "\n")))
	return hex.EncodeToString(sum[:])
}

// decodeCachedMatches recovers typed matches from a cache value that has
// been through a JSON round trip
func decodeCachedMatches(value interface{}) ([]domain.ProductMatch, bool) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, false
	}
	var matches []domain.ProductMatch
	if err := json.Unmarshal(data, &matches); err != nil || len(matches) == 0 {
		return nil, false
	}
	return matches, true
}

// minRetryAfter returns the smallest remaining cooldown among open circuits
func minRetryAfter(status []domain.CircuitStatus) time.Duration {
	var min time.Duration
	for _, c := range status {
		if !c.Open {
			continue
		}
		if min == 0 || c.RetryAfter < min {
			min = c.RetryAfter
		}
	}
	return min
}
