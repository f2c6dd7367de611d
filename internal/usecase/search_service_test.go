package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cartsmash/backend/internal/domain"
)

// stubRetailerClient scripts per-method responses and counts calls
type stubRetailerClient struct {
	mu sync.Mutex

	productMatches []domain.ProductMatch
	productErr     error
	productCalls   int

	catalogMatches []domain.ProductMatch
	catalogErr     error
	catalogCalls   int

	recipeURL   string
	recipeErr   error
	recipeCalls int
}

func (c *stubRetailerClient) SearchProducts(ctx context.Context, query string) ([]domain.ProductMatch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.productCalls++
	return c.productMatches, c.productErr
}

func (c *stubRetailerClient) SearchCatalog(ctx context.Context, query string) ([]domain.ProductMatch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalogCalls++
	return c.catalogMatches, c.catalogErr
}

func (c *stubRetailerClient) CreateRecipePage(ctx context.Context, title string, ingredients []string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recipeCalls++
	return c.recipeURL, c.recipeErr
}

type stubFetcher struct {
	page string
	err  error
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.page, f.err
}

type stubParser struct {
	matches []domain.ProductMatch
}

func (p *stubParser) ParseProducts(page string) []domain.ProductMatch {
	return p.matches
}

// stubCache is a plain map cache that ignores TTLs
type stubCache struct {
	mu    sync.Mutex
	store map[string]interface{}
	sets  int
}

func newStubCache() *stubCache {
	return &stubCache{store: make(map[string]interface{})}
}

func (c *stubCache) Get(ctx context.Context, key string) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.store[key]; ok {
		return v, nil
	}
	return nil, domain.ErrCacheMiss
}

func (c *stubCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
	c.sets++
	return nil
}

func (c *stubCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

func (c *stubCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store[key]
	return ok, nil
}

func newTestSearchService(client *stubRetailerClient, fetcher *stubFetcher, parser *stubParser, cache *stubCache) *SearchService {
	return NewSearchService(client, fetcher, parser, cache, SearchConfig{
		Breaker: BreakerConfig{FailureThreshold: 2, Cooldown: 30 * time.Second},
	}, zerolog.Nop())
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	milk := []domain.ProductMatch{{Name: "Whole Milk", Price: decimal.RequireFromString("3.49")}}

	t.Run("returns error for empty query", func(t *testing.T) {
		svc := newTestSearchService(&stubRetailerClient{}, &stubFetcher{}, &stubParser{}, newStubCache())
		_, err := svc.Search(ctx, "   ")
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("direct strategy answers first", func(t *testing.T) {
		client := &stubRetailerClient{productMatches: milk}
		svc := newTestSearchService(client, &stubFetcher{}, &stubParser{}, newStubCache())

		result, err := svc.Search(ctx, "whole milk")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Strategy != domain.StrategyDirect {
			t.Errorf("Strategy = %q, want direct", result.Strategy)
		}
		if client.recipeCalls != 0 || client.catalogCalls != 0 {
			t.Errorf("later strategies were attempted: recipe=%d catalog=%d", client.recipeCalls, client.catalogCalls)
		}
	})

	t.Run("falls through to the recipe page on direct failure", func(t *testing.T) {
		client := &stubRetailerClient{
			productErr: errors.New("boom"),
			recipeURL:  "https://example.com/recipes/1",
		}
		parser := &stubParser{matches: []domain.ProductMatch{{Name: "Whole Milk 1 Gallon"}}}
		svc := newTestSearchService(client, &stubFetcher{page: "<html/>"}, parser, newStubCache())

		result, err := svc.Search(ctx, "whole milk")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Strategy != domain.StrategyRecipe {
			t.Errorf("Strategy = %q, want recipe", result.Strategy)
		}
		if len(result.Matches) != 1 {
			t.Fatalf("len(Matches) = %d, want 1", len(result.Matches))
		}
		if result.Matches[0].Confidence <= 0.3 {
			t.Errorf("Confidence = %v, want > 0.3", result.Matches[0].Confidence)
		}
	})

	t.Run("recipe results are ranked and capped at three", func(t *testing.T) {
		client := &stubRetailerClient{productErr: errors.New("boom"), recipeURL: "https://example.com/recipes/2"}
		parser := &stubParser{matches: []domain.ProductMatch{
			{Name: "Whole Milk 1 Gallon"},
			{Name: "Whole Milk 1 Gallon"}, // duplicate, dropped
			{Name: "Organic Whole Milk"},
			{Name: "Whole Milk Half Gallon"},
			{Name: "Milk Chocolate Bar"},
			{Name: "Motor Oil"}, // below threshold, dropped
		}}
		svc := newTestSearchService(client, &stubFetcher{page: "<html/>"}, parser, newStubCache())

		result, err := svc.Search(ctx, "whole milk")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Matches) > 3 {
			t.Fatalf("len(Matches) = %d, want <= 3", len(result.Matches))
		}
		for i := 1; i < len(result.Matches); i++ {
			if result.Matches[i].Confidence > result.Matches[i-1].Confidence {
				t.Errorf("matches not sorted descending at %d", i)
			}
		}
		for _, m := range result.Matches {
			if m.Name == "Motor Oil" {
				t.Error("below-threshold match survived ranking")
			}
		}
	})

	t.Run("recipe results come from cache on repeat queries", func(t *testing.T) {
		client := &stubRetailerClient{productErr: errors.New("boom"), recipeURL: "https://example.com/recipes/3"}
		parser := &stubParser{matches: []domain.ProductMatch{{Name: "Whole Milk 1 Gallon"}}}
		cache := newStubCache()
		svc := newTestSearchService(client, &stubFetcher{page: "<html/>"}, parser, cache)

		if _, err := svc.Search(ctx, "whole milk"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.recipeCalls != 1 {
			t.Fatalf("recipeCalls = %d, want 1", client.recipeCalls)
		}

		if _, err := svc.Search(ctx, "Whole  Milk"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.recipeCalls != 1 {
			t.Errorf("recipeCalls = %d after cached repeat, want 1", client.recipeCalls)
		}
	})

	t.Run("all strategies empty means product not found", func(t *testing.T) {
		client := &stubRetailerClient{recipeURL: "https://example.com/recipes/4"}
		svc := newTestSearchService(client, &stubFetcher{page: "<html/>"}, &stubParser{}, newStubCache())

		_, err := svc.Search(ctx, "whole milk")
		if !errors.Is(err, domain.ErrProductNotFound) {
			t.Errorf("error = %v, want ErrProductNotFound", err)
		}
	})

	t.Run("all strategies failing reports degraded service", func(t *testing.T) {
		client := &stubRetailerClient{
			productErr: errors.New("boom"),
			recipeErr:  errors.New("boom"),
			catalogErr: errors.New("boom"),
		}
		svc := newTestSearchService(client, &stubFetcher{}, &stubParser{}, newStubCache())

		_, err := svc.Search(ctx, "whole milk")
		if !errors.Is(err, domain.ErrServiceUnavailable) {
			t.Errorf("error = %v, want ErrServiceUnavailable", err)
		}
	})

	t.Run("open circuits skip their strategy", func(t *testing.T) {
		client := &stubRetailerClient{
			productErr:     errors.New("boom"),
			recipeErr:      errors.New("boom"),
			catalogMatches: milk,
		}
		svc := newTestSearchService(client, &stubFetcher{}, &stubParser{}, newStubCache())

		// threshold is 2: the first two searches trip direct and recipe
		for i := 0; i < 2; i++ {
			if _, err := svc.Search(ctx, "whole milk"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		directCalls := client.productCalls

		result, err := svc.Search(ctx, "whole milk")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Strategy != domain.StrategyCatalog {
			t.Errorf("Strategy = %q, want catalog", result.Strategy)
		}
		if client.productCalls != directCalls {
			t.Errorf("productCalls = %d, want unchanged %d: open circuit should short-circuit", client.productCalls, directCalls)
		}
	})

	t.Run("degraded error carries circuit status and retry hint", func(t *testing.T) {
		client := &stubRetailerClient{
			productErr: errors.New("boom"),
			recipeErr:  errors.New("boom"),
			catalogErr: errors.New("boom"),
		}
		svc := newTestSearchService(client, &stubFetcher{}, &stubParser{}, newStubCache())

		var unavailable *domain.UnavailableError
		for i := 0; i < 3; i++ {
			_, err := svc.Search(ctx, "whole milk")
			if !errors.As(err, &unavailable) {
				t.Fatalf("error = %v, want *UnavailableError", err)
			}
		}
		if len(unavailable.Circuits) != 3 {
			t.Fatalf("len(Circuits) = %d, want 3", len(unavailable.Circuits))
		}
		openCount := 0
		for _, c := range unavailable.Circuits {
			if c.Open {
				openCount++
			}
		}
		if openCount != 3 {
			t.Errorf("open circuits = %d, want 3", openCount)
		}
		if unavailable.RetryAfter <= 0 {
			t.Errorf("RetryAfter = %v, want positive", unavailable.RetryAfter)
		}
	})
}

func TestCheckoutURL(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects an empty item list", func(t *testing.T) {
		svc := newTestSearchService(&stubRetailerClient{}, &stubFetcher{}, &stubParser{}, newStubCache())
		_, err := svc.CheckoutURL(ctx, nil)
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("generates and caches the URL", func(t *testing.T) {
		client := &stubRetailerClient{recipeURL: "https://example.com/checkout/abc"}
		svc := newTestSearchService(client, &stubFetcher{}, &stubParser{}, newStubCache())

		url, err := svc.CheckoutURL(ctx, []string{"milk", "eggs"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if url != "https://example.com/checkout/abc" {
			t.Errorf("url = %q, want stub URL", url)
		}

		// same items in a different order and casing hit the cache
		if _, err := svc.CheckoutURL(ctx, []string{"Eggs", "MILK"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.recipeCalls != 1 {
			t.Errorf("recipeCalls = %d, want 1: reordered list should hit the cache", client.recipeCalls)
		}
	})

	t.Run("different item lists get different cache entries", func(t *testing.T) {
		client := &stubRetailerClient{recipeURL: "https://example.com/checkout/xyz"}
		svc := newTestSearchService(client, &stubFetcher{}, &stubParser{}, newStubCache())

		if _, err := svc.CheckoutURL(ctx, []string{"milk"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := svc.CheckoutURL(ctx, []string{"milk", "bread"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.recipeCalls != 2 {
			t.Errorf("recipeCalls = %d, want 2", client.recipeCalls)
		}
	})

	t.Run("open recipe circuit refuses without calling out", func(t *testing.T) {
		client := &stubRetailerClient{recipeErr: errors.New("boom")}
		svc := newTestSearchService(client, &stubFetcher{}, &stubParser{}, newStubCache())

		for i := 0; i < 2; i++ {
			if _, err := svc.CheckoutURL(ctx, []string{"milk"}); err == nil {
				t.Fatal("expected error from failing recipe API")
			}
		}
		calls := client.recipeCalls

		_, err := svc.CheckoutURL(ctx, []string{"milk"})
		if !errors.Is(err, domain.ErrServiceUnavailable) {
			t.Errorf("error = %v, want ErrServiceUnavailable", err)
		}
		if client.recipeCalls != calls {
			t.Errorf("recipeCalls = %d, want unchanged %d", client.recipeCalls, calls)
		}
	})
}

func TestCircuitStatusReport(t *testing.T) {
	client := &stubRetailerClient{
		productErr: errors.New("boom"),
		recipeErr:  errors.New("boom"),
		catalogErr: errors.New("boom"),
	}
	svc := newTestSearchService(client, &stubFetcher{}, &stubParser{}, newStubCache())

	status := svc.CircuitStatus()
	if len(status) != 3 {
		t.Fatalf("len(status) = %d, want 3", len(status))
	}
	want := []string{domain.StrategyDirect, domain.StrategyRecipe, domain.StrategyCatalog}
	for i, s := range status {
		if s.Strategy != want[i] {
			t.Errorf("status[%d].Strategy = %q, want %q", i, s.Strategy, want[i])
		}
		if s.Open {
			t.Errorf("status[%d].Open = true on a fresh service", i)
		}
	}
}
