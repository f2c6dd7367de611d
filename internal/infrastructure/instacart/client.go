package instacart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/cartsmash/backend/internal/domain"
)

const (
	maxResponseBytes = 1 << 20 // 1 MB cap on API response bodies
	maxRetries       = 3
	searchPageSize   = "10"
)

// Client handles communication with the Instacart developer API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	logger      zerolog.Logger
}

// NewClient creates a new Instacart API client
func NewClient(apiKey, baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	// The developer API allows roughly 10 requests per second per token
	limiter := rate.NewLimiter(rate.Limit(10), 20)

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		rateLimiter: limiter,
		logger:      logger,
	}
}

// SearchProducts queries the product-search endpoint directly
func (c *Client) SearchProducts(ctx context.Context, query string) ([]domain.ProductMatch, error) {
	endpoint := fmt.Sprintf("%s/v1/products/search", c.baseURL)
	params := url.Values{}
	params.Add("query", query)
	params.Add("page_size", searchPageSize)

	return c.searchRequest(ctx, fmt.Sprintf("%s?%s", endpoint, params.Encode()), "product search")
}

// SearchCatalog runs the broader keyword search endpoint
func (c *Client) SearchCatalog(ctx context.Context, query string) ([]domain.ProductMatch, error) {
	endpoint := fmt.Sprintf("%s/v1/catalog/search", c.baseURL)
	params := url.Values{}
	params.Add("q", query)

	return c.searchRequest(ctx, fmt.Sprintf("%s?%s", endpoint, params.Encode()), "catalog search")
}

// productPayload is the wire shape of a product in search responses
type productPayload struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	PackageSize string          `json:"package_size"`
}

// searchResponse is the wire shape of both search endpoints
type searchResponse struct {
	Products []productPayload `json:"products"`
}

// searchRequest executes a GET with retries and maps the response
func (c *Client) searchRequest(ctx context.Context, reqURL, op string) ([]domain.ProductMatch, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		body, status, err := c.doRequest(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			lastErr = err
			c.logger.Warn().Err(err).Int("attempt", attempt).Str("op", op).Msg("request error")
			if !sleepBackoff(ctx, attempt) {
				return nil, ctx.Err()
			}
			continue
		}

		if status != http.StatusOK {
			lastErr = &domain.UpstreamError{Status: status, Op: op}
			// 4xx other than 429 will not improve on retry
			if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
				return nil, lastErr
			}
			c.logger.Warn().Int("status", status).Int("attempt", attempt).Str("op", op).Msg("API error")
			if !sleepBackoff(ctx, attempt) {
				return nil, ctx.Err()
			}
			continue
		}

		var resp searchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}

		matches := make([]domain.ProductMatch, 0, len(resp.Products))
		for _, p := range resp.Products {
			matches = append(matches, domain.ProductMatch{
				Name:        p.Name,
				Price:       p.Price,
				ImageURL:    p.ImageURL,
				PackageSize: p.PackageSize,
			})
		}
		return matches, nil
	}

	return nil, lastErr
}

// recipeRequest is the recipe-creation request body
type recipeRequest struct {
	Title          string   `json:"title"`
	Ingredients    []string `json:"ingredients"`
	IdempotencyKey string   `json:"idempotency_key"`
}

// recipeResponse is the recipe-creation response body
type recipeResponse struct {
	ProductsLinkURL string `json:"products_link_url"`
}

// CreateRecipePage creates a recipe from the given ingredients and returns
// the generated checkout-page URL. An idempotency key keeps retries from
// creating duplicate recipes.
func (c *Client) CreateRecipePage(ctx context.Context, title string, ingredients []string) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	payload, err := json.Marshal(recipeRequest{
		Title:          title,
		Ingredients:    ingredients,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1/products/recipe", c.baseURL)
	body, status, err := c.doRequest(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", &domain.UpstreamError{Status: status, Op: "recipe create"}
	}

	var resp recipeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.ProductsLinkURL == "" {
		return "", fmt.Errorf("%w: recipe response missing products link", domain.ErrUpstream)
	}

	return resp.ProductsLinkURL, nil
}

// doRequest executes an HTTP request with auth headers and a capped body read
func (c *Client) doRequest(ctx context.Context, method, reqURL string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "CartSmash/1.0")
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}

	return body, resp.StatusCode, nil
}

// sleepBackoff waits before the next retry attempt, returning false when the
// context is done
func sleepBackoff(ctx context.Context, attempt int) bool {
	select {
	case <-time.After(time.Duration(attempt*500) * time.Millisecond):
		return true
	case <-ctx.Done():
		return false
	}
}
