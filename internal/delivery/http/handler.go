package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/cartsmash/backend/internal/domain"
)

// ProductValidator validates a single product query
type ProductValidator interface {
	Validate(ctx context.Context, query domain.MatchQuery) (*domain.MatchResult, error)
}

// CartCalculator validates batches and prices carts
type CartCalculator interface {
	ValidateBatch(ctx context.Context, items []domain.MatchQuery) ([]*domain.MatchResult, domain.BatchOutcome)
	CalculateCart(ctx context.Context, items []domain.MatchQuery, retailerKey, promoCode string) (*domain.CartCalculation, error)
}

// RetailerSearcher runs external retailer searches
type RetailerSearcher interface {
	Search(ctx context.Context, query string) (*domain.SearchResult, error)
	CheckoutURL(ctx context.Context, items []string) (string, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	validator ProductValidator
	cart      CartCalculator
	searchers map[string]RetailerSearcher
}

// NewHandler creates a new HTTP handler
func NewHandler(validator ProductValidator, cart CartCalculator, searchers map[string]RetailerSearcher) *Handler {
	return &Handler{
		validator: validator,
		cart:      cart,
		searchers: searchers,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "cartsmash-backend",
		"version": "1.0.0",
	})
}

// itemRequest is one requested item in validate/cart requests
type itemRequest struct {
	Name     string  `json:"name" binding:"required"`
	Quantity float64 `json:"quantity"`
}

func (r itemRequest) toQuery(preferred []string) domain.MatchQuery {
	quantity := decimal.NewFromFloat(r.Quantity)
	if r.Quantity == 0 {
		quantity = decimal.NewFromInt(1)
	}
	return domain.MatchQuery{
		RawText:            r.Name,
		Quantity:           quantity,
		PreferredRetailers: preferred,
	}
}

// validateRequest is the single-product validation request body
type validateRequest struct {
	itemRequest
	PreferredRetailers []string `json:"preferredRetailers"`
}

// ValidateProduct handles single-product validation requests
func (h *Handler) ValidateProduct(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.validator.Validate(c.Request.Context(), req.toQuery(req.PreferredRetailers))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, renderMatchResult(result))
}

// batchRequest is the batch validation request body
type batchRequest struct {
	Items              []itemRequest `json:"items" binding:"required,min=1"`
	PreferredRetailers []string      `json:"preferredRetailers"`
}

// ValidateBatch handles batch validation requests
func (h *Handler) ValidateBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	queries := make([]domain.MatchQuery, 0, len(req.Items))
	for _, item := range req.Items {
		queries = append(queries, item.toQuery(req.PreferredRetailers))
	}

	results, summary := h.cart.ValidateBatch(c.Request.Context(), queries)

	rendered := make([]gin.H, 0, len(results))
	for _, r := range results {
		rendered = append(rendered, renderMatchResult(r))
	}

	c.JSON(http.StatusOK, gin.H{
		"results": rendered,
		"summary": summary,
	})
}

// cartRequest is the cart calculation request body
type cartRequest struct {
	Items     []itemRequest `json:"items" binding:"required,min=1"`
	Retailer  string        `json:"retailer" binding:"required"`
	PromoCode string        `json:"promoCode"`
}

// CalculateCart handles cart pricing requests
func (h *Handler) CalculateCart(c *gin.Context) {
	var req cartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	queries := make([]domain.MatchQuery, 0, len(req.Items))
	for _, item := range req.Items {
		queries = append(queries, item.toQuery(nil))
	}

	calc, err := h.cart.CalculateCart(c.Request.Context(), queries, req.Retailer, req.PromoCode)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, renderCart(calc))
}

// SearchRetailer handles external product search requests
func (h *Handler) SearchRetailer(c *gin.Context) {
	searcher, ok := h.searchers[c.Param("retailer")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown retailer"})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	result, err := searcher.Search(c.Request.Context(), query)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"strategy": result.Strategy,
		"matches":  renderMatches(result.Matches),
	})
}

// checkoutRequest is the checkout-link request body
type checkoutRequest struct {
	Retailer string   `json:"retailer" binding:"required"`
	Items    []string `json:"items" binding:"required,min=1"`
}

// CheckoutLink handles checkout-page URL generation requests
func (h *Handler) CheckoutLink(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	searcher, ok := h.searchers[req.Retailer]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown retailer"})
		return
	}

	url, err := searcher.CheckoutURL(c.Request.Context(), req.Items)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"checkoutUrl": url})
}

// renderError maps domain errors to HTTP responses. A degraded search is a
// structured 503 naming the open circuits, never a bare 500.
func (h *Handler) renderError(c *gin.Context, err error) {
	var unavailable *domain.UnavailableError
	if errors.As(err, &unavailable) {
		circuits := make([]gin.H, 0, len(unavailable.Circuits))
		for _, circuit := range unavailable.Circuits {
			circuits = append(circuits, gin.H{
				"strategy":   circuit.Strategy,
				"open":       circuit.Open,
				"retryAfter": circuit.RetryAfter.Round(time.Second).String(),
			})
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":      "retailer search temporarily unavailable",
			"circuits":   circuits,
			"retryAfter": unavailable.RetryAfter.Round(time.Second).String(),
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrUnknownRetailer):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrServiceUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// renderMatchResult formats a match result with 2-decimal money strings
func renderMatchResult(result *domain.MatchResult) gin.H {
	out := gin.H{
		"isValid":    result.IsValid,
		"confidence": result.Confidence,
	}

	if result.IsValid {
		out["matchedEntry"] = gin.H{
			"id":        result.Entry.ID,
			"name":      result.Entry.CanonicalName,
			"category":  result.Entry.Category,
			"unitPrice": result.Entry.UnitPrice.StringFixed(2),
			"unit":      result.Entry.Unit,
			"nutrition": result.Entry.Nutrition,
		}
		out["totalPrice"] = result.TotalPrice.StringFixed(2)
		out["retailers"] = result.Retailers

		alternatives := make([]gin.H, 0, len(result.Alternatives))
		for _, alt := range result.Alternatives {
			alternatives = append(alternatives, gin.H{
				"name":      alt.Name,
				"category":  alt.Category,
				"unitPrice": alt.UnitPrice.StringFixed(2),
				"kind":      alt.Kind,
			})
		}
		out["alternatives"] = alternatives
		return out
	}

	out["reason"] = result.Reason
	out["suggestions"] = renderSuggestions(result.Suggestions)
	return out
}

// renderMatches formats external search results with 2-decimal money strings
func renderMatches(matches []domain.ProductMatch) []gin.H {
	rendered := make([]gin.H, 0, len(matches))
	for _, m := range matches {
		item := gin.H{
			"name":       m.Name,
			"price":      m.Price.StringFixed(2),
			"confidence": m.Confidence,
		}
		if m.ImageURL != "" {
			item["imageUrl"] = m.ImageURL
		}
		if m.PackageSize != "" {
			item["packageSize"] = m.PackageSize
		}
		rendered = append(rendered, item)
	}
	return rendered
}

func renderSuggestions(suggestions []domain.Suggestion) []gin.H {
	rendered := make([]gin.H, 0, len(suggestions))
	for _, s := range suggestions {
		rendered = append(rendered, gin.H{
			"name":      s.Name,
			"category":  s.Category,
			"unitPrice": s.UnitPrice.StringFixed(2),
		})
	}
	return rendered
}

// renderCart formats a cart calculation with 2-decimal money strings
func renderCart(calc *domain.CartCalculation) gin.H {
	lineItems := make([]gin.H, 0, len(calc.LineItems))
	for _, line := range calc.LineItems {
		lineItems = append(lineItems, gin.H{
			"name":      line.Name,
			"quantity":  line.Quantity.String(),
			"unitPrice": line.UnitPrice.StringFixed(2),
			"lineTotal": line.LineTotal.StringFixed(2),
		})
	}

	unavailable := make([]gin.H, 0, len(calc.UnavailableItems))
	for _, item := range calc.UnavailableItems {
		unavailable = append(unavailable, gin.H{
			"originalQuery": item.OriginalQuery,
			"reason":        item.Reason,
			"suggestions":   renderSuggestions(item.Suggestions),
		})
	}

	out := gin.H{
		"lineItems":         lineItems,
		"unavailableItems":  unavailable,
		"subtotal":          calc.Subtotal.StringFixed(2),
		"deliveryFee":       calc.DeliveryFee.StringFixed(2),
		"serviceFee":        calc.ServiceFee.StringFixed(2),
		"tax":               calc.Tax.StringFixed(2),
		"discount":          calc.Discount.StringFixed(2),
		"total":             calc.Total.StringFixed(2),
		"meetsMinimumOrder": calc.MeetsMinimumOrder,
	}
	if calc.AppliedPromo != "" {
		out["appliedPromo"] = calc.AppliedPromo
	}
	return out
}
