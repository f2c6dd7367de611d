package instacart

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cartsmash/backend/internal/domain"
)

// Parser recovers product listings from generated recipe-page text.
// Each known payload shape gets its own parse function returning
// (matches, ok); shapes are tried in priority order and the first that
// yields products wins.
type Parser struct{}

// NewParser creates a recipe-page parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseProducts extracts product listings from page text
func (p *Parser) ParseProducts(page string) []domain.ProductMatch {
	if matches, ok := parseStructuredData(page); ok {
		return matches
	}
	if matches, ok := parseBootstrapState(page); ok {
		return matches
	}
	if matches, ok := parseProductAttributes(page); ok {
		return matches
	}
	return nil
}

// ldItemList is the schema.org ItemList shape embedded as ld+json
type ldItemList struct {
	Type     string `json:"@type"`
	Elements []struct {
		Name  string `json:"name"`
		Image string `json:"image"`
		Offer struct {
			Price decimal.Decimal `json:"price"`
		} `json:"offers"`
	} `json:"itemListElement"`
}

var ldJSONRegex = regexp.MustCompile(`(?s)<script[^>]*type="application/ld\+json"[^>]*>(.*?)</script>`)

// parseStructuredData reads schema.org ItemList blocks
func parseStructuredData(page string) ([]domain.ProductMatch, bool) {
	var matches []domain.ProductMatch

	for _, m := range ldJSONRegex.FindAllStringSubmatch(page, -1) {
		var list ldItemList
		if err := json.Unmarshal([]byte(m[1]), &list); err != nil {
			continue
		}
		if list.Type != "ItemList" {
			continue
		}
		for _, el := range list.Elements {
			if el.Name == "" {
				continue
			}
			matches = append(matches, domain.ProductMatch{
				Name:     el.Name,
				Price:    el.Offer.Price,
				ImageURL: el.Image,
			})
		}
	}

	return matches, len(matches) > 0
}

// bootstrapState is the client-side state blob shape
type bootstrapState struct {
	Products []struct {
		Name        string          `json:"name"`
		Price       decimal.Decimal `json:"price"`
		ImageURL    string          `json:"image_url"`
		PackageSize string          `json:"package_size"`
	} `json:"products"`
}

var bootstrapRegex = regexp.MustCompile(`window\.__RECIPE_STATE__\s*=\s*`)

// parseBootstrapState reads the page's embedded client state object
func parseBootstrapState(page string) ([]domain.ProductMatch, bool) {
	loc := bootstrapRegex.FindStringIndex(page)
	if loc == nil {
		return nil, false
	}

	blob := extractJSONObject(page[loc[1]:])
	if blob == "" {
		return nil, false
	}

	var state bootstrapState
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return nil, false
	}

	matches := make([]domain.ProductMatch, 0, len(state.Products))
	for _, p := range state.Products {
		if p.Name == "" {
			continue
		}
		matches = append(matches, domain.ProductMatch{
			Name:        p.Name,
			Price:       p.Price,
			ImageURL:    p.ImageURL,
			PackageSize: p.PackageSize,
		})
	}

	return matches, len(matches) > 0
}

var productAttrRegex = regexp.MustCompile(
	`data-product-name="([^"]+)"(?:[^>]*data-product-price="([^"]*)")?`,
)

// parseProductAttributes is the last-resort pass over DOM text
func parseProductAttributes(page string) ([]domain.ProductMatch, bool) {
	var matches []domain.ProductMatch

	for _, m := range productAttrRegex.FindAllStringSubmatch(page, -1) {
		match := domain.ProductMatch{Name: m[1]}
		if m[2] != "" {
			if price, err := decimal.NewFromString(strings.TrimPrefix(m[2], "$")); err == nil {
				match.Price = price
			}
		}
		matches = append(matches, match)
	}

	return matches, len(matches) > 0
}

// extractJSONObject returns the balanced JSON object starting at the first
// '{' of s, respecting string literals and escapes
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
