package usecase

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cartsmash/backend/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	multipleSpacesRegex = regexp.MustCompile(`\s+`)

	// Matches size/quantity patterns like "128 fl oz", "1 gallon", "2.5 lb"
	sizePatternRegex = regexp.MustCompile(
		`(?i)\b\d+\.?\d*\s*(?:fl\s*oz|oz|ounces?|ml|liters?|l|gallons?|gal|lbs?|pounds?|kg|grams?|g|ct|count|pk|pack|ea|each|qt|quart|pt|pint)\b`,
	)

	// Matches a leading quantity like "2 ", "2x ", "3 x "
	leadingQuantityRegex = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(?:x\s+|\s+)`)

	// Matches a bare unit word left after the quantity is extracted
	leadingUnitRegex = regexp.MustCompile(`(?i)^(?:fl\s*oz|oz|ounces?|ml|liters?|gallons?|gal|lbs?|pounds?|kg|grams?|ct|count|pk|packs?|dozen)\s+(?:of\s+)?`)

	// Lone punctuation left behind after stripping
	orphanPunctRegex = regexp.MustCompile(`\s+[,\-;:]+\s+|[,\-;:]+\s*$|^\s*[,\-;:]+`)
)

// listNoiseWords are marketing and packaging terms that add nothing to matching
var listNoiseWords = map[string]bool{
	"value": true, "family": true, "bonus": true, "jumbo": true,
	"size": true, "large": true, "medium": true, "small": true,
	"pack": true, "box": true, "bag": true, "bottle": true,
	"carton": true, "jar": true, "pouch": true,
}

// NormalizeQuery lower-cases, trims, and collapses whitespace. Used for
// catalog key lookup and cache keys.
func NormalizeQuery(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return multipleSpacesRegex.ReplaceAllString(s, " ")
}

// ParseListLine turns one free-text grocery-list line into a MatchQuery.
// A leading quantity ("2 lb chicken", "3x milk") is extracted; the remainder
// is stripped of size and noise tokens for matching.
func ParseListLine(line string) domain.MatchQuery {
	text := strings.TrimSpace(line)
	quantity := decimal.NewFromInt(1)

	if m := leadingQuantityRegex.FindStringSubmatch(text); m != nil {
		if q, err := decimal.NewFromString(m[1]); err == nil && q.IsPositive() {
			quantity = q
			text = strings.TrimSpace(text[len(m[0]):])
			text = leadingUnitRegex.ReplaceAllString(text, "")
		}
	}

	return domain.MatchQuery{
		RawText:  CleanItemText(text),
		Quantity: quantity,
	}
}

// CleanItemText strips size patterns and noise words from an item description
func CleanItemText(text string) string {
	// Text before the first comma carries the product; the rest is packaging
	if idx := strings.Index(text, ","); idx > 0 {
		text = text[:idx]
	}

	text = sizePatternRegex.ReplaceAllString(text, " ")
	text = orphanPunctRegex.ReplaceAllString(text, " ")

	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if !listNoiseWords[strings.ToLower(strings.Trim(w, ",.!?;:-'\""))] {
			kept = append(kept, w)
		}
	}

	return strings.TrimSpace(strings.Join(kept, " "))
}
