package usecase

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/cartsmash/backend/internal/domain"
)

// Threshold defaults
const (
	defaultAcceptThreshold  = 0.6
	defaultSuggestThreshold = 0.3
	defaultSuggestionLimit  = 5
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	AcceptThreshold  float64
	SuggestThreshold float64
	SuggestionLimit  int
}

// MatchingService finds the best catalog entry for a free-text query.
// Matching is a pure function of (query, catalog): no I/O, deterministic,
// safe to call per item in a tight loop.
type MatchingService struct {
	acceptThreshold  float64
	suggestThreshold float64
	suggestionLimit  int
	logger           zerolog.Logger
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig, logger zerolog.Logger) *MatchingService {
	accept := config.AcceptThreshold
	if accept <= 0 {
		accept = defaultAcceptThreshold
	}
	suggest := config.SuggestThreshold
	if suggest <= 0 {
		suggest = defaultSuggestThreshold
	}
	limit := config.SuggestionLimit
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}

	return &MatchingService{
		acceptThreshold:  accept,
		suggestThreshold: suggest,
		suggestionLimit:  limit,
		logger:           logger,
	}
}

// FindMatch locates the best catalog entry for the query text.
// An exact key lookup short-circuits at 0.95 confidence; otherwise every
// entry is scored and the best must exceed the acceptance threshold.
// Ties go to the first entry in catalog order.
func (s *MatchingService) FindMatch(ctx context.Context, rawText string, catalog *domain.Catalog) (*domain.MatchResult, error) {
	normalized := NormalizeQuery(rawText)
	if normalized == "" {
		return nil, domain.ErrInvalidRequest
	}

	if entry, ok := catalog.Lookup(normalized); ok {
		return &domain.MatchResult{
			IsValid:    true,
			Confidence: exactMatchScore,
			Entry:      entry,
		}, nil
	}

	var best *domain.CatalogEntry
	bestScore := 0.0

	for _, key := range catalog.Keys() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		entry := catalog.Get(key)
		score := Score(normalized, entry.CanonicalName)
		if score > bestScore {
			bestScore = score
			best = entry
		}
	}

	s.logger.Debug().
		Str("query", normalized).
		Float64("bestScore", bestScore).
		Msg("catalog scan complete")

	if best != nil && bestScore > s.acceptThreshold {
		return &domain.MatchResult{
			IsValid:    true,
			Confidence: bestScore,
			Entry:      best,
		}, nil
	}

	return &domain.MatchResult{
		IsValid:     false,
		Confidence:  bestScore,
		Suggestions: s.suggestions(normalized, catalog),
		Reason:      "no catalog entry matched with sufficient confidence",
	}, nil
}

// suggestions re-scores the catalog with the looser threshold and returns
// the top entries as summaries, ranked by descending score
func (s *MatchingService) suggestions(normalized string, catalog *domain.Catalog) []domain.Suggestion {
	type scored struct {
		entry *domain.CatalogEntry
		score float64
	}

	var candidates []scored
	for _, key := range catalog.Keys() {
		entry := catalog.Get(key)
		if score := Score(normalized, entry.CanonicalName); score > s.suggestThreshold {
			candidates = append(candidates, scored{entry: entry, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > s.suggestionLimit {
		candidates = candidates[:s.suggestionLimit]
	}

	suggestions := make([]domain.Suggestion, 0, len(candidates))
	for _, c := range candidates {
		suggestions = append(suggestions, domain.Suggestion{
			Name:      c.entry.CanonicalName,
			Category:  c.entry.Category,
			UnitPrice: c.entry.UnitPrice,
		})
	}
	return suggestions
}
