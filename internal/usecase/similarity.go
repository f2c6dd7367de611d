package usecase

import "strings"

// Scoring constants. Exact matches are capped at 0.95 so the scale keeps
// headroom for a hypothetical verified match; the 0.1 base keeps partial
// token overlap from scoring at absolute zero.
const (
	exactMatchScore     = 0.95
	substringMatchScore = 0.85
	tokenCreditExact    = 1.0
	tokenCreditPartial  = 0.5
	tokenScaleFactor    = 0.7
	tokenBaseScore      = 0.1
	maxTokenScore       = 0.95
	minScoreTokenLength = 3
)

// Score compares two free-text strings and returns a match confidence in [0,1].
// Normalization is ASCII-oriented; no stemming or synonym expansion.
func Score(query, candidate string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	c := strings.ToLower(strings.TrimSpace(candidate))

	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return exactMatchScore
	}
	if strings.Contains(q, c) || strings.Contains(c, q) {
		return substringMatchScore
	}

	queryTokens := scoringTokens(q)
	candidateTokens := scoringTokens(c)
	if len(queryTokens) == 0 || len(candidateTokens) == 0 {
		return 0
	}

	var credits float64
	for _, qt := range queryTokens {
		credits += tokenCredit(qt, candidateTokens)
	}

	score := credits/float64(len(queryTokens))*tokenScaleFactor + tokenBaseScore
	if score > maxTokenScore {
		score = maxTokenScore
	}
	return score
}

// tokenCredit awards 1.0 for an exact token match, else 0.5 when one token
// contains the other. First match wins; a query token is never counted twice.
func tokenCredit(queryToken string, candidateTokens []string) float64 {
	for _, ct := range candidateTokens {
		if queryToken == ct {
			return tokenCreditExact
		}
		if strings.Contains(ct, queryToken) || strings.Contains(queryToken, ct) {
			return tokenCreditPartial
		}
	}
	return 0
}

// scoringTokens splits on whitespace and keeps tokens longer than 2 characters
func scoringTokens(s string) []string {
	fields := strings.Fields(s)
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= minScoreTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
