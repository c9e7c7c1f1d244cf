package epistemic

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
)

// ClaimExtractor splits a response into discrete, checkable claims.
type ClaimExtractor struct {
	minClaimLength int
}

// NewClaimExtractor returns an extractor with default thresholds.
func NewClaimExtractor() ClaimExtractor {
	return ClaimExtractor{minClaimLength: 15}
}

var sentenceSplit = regexp.MustCompile(`(?s)[^.!?]+[.!?]?`)

var numberRe = regexp.MustCompile(`\d`)
var properNounRe = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

var hedgeWords = []string{"might", "maybe", "possibly", "could be", "perhaps", "likely", "seems", "appears"}

var quantitativeWords = []string{"percent", "%", "count", "total", "number of", "rate of"}
var causalWords = []string{"because", "causes", "leads to", "results in", "due to", "therefore"}
var factualWords = []string{"is", "are", "was", "were", "has", "have"}

// Extract splits response into sentence-level claims, scoring each one's
// specificity and assigning a coarse category.
func (e ClaimExtractor) Extract(response string) []Claim {
	var claims []Claim
	for _, raw := range sentenceSplit.FindAllString(response, -1) {
		text := strings.TrimSpace(raw)
		if len(text) < e.minClaimLength {
			continue
		}

		claims = append(claims, Claim{
			ID:          claimID(text),
			Text:        text,
			Category:    categorize(text),
			Specificity: specificity(text),
		})
	}
	return claims
}

func claimID(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])[:12]
}

func categorize(text string) string {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, quantitativeWords):
		return "quantitative"
	case containsAny(lower, causalWords):
		return "causal"
	case containsAny(lower, factualWords):
		return "factual"
	default:
		return "general"
	}
}

// specificity scores how narrow and falsifiable a claim is: digits and
// capitalized proper nouns raise it, hedge words lower it.
func specificity(text string) float64 {
	score := 0.3

	if n := len(numberRe.FindAllString(text, -1)); n > 0 {
		score += 0.3
		if n > 2 {
			score += 0.1
		}
	}

	if len(properNounRe.FindAllString(text, -1)) > 0 {
		score += 0.2
	}

	lower := strings.ToLower(text)
	if containsAny(lower, hedgeWords) {
		score -= 0.3
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
