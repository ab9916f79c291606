package rag

import "strings"

// hedgeMarkers signal refusal or uncertainty in a generated answer.
var hedgeMarkers = []string{
	"not found in the provided",
	"not in the provided",
	"no information",
	"not mentioned",
	"cannot answer",
	"can't answer",
	"cannot be determined",
	"unable to determine",
	"i don't know",
	"i do not know",
	"not specified",
	"insufficient information",
}

// claimSupportThreshold is the minimum share of answer content words that
// must appear in the assembled context for a hedged answer to keep its
// factual portion.
const claimSupportThreshold = 0.5

// normalizeAnswer trims the generated answer and collapses answers that mix
// a factual claim with hedging into the canonical refusal when the context
// does not clearly support the claim. The flag reports whether an override
// happened.
func normalizeAnswer(answer, contextText string) (string, bool) {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return RefusalAnswer, true
	}

	lower := strings.ToLower(trimmed)
	hedged := false
	for _, marker := range hedgeMarkers {
		if strings.Contains(lower, marker) {
			hedged = true
			break
		}
	}
	if !hedged {
		return trimmed, false
	}

	if claimSupport(trimmed, contextText) >= claimSupportThreshold {
		return trimmed, false
	}
	return RefusalAnswer, true
}

// claimSupport measures the share of the answer's unique content words that
// appear in the context.
func claimSupport(answer, contextText string) float64 {
	answerTokens := dedupeStrings(filterStopwords(tokenize(answer)))
	if len(answerTokens) == 0 {
		return 0
	}

	contextTokens := tokenSet(contextText)
	supported := 0
	for _, token := range answerTokens {
		if _, ok := contextTokens[token]; ok {
			supported++
		}
	}
	return float64(supported) / float64(len(answerTokens))
}
