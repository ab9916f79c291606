package rag

import (
	"sort"
	"strings"
	"unicode"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"can": {}, "could": {}, "do": {}, "does": {}, "for": {}, "from": {}, "has": {}, "have": {},
	"how": {}, "in": {}, "into": {}, "is": {}, "it": {}, "not": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "their": {}, "there": {}, "these": {}, "they": {}, "this": {}, "to": {},
	"was": {}, "were": {}, "what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "why": {},
	"will": {}, "with": {}, "would": {},
}

// queryJunk lists filler phrases stripped from questions before retrieval.
var queryJunk = []string{
	"summarize",
	"based on the provided sources",
	"based on the sources",
	"based on sources",
	"please",
	"what are",
	"what is",
	"give me",
	"provide",
	"?",
}

// normalizeQuery converts a natural-language question into a search-like
// phrase suitable for semantic retrieval.
func normalizeQuery(question string) string {
	q := strings.ToLower(question)
	for _, junk := range queryJunk {
		q = strings.ReplaceAll(q, junk, "")
	}
	return strings.Join(strings.Fields(q), " ")
}

func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	tokens := strings.Fields(builder.String())
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

func filterStopwords(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}

	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := stopwords[token]; isStop {
			continue
		}
		result = append(result, token)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func isNumeric(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// anchorTokens extracts the content-bearing tokens of a question. Stopwords
// and pure numbers are dropped; an empty result means the question carries
// no full-text anchor, which is not an error.
func anchorTokens(question string) []string {
	tokens := filterStopwords(tokenize(normalizeQuery(question)))
	if len(tokens) == 0 {
		return nil
	}

	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if isNumeric(token) {
			continue
		}
		result = append(result, token)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// selectAnchors picks the n rarest tokens by corpus document frequency.
// Tokens absent from freqs count as frequency zero. Ties break by token
// ascending so anchor choice is deterministic.
func selectAnchors(tokens []string, freqs map[string]int64, n int) []string {
	if n <= 0 || len(tokens) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(tokens))
	unique := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		unique = append(unique, token)
	}

	sort.Slice(unique, func(i, j int) bool {
		if freqs[unique[i]] != freqs[unique[j]] {
			return freqs[unique[i]] < freqs[unique[j]]
		}
		return unique[i] < unique[j]
	})

	if len(unique) > n {
		unique = unique[:n]
	}
	return unique
}
