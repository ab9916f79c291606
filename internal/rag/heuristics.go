package rag

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// minProseLength is the content length below which a chunk is treated as
// noise and its fact density bottoms out.
const minProseLength = 120

// noisePrefixes match heading, catalog and bibliography openers.
var noisePrefixes = []*regexp.Regexp{
	regexp.MustCompile(`^\s*table of contents\b`),
	regexp.MustCompile(`^\s*contents\b`),
	regexp.MustCompile(`^\s*introduction\b`),
	regexp.MustCompile(`^\s*abstract\b`),
	regexp.MustCompile(`^\s*references\b`),
	regexp.MustCompile(`^\s*bibliography\b`),
	regexp.MustCompile(`^\s*literature\b`),
	regexp.MustCompile(`^\s*acknowledg(e)?ments\b`),
	regexp.MustCompile(`^\s*appendix\b`),
	regexp.MustCompile(`^\s*index\b`),
}

var refLikeRe = regexp.MustCompile(
	`(?i)\b(19\d{2}|20\d{2}|vol\.|no\.|pp\.|ed\.|doi|isbn|issn|journal|proceedings|` +
		`phytochemistry|university|press|thesis|m\.sc|b\.sc)\b`)

// isNoiseChunk reports whether content looks like non-prose structure:
// headings, tables of contents, catalogs or bibliographies. Conservative
// and domain-free.
func isNoiseChunk(content string) bool {
	t := strings.TrimSpace(content)
	if len(t) < minProseLength {
		return true
	}

	lower := strings.ToLower(t)
	for _, pat := range noisePrefixes {
		if pat.MatchString(lower) {
			return true
		}
	}

	lines := nonEmptyLines(t)
	if len(lines) == 0 {
		return true
	}

	shortLines := 0
	for _, line := range lines {
		if len(line) <= 40 {
			shortLines++
		}
	}
	shortRatio := float64(shortLines) / float64(len(lines))

	punct := countAny(t, "?!;:")
	digitRatio := float64(countDigits(t)) / float64(len(t))
	commaRatio := float64(strings.Count(t, ",")) / float64(len(t))

	if (shortRatio >= 0.70 || digitRatio >= 0.12) && punct <= 1 {
		return true
	}
	if commaRatio > 0.03 && punct == 0 && len(lines) >= 6 {
		return true
	}

	return false
}

// factDensityScore prefers prose-like, claim-bearing chunks and penalizes
// bibliography, list and table-like ones. No domain keywords.
func factDensityScore(content string) float64 {
	t := strings.TrimSpace(content)
	if len(t) < minProseLength {
		return -1e9
	}

	var total, letters, digits int
	for _, r := range t {
		total++
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	lettersRatio := float64(letters) / float64(total)
	digitsRatio := float64(digits) / float64(total)

	lines := nonEmptyLines(t)
	shortLines := 0
	for _, line := range lines {
		if len(line) <= 40 {
			shortLines++
		}
	}
	shortLineRatio := 0.0
	if len(lines) > 0 {
		shortLineRatio = float64(shortLines) / float64(len(lines))
	}

	punct := countAny(t, ".?!;:")
	commaRatio := float64(strings.Count(t, ",")) / float64(total)

	refLikeHits := 0
	if refLikeRe.MatchString(t) {
		refLikeHits++
	}
	if strings.Contains(t, "http://") || strings.Contains(t, "https://") {
		refLikeHits++
	}
	if strings.Contains(t, "(") && strings.Contains(t, ")") {
		refLikeHits++
	}

	score := 2.5 * lettersRatio
	score += 0.6 * math.Log1p(float64(punct))
	score -= 2.0 * digitsRatio
	score -= 1.2 * shortLineRatio
	score -= 0.8 * commaRatio
	score -= 1.5 * float64(refLikeHits)
	score += 0.2 * math.Log1p(float64(total))

	return score
}

// FocusExtractor extracts the focal terms of a question for the entity-focus
// filter.
type FocusExtractor interface {
	// Extract returns lowercase focal terms, or nil when nothing stands out.
	Extract(question string) []string
}

var (
	wordPairRe = regexp.MustCompile(`\b[a-z]+ [a-z]+\b`)
	longWordRe = regexp.MustCompile(`[a-z]{5,}`)
)

// interrogativeWords are generic question words excluded from focal terms.
var interrogativeWords = map[string]struct{}{
	"which": {}, "about": {}, "include": {}, "describe": {}, "traditional": {}, "documented": {},
}

// termExtractor is the default FocusExtractor: adjacent lowercase word pairs
// (catching latin binomials such as "salvia divinorum"), falling back to
// content words of five letters or more.
type termExtractor struct{}

func (termExtractor) Extract(question string) []string {
	q := strings.ToLower(question)

	if pairs := wordPairRe.FindAllString(q, -1); len(pairs) > 0 {
		return dedupeStrings(pairs)
	}

	var terms []string
	for _, word := range longWordRe.FindAllString(q, -1) {
		if _, skip := interrogativeWords[word]; skip {
			continue
		}
		terms = append(terms, word)
	}
	return dedupeStrings(terms)
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func countAny(text, chars string) int {
	n := 0
	for _, c := range chars {
		n += strings.Count(text, string(c))
	}
	return n
}

func countDigits(text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
