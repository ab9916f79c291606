package rag

import (
	"fmt"
	"sort"
	"strings"
)

// Filter is one stage of the candidate filter chain. Filters are pure and
// never mutate their input slice.
type Filter func(candidates []Candidate) []Candidate

// buildFilterChain assembles the configured stages for one request. The
// question is captured because the entity stage focuses on its terms.
func buildFilterChain(cfg Config, question string, extractor FocusExtractor) ([]Filter, error) {
	filters := make([]Filter, 0, len(cfg.FilterChain))
	for _, name := range cfg.FilterChain {
		switch name {
		case FilterNoise:
			filters = append(filters, noiseFilter())
		case FilterDuplicate:
			filters = append(filters, duplicateFilter(cfg.DuplicateJaccard))
		case FilterEntity:
			filters = append(filters, entityFilter(extractor, question, cfg.EntityMinKeep))
		default:
			return nil, fmt.Errorf("unknown filter: %s", name)
		}
	}
	return filters, nil
}

// applyFilters runs the chain in order.
func applyFilters(filters []Filter, candidates []Candidate) []Candidate {
	for _, f := range filters {
		candidates = f(candidates)
	}
	return candidates
}

// noiseFilter drops chunks whose content looks like non-prose structure.
func noiseFilter() Filter {
	return func(candidates []Candidate) []Candidate {
		kept := make([]Candidate, 0, len(candidates))
		for _, c := range candidates {
			if isNoiseChunk(c.Content) {
				continue
			}
			kept = append(kept, c)
		}
		return kept
	}
}

// duplicateFilter drops near-identical chunks, keeping the representative
// with the highest fused score. Two chunks are duplicates when their
// normalized text is equal or their token-set Jaccard similarity reaches
// the threshold.
func duplicateFilter(threshold float64) Filter {
	return func(candidates []Candidate) []Candidate {
		if len(candidates) < 2 {
			return append([]Candidate(nil), candidates...)
		}

		ordered := append([]Candidate(nil), candidates...)
		sortByFused(ordered)

		type retainedText struct {
			normalized string
			tokens     map[string]struct{}
		}

		var retained []retainedText
		kept := make([]Candidate, 0, len(ordered))
		for _, c := range ordered {
			norm := normalizeText(c.Content)
			tokens := tokenSet(c.Content)

			dup := false
			for _, r := range retained {
				if norm == r.normalized || jaccard(tokens, r.tokens) >= threshold {
					dup = true
					break
				}
			}
			if dup {
				continue
			}

			retained = append(retained, retainedText{normalized: norm, tokens: tokens})
			kept = append(kept, c)
		}
		return kept
	}
}

// entityFilter keeps candidates mentioning a focal term of the question.
// When extraction finds nothing, or fewer than minKeep candidates survive,
// the set passes through unchanged. Never an error, never empties the set
// because extraction failed.
func entityFilter(extractor FocusExtractor, question string, minKeep int) Filter {
	return func(candidates []Candidate) []Candidate {
		terms := extractor.Extract(question)
		if len(terms) == 0 {
			return append([]Candidate(nil), candidates...)
		}

		focused := make([]Candidate, 0, len(candidates))
		for _, c := range candidates {
			content := strings.ToLower(c.Content)
			for _, term := range terms {
				if strings.Contains(content, term) {
					focused = append(focused, c)
					break
				}
			}
		}

		if len(focused) < minKeep {
			return append([]Candidate(nil), candidates...)
		}
		return focused
	}
}

// sortByFused orders candidates the way fuse does: fused score descending,
// presence in both rankings, then chunk id ascending.
func sortByFused(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		inBothI := candidates[i].VectorRank > 0 && candidates[i].LexicalRank > 0
		inBothJ := candidates[j].VectorRank > 0 && candidates[j].LexicalRank > 0
		if inBothI != inBothJ {
			return inBothI
		}
		return candidates[i].ChunkID < candidates[j].ChunkID
	})
}

// sortByFactDensity reorders candidates so prose-like, claim-bearing chunks
// come first. Ties keep the fused order.
func sortByFactDensity(candidates []Candidate) {
	scores := make(map[int64]float64, len(candidates))
	for _, c := range candidates {
		scores[c.ChunkID] = factDensityScore(c.Content)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return scores[candidates[i].ChunkID] > scores[candidates[j].ChunkID]
	})
}

// normalizeText lowercases and collapses whitespace for equality comparison.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range tokenize(text) {
		set[token] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}

	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 1
	}
	return float64(intersection) / float64(union)
}
