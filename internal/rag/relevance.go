package rag

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"docqa/internal/contextutil"
	"docqa/internal/llm"
)

// relevanceRole keeps the model's output machine-parseable.
const relevanceRole = "You are a strict relevance filter.\n" +
	"Output ONLY comma-separated integers (e.g., 0,2,3) or -1.\n" +
	"No extra words."

// relevancePreviewLen caps the chunk preview shown to the model.
const relevancePreviewLen = 300

var intRe = regexp.MustCompile(`-?\d+`)

// relevanceFilter asks the model which chunks bear on the question and adds
// its picks to a base set that always survives. Advisory only: it can never
// overturn a positive gate decision or drop the base set. On any failure
// the input comes back unchanged.
func relevanceFilter(ctx context.Context, generator llm.Generator, question string, candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	minKeep := len(candidates) / 3
	if minKeep < 3 {
		minKeep = 3
	}
	if minKeep > len(candidates) {
		minKeep = len(candidates)
	}
	base := candidates[:minKeep]

	items := make([]string, 0, len(candidates))
	for i, c := range candidates {
		preview := strings.ReplaceAll(strings.TrimSpace(c.Content), "\n", " ")
		if runes := []rune(preview); len(runes) > relevancePreviewLen {
			preview = string(runes[:relevancePreviewLen])
		}
		items = append(items, fmt.Sprintf("[%d] %s", i, preview))
	}

	prompt := fmt.Sprintf(
		"You are given a question and a list of text chunks.\n"+
			"Select ONLY the chunks that contain information directly relevant to the question.\n"+
			"Return ONLY indices as comma-separated integers, like: 0,2,3\n"+
			"If none are relevant, return: -1\n\n"+
			"Question:\n%s\n\nChunks:\n%s",
		question, strings.Join(items, "\n"),
	)

	raw, err := generator.Generate(ctx, relevanceRole, prompt)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "relevance filter failed, keeping candidates", "error", err)
		return candidates
	}

	matches := intRe.FindAllString(strings.TrimSpace(raw), -1)
	nums := make([]int, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		nums = append(nums, v)
	}

	var picked []Candidate
	nonePicked := len(nums) == 0 || (len(nums) == 1 && nums[0] == -1)
	if !nonePicked {
		for _, idx := range nums {
			if idx >= 0 && idx < len(candidates) {
				picked = append(picked, candidates[idx])
			}
		}
	}

	seen := make(map[int64]struct{}, len(base)+len(picked))
	merged := make([]Candidate, 0, len(base)+len(picked))
	for _, c := range base {
		if _, ok := seen[c.ChunkID]; ok {
			continue
		}
		seen[c.ChunkID] = struct{}{}
		merged = append(merged, c)
	}
	for _, c := range picked {
		if _, ok := seen[c.ChunkID]; ok {
			continue
		}
		seen[c.ChunkID] = struct{}{}
		merged = append(merged, c)
	}
	return merged
}
