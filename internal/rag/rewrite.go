package rag

import (
	"context"
	"strings"

	"docqa/internal/contextutil"
	"docqa/internal/llm"
)

// rewriteRole instructs the model to produce retrieval queries, not answers.
const rewriteRole = "You rewrite a user's question into short search queries for semantic retrieval.\n" +
	"Return 3 alternative queries (one per line), no numbering, no extra text.\n" +
	"Use synonyms and related phrases that may appear in books.\n" +
	"Do NOT answer the question."

// rewriteQueries expands a question into alternative retrieval queries.
// The original question always comes first and the result is capped at n
// rewrites on top of it. Any failure falls back to the original question
// alone.
func rewriteQueries(ctx context.Context, generator llm.Generator, question string, n int) []string {
	if n <= 0 {
		return []string{question}
	}

	raw, err := generator.Generate(ctx, rewriteRole, question)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "query rewrite failed, using original question", "error", err)
		return []string{question}
	}

	var rewrites []string
	for _, line := range strings.Split(raw, "\n") {
		q := strings.Trim(line, " -\t\r\n")
		if q == "" || strings.EqualFold(q, question) {
			continue
		}
		rewrites = append(rewrites, q)
	}

	merged := append([]string{question}, rewrites...)

	seen := make(map[string]struct{}, len(merged))
	queries := make([]string, 0, len(merged))
	for _, q := range merged {
		key := strings.ToLower(q)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		queries = append(queries, q)
	}

	if len(queries) > n+1 {
		queries = queries[:n+1]
	}
	return queries
}
