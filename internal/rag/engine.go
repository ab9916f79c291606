package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks docqa/internal/rag Engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"docqa/internal/contextutil"
	"docqa/internal/llm"
	"docqa/internal/storage"
	"docqa/internal/vectorstore"
)

// Engine answers questions strictly from a workspace's documents, refusing
// when the retrieved evidence is insufficient.
type Engine interface {
	// Answer runs the retrieval-and-grounding pipeline for one request.
	Answer(ctx context.Context, req Request) (Response, error)
}

// engine implements the Engine interface.
type engine struct {
	cfg        Config
	embedder   llm.Embedder
	generator  llm.Generator
	vectors    vectorstore.VectorStore
	collection string
	chunks     storage.ChunkStore
	workspaces storage.WorkspaceStore
	extractor  FocusExtractor
}

// NewEngine creates a pipeline engine with the given tuning snapshot.
func NewEngine(
	cfg Config,
	embedder llm.Embedder,
	generator llm.Generator,
	vectors vectorstore.VectorStore,
	collection string,
	chunks storage.ChunkStore,
	workspaces storage.WorkspaceStore,
) Engine {
	return &engine{
		cfg:        cfg,
		embedder:   embedder,
		generator:  generator,
		vectors:    vectors,
		collection: collection,
		chunks:     chunks,
		workspaces: workspaces,
		extractor:  termExtractor{},
	}
}

// Answer runs the pipeline: validate, retrieve (vector + full-text in
// parallel), fuse, filter, gate, assemble, generate, normalize.
func (e *engine) Answer(ctx context.Context, req Request) (Response, error) {
	logger := contextutil.LoggerFromContext(ctx)

	mode, err := validateRequest(req)
	if err != nil {
		return Response{}, err
	}

	resp := Response{
		WorkspaceID: req.WorkspaceID,
		Question:    req.Question,
		Role:        req.Role,
		Sources:     []Candidate{},
		Candidates:  []Candidate{},
		LLMBackend:  e.generator.Backend(),
		LLMModel:    e.generator.Model(),
		Mode:        string(mode),
	}

	logger.InfoContext(ctx, "pipeline started",
		"workspace_id", req.WorkspaceID,
		"mode", mode,
		"question_length", len(req.Question),
	)

	if _, err := e.workspaces.Get(ctx, req.WorkspaceID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Response{}, fmt.Errorf("workspace %s: %w", req.WorkspaceID, err)
		}
		return Response{}, retrievalError(err)
	}

	// Reference mode answers exactly one atomic question. Checked before
	// any retrieval spend.
	if mode == ModeReference && isCompoundQuestion(req.Question) {
		logger.InfoContext(ctx, "compound question rejected in reference mode")
		resp.Answer = CompoundQuestionAnswer
		return resp, nil
	}

	queries := []string{req.Question}
	if mode == ModeCustom && e.cfg.RewriteEnabled && e.generator.Enabled() {
		queries = rewriteQueries(ctx, e.generator, req.Question, e.cfg.RewriteN)
	}
	logger.DebugContext(ctx, "search queries built", "count", len(queries))

	candidates, err := e.retrieve(ctx, req.WorkspaceID, queries)
	if err != nil {
		return Response{}, err
	}

	filters, err := buildFilterChain(e.cfg, req.Question, e.extractor)
	if err != nil {
		return Response{}, WrapError(err, "failed to build filter chain")
	}
	retrieved := len(candidates)
	candidates = applyFilters(filters, candidates)
	logger.InfoContext(ctx, "filter chain applied",
		"candidates_before", retrieved,
		"candidates_after", len(candidates),
	)

	if candidates == nil {
		candidates = []Candidate{}
	}
	resp.Candidates = candidates

	gate := coverageGate(e.cfg, candidates)
	if gate.Decision == NoAnswer {
		logger.InfoContext(ctx, "coverage gate refused", "reason", gate.Reason)
		resp.Answer = RefusalAnswer
		return resp, nil
	}
	logger.DebugContext(ctx, "coverage gate passed", "reason", gate.Reason)

	ordered := append([]Candidate(nil), candidates...)
	if mode == ModeCustom {
		sortByFactDensity(ordered)
	}

	selected := assembleContext(ordered, e.cfg.ContextK, e.cfg.ContextCharBudget)

	if e.cfg.RelevanceEnabled && e.generator.Enabled() {
		assembled := len(selected)
		selected = relevanceFilter(ctx, e.generator, req.Question, selected)
		logger.DebugContext(ctx, "relevance filter applied", "before", assembled, "after", len(selected))
	}

	resp.Sources = selected
	contextText := joinContext(selected)

	if !e.generator.Enabled() {
		logger.InfoContext(ctx, "generation disabled, returning stub answer")
		resp.Answer = DisabledAnswer
		return resp, nil
	}

	role := effectiveRole(mode, req.Role)
	prompt := buildPrompt(contextText, req.Question)

	logger.InfoContext(ctx, "invoking generator",
		"backend", resp.LLMBackend,
		"model", resp.LLMModel,
		"chunks_in_context", len(selected),
		"context_length", len(contextText),
	)

	answer, err := e.generator.Generate(ctx, role, prompt)
	if err != nil {
		if errors.Is(err, llm.ErrDisabled) {
			resp.Answer = DisabledAnswer
			return resp, nil
		}
		logger.ErrorContext(ctx, "generation failed", "error", err)
		return Response{}, fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
	}

	normalized, overridden := normalizeAnswer(answer, contextText)
	if overridden {
		logger.WarnContext(ctx, "normalization override applied", "raw_answer_length", len(answer))
	}
	resp.Answer = normalized

	logger.InfoContext(ctx, "pipeline completed",
		"answer_length", len(resp.Answer),
		"sources", len(resp.Sources),
		"candidates", len(resp.Candidates),
	)
	return resp, nil
}

// validateRequest rejects malformed requests before any retrieval.
func validateRequest(req Request) (Mode, error) {
	if strings.TrimSpace(req.WorkspaceID) == "" {
		return "", &ValidationError{Field: "workspace_id", Message: "cannot be empty"}
	}
	if strings.TrimSpace(req.Question) == "" {
		return "", &ValidationError{Field: "question", Message: "cannot be empty"}
	}
	mode, ok := parseMode(req.Mode)
	if !ok {
		return "", &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown mode %q", req.Mode)}
	}
	if mode == ModeCustom && strings.TrimSpace(req.Role) == "" {
		return "", &ValidationError{Field: "role", Message: "required for custom mode"}
	}
	return mode, nil
}

// retrieve runs both retrieval legs for every query and merges the fused
// results across queries, keeping each chunk's best fused score.
func (e *engine) retrieve(ctx context.Context, workspaceID string, queries []string) ([]Candidate, error) {
	logger := contextutil.LoggerFromContext(ctx)

	best := make(map[int64]fusedChunk)
	for _, query := range queries {
		fused, err := e.retrieveOne(ctx, workspaceID, query)
		if err != nil {
			return nil, err
		}
		for _, fc := range fused {
			if prev, ok := best[fc.ChunkID]; !ok || fc.Score > prev.Score {
				best[fc.ChunkID] = fc
			}
		}
	}

	if len(best) == 0 {
		logger.InfoContext(ctx, "retrieval produced no candidates", "queries", len(queries))
		return nil, nil
	}

	// Workspace deletion may race retrieval. Re-check after the join so a
	// half-deleted workspace reads as a retrieval failure, not as thin
	// evidence.
	if _, err := e.workspaces.Get(ctx, workspaceID); err != nil {
		return nil, retrievalError(fmt.Errorf("workspace check after retrieval: %w", err))
	}

	ids := make([]int64, 0, len(best))
	for id := range best {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	chunks, err := e.chunks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, retrievalError(fmt.Errorf("failed to load chunk contents: %w", err))
	}

	candidates := make([]Candidate, 0, len(chunks))
	for _, ch := range chunks {
		fc := best[ch.ID]
		candidates = append(candidates, Candidate{
			ChunkID:      ch.ID,
			DocumentID:   ch.DocumentID,
			ChunkIndex:   ch.ChunkIndex,
			Content:      ch.Content,
			Source:       ch.Source,
			VectorRank:   fc.VectorRank,
			LexicalRank:  fc.LexicalRank,
			VectorScore:  fc.VectorScore,
			LexicalScore: fc.LexicalScore,
			Score:        fc.Score,
		})
	}

	sortByFused(candidates)
	logger.InfoContext(ctx, "retrieval completed", "queries", len(queries), "candidates", len(candidates))
	return candidates, nil
}

// retrieveOne embeds one query and runs the vector and full-text legs
// concurrently; either leg failing fails retrieval.
func (e *engine) retrieveOne(ctx context.Context, workspaceID, question string) ([]fusedChunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	normalized := normalizeQuery(question)
	if normalized == "" {
		normalized = strings.ToLower(strings.TrimSpace(question))
	}

	var (
		vector  []vectorHit
		lexical []lexicalHit
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		vec, err := e.embedder.EmbedQuery(gctx, normalized)
		if err != nil {
			return fmt.Errorf("failed to embed question: %w", err)
		}
		results, err := e.vectors.Search(gctx, e.collection, vec, e.cfg.VectorK, workspaceID)
		if err != nil {
			return fmt.Errorf("vector search failed: %w", err)
		}
		vector = make([]vectorHit, 0, len(results))
		for _, r := range results {
			id, ok := chunkIDFromMeta(r.Meta)
			if !ok {
				logger.WarnContext(gctx, "vector result without chunk_id payload", "point_id", r.PointID)
				continue
			}
			vector = append(vector, vectorHit{ChunkID: id, Score: float64(r.Score)})
		}
		return nil
	})

	g.Go(func() error {
		tokens := anchorTokens(question)
		if len(tokens) == 0 {
			// No content-bearing token to anchor on. Not an error.
			return nil
		}
		freqs, err := e.chunks.DocFrequencies(gctx, tokens)
		if err != nil {
			return fmt.Errorf("failed to load term frequencies: %w", err)
		}
		anchors := selectAnchors(tokens, freqs, e.cfg.AnchorTokens)
		hits, err := e.chunks.SearchText(gctx, workspaceID, anchors, e.cfg.LexicalK)
		if err != nil {
			return fmt.Errorf("full-text search failed: %w", err)
		}
		lexical = make([]lexicalHit, 0, len(hits))
		for _, h := range hits {
			lexical = append(lexical, lexicalHit{ChunkID: h.ID, Rank: h.Rank})
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, retrievalError(err)
	}

	fused := fuse(vector, lexical, e.cfg.RRFK)
	logger.DebugContext(ctx, "query legs fused",
		"vector_hits", len(vector),
		"lexical_hits", len(lexical),
		"fused", len(fused),
	)
	return fused, nil
}

// chunkIDFromMeta reads the chunk id out of a vector search payload.
func chunkIDFromMeta(meta map[string]any) (int64, bool) {
	switch v := meta["chunk_id"].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
