package rag

// Filter stage names accepted in Config.FilterChain.
const (
	FilterNoise     = "noise"
	FilterDuplicate = "duplicate"
	FilterEntity    = "entity"
)

// Config is the retrieval tuning snapshot an engine is built with. The
// filter chain and gate read it once per request; there are no ambient
// toggles.
type Config struct {
	// VectorK is the per-query candidate limit for the vector source.
	VectorK int
	// LexicalK is the per-query candidate limit for the full-text source.
	LexicalK int
	// RRFK is the K constant in the reciprocal-rank formula 1/(K+rank).
	RRFK int
	// AnchorTokens is the number of rarest question tokens used as the
	// full-text anchor.
	AnchorTokens int
	// FilterChain lists filter stages in execution order.
	FilterChain []string
	// DuplicateJaccard is the token-set similarity at or above which two
	// chunks count as duplicates.
	DuplicateJaccard float64
	// EntityMinKeep is the minimum surviving candidate count below which the
	// entity-focus filter passes the set through unchanged.
	EntityMinKeep int
	// MinFusedScore is the confidence floor for the coverage gate.
	MinFusedScore float64
	// MinDistinctDocs is the minimum distinct source documents the gate requires.
	MinDistinctDocs int
	// ContextK caps how many chunks the assembler selects.
	ContextK int
	// ContextCharBudget caps the total content length of the assembled context.
	ContextCharBudget int
	// RewriteEnabled turns on LLM query rewriting for custom mode.
	RewriteEnabled bool
	// RewriteN is the maximum number of rewritten queries added to the original.
	RewriteN int
	// RelevanceEnabled turns on the advisory LLM relevance filter.
	RelevanceEnabled bool
}

// DefaultConfig returns the tuning values the system ships with.
func DefaultConfig() Config {
	return Config{
		VectorK:           20,
		LexicalK:          50,
		RRFK:              60,
		AnchorTokens:      4,
		FilterChain:       []string{FilterNoise, FilterDuplicate, FilterEntity},
		DuplicateJaccard:  0.90,
		EntityMinKeep:     3,
		MinFusedScore:     0.01,
		MinDistinctDocs:   1,
		ContextK:          8,
		ContextCharBudget: 6000,
		RewriteEnabled:    true,
		RewriteN:          3,
		RelevanceEnabled:  true,
	}
}
