package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// retrievalVersion is the schema version accepted in retrieval TOML files.
const retrievalVersion = 1

// Retrieval holds the tuning knobs of the retrieval pipeline. A value of
// this struct is treated as an immutable snapshot: it is loaded once at
// startup and every request reads the same copy, so results stay
// reproducible while the process runs.
type Retrieval struct {
	// Candidate generation.
	VectorK      int `toml:"vector_k"`
	LexicalK     int `toml:"lexical_k"`
	RRFK         int `toml:"rrf_k"`
	AnchorTokens int `toml:"anchor_tokens"`

	// Filter chain, applied in order. Known names: noise, duplicate, entity.
	FilterChain      []string `toml:"filter_chain"`
	DuplicateJaccard float64  `toml:"duplicate_jaccard"`
	EntityMinKeep    int      `toml:"entity_min_keep"`

	// Coverage gate.
	MinFusedScore   float64 `toml:"min_fused_score"`
	MinDistinctDocs int     `toml:"min_distinct_documents"`

	// Context assembly.
	ContextK          int `toml:"context_k"`
	ContextCharBudget int `toml:"context_char_budget"`

	// Query rewriting (custom mode only).
	RewriteEnabled bool `toml:"rewrite_enabled"`
	RewriteN       int  `toml:"rewrite_n"`

	// Post-assembly LLM relevance filter.
	RelevanceEnabled bool `toml:"relevance_enabled"`
}

// retrievalFile is the on-disk shape of a retrieval TOML file.
type retrievalFile struct {
	Version   int       `toml:"version"`
	Retrieval Retrieval `toml:"retrieval"`
}

// DefaultRetrieval returns the built-in tuning values.
func DefaultRetrieval() Retrieval {
	return Retrieval{
		VectorK:           20,
		LexicalK:          50,
		RRFK:              60,
		AnchorTokens:      4,
		FilterChain:       []string{"noise", "duplicate", "entity"},
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

// LoadRetrieval returns the default tuning, overlaid with values from the
// TOML file at path if one is given. Fields absent from the file keep their
// defaults. An empty path means defaults only.
func LoadRetrieval(path string) (Retrieval, error) {
	r := DefaultRetrieval()
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Retrieval{}, fmt.Errorf("read %s: %w", path, err)
	}

	file := retrievalFile{Retrieval: r}
	if err := toml.Unmarshal(data, &file); err != nil {
		return Retrieval{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if file.Version != retrievalVersion {
		return Retrieval{}, fmt.Errorf("%s: unsupported version %d (want %d)", path, file.Version, retrievalVersion)
	}

	if err := file.Retrieval.validate(); err != nil {
		return Retrieval{}, fmt.Errorf("%s: %w", path, err)
	}
	return file.Retrieval, nil
}

func (r Retrieval) validate() error {
	if r.VectorK <= 0 {
		return fmt.Errorf("vector_k must be positive")
	}
	if r.LexicalK <= 0 {
		return fmt.Errorf("lexical_k must be positive")
	}
	if r.RRFK <= 0 {
		return fmt.Errorf("rrf_k must be positive")
	}
	if r.AnchorTokens < 0 {
		return fmt.Errorf("anchor_tokens must not be negative")
	}
	if r.DuplicateJaccard <= 0 || r.DuplicateJaccard > 1 {
		return fmt.Errorf("duplicate_jaccard must be in (0, 1]")
	}
	if r.EntityMinKeep < 0 {
		return fmt.Errorf("entity_min_keep must not be negative")
	}
	if r.MinFusedScore < 0 {
		return fmt.Errorf("min_fused_score must not be negative")
	}
	if r.MinDistinctDocs < 1 {
		return fmt.Errorf("min_distinct_documents must be at least 1")
	}
	if r.ContextK <= 0 {
		return fmt.Errorf("context_k must be positive")
	}
	if r.ContextCharBudget <= 0 {
		return fmt.Errorf("context_char_budget must be positive")
	}
	if r.RewriteN < 0 {
		return fmt.Errorf("rewrite_n must not be negative")
	}
	for _, name := range r.FilterChain {
		switch name {
		case "noise", "duplicate", "entity":
		default:
			return fmt.Errorf("unknown filter %q in filter_chain", name)
		}
	}
	return nil
}
