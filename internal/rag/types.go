package rag

// Mode selects the grounding contract applied to a request.
type Mode string

const (
	// ModeReference answers one atomic factual question under the strictest contract.
	ModeReference Mode = "reference"
	// ModeSynthesis combines evidence from multiple chunks and permits multi-part questions.
	ModeSynthesis Mode = "synthesis"
	// ModeCustom uses a caller-supplied role, always wrapped with the grounding rules.
	ModeCustom Mode = "custom"
)

// Request represents a question against a single workspace.
type Request struct {
	// WorkspaceID is the isolation boundary; retrieval never crosses it.
	WorkspaceID string `json:"workspace_id"`
	// Question is the user's natural-language question.
	Question string `json:"question"`
	// Mode selects the grounding contract ("reference" when empty).
	Mode string `json:"mode,omitempty"`
	// Role is the caller-supplied system role; required for custom mode.
	Role string `json:"role,omitempty"`
}

// Candidate is a per-request projection of a chunk with its retrieval
// rankings. Rank 0 means the chunk was absent from that ranking.
// Candidates are never persisted.
type Candidate struct {
	ChunkID      int64   `json:"chunk_id"`
	DocumentID   int64   `json:"document_id"`
	ChunkIndex   int     `json:"chunk_index"`
	Content      string  `json:"content"`
	Source       string  `json:"source"`
	VectorRank   int     `json:"vector_rank,omitempty"`
	LexicalRank  int     `json:"lexical_rank,omitempty"`
	VectorScore  float64 `json:"vector_score,omitempty"`
	LexicalScore float64 `json:"lexical_score,omitempty"`
	// Score is the fused reciprocal-rank score the pipeline orders by.
	Score float64 `json:"score"`
}

// Response represents the outcome of a pipeline run.
type Response struct {
	WorkspaceID string `json:"workspace_id"`
	Question    string `json:"question"`
	Role        string `json:"role,omitempty"`
	// Answer is the normalized answer text, or a canonical refusal.
	Answer string `json:"answer"`
	// Sources are exactly the chunks passed to generation, never a model-reported subset.
	Sources []Candidate `json:"sources"`
	// Candidates is the full fused-and-filtered set, kept for diagnostics.
	Candidates []Candidate `json:"candidates"`
	LLMBackend string      `json:"llm_backend"`
	LLMModel   string      `json:"llm_model"`
	Mode       string      `json:"mode"`
}
