package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"docqa/internal/contextutil"
	"docqa/internal/rag"
	"docqa/internal/storage"
)

// ChatHandler handles HTTP requests for workspace question answering.
type ChatHandler struct {
	engine rag.Engine
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(engine rag.Engine) *ChatHandler {
	return &ChatHandler{
		engine: engine,
	}
}

// ChatRequest represents the HTTP request payload for a question.
// This mirrors rag.Request but is defined here for HTTP layer separation.
//
// swagger:model ChatRequest
type ChatRequest struct {
	// WorkspaceID selects the corpus to answer from
	WorkspaceID string `json:"workspace_id"`

	// Question is the natural-language question
	Question string `json:"question"`

	// Mode is "reference" (default), "synthesis" or "custom"
	Mode string `json:"mode,omitempty"`

	// Role is the caller-supplied system role, custom mode only
	Role string `json:"role,omitempty"`
}

// CandidateResponse represents a retrieved chunk in the HTTP response.
//
// swagger:model CandidateResponse
type CandidateResponse struct {
	ChunkID    int64  `json:"chunk_id"`
	DocumentID int64  `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
	Source     string `json:"source"`

	// VectorRank and LexicalRank are the 1-based positions in each
	// ranking; 0 means the chunk was absent from that ranking.
	VectorRank  int `json:"vector_rank,omitempty"`
	LexicalRank int `json:"lexical_rank,omitempty"`

	// Score is the fused score the pipeline ordered by
	Score float64 `json:"score"`
}

// ChatResponse represents the HTTP response payload for a question.
// This mirrors rag.Response but is defined here for HTTP layer separation.
//
// swagger:model ChatResponse
type ChatResponse struct {
	WorkspaceID string `json:"workspace_id"`
	Question    string `json:"question"`
	Role        string `json:"role,omitempty"`

	// Answer is the grounded answer, or a canonical refusal when the
	// evidence was insufficient
	Answer string `json:"answer"`

	// Sources are exactly the chunks handed to generation
	Sources []CandidateResponse `json:"sources"`

	// Candidates is the full fused-and-filtered set, for diagnostics
	Candidates []CandidateResponse `json:"candidates"`

	LLMBackend string `json:"llm_backend"`
	LLMModel   string `json:"llm_model"`
	Mode       string `json:"mode"`
}

// ServeHTTP handles HTTP requests for workspace question answering.
//
// Ask a question against a single workspace. The pipeline retrieves
// candidate chunks (vector + full-text), fuses and filters them, and either
// generates a grounded answer or returns a canonical refusal. A refusal is
// a successful response, not an error.
//
// swagger:route POST /chat chat askQuestion
//
// # Ask a question against a workspace
//
// Runs hybrid retrieval over the workspace corpus and answers strictly from
// the retrieved chunks. Sources list exactly the chunks given to the model.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// parameters:
//   - in: body
//     name: body
//     required: true
//     schema:
//     "$ref": "#/definitions/ChatRequest"
//
// responses:
//
//	'200':
//	  description: Answer or canonical refusal
//	  schema:
//	    "$ref": "#/definitions/ChatResponse"
//	'400':
//	  description: Invalid request (missing workspace, question or role)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'404':
//	  description: Workspace does not exist
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Retrieval or generation backend unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'500':
//	  description: Internal server error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ragReq := rag.Request{
		WorkspaceID: req.WorkspaceID,
		Question:    req.Question,
		Mode:        req.Mode,
		Role:        req.Role,
	}

	ragResp, err := h.engine.Answer(ctx, ragReq)
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}

	resp := ChatResponse{
		WorkspaceID: ragResp.WorkspaceID,
		Question:    ragResp.Question,
		Role:        ragResp.Role,
		Answer:      ragResp.Answer,
		Sources:     toCandidateResponses(ragResp.Sources),
		Candidates:  toCandidateResponses(ragResp.Candidates),
		LLMBackend:  ragResp.LLMBackend,
		LLMModel:    ragResp.LLMModel,
		Mode:        ragResp.Mode,
	}

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// handleEngineError maps pipeline errors to appropriate HTTP status codes.
func (h *ChatHandler) handleEngineError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "pipeline error", "error", err)

	var validationErr *rag.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
		return
	}

	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Workspace not found")
		return
	}

	if errors.Is(err, rag.ErrRetrieval) {
		writeError(w, http.StatusServiceUnavailable, "Retrieval backend unavailable")
		return
	}

	if errors.Is(err, rag.ErrGenerationUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "Generation backend unavailable")
		return
	}

	writeError(w, http.StatusInternalServerError, "Failed to process question")
}

// toCandidateResponses converts pipeline candidates to HTTP DTOs.
func toCandidateResponses(candidates []rag.Candidate) []CandidateResponse {
	out := make([]CandidateResponse, len(candidates))
	for i, c := range candidates {
		out[i] = CandidateResponse{
			ChunkID:     c.ChunkID,
			DocumentID:  c.DocumentID,
			ChunkIndex:  c.ChunkIndex,
			Content:     c.Content,
			Source:      c.Source,
			VectorRank:  c.VectorRank,
			LexicalRank: c.LexicalRank,
			Score:       c.Score,
		}
	}
	return out
}
