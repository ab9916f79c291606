package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"docqa/internal/contextutil"
	"docqa/internal/ingest"
)

// maxUploadBytes caps the multipart form kept in memory per upload.
const maxUploadBytes = 32 << 20

// IngestHandler handles HTTP requests for file ingestion.
type IngestHandler struct {
	pipeline *ingest.Pipeline
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(pipeline *ingest.Pipeline) *IngestHandler {
	return &IngestHandler{
		pipeline: pipeline,
	}
}

// IngestResponse reports what an accepted upload produced.
//
// swagger:model IngestResponse
type IngestResponse struct {
	WorkspaceID string `json:"workspace_id"`
	DocumentID  int64  `json:"document_id"`

	// ChunksCount and EmbeddingsCount are equal on success; the pipeline
	// rejects uploads where any chunk failed to embed.
	ChunksCount     int `json:"chunks_count"`
	EmbeddingsCount int `json:"embeddings_count"`
}

// ServeHTTP handles HTTP requests for file ingestion.
//
// Accepts a multipart upload (form fields: workspace_id, file), extracts
// text, splits it into chunks, embeds them and stores rows and vectors.
// The workspace is created if it does not exist yet.
//
// swagger:route POST /ingest-file ingest ingestFile
//
// # Ingest a file into a workspace
//
// ---
// consumes:
// - multipart/form-data
// produces:
// - application/json
// parameters:
//   - in: formData
//     name: workspace_id
//     type: string
//     required: true
//   - in: formData
//     name: file
//     type: file
//     required: true
//
// responses:
//
//	'200':
//	  description: File ingested
//	  schema:
//	    "$ref": "#/definitions/IngestResponse"
//	'400':
//	  description: Bad upload (missing fields, no extractable text)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: Embedding service error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Vector store unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	workspaceID := r.FormValue("workspace_id")
	if workspaceID == "" {
		writeError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.WarnContext(ctx, "missing file field", "error", err)
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read upload", "error", err)
		writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	result, err := h.pipeline.IngestFile(ctx, workspaceID, header.Filename, data)
	if err != nil {
		h.handleIngestError(w, r, err)
		return
	}

	resp := IngestResponse{
		WorkspaceID:     workspaceID,
		DocumentID:      result.DocumentID,
		ChunksCount:     result.Chunks,
		EmbeddingsCount: result.Chunks,
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// handleIngestError maps pipeline errors to appropriate HTTP status codes.
func (h *IngestHandler) handleIngestError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "ingestion error", "error", err)

	if errors.Is(err, ingest.ErrEmptyDocument) {
		writeError(w, http.StatusBadRequest, "No text content extracted from file")
		return
	}

	// Classify by error chain text, same as the query-side mapping.
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "extract text") {
		writeError(w, http.StatusBadRequest, "Could not extract text from file")
		return
	}

	if strings.Contains(errMsg, "embed") {
		writeError(w, http.StatusBadGateway, "Embedding service error")
		return
	}

	if strings.Contains(errMsg, "vector") || strings.Contains(errMsg, "upsert") {
		writeError(w, http.StatusServiceUnavailable, "Vector store unavailable")
		return
	}

	writeError(w, http.StatusInternalServerError, "Failed to ingest file")
}
