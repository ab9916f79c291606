package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"docqa/internal/contextutil"
	"docqa/internal/storage"
	"docqa/internal/vectorstore"
)

// DocumentHandler handles HTTP requests for document management.
type DocumentHandler struct {
	documents  storage.DocumentStore
	chunks     storage.ChunkStore
	vectors    vectorstore.VectorStore
	collection string
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(documents storage.DocumentStore, chunks storage.ChunkStore, vectors vectorstore.VectorStore, collection string) *DocumentHandler {
	return &DocumentHandler{
		documents:  documents,
		chunks:     chunks,
		vectors:    vectors,
		collection: collection,
	}
}

// DocumentResponse represents one ingested document.
//
// swagger:model DocumentResponse
type DocumentResponse struct {
	ID          int64  `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Source      string `json:"source"`
	CreatedAt   string `json:"created_at"`
	ChunkCount  int    `json:"chunk_count"`
}

// DocumentsResponse lists the documents of a workspace.
//
// swagger:model DocumentsResponse
type DocumentsResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

// List handles GET /documents?workspace_id=.
//
// swagger:route GET /documents documents listDocuments
//
// # List the documents of a workspace
//
// ---
// produces:
// - application/json
// parameters:
//   - in: query
//     name: workspace_id
//     type: string
//     required: true
//
// responses:
//
//	'200':
//	  description: Documents of the workspace
//	  schema:
//	    "$ref": "#/definitions/DocumentsResponse"
//	'400':
//	  description: Missing workspace_id
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		writeError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}

	docs, err := h.documents.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list documents", "error", err, "workspace_id", workspaceID)
		writeError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	out := make([]DocumentResponse, len(docs))
	for i, doc := range docs {
		out[i] = DocumentResponse{
			ID:          doc.ID,
			WorkspaceID: doc.WorkspaceID,
			Source:      doc.Source,
			CreatedAt:   doc.CreatedAt.UTC().Format(time.RFC3339),
			ChunkCount:  doc.ChunkCount,
		}
	}

	if err := writeJSON(w, http.StatusOK, DocumentsResponse{Documents: out}); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// Delete handles DELETE /documents/{id}. The document's vector points go
// first, then the SQLite rows, so a failed run stays retryable.
//
// swagger:route DELETE /documents/{id} documents deleteDocument
//
// # Delete a document and its chunks
//
// ---
// responses:
//
//	'204':
//	  description: Document deleted
//	'400':
//	  description: Invalid document ID
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'404':
//	  description: Document does not exist
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Vector store unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	if _, err := h.documents.GetByID(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		logger.ErrorContext(ctx, "failed to load document", "error", err, "document_id", id)
		writeError(w, http.StatusInternalServerError, "Failed to delete document")
		return
	}

	pointIDs, err := h.chunks.ListPointIDsByDocument(ctx, id)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list document points", "error", err, "document_id", id)
		writeError(w, http.StatusInternalServerError, "Failed to delete document")
		return
	}

	if len(pointIDs) > 0 {
		if err := h.vectors.Delete(ctx, h.collection, pointIDs); err != nil {
			logger.ErrorContext(ctx, "failed to delete document vectors", "error", err, "document_id", id)
			writeError(w, http.StatusServiceUnavailable, "Vector store unavailable")
			return
		}
	}

	if err := h.documents.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		logger.ErrorContext(ctx, "failed to delete document rows", "error", err, "document_id", id)
		writeError(w, http.StatusInternalServerError, "Failed to delete document")
		return
	}

	logger.InfoContext(ctx, "document deleted", "document_id", id, "points", len(pointIDs))
	w.WriteHeader(http.StatusNoContent)
}
