package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"docqa/internal/contextutil"
	"docqa/internal/storage"
	"docqa/internal/vectorstore"
)

// WorkspaceHandler handles HTTP requests for workspace management.
// Deleting a workspace removes its rows from SQLite and its points from the
// vector store; the two must not drift apart.
type WorkspaceHandler struct {
	workspaces storage.WorkspaceStore
	vectors    vectorstore.VectorStore
	collection string
}

// NewWorkspaceHandler creates a new WorkspaceHandler.
func NewWorkspaceHandler(workspaces storage.WorkspaceStore, vectors vectorstore.VectorStore, collection string) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaces: workspaces,
		vectors:    vectors,
		collection: collection,
	}
}

// WorkspacesResponse lists the known workspace IDs.
//
// swagger:model WorkspacesResponse
type WorkspacesResponse struct {
	Workspaces []string `json:"workspaces"`
}

// WorkspaceCreateRequest represents the payload for creating a workspace.
//
// swagger:model WorkspaceCreateRequest
type WorkspaceCreateRequest struct {
	WorkspaceID string `json:"workspace_id"`
}

// WorkspaceResponse represents a single workspace.
//
// swagger:model WorkspaceResponse
type WorkspaceResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// List handles GET /workspaces.
//
// swagger:route GET /workspaces workspaces listWorkspaces
//
// # List workspace IDs
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Known workspace IDs
//	  schema:
//	    "$ref": "#/definitions/WorkspacesResponse"
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	workspaces, err := h.workspaces.List(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list workspaces", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list workspaces")
		return
	}

	ids := make([]string, len(workspaces))
	for i, ws := range workspaces {
		ids[i] = ws.ID
	}

	if err := writeJSON(w, http.StatusOK, WorkspacesResponse{Workspaces: ids}); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// Create handles POST /workspaces. Creating an existing workspace is not an
// error; the existing workspace is returned.
//
// swagger:route POST /workspaces workspaces createWorkspace
//
// # Create a workspace
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'201':
//	  description: Workspace created (or already existed)
//	  schema:
//	    "$ref": "#/definitions/WorkspaceResponse"
//	'400':
//	  description: Missing workspace_id
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req WorkspaceCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.WorkspaceID == "" {
		writeError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}

	ws, err := h.workspaces.GetOrCreate(ctx, req.WorkspaceID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to create workspace", "error", err, "workspace_id", req.WorkspaceID)
		writeError(w, http.StatusInternalServerError, "Failed to create workspace")
		return
	}

	resp := WorkspaceResponse{
		ID:        ws.ID,
		CreatedAt: ws.CreatedAt.UTC().Format(time.RFC3339),
	}
	if err := writeJSON(w, http.StatusCreated, resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// Delete handles DELETE /workspaces/{id}. Vector points are removed before
// the SQLite rows so a failed run leaves the workspace intact and the
// delete retryable, never half-queryable.
//
// swagger:route DELETE /workspaces/{id} workspaces deleteWorkspace
//
// # Delete a workspace and everything in it
//
// ---
// responses:
//
//	'204':
//	  description: Workspace deleted
//	'404':
//	  description: Workspace does not exist
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Vector store unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	id := chi.URLParam(r, "id")

	if _, err := h.workspaces.Get(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Workspace not found")
			return
		}
		logger.ErrorContext(ctx, "failed to load workspace", "error", err, "workspace_id", id)
		writeError(w, http.StatusInternalServerError, "Failed to delete workspace")
		return
	}

	if err := h.vectors.DeleteByWorkspace(ctx, h.collection, id); err != nil {
		logger.ErrorContext(ctx, "failed to delete workspace vectors", "error", err, "workspace_id", id)
		writeError(w, http.StatusServiceUnavailable, "Vector store unavailable")
		return
	}

	if err := h.workspaces.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Workspace not found")
			return
		}
		logger.ErrorContext(ctx, "failed to delete workspace rows", "error", err, "workspace_id", id)
		writeError(w, http.StatusInternalServerError, "Failed to delete workspace")
		return
	}

	logger.InfoContext(ctx, "workspace deleted", "workspace_id", id)
	w.WriteHeader(http.StatusNoContent)
}
