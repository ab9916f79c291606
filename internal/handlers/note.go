package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"docqa/internal/contextutil"
	"docqa/internal/storage"
)

// NoteHandler handles HTTP requests for saved answers. Notes are written
// only when the caller explicitly accepts an answer; the pipeline itself
// never persists anything.
type NoteHandler struct {
	notes storage.NoteStore
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(notes storage.NoteStore) *NoteHandler {
	return &NoteHandler{
		notes: notes,
	}
}

// NoteCreateRequest represents the payload for saving an accepted answer.
//
// swagger:model NoteCreateRequest
type NoteCreateRequest struct {
	WorkspaceID string   `json:"workspace_id"`
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	Sources     []string `json:"sources,omitempty"`
}

// NoteCreateResponse acknowledges a saved note.
//
// swagger:model NoteCreateResponse
type NoteCreateResponse struct {
	ID          int64  `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	CreatedAt   string `json:"created_at"`
}

// NoteResponse represents one saved note.
//
// swagger:model NoteResponse
type NoteResponse struct {
	ID          int64    `json:"id"`
	WorkspaceID string   `json:"workspace_id"`
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	Sources     []string `json:"sources"`
	CreatedAt   string   `json:"created_at"`
}

// NotesResponse lists the notes of a workspace.
//
// swagger:model NotesResponse
type NotesResponse struct {
	Notes []NoteResponse `json:"notes"`
}

// Create handles POST /notes.
//
// swagger:route POST /notes notes createNote
//
// # Save an accepted answer
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'201':
//	  description: Note saved
//	  schema:
//	    "$ref": "#/definitions/NoteCreateResponse"
//	'400':
//	  description: Missing workspace_id, question or answer
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req NoteCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.WorkspaceID == "" {
		writeError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.Answer == "" {
		writeError(w, http.StatusBadRequest, "answer is required")
		return
	}

	note := storage.Note{
		WorkspaceID: req.WorkspaceID,
		Question:    req.Question,
		Answer:      req.Answer,
		Sources:     req.Sources,
	}
	if err := h.notes.Insert(ctx, &note); err != nil {
		logger.ErrorContext(ctx, "failed to insert note", "error", err, "workspace_id", req.WorkspaceID)
		writeError(w, http.StatusInternalServerError, "Failed to save note")
		return
	}

	resp := NoteCreateResponse{
		ID:          note.ID,
		WorkspaceID: note.WorkspaceID,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if err := writeJSON(w, http.StatusCreated, resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// List handles GET /notes?workspace_id=. Notes come back newest first.
//
// swagger:route GET /notes notes listNotes
//
// # List the saved notes of a workspace
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
//	  description: Notes of the workspace, newest first
//	  schema:
//	    "$ref": "#/definitions/NotesResponse"
//	'400':
//	  description: Missing workspace_id
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		writeError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}

	notes, err := h.notes.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list notes", "error", err, "workspace_id", workspaceID)
		writeError(w, http.StatusInternalServerError, "Failed to list notes")
		return
	}

	out := make([]NoteResponse, len(notes))
	for i, n := range notes {
		sources := n.Sources
		if sources == nil {
			sources = []string{}
		}
		out[i] = NoteResponse{
			ID:          n.ID,
			WorkspaceID: n.WorkspaceID,
			Question:    n.Question,
			Answer:      n.Answer,
			Sources:     sources,
			CreatedAt:   n.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	if err := writeJSON(w, http.StatusOK, NotesResponse{Notes: out}); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// Delete handles DELETE /notes/{id}.
//
// swagger:route DELETE /notes/{id} notes deleteNote
//
// # Delete a saved note
//
// ---
// responses:
//
//	'204':
//	  description: Note deleted
//	'400':
//	  description: Invalid note ID
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'404':
//	  description: Note does not exist
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}

	if err := h.notes.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Note not found")
			return
		}
		logger.ErrorContext(ctx, "failed to delete note", "error", err, "note_id", id)
		writeError(w, http.StatusInternalServerError, "Failed to delete note")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
