package handlers

import (
	"net/http"
	"strconv"

	"docqa/internal/contextutil"
	"docqa/internal/storage"
)

const (
	// previewRunes is how much chunk content the debug endpoint returns.
	previewRunes = 400
	// defaultScanLimit bounds the substring scan when no limit is given.
	defaultScanLimit = 20
)

// SearchDebugHandler exposes a raw substring scan over a workspace's chunks.
// Diagnostics only: it bypasses tokenization, ranking and the vector index,
// and never triggers generation.
type SearchDebugHandler struct {
	chunks storage.ChunkStore
}

// NewSearchDebugHandler creates a new SearchDebugHandler.
func NewSearchDebugHandler(chunks storage.ChunkStore) *SearchDebugHandler {
	return &SearchDebugHandler{
		chunks: chunks,
	}
}

// SearchChunkRow is one matched chunk with a content preview.
//
// swagger:model SearchChunkRow
type SearchChunkRow struct {
	ChunkID    int64  `json:"chunk_id"`
	DocumentID int64  `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Source     string `json:"source"`
	Preview    string `json:"preview"`
}

// SearchChunksResponse represents the debug scan result.
//
// swagger:model SearchChunksResponse
type SearchChunksResponse struct {
	Count int              `json:"count"`
	Rows  []SearchChunkRow `json:"rows"`
}

// ServeHTTP handles GET /debug/search_chunks.
//
// Runs a case-insensitive substring scan over the chunks of one workspace,
// newest chunk first, and returns previews. Useful to verify what text
// actually landed in the index when retrieval misses something.
//
// swagger:route GET /debug/search_chunks debug searchChunks
//
// # Substring scan over stored chunks
//
// ---
// produces:
// - application/json
// parameters:
//   - in: query
//     name: workspace_id
//     type: string
//     required: true
//   - in: query
//     name: q
//     type: string
//     required: true
//   - in: query
//     name: limit
//     type: integer
//     required: false
//
// responses:
//
//	'200':
//	  description: Matching chunks with previews
//	  schema:
//	    "$ref": "#/definitions/SearchChunksResponse"
//	'400':
//	  description: Missing workspace_id or q
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *SearchDebugHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		writeError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	limit := defaultScanLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	chunks, err := h.chunks.ScanContent(ctx, workspaceID, query, limit)
	if err != nil {
		logger.ErrorContext(ctx, "chunk scan failed", "error", err, "workspace_id", workspaceID)
		writeError(w, http.StatusInternalServerError, "Failed to scan chunks")
		return
	}

	rows := make([]SearchChunkRow, len(chunks))
	for i, c := range chunks {
		rows[i] = SearchChunkRow{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			ChunkIndex: c.ChunkIndex,
			Source:     c.Source,
			Preview:    truncateRunes(c.Content, previewRunes),
		}
	}

	resp := SearchChunksResponse{Count: len(rows), Rows: rows}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// truncateRunes cuts s after n runes, never mid-encoding.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
