package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks docqa/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// GetByIDs returns the chunks with the given IDs, joined with their
	// document source. Missing IDs are skipped, not an error. Order of the
	// result is unspecified.
	GetByIDs(ctx context.Context, ids []int64) ([]Chunk, error)
	// SearchText runs a full-text search for the given terms within one
	// workspace. Results are ordered best match first. A chunk matches if it
	// contains any of the terms.
	SearchText(ctx context.Context, workspaceID string, terms []string, limit int) ([]SearchHit, error)
	// DocFrequencies returns, for each given term, the number of chunks in
	// the whole corpus that contain it. Terms that occur nowhere are absent
	// from the result map.
	DocFrequencies(ctx context.Context, terms []string) (map[string]int64, error)
	// ScanContent does a raw case-insensitive substring scan over the chunks
	// of a workspace, newest chunk first. Diagnostics only; retrieval uses
	// SearchText.
	ScanContent(ctx context.Context, workspaceID, query string, limit int) ([]Chunk, error)
	// ListPointIDsByDocument returns the vector store point IDs of all
	// chunks of a document, ordered by chunk_index.
	ListPointIDsByDocument(ctx context.Context, documentID int64) ([]string, error)
	// CountByWorkspace returns the number of chunks stored for a workspace.
	CountByWorkspace(ctx context.Context, workspaceID string) (int64, error)
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// GetByIDs returns the chunks with the given IDs, joined with their
// document source. Missing IDs are skipped, not an error.
func (r *ChunkRepo) GetByIDs(ctx context.Context, ids []int64) ([]Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.document_id, c.chunk_index, c.content, c.point_id, d.source
		 FROM chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE c.id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.PointID, &c.Source); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return chunks, nil
}

// SearchText runs a full-text search for the given terms within one
// workspace. Chunks containing any term match; bm25 orders best first.
func (r *ChunkRepo) SearchText(ctx context.Context, workspaceID string, terms []string, limit int) ([]SearchHit, error) {
	match := buildMatchExpr(terms)
	if match == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.document_id, c.chunk_index, c.content, c.point_id, d.source, bm25(chunks_fts) AS rank
		 FROM chunks_fts
		 JOIN chunks c ON c.id = chunks_fts.rowid
		 JOIN documents d ON d.id = c.document_id
		 WHERE chunks_fts MATCH ? AND d.workspace_id = ?
		 ORDER BY rank
		 LIMIT ?`,
		match, workspaceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to run text search: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.ID, &h.DocumentID, &h.ChunkIndex, &h.Content, &h.PointID, &h.Source, &h.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan search hit: %w", err)
		}
		hits = append(hits, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return hits, nil
}

// DocFrequencies returns per-term chunk counts from the FTS vocabulary.
func (r *ChunkRepo) DocFrequencies(ctx context.Context, terms []string) (map[string]int64, error) {
	if len(terms) == 0 {
		return map[string]int64{}, nil
	}

	placeholders := strings.Repeat("?,", len(terms))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(terms))
	for i, term := range terms {
		args[i] = term
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT term, doc FROM chunks_vocab WHERE term IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query term frequencies: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	freqs := make(map[string]int64, len(terms))
	for rows.Next() {
		var term string
		var doc int64
		if err := rows.Scan(&term, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan term frequency: %w", err)
		}
		freqs[term] = doc
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return freqs, nil
}

// ScanContent does a raw case-insensitive substring scan over the chunks of
// a workspace, newest chunk first. instr avoids LIKE wildcard escaping.
func (r *ChunkRepo) ScanContent(ctx context.Context, workspaceID, query string, limit int) ([]Chunk, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.document_id, c.chunk_index, c.content, c.point_id, d.source
		 FROM chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE d.workspace_id = ? AND instr(lower(c.content), lower(?)) > 0
		 ORDER BY c.id DESC
		 LIMIT ?`,
		workspaceID, query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.PointID, &c.Source); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return chunks, nil
}

// ListPointIDsByDocument returns the vector store point IDs of all chunks
// of a document, ordered by chunk_index.
// Used to remove a document's points when the document is deleted.
func (r *ChunkRepo) ListPointIDsByDocument(ctx context.Context, documentID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT point_id FROM chunks WHERE document_id = ? ORDER BY chunk_index",
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query point IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan point ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

// CountByWorkspace returns the number of chunks stored for a workspace.
func (r *ChunkRepo) CountByWorkspace(ctx context.Context, workspaceID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE d.workspace_id = ?`,
		workspaceID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// buildMatchExpr turns a list of terms into an FTS5 MATCH expression that
// matches chunks containing any of them. Terms are quoted so FTS5 operators
// inside them are taken literally.
func buildMatchExpr(terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		if term == "" {
			continue
		}
		quoted = append(quoted, `"`+strings.ReplaceAll(term, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " OR ")
}
