package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks docqa/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"fmt"
)

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// InsertWithChunks inserts a document and all of its chunks in one
	// transaction. On return doc.ID and the IDs of the chunks are set.
	InsertWithChunks(ctx context.Context, doc *Document, chunks []*Chunk) error
	// GetByID gets a document by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id int64) (Document, error)
	// ListByWorkspace returns the documents of a workspace ordered by ID,
	// each with its chunk count populated.
	ListByWorkspace(ctx context.Context, workspaceID string) ([]Document, error)
	// Delete removes a document and its chunks.
	// Returns ErrNotFound if the document does not exist.
	Delete(ctx context.Context, id int64) error
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// InsertWithChunks inserts a document and all of its chunks in one
// transaction, so a failed ingest never leaves a half-stored document.
func (r *DocumentRepo) InsertWithChunks(ctx context.Context, doc *Document, chunks []*Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		"INSERT INTO documents (workspace_id, source) VALUES (?, ?)",
		doc.WorkspaceID, doc.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	docID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read document ID: %w", err)
	}
	doc.ID = docID

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (document_id, chunk_index, content, point_id) VALUES (?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, chunk := range chunks {
		chunk.DocumentID = docID
		res, err := stmt.ExecContext(ctx, chunk.DocumentID, chunk.ChunkIndex, chunk.Content, chunk.PointID)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.ChunkIndex, err)
		}
		chunkID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read chunk ID: %w", err)
		}
		chunk.ID = chunkID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document insert: %w", err)
	}
	return nil
}

// GetByID gets a document by its ID. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, id int64) (Document, error) {
	var doc Document
	var createdAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, workspace_id, source, created_at FROM documents WHERE id = ?",
		id,
	).Scan(&doc.ID, &doc.WorkspaceID, &doc.Source, &createdAtStr)

	if err == sql.ErrNoRows {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to query document: %w", err)
	}

	doc.CreatedAt, err = parseTimestamp(createdAtStr)
	if err != nil {
		return Document{}, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}

	return doc, nil
}

// ListByWorkspace returns the documents of a workspace ordered by ID,
// each with its chunk count populated.
func (r *DocumentRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT d.id, d.workspace_id, d.source, d.created_at, COUNT(c.id)
		 FROM documents d
		 LEFT JOIN chunks c ON c.document_id = d.id
		 WHERE d.workspace_id = ?
		 GROUP BY d.id
		 ORDER BY d.id`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []Document
	for rows.Next() {
		var doc Document
		var createdAtStr string
		if err := rows.Scan(&doc.ID, &doc.WorkspaceID, &doc.Source, &createdAtStr, &doc.ChunkCount); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		doc.CreatedAt, err = parseTimestamp(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
		}

		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return docs, nil
}

// Delete removes a document and its chunks. Chunks are deleted explicitly
// so the FTS index triggers see the rows go away.
func (r *DocumentRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete document chunks: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document delete: %w", err)
	}
	return nil
}
