package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_workspace_store.go -package=mocks docqa/internal/storage WorkspaceStore

import (
	"context"
	"database/sql"
	"fmt"
)

// WorkspaceStore defines the interface for workspace storage operations.
type WorkspaceStore interface {
	// GetOrCreate returns the workspace with the given ID, creating it first
	// if it does not exist.
	GetOrCreate(ctx context.Context, id string) (Workspace, error)
	// Get returns a workspace by ID. Returns ErrNotFound if not found.
	Get(ctx context.Context, id string) (Workspace, error)
	// List returns all workspaces ordered by ID.
	List(ctx context.Context) ([]Workspace, error)
	// Delete removes a workspace together with its documents, chunks and
	// notes. Returns ErrNotFound if the workspace does not exist.
	Delete(ctx context.Context, id string) error
}

// WorkspaceRepo provides methods for workspace operations.
// It implements the WorkspaceStore interface.
type WorkspaceRepo struct {
	db *sql.DB
}

// NewWorkspaceRepo creates a new WorkspaceRepo.
func NewWorkspaceRepo(db *sql.DB) *WorkspaceRepo {
	return &WorkspaceRepo{db: db}
}

// GetOrCreate returns the workspace with the given ID, creating it first
// if it does not exist.
func (r *WorkspaceRepo) GetOrCreate(ctx context.Context, id string) (Workspace, error) {
	ws, err := r.Get(ctx, id)
	if err == nil {
		return ws, nil
	}
	if err != ErrNotFound {
		return Workspace{}, err
	}

	// Workspace doesn't exist, create it. ON CONFLICT covers the race where
	// two requests create the same workspace at once.
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO workspaces (id) VALUES (?) ON CONFLICT (id) DO NOTHING",
		id,
	)
	if err != nil {
		return Workspace{}, fmt.Errorf("failed to create workspace: %w", err)
	}

	return r.Get(ctx, id)
}

// Get returns a workspace by ID. Returns ErrNotFound if not found.
func (r *WorkspaceRepo) Get(ctx context.Context, id string) (Workspace, error) {
	var ws Workspace
	var createdAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, created_at FROM workspaces WHERE id = ?",
		id,
	).Scan(&ws.ID, &createdAtStr)

	if err == sql.ErrNoRows {
		return Workspace{}, ErrNotFound
	}
	if err != nil {
		return Workspace{}, fmt.Errorf("failed to query workspace: %w", err)
	}

	ws.CreatedAt, err = parseTimestamp(createdAtStr)
	if err != nil {
		return Workspace{}, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}

	return ws, nil
}

// List returns all workspaces ordered by ID.
func (r *WorkspaceRepo) List(ctx context.Context) ([]Workspace, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, created_at FROM workspaces ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query workspaces: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var workspaces []Workspace
	for rows.Next() {
		var ws Workspace
		var createdAtStr string
		if err := rows.Scan(&ws.ID, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}

		ws.CreatedAt, err = parseTimestamp(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
		}

		workspaces = append(workspaces, ws)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return workspaces, nil
}

// Delete removes a workspace together with its documents, chunks and notes.
// Deletions are explicit rather than left to FK cascades so the FTS index
// triggers always see the chunk rows go away.
func (r *WorkspaceRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE document_id IN (SELECT id FROM documents WHERE workspace_id = ?)",
		id,
	); err != nil {
		return fmt.Errorf("failed to delete workspace chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE workspace_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete workspace documents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM notes WHERE workspace_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete workspace notes: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM workspaces WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit workspace delete: %w", err)
	}
	return nil
}
