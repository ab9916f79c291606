package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_note_store.go -package=mocks docqa/internal/storage NoteStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// NoteStore defines the interface for note storage operations.
// Notes are saved answers: a question, the answer the pipeline produced,
// and the sources it cited.
type NoteStore interface {
	// Insert saves a note. On return note.ID is set.
	Insert(ctx context.Context, note *Note) error
	// GetByID gets a note by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id int64) (Note, error)
	// ListByWorkspace returns the notes of a workspace, newest first.
	ListByWorkspace(ctx context.Context, workspaceID string) ([]Note, error)
	// Delete removes a note. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id int64) error
}

// NoteRepo provides methods for note operations.
// It implements the NoteStore interface.
type NoteRepo struct {
	db *sql.DB
}

// NewNoteRepo creates a new NoteRepo.
func NewNoteRepo(db *sql.DB) *NoteRepo {
	return &NoteRepo{db: db}
}

// Insert saves a note. Sources are stored as a JSON array.
func (r *NoteRepo) Insert(ctx context.Context, note *Note) error {
	sources := note.Sources
	if sources == nil {
		sources = []string{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to encode note sources: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		"INSERT INTO notes (workspace_id, question, answer, sources) VALUES (?, ?, ?, ?)",
		note.WorkspaceID, note.Question, note.Answer, string(sourcesJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read note ID: %w", err)
	}
	note.ID = id
	return nil
}

// GetByID gets a note by its ID. Returns ErrNotFound if not found.
func (r *NoteRepo) GetByID(ctx context.Context, id int64) (Note, error) {
	var note Note
	var sourcesJSON string
	var createdAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, workspace_id, question, answer, sources, created_at FROM notes WHERE id = ?",
		id,
	).Scan(&note.ID, &note.WorkspaceID, &note.Question, &note.Answer, &sourcesJSON, &createdAtStr)

	if err == sql.ErrNoRows {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, fmt.Errorf("failed to query note: %w", err)
	}

	if err := json.Unmarshal([]byte(sourcesJSON), &note.Sources); err != nil {
		return Note{}, fmt.Errorf("failed to decode note sources: %w", err)
	}
	note.CreatedAt, err = parseTimestamp(createdAtStr)
	if err != nil {
		return Note{}, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}

	return note, nil
}

// ListByWorkspace returns the notes of a workspace, newest first.
func (r *NoteRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]Note, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, workspace_id, question, answer, sources, created_at FROM notes WHERE workspace_id = ? ORDER BY id DESC",
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var notes []Note
	for rows.Next() {
		var note Note
		var sourcesJSON string
		var createdAtStr string
		if err := rows.Scan(&note.ID, &note.WorkspaceID, &note.Question, &note.Answer, &sourcesJSON, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}

		if err := json.Unmarshal([]byte(sourcesJSON), &note.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode note sources: %w", err)
		}
		note.CreatedAt, err = parseTimestamp(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
		}

		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return notes, nil
}

// Delete removes a note. Returns ErrNotFound if it does not exist.
func (r *NoteRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
