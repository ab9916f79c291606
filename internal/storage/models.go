package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// Workspace is an isolated corpus of documents. IDs are caller-chosen
// strings so one service instance can host many corpora side by side.
type Workspace struct {
	ID        string
	CreatedAt time.Time
}

// Document represents one ingested file inside a workspace.
type Document struct {
	ID          int64
	WorkspaceID string
	Source      string // Original filename supplied at ingest time
	CreatedAt   time.Time
	ChunkCount  int // Populated by ListByWorkspace
}

// Chunk is one retrievable piece of a document.
type Chunk struct {
	ID         int64
	DocumentID int64
	ChunkIndex int // Position within the document (starts at 0)
	Content    string
	PointID    string // UUID of the matching vector store point
	Source     string // Document source, populated on joined reads
}

// SearchHit is a lexical match returned by full-text search.
// Rank is the raw bm25 value; lower means a better match.
type SearchHit struct {
	Chunk
	Rank float64
}

// Note is a saved question/answer pair with the sources it cited.
type Note struct {
	ID          int64
	WorkspaceID string
	Question    string
	Answer      string
	Sources     []string
	CreatedAt   time.Time
}

// parseTimestamp parses SQLite DATETIME values, which come back in the
// default format or RFC3339 depending on how they were written.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
