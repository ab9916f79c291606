package ingest

import "errors"

var (
	// ErrWorkspaceStoreRequired is returned when a workspace store is not provided.
	ErrWorkspaceStoreRequired = errors.New("workspace store required")

	// ErrDocumentStoreRequired is returned when a document store is not provided.
	ErrDocumentStoreRequired = errors.New("document store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrCollectionRequired is returned when a collection name is not provided.
	ErrCollectionRequired = errors.New("collection name required")

	// ErrEmptyDocument is returned when a file yields no text to index.
	ErrEmptyDocument = errors.New("no text content extracted")
)
