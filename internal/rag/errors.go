package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrRetrieval is returned when the embedder, vector store or full-text
	// index fails. The evidence may exist; the pipeline could not reach it.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrGenerationUnavailable is returned when the generation backend fails
	// after the retry. Distinct from a refusal: the evidence existed.
	ErrGenerationUnavailable = errors.New("generation unavailable")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// retrievalError tags err with ErrRetrieval while keeping the cause chain.
func retrievalError(err error) error {
	return fmt.Errorf("%w: %w", ErrRetrieval, err)
}
