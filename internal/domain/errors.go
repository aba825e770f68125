package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures, distinct from
// infrastructure errors.
var (
	// ErrNotFound indicates a referenced document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates malformed caller input, e.g. an empty
	// question or document id. Never retried.
	ErrValidation = errors.New("invalid input")
)

// ProviderError wraps a failed or timed-out embedding/generation call.
// It is retryable by the caller with backoff; the engine does not retry.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable marks the error class as safe to retry.
func (e *ProviderError) Retryable() bool { return true }

// IndexingError wraps a failure encountered while indexing one document.
// Bulk operations catch it per document and count it instead of aborting.
type IndexingError struct {
	DocumentID string
	Err        error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("indexing document %s: %v", e.DocumentID, e.Err)
}

func (e *IndexingError) Unwrap() error { return e.Err }

// IsRetryable reports whether err belongs to the retryable provider class.
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
