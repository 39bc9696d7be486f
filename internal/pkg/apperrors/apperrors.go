// Package apperrors defines the pipeline error taxonomy. Each kind marks a
// distinct failure boundary so callers can map it to retry policy and to a
// user-facing response without string matching.
package apperrors

import "fmt"

// AcquisitionError means the source text could not be obtained at all
// (bad reference, missing transcript, transcription failure).
type AcquisitionError struct {
	SourceType string
	SourceRef  string
	Err        error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire %s content from %q: %v", e.SourceType, e.SourceRef, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// GenerationError means the generative model produced no usable structured
// payload. It is distinct from ValidationError: here there is nothing to
// validate.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("generation failed (%s): %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ValidationError means a structured payload was returned but violates the
// declared schema. Field carries the offending field path, e.g.
// "insights[2].confidence". Validation failures are deterministic and must
// never be retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid summary payload: %s: %s", e.Field, e.Message)
}

// EmbeddingError marks a similarity computation failure for a single
// text/candidate pair.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string { return fmt.Sprintf("embedding failed: %v", e.Err) }

func (e *EmbeddingError) Unwrap() error { return e.Err }

// PersistenceConflictError covers gateway-level conflicts that are not
// idempotent duplicate-edge inserts, e.g. a user without a stored
// preference profile.
type PersistenceConflictError struct {
	Message string
}

func (e *PersistenceConflictError) Error() string { return e.Message }
