package commonModels

import "errors"

// Failure taxonomy of the ingestion and retrieval core. Callers match with
// errors.Is; adapters wrap these with context via fmt.Errorf and %w.
var (
	// ErrExtractionEmpty indicates a document produced no usable text.
	// The document is skipped and reported; the batch continues.
	ErrExtractionEmpty = errors.New("document extraction produced no text")

	// ErrEmbeddingUnavailable indicates the embedding model could not be
	// loaded or called. Fatal to ingestion; retrieval against an already
	// built index degrades per query instead of crashing at startup.
	ErrEmbeddingUnavailable = errors.New("embedding model unavailable")

	// ErrDuplicateVectorID indicates a vector id collision in the index.
	// This is an invariant violation in id assignment, not a user error.
	ErrDuplicateVectorID = errors.New("duplicate vector id")

	// ErrIndexUnavailable indicates the persisted index is missing,
	// corrupt, or was built with an incompatible dimension or metric.
	// Distinct from an empty index so callers can choose rebuild vs report.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrNotFound indicates a chunk store miss. During retrieval this is a
	// stale-reference condition and the hit is filtered, not propagated.
	ErrNotFound = errors.New("not found")
)
