package domain

import "errors"

// Error taxonomy for the ingestion and search paths. Callers classify failures
// with errors.Is; infrastructure adapters wrap their native errors around these
// sentinels so the application layer never depends on driver error types.
var (
	// ErrTransientFetch indicates a temporary failure downloading an object;
	// the ingestion worker retries it with backoff.
	ErrTransientFetch = errors.New("transient fetch error")

	// ErrObjectNotFound indicates the referenced object does not exist in
	// object storage. No amount of retrying recovers a missing object, so the
	// worker dead-letters the message immediately.
	ErrObjectNotFound = errors.New("object not found")

	// ErrEmbedding indicates the embedding gateway failed to produce a vector.
	ErrEmbedding = errors.New("embedding error")

	// ErrStoreUnavailable indicates the vector store could not be reached or
	// did not confirm the operation.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrDimensionMismatch indicates an embedding whose length disagrees with
	// the collection's configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrMalformedMessage indicates a queue message that does not decode into
	// the expected ingestion shape. Dead-lettered without retry.
	ErrMalformedMessage = errors.New("malformed ingestion message")

	// ErrInvalidToolCall indicates a tool call outside the fixed tool
	// enumeration or with arguments that fail schema validation.
	ErrInvalidToolCall = errors.New("invalid tool call")

	// ErrQueryValidation indicates a search request that violates its
	// invariants (e.g. neither text nor image supplied, or k <= 0).
	ErrQueryValidation = errors.New("invalid search request")
)

// IsRetryable reports whether an ingestion failure is worth retrying.
// Transient fetch, embedding and store failures are retried up to the worker's
// retry budget; everything else dead-letters immediately.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientFetch) ||
		errors.Is(err, ErrEmbedding) ||
		errors.Is(err, ErrStoreUnavailable)
}
