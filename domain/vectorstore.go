package domain

import "context"

// VectorStore defines the interface for the persistent vector index.
type VectorStore interface {
	// Upsert atomically replaces any existing record for record.Key. The call
	// returns only after the store has confirmed durability. Fails with
	// ErrDimensionMismatch if the embedding length disagrees with the
	// collection dimension, or ErrStoreUnavailable if the index is down.
	Upsert(ctx context.Context, record PhotoRecord) error

	// QuerySimilar returns up to k records ordered by descending cosine
	// similarity, ties broken by ascending key. The filter is applied inside
	// the store query, so filtered-out records never count against k.
	QuerySimilar(ctx context.Context, embedding Embedding, k int, filter *MetadataFilter) ([]Match, error)

	// Scroll returns up to k records matching the filter with no similarity
	// ranking, ordered by captured_at descending.
	Scroll(ctx context.Context, filter *MetadataFilter, k int) ([]Match, error)

	// Delete removes the record for key. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a record for key is present in the index.
	Exists(ctx context.Context, key string) (bool, error)
}
