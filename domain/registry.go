package domain

import "context"

// StatusRegistry records the queue-side lifecycle of object keys so that
// ingest status can be observed without coupling to process memory. Only the
// states the vector store cannot answer are stored here: queued and
// dead-lettered. Indexed is derived from the store itself.
type StatusRegistry interface {
	MarkQueued(ctx context.Context, key string) error
	MarkDeadLettered(ctx context.Context, key, reason string) error
	// Clear removes any marker for key, called after a successful upsert.
	Clear(ctx context.Context, key string) error
	// Lookup returns the recorded status, or StatusAbsent if none exists.
	Lookup(ctx context.Context, key string) (IngestStatus, error)
}
