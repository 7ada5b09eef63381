package domain

import "context"

// ObjectStore defines the interface for fetching uploaded photo bytes.
// Fetch fails with ErrObjectNotFound when the key does not exist and
// ErrTransientFetch for connectivity or timeout failures.
type ObjectStore interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}
