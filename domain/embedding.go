package domain

import "context"

// EmbeddingClient defines the interface for the CLIP embedding gateway. Text
// and image embeddings share one vector space of fixed dimension. Both
// methods fail with ErrEmbedding when the gateway cannot produce a vector.
type EmbeddingClient interface {
	EmbedText(ctx context.Context, text string) (Embedding, error)
	EmbedImage(ctx context.Context, image []byte) (Embedding, error)
}
