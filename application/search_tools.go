package application

import (
	"context"
	"fmt"

	"photo-search/domain"
)

// SearchTools implements the three query primitives over the embedding
// gateway and the vector store. Tools are side-effect-free and propagate
// adapter errors untouched.
type SearchTools struct {
	embedder domain.EmbeddingClient
	store    domain.VectorStore
}

// NewSearchTools creates the tool set.
func NewSearchTools(embedder domain.EmbeddingClient, store domain.VectorStore) *SearchTools {
	return &SearchTools{embedder: embedder, store: store}
}

// TextSearch embeds the query text and runs a similarity search.
func (t *SearchTools) TextSearch(ctx context.Context, query string, k int, filter *domain.MetadataFilter) ([]domain.Match, error) {
	embedding, err := t.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := t.store.QuerySimilar(ctx, embedding, k, filter)
	if err != nil {
		return nil, err
	}
	return tagMatches(matches, domain.MatchedByText), nil
}

// ImageSearch embeds the query image and runs a similarity search.
func (t *SearchTools) ImageSearch(ctx context.Context, image []byte, k int, filter *domain.MetadataFilter) ([]domain.Match, error) {
	embedding, err := t.embedder.EmbedImage(ctx, image)
	if err != nil {
		return nil, err
	}
	matches, err := t.store.QuerySimilar(ctx, embedding, k, filter)
	if err != nil {
		return nil, err
	}
	return tagMatches(matches, domain.MatchedByImage), nil
}

// MetadataFilter runs a store query with no similarity ranking. Results are
// ordered by captured_at descending, the contractually stated fallback
// ordering for unranked queries.
func (t *SearchTools) MetadataFilter(ctx context.Context, filter *domain.MetadataFilter, k int) ([]domain.Match, error) {
	matches, err := t.store.Scroll(ctx, filter, k)
	if err != nil {
		return nil, err
	}
	return tagMatches(matches, domain.MatchedByMetadata), nil
}

// Execute dispatches one validated tool call. image is the request's query
// image, used only by image_search.
func (t *SearchTools) Execute(ctx context.Context, call domain.ToolCall, image []byte) ([]domain.Match, error) {
	switch call.Name {
	case domain.ToolTextSearch:
		return t.TextSearch(ctx, call.Query, call.K, call.Filter)
	case domain.ToolImageSearch:
		if len(image) == 0 {
			return nil, fmt.Errorf("%w: image_search without a query image", domain.ErrInvalidToolCall)
		}
		return t.ImageSearch(ctx, image, call.K, call.Filter)
	case domain.ToolMetadataFilter:
		return t.MetadataFilter(ctx, call.Filter, call.K)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidToolCall, call.Name)
	}
}

func tagMatches(matches []domain.Match, by domain.MatchedBy) []domain.Match {
	for i := range matches {
		matches[i].MatchedBy = by
	}
	return matches
}
