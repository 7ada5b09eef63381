package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"photo-search/domain"
)

// MemoryStore is an in-process VectorStore with cosine ranking. It backs unit
// tests and single-node local runs where a Qdrant deployment is overkill.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]domain.PhotoRecord
}

// NewMemoryStore builds an empty store accepting vectors of the given size.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension: dimension,
		records:   make(map[string]domain.PhotoRecord),
	}
}

func (s *MemoryStore) Upsert(_ context.Context, record domain.PhotoRecord) error {
	if len(record.Embedding) != s.dimension {
		return fmt.Errorf("%w: expected %d dimensions, got %d",
			domain.ErrDimensionMismatch, s.dimension, len(record.Embedding))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Key] = record
	return nil
}

func (s *MemoryStore) QuerySimilar(_ context.Context, embedding domain.Embedding, k int, filter *domain.MetadataFilter) ([]domain.Match, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d",
			domain.ErrDimensionMismatch, s.dimension, len(embedding))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]domain.Match, 0, len(s.records))
	for key, record := range s.records {
		if filter != nil && !filter.Matches(record.Metadata) {
			continue
		}
		matches = append(matches, domain.Match{
			Key:      key,
			Score:    cosineSimilarity(embedding, record.Embedding),
			Metadata: record.Metadata,
		})
	}
	sortMatches(matches)
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *MemoryStore) Scroll(_ context.Context, filter *domain.MetadataFilter, k int) ([]domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]domain.Match, 0, len(s.records))
	for key, record := range s.records {
		if filter != nil && !filter.Matches(record.Metadata) {
			continue
		}
		matches = append(matches, domain.Match{Key: key, Metadata: record.Metadata})
	}
	sort.Slice(matches, func(i, j int) bool {
		ti, _ := matches[i].Metadata[domain.MetaCapturedAt].(string)
		tj, _ := matches[j].Metadata[domain.MetaCapturedAt].(string)
		if ti != tj {
			// RFC 3339 timestamps sort lexically, newest first.
			return ti > tj
		}
		return matches[i].Key < matches[j].Key
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[key]
	return ok, nil
}

func cosineSimilarity(a, b domain.Embedding) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ domain.VectorStore = (*MemoryStore)(nil)
