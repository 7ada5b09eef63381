package application

import (
	"context"

	"photo-search/domain"
)

// IngestStatusService answers ingest_status queries. Ingestion progress lives
// entirely in (message-in-queue vs record-in-store): indexed is derived from
// the vector store, queued and dead_lettered from the status registry, and
// anything else is absent.
type IngestStatusService struct {
	store    domain.VectorStore
	registry domain.StatusRegistry
}

// NewIngestStatusService creates the service. registry may be nil, limiting
// answers to absent/indexed.
func NewIngestStatusService(store domain.VectorStore, registry domain.StatusRegistry) *IngestStatusService {
	return &IngestStatusService{store: store, registry: registry}
}

// Status returns the observable lifecycle state of an object key.
func (s *IngestStatusService) Status(ctx context.Context, key string) (domain.IngestStatus, error) {
	indexed, err := s.store.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if indexed {
		return domain.StatusIndexed, nil
	}
	if s.registry == nil {
		return domain.StatusAbsent, nil
	}
	return s.registry.Lookup(ctx, key)
}
