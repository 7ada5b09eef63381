package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"

	"photo-search/domain"
)

// payloadKey holds the raw object key inside the point payload, since Qdrant
// point IDs must be UUIDs.
const payloadKey = "object_key"

// QdrantConfig carries the deployment-fixed collection parameters.
type QdrantConfig struct {
	Addr       string
	Collection string
	Dimension  int
	Distance   string // "cosine" or "dot"
}

// QdrantStore implements domain.VectorStore on a Qdrant collection.
type QdrantStore struct {
	points     qdrant.PointsClient
	collection string
	dimension  int
}

// NewQdrantStore connects to Qdrant and ensures the photo collection exists
// with the configured dimension, distance metric and payload field indexes.
func NewQdrantStore(ctx context.Context, cfg QdrantConfig) (*QdrantStore, error) {
	conn, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: could not connect to qdrant: %v", domain.ErrStoreUnavailable, err)
	}

	store := &QdrantStore{
		points:     qdrant.NewPointsClient(conn),
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
	}

	collections := qdrant.NewCollectionsClient(conn)
	if err := store.ensureCollection(ctx, collections, cfg); err != nil {
		return nil, err
	}
	return store, nil
}

// ensureCollection checks if the collection exists and creates it (with its
// filterable payload indexes) if it doesn't.
func (s *QdrantStore) ensureCollection(ctx context.Context, collections qdrant.CollectionsClient, cfg QdrantConfig) error {
	_, err := collections.Get(ctx, &qdrant.GetCollectionInfoRequest{
		CollectionName: s.collection,
	})
	if err == nil {
		return nil
	}

	log.Info().Str("collection", s.collection).Int("dimension", cfg.Dimension).
		Msg("collection does not exist, creating")

	_, err = collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(cfg.Dimension),
			Distance: convertToDistance(cfg.Distance),
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create collection: %v", domain.ErrStoreUnavailable, err)
	}

	for field, fieldType := range map[string]qdrant.FieldType{
		payloadKey:             qdrant.FieldType_FieldTypeKeyword,
		domain.MetaLocation:    qdrant.FieldType_FieldTypeKeyword,
		domain.MetaTimeOfDay:   qdrant.FieldType_FieldTypeKeyword,
		domain.MetaCameraMake:  qdrant.FieldType_FieldTypeKeyword,
		domain.MetaCameraModel: qdrant.FieldType_FieldTypeKeyword,
		domain.MetaTags:        qdrant.FieldType_FieldTypeKeyword,
		domain.MetaYear:        qdrant.FieldType_FieldTypeInteger,
		domain.MetaMonth:       qdrant.FieldType_FieldTypeInteger,
		domain.MetaCapturedAt:  qdrant.FieldType_FieldTypeDatetime,
	} {
		_, err = s.points.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      fieldType.Enum(),
			Wait:           proto.Bool(true),
		})
		if err != nil {
			return fmt.Errorf("%w: failed to create %s index: %v", domain.ErrStoreUnavailable, field, err)
		}
	}
	return nil
}

// convertToDistance maps the configured metric name onto the Qdrant enum.
func convertToDistance(name string) qdrant.Distance {
	switch strings.ToLower(name) {
	case "dot", "inner-product":
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

// pointID derives the deterministic point UUID for an object key, so that
// redelivered upserts for the same key always land on the same point.
func pointID(key string) *qdrant.PointId {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(key))
	return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: id.String()}}
}

// Upsert replaces the record for record.Key. Wait=true holds the call until
// Qdrant confirms the write is durable, which is what allows the ingestion
// worker to ack the queue message afterwards.
func (s *QdrantStore) Upsert(ctx context.Context, record domain.PhotoRecord) error {
	if len(record.Embedding) != s.dimension {
		return fmt.Errorf("%w: expected %d dimensions, got %d",
			domain.ErrDimensionMismatch, s.dimension, len(record.Embedding))
	}

	payloadMap := map[string]any{payloadKey: record.Key}
	for k, v := range record.Metadata {
		payloadMap[k] = v
	}
	payload, err := mapToPayload(payloadMap)
	if err != nil {
		return fmt.Errorf("failed to convert payload for %s: %w", record.Key, err)
	}

	_, err = s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           proto.Bool(true),
		Points: []*qdrant.PointStruct{{
			Id:      pointID(record.Key),
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: record.Embedding}}},
			Payload: payload,
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: upsert failed: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// QuerySimilar runs a similarity search, pushing the metadata filter into the
// store query so filtered-out records never consume k.
func (s *QdrantStore) QuerySimilar(ctx context.Context, embedding domain.Embedding, k int, filter *domain.MetadataFilter) ([]domain.Match, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d",
			domain.ErrDimensionMismatch, s.dimension, len(embedding))
	}

	resp, err := s.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(k),
		Filter:         buildFilter(filter),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search failed: %v", domain.ErrStoreUnavailable, err)
	}

	matches := make([]domain.Match, 0, len(resp.GetResult()))
	for _, hit := range resp.GetResult() {
		key, metadata := splitPayload(hit.GetPayload())
		matches = append(matches, domain.Match{
			Key:      key,
			Score:    float64(hit.GetScore()),
			Metadata: metadata,
		})
	}
	sortMatches(matches)
	return matches, nil
}

// Scroll returns records matching the filter with no similarity ranking,
// ordered by captured_at descending.
func (s *QdrantStore) Scroll(ctx context.Context, filter *domain.MetadataFilter, k int) ([]domain.Match, error) {
	resp, err := s.points.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter:         buildFilter(filter),
		Limit:          proto.Uint32(uint32(k)),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
		OrderBy: &qdrant.OrderBy{
			Key:       domain.MetaCapturedAt,
			Direction: qdrant.Direction_Desc.Enum(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scroll failed: %v", domain.ErrStoreUnavailable, err)
	}

	matches := make([]domain.Match, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		key, metadata := splitPayload(point.GetPayload())
		matches = append(matches, domain.Match{Key: key, Metadata: metadata})
	}
	return matches, nil
}

// Delete removes the record for key. Qdrant treats deleting an absent point
// as a no-op, which gives us idempotence for free.
func (s *QdrantStore) Delete(ctx context.Context, key string) error {
	_, err := s.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           proto.Bool(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: []*qdrant.PointId{pointID(key)}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: delete failed: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Exists reports whether a record for key is present.
func (s *QdrantStore) Exists(ctx context.Context, key string) (bool, error) {
	resp, err := s.points.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{pointID(key)},
	})
	if err != nil {
		return false, fmt.Errorf("%w: get failed: %v", domain.ErrStoreUnavailable, err)
	}
	return len(resp.GetResult()) > 0, nil
}

// sortMatches enforces the deterministic ordering contract: descending score,
// ties broken by ascending key.
func sortMatches(matches []domain.Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Key < matches[j].Key
	})
}

var _ domain.VectorStore = (*QdrantStore)(nil)
