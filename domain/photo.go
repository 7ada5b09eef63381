package domain

// Embedding represents a fixed-dimension vector produced by the CLIP gateway
// for either a text query or an image.
type Embedding []float32

// PhotoRecord is the unit stored in the vector index: one photo, identified by
// its object key, with its embedding and flattened metadata.
//
// A PhotoRecord exists in the vector store if and only if its embedding has
// been successfully computed and durably upserted; re-ingesting the same key
// fully overwrites the previous record.
type PhotoRecord struct {
	Key       string         `json:"key"`
	Embedding Embedding      `json:"embedding,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Well-known metadata fields written by the ingestion worker and used by
// metadata filters. Everything else in the payload is passed through as-is.
const (
	MetaCapturedAt  = "captured_at"
	MetaYear        = "year"
	MetaMonth       = "month"
	MetaTimeOfDay   = "period_of_day"
	MetaLocation    = "location"
	MetaCameraMake  = "camera_make"
	MetaCameraModel = "camera_model"
	MetaTags        = "tags"
	MetaThumbnail   = "thumbnail_key"
)
