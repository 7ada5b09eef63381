package domain

import "fmt"

// MaxResultLimit caps k on every search path. Larger requests are clamped, not
// rejected, matching the behavior of the search tools.
const MaxResultLimit = 20

// DefaultResultLimit is used when a caller leaves k unset.
const DefaultResultLimit = 5

// MatchedBy identifies which search tool produced a match. Scores are
// comparable only among matches from the same tool within one ranking pass.
type MatchedBy string

const (
	MatchedByText     MatchedBy = "text_search"
	MatchedByImage    MatchedBy = "image_search"
	MatchedByMetadata MatchedBy = "metadata_filter"
)

// SearchRequest is a unified search query. At least one of Text and Image must
// be present unless a metadata filter is supplied on its own, in which case
// the request degrades to a pure metadata browse.
type SearchRequest struct {
	Text   string          `json:"text,omitempty"`
	Image  []byte          `json:"image,omitempty"`
	Filter *MetadataFilter `json:"filter,omitempty"`
	K      int             `json:"k"`
}

// Validate enforces the request invariants and normalizes k.
func (r *SearchRequest) Validate() error {
	if r.Text == "" && len(r.Image) == 0 && r.Filter.IsZero() {
		return fmt.Errorf("%w: provide query text, a query image, or a metadata filter", ErrQueryValidation)
	}
	if r.K < 0 {
		return fmt.Errorf("%w: k must not be negative, got %d", ErrQueryValidation, r.K)
	}
	if r.K == 0 {
		r.K = DefaultResultLimit
	}
	if r.K > MaxResultLimit {
		r.K = MaxResultLimit
	}
	if err := r.Filter.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrQueryValidation, err)
	}
	return nil
}

// Match is one ranked search hit.
type Match struct {
	Key       string         `json:"key"`
	Score     float64        `json:"score"`
	MatchedBy MatchedBy      `json:"matched_by"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// SearchResult is the ordered result set returned to the caller. Summary is
// only populated when the LLM planner handled the request; it is generated
// exclusively from the tool results that produced Matches.
type SearchResult struct {
	Matches []Match `json:"matches"`
	Summary string  `json:"summary,omitempty"`
}

// IngestStatus is the observable lifecycle state of an object key.
type IngestStatus string

const (
	StatusAbsent       IngestStatus = "absent"
	StatusQueued       IngestStatus = "queued"
	StatusIndexed      IngestStatus = "indexed"
	StatusDeadLettered IngestStatus = "dead_lettered"
)
