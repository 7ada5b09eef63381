package application

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"photo-search/domain"
)

// SearchService is the unified search orchestrator. Per request it decides
// which tools to run, either directly from the request shape or via the LLM
// planner when one is configured, then executes them itself and merges the
// results into a single ranked set.
type SearchService struct {
	tools   *SearchTools
	planner domain.Planner // nil disables the LLM path
}

// NewSearchService creates the orchestrator. planner may be nil.
func NewSearchService(tools *SearchTools, planner domain.Planner) *SearchService {
	return &SearchService{tools: tools, planner: planner}
}

// Search validates the request, obtains a plan, executes it and merges the
// tool results. When the planner produced the plan, a summary grounded in the
// executed tool results is attached; planner failures degrade to tool-only
// search and never fail the request on their own.
func (s *SearchService) Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	plan, planned := s.plan(ctx, req)
	plan = constrainPlan(plan, req)

	results, err := s.execute(ctx, plan, req.Image)
	if err != nil {
		return nil, err
	}

	merged := mergeResults(results, req.K)
	out := &domain.SearchResult{Matches: merged}

	if planned {
		out.Summary = s.summarize(ctx, req.Text, results)
	}
	return out, nil
}

// plan returns the tool calls to execute and whether the planner produced
// them. The planner gets one retry; any failure or out-of-enumeration
// proposal falls back to the direct plan.
func (s *SearchService) plan(ctx context.Context, req *domain.SearchRequest) (domain.SearchPlan, bool) {
	if s.planner == nil || req.Text == "" {
		return directPlan(req), false
	}

	var plan domain.SearchPlan
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		plan, err = s.planner.PlanSearch(ctx, req.Text, len(req.Image) > 0)
		if err == nil {
			break
		}
	}
	if err != nil {
		log.Warn().Err(err).Msg("planner failed twice, degrading to direct search")
		return directPlan(req), false
	}
	if err := validatePlan(plan, req); err != nil {
		log.Warn().Err(err).Msg("rejecting planner proposal, degrading to direct search")
		return directPlan(req), false
	}
	return plan, true
}

// directPlan maps the request shape straight onto tool calls: both modalities
// present means both vector tools run and their normalized scores interleave.
func directPlan(req *domain.SearchRequest) domain.SearchPlan {
	var plan domain.SearchPlan
	if req.Text != "" {
		plan = append(plan, domain.ToolCall{
			Name:  domain.ToolTextSearch,
			Query: req.Text,
			K:     req.K,
		})
	}
	if len(req.Image) > 0 {
		plan = append(plan, domain.ToolCall{
			Name: domain.ToolImageSearch,
			K:    req.K,
		})
	}
	if len(plan) == 0 {
		plan = append(plan, domain.ToolCall{
			Name: domain.ToolMetadataFilter,
			K:    req.K,
		})
	}
	return plan
}

// validatePlan re-checks a planner proposal against the tool enumeration and
// the request: the planner is untrusted input even after SDK-level parsing.
func validatePlan(plan domain.SearchPlan, req *domain.SearchRequest) error {
	if len(plan) == 0 {
		return domain.ErrInvalidToolCall
	}
	for _, call := range plan {
		switch call.Name {
		case domain.ToolTextSearch:
			if call.Query == "" {
				return domain.ErrInvalidToolCall
			}
		case domain.ToolImageSearch:
			if len(req.Image) == 0 {
				return domain.ErrInvalidToolCall
			}
		case domain.ToolMetadataFilter:
			if call.Filter.IsZero() {
				return domain.ErrInvalidToolCall
			}
		default:
			return domain.ErrInvalidToolCall
		}
		if err := call.Filter.Validate(); err != nil {
			return err
		}
		if call.K <= 0 || call.K > domain.MaxResultLimit {
			return domain.ErrInvalidToolCall
		}
	}
	return nil
}

// constrainPlan applies the request's metadata filter as a hard constraint to
// every call: the filter runs inside each store query, never as a post-hoc
// re-ranking step, so filtered results cannot silently evict ranked ones.
// Request fields win over planner-proposed fields.
func constrainPlan(plan domain.SearchPlan, req *domain.SearchRequest) domain.SearchPlan {
	if req.Filter.IsZero() {
		return plan
	}
	for i := range plan {
		plan[i].Filter = mergeFilters(req.Filter, plan[i].Filter)
	}
	return plan
}

func mergeFilters(request, proposed *domain.MetadataFilter) *domain.MetadataFilter {
	if proposed.IsZero() {
		f := *request
		return &f
	}
	merged := *proposed
	if request.Year != 0 {
		merged.Year = request.Year
	}
	if request.Month != 0 {
		merged.Month = request.Month
	}
	if request.TimeOfDay != "" {
		merged.TimeOfDay = request.TimeOfDay
	}
	if request.Location != "" {
		merged.Location = request.Location
	}
	if request.CameraMake != "" {
		merged.CameraMake = request.CameraMake
	}
	if request.CameraModel != "" {
		merged.CameraModel = request.CameraModel
	}
	if request.Tag != "" {
		merged.Tag = request.Tag
	}
	return &merged
}

// execute runs the plan's calls concurrently. Tools are read-only, so an
// abandoned request simply discards results via the context. Any tool failure
// fails the whole request; failures are surfaced, never silently dropped.
func (s *SearchService) execute(ctx context.Context, plan domain.SearchPlan, image []byte) ([]domain.ToolResult, error) {
	results := make([]domain.ToolResult, len(plan))
	errs := make([]error, len(plan))

	var wg sync.WaitGroup
	for i, call := range plan {
		wg.Add(1)
		go func(i int, call domain.ToolCall) {
			defer wg.Done()
			matches, err := s.tools.Execute(ctx, call, image)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = domain.ToolResult{Call: call, Matches: matches}
		}(i, call)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// mergeResults min-max normalizes each tool's score range to [0,1], dedupes
// by key keeping the best normalized score, and truncates to k dropping the
// lowest scores first. Normalization is per ranking pass: raw scores from
// different tools are never compared directly.
func mergeResults(results []domain.ToolResult, k int) []domain.Match {
	type ranked struct {
		match domain.Match
		rank  int
	}
	best := make(map[string]ranked)
	rank := 0
	for _, result := range results {
		for _, match := range normalizeScores(result.Matches) {
			prev, seen := best[match.Key]
			if !seen || match.Score > prev.match.Score {
				best[match.Key] = ranked{match: match, rank: rank}
			}
			rank++
		}
	}

	merged := make([]ranked, 0, len(best))
	for _, r := range best {
		merged = append(merged, r)
	}
	// Equal scores keep each tool's own ordering (similarity tie-breaks and
	// the captured-at ordering of metadata results arrive pre-sorted), with
	// key ordering as the final deterministic fallback.
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].match.Score != merged[j].match.Score {
			return merged[i].match.Score > merged[j].match.Score
		}
		if merged[i].rank != merged[j].rank {
			return merged[i].rank < merged[j].rank
		}
		return merged[i].match.Key < merged[j].match.Key
	})
	if len(merged) > k {
		merged = merged[:k]
	}
	out := make([]domain.Match, len(merged))
	for i, r := range merged {
		out[i] = r.match
	}
	return out
}

// normalizeScores maps one tool's scores onto [0,1] preserving relative rank.
// A constant score range (including a single match) maps to 1.0.
func normalizeScores(matches []domain.Match) []domain.Match {
	if len(matches) == 0 {
		return matches
	}
	lo, hi := matches[0].Score, matches[0].Score
	for _, m := range matches[1:] {
		if m.Score < lo {
			lo = m.Score
		}
		if m.Score > hi {
			hi = m.Score
		}
	}
	out := make([]domain.Match, len(matches))
	copy(out, matches)
	if hi == lo {
		for i := range out {
			out[i].Score = 1
		}
		return out
	}
	for i := range out {
		out[i].Score = (out[i].Score - lo) / (hi - lo)
	}
	return out
}

// summarize asks the planner for a caller-facing summary of the executed
// results. It receives only the ToolResult payload; a repeated failure
// degrades to an empty summary rather than failing the request.
func (s *SearchService) summarize(ctx context.Context, query string, results []domain.ToolResult) string {
	var summary string
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		summary, err = s.planner.Summarize(ctx, query, results)
		if err == nil {
			return summary
		}
	}
	log.Warn().Err(err).Msg("summarization failed twice, returning results without summary")
	return ""
}
