package domain

import "context"

// Planner is the LLM reasoning boundary. It rewrites a raw query into a
// structured plan over the fixed tool enumeration and summarizes executed
// tool results. It never calls tools itself, and Summarize receives only the
// literal ToolResult payload: the planner has no other channel through which
// photo content could enter a summary.
type Planner interface {
	// PlanSearch proposes a SearchPlan for the query. hasImage tells the
	// planner whether an image_search call is executable for this request.
	// Proposals outside the tool enumeration surface as ErrInvalidToolCall.
	PlanSearch(ctx context.Context, query string, hasImage bool) (SearchPlan, error)

	// Summarize produces a short caller-facing summary grounded exclusively
	// in the supplied tool results.
	Summarize(ctx context.Context, query string, results []ToolResult) (string, error)
}
