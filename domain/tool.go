package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ToolName enumerates the fixed set of search tools. The LLM planner may only
// propose calls drawn from this enumeration; anything else is rejected with
// ErrInvalidToolCall before execution.
type ToolName string

const (
	ToolTextSearch     ToolName = "text_search"
	ToolImageSearch    ToolName = "image_search"
	ToolMetadataFilter ToolName = "metadata_filter"
)

// TextSearchArgs are the validated arguments of the text_search tool.
type TextSearchArgs struct {
	Query          string `json:"query" jsonschema_description:"Natural-language description of the photos to find, in English."`
	K              int    `json:"k,omitempty" jsonschema_description:"Number of results to return (default 5, max 20)."`
	MetadataFilter
}

// ImageSearchArgs are the validated arguments of the image_search tool. The
// query image itself is taken from the search request; the planner only
// selects filters and the result count.
type ImageSearchArgs struct {
	K              int `json:"k,omitempty" jsonschema_description:"Number of results to return (default 5, max 20)."`
	MetadataFilter
}

// MetadataFilterArgs are the validated arguments of the metadata_filter tool.
type MetadataFilterArgs struct {
	K              int `json:"k,omitempty" jsonschema_description:"Number of results to return (default 5, max 20)."`
	MetadataFilter
}

// ToolCall is one schema-validated invocation of an enumerated tool.
type ToolCall struct {
	Name   ToolName        `json:"name"`
	Query  string          `json:"query,omitempty"`
	K      int             `json:"k"`
	Filter *MetadataFilter `json:"filter,omitempty"`
}

// SearchPlan is the ordered set of tool calls the orchestrator will execute
// for one request. The planner proposes it; the orchestrator validates and
// runs it. The planner never calls tools directly.
type SearchPlan []ToolCall

// ToolResult pairs an executed call with the literal matches it produced.
// This is the only payload the planner may see when summarizing.
type ToolResult struct {
	Call    ToolCall `json:"call"`
	Matches []Match  `json:"matches"`
}

// ParseToolCall validates a proposed (name, arguments) pair against the tool
// enumeration and argument schemas. Unknown tool names, unknown argument
// fields and out-of-range values all fail with ErrInvalidToolCall.
func ParseToolCall(name string, input json.RawMessage) (ToolCall, error) {
	call := ToolCall{Name: ToolName(name)}

	decode := func(v any) error {
		dec := json.NewDecoder(bytes.NewReader(input))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("%w: bad arguments for %s: %v", ErrInvalidToolCall, name, err)
		}
		return nil
	}

	switch call.Name {
	case ToolTextSearch:
		var args TextSearchArgs
		if err := decode(&args); err != nil {
			return ToolCall{}, err
		}
		if strings.TrimSpace(args.Query) == "" {
			return ToolCall{}, fmt.Errorf("%w: text_search requires a query", ErrInvalidToolCall)
		}
		call.Query = args.Query
		call.K = args.K
		call.Filter = filterOrNil(args.MetadataFilter)
	case ToolImageSearch:
		var args ImageSearchArgs
		if err := decode(&args); err != nil {
			return ToolCall{}, err
		}
		call.K = args.K
		call.Filter = filterOrNil(args.MetadataFilter)
	case ToolMetadataFilter:
		var args MetadataFilterArgs
		if err := decode(&args); err != nil {
			return ToolCall{}, err
		}
		if args.MetadataFilter.IsZero() {
			return ToolCall{}, fmt.Errorf("%w: metadata_filter requires at least one condition", ErrInvalidToolCall)
		}
		call.K = args.K
		call.Filter = filterOrNil(args.MetadataFilter)
	default:
		return ToolCall{}, fmt.Errorf("%w: unknown tool %q", ErrInvalidToolCall, name)
	}

	if call.Filter != nil {
		if err := call.Filter.Validate(); err != nil {
			return ToolCall{}, err
		}
	}
	if call.K < 0 {
		return ToolCall{}, fmt.Errorf("%w: k must not be negative, got %d", ErrInvalidToolCall, call.K)
	}
	if call.K == 0 {
		call.K = DefaultResultLimit
	}
	if call.K > MaxResultLimit {
		call.K = MaxResultLimit
	}
	return call, nil
}

func filterOrNil(f MetadataFilter) *MetadataFilter {
	if f.IsZero() {
		return nil
	}
	return &f
}
