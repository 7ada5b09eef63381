package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog/log"

	"photo-search/domain"
)

// NoMatchesSummary is returned verbatim when every tool came back empty, so
// the model never gets a chance to invent photos that do not exist.
const NoMatchesSummary = "No matching photos were found."

const planSystemPrompt = `You are a search planner for a private photo library.
Translate the user's request into calls to the available search tools.

Rules:
- Use text_search for visual or semantic descriptions of photo content.
- Use metadata_filter for constraints like year, month, time of day, location, camera or tags.
- A request that mixes both should produce both calls, each carrying the shared filter conditions.
- Only call image_search when the request says a reference image is attached.
- Do not answer the request yourself. Respond only with tool calls.`

const summarizeSystemPrompt = `You summarize photo search results for the library's owner.
You are given the search results as JSON. Describe what was found in one or two sentences.

Rules:
- Mention only photos present in the results. Never invent photos, dates, places or counts.
- If you are unsure about a detail, leave it out.`

// Config selects the model used for planning and summaries.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
}

// AnthropicPlanner implements domain.Planner on the Anthropic messages API.
type AnthropicPlanner struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
	tools     []anthropic.ToolUnionParam
}

// NewAnthropicPlanner creates the planner client.
func NewAnthropicPlanner(cfg Config) (*AnthropicPlanner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is not set")
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)

	return &AnthropicPlanner{
		client:    &client,
		model:     anthropic.Model(cfg.Model),
		maxTokens: maxTokens,
		tools:     searchToolParams(),
	}, nil
}

// searchToolParams declares the three search tools the model may call. The
// schemas are reflected from the same structs the parser validates against.
func searchToolParams() []anthropic.ToolUnionParam {
	return []anthropic.ToolUnionParam{
		{OfTool: &anthropic.ToolParam{
			Name:        string(domain.ToolTextSearch),
			Description: anthropic.String("Find photos whose visual content matches a natural-language description."),
			InputSchema: generateSchema[domain.TextSearchArgs](),
		}},
		{OfTool: &anthropic.ToolParam{
			Name:        string(domain.ToolImageSearch),
			Description: anthropic.String("Find photos visually similar to the attached reference image."),
			InputSchema: generateSchema[domain.ImageSearchArgs](),
		}},
		{OfTool: &anthropic.ToolParam{
			Name:        string(domain.ToolMetadataFilter),
			Description: anthropic.String("List photos matching exact metadata conditions, newest first."),
			InputSchema: generateSchema[domain.MetadataFilterArgs](),
		}},
	}
}

// generateSchema reflects a JSON schema for the tool input type T.
func generateSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
	}
}

// PlanSearch asks the model to translate the request into tool calls.
func (p *AnthropicPlanner) PlanSearch(ctx context.Context, query string, hasImage bool) (domain.SearchPlan, error) {
	content := query
	if hasImage {
		content = fmt.Sprintf("%s\n\nA reference image is attached to this request.", query)
	}

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: planSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(content)),
		},
		Tools: p.tools,
	})
	if err != nil {
		return nil, fmt.Errorf("planning request failed: %w", err)
	}

	var plan domain.SearchPlan
	for _, block := range message.Content {
		if block.Type != "tool_use" {
			continue
		}
		call, err := domain.ParseToolCall(block.Name, []byte(block.Input))
		if err != nil {
			return nil, err
		}
		plan = append(plan, call)
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("%w: model produced no tool calls", domain.ErrInvalidToolCall)
	}

	log.Debug().Int("calls", len(plan)).Msg("search plan generated")
	return plan, nil
}

// summaryMatch is the trimmed view of a match handed to the model. Raw
// embeddings and thumbnail keys stay out of the prompt.
type summaryMatch struct {
	Key       string         `json:"key"`
	Score     float64        `json:"score"`
	MatchedBy string         `json:"matched_by"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Summarize produces a short narration of the results. The model sees only
// the tool outputs, never the store, so it cannot report photos that were not
// returned.
func (p *AnthropicPlanner) Summarize(ctx context.Context, query string, results []domain.ToolResult) (string, error) {
	total := 0
	views := make([]summaryMatch, 0)
	for _, result := range results {
		for _, match := range result.Matches {
			total++
			views = append(views, summaryMatch{
				Key:       match.Key,
				Score:     match.Score,
				MatchedBy: string(match.MatchedBy),
				Metadata:  match.Metadata,
			})
		}
	}
	if total == 0 {
		return NoMatchesSummary, nil
	}

	encoded, err := json.Marshal(views)
	if err != nil {
		return "", fmt.Errorf("encoding results: %w", err)
	}

	prompt := fmt.Sprintf("The user asked: %q\n\nSearch results:\n%s", query, encoded)
	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: summarizeSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("summary request failed: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("model returned no text content")
}

var _ domain.Planner = (*AnthropicPlanner)(nil)
