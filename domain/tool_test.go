package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolCall_TextSearch(t *testing.T) {
	call, err := ParseToolCall("text_search", json.RawMessage(`{
		"query": "dog playing in snow",
		"k": 10,
		"year": 2023,
		"tag": "winter"
	}`))
	require.NoError(t, err)
	assert.Equal(t, ToolTextSearch, call.Name)
	assert.Equal(t, "dog playing in snow", call.Query)
	assert.Equal(t, 10, call.K)
	require.NotNil(t, call.Filter)
	assert.Equal(t, 2023, call.Filter.Year)
	assert.Equal(t, "winter", call.Filter.Tag)
}

func TestParseToolCall_TextSearchRequiresQuery(t *testing.T) {
	_, err := ParseToolCall("text_search", json.RawMessage(`{"query": "  "}`))
	assert.ErrorIs(t, err, ErrInvalidToolCall)
}

func TestParseToolCall_UnknownTool(t *testing.T) {
	_, err := ParseToolCall("delete_all_photos", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrInvalidToolCall)
}

func TestParseToolCall_UnknownField(t *testing.T) {
	_, err := ParseToolCall("text_search", json.RawMessage(`{
		"query": "sunset", "similarity_cutoff": 0.5
	}`))
	assert.ErrorIs(t, err, ErrInvalidToolCall)
}

func TestParseToolCall_MetadataFilterNeedsACondition(t *testing.T) {
	_, err := ParseToolCall("metadata_filter", json.RawMessage(`{"k": 5}`))
	assert.ErrorIs(t, err, ErrInvalidToolCall)

	call, err := ParseToolCall("metadata_filter", json.RawMessage(`{"location": "Tokyo"}`))
	require.NoError(t, err)
	assert.Equal(t, ToolMetadataFilter, call.Name)
	assert.Equal(t, "Tokyo", call.Filter.Location)
}

func TestParseToolCall_ImageSearch(t *testing.T) {
	call, err := ParseToolCall("image_search", json.RawMessage(`{"k": 3}`))
	require.NoError(t, err)
	assert.Equal(t, ToolImageSearch, call.Name)
	assert.Equal(t, 3, call.K)
	assert.Nil(t, call.Filter)
}

func TestParseToolCall_NormalizesK(t *testing.T) {
	call, err := ParseToolCall("text_search", json.RawMessage(`{"query": "sunset"}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultResultLimit, call.K)

	call, err = ParseToolCall("text_search", json.RawMessage(`{"query": "sunset", "k": 500}`))
	require.NoError(t, err)
	assert.Equal(t, MaxResultLimit, call.K)

	_, err = ParseToolCall("text_search", json.RawMessage(`{"query": "sunset", "k": -1}`))
	assert.ErrorIs(t, err, ErrInvalidToolCall)
	assert.ErrorContains(t, err, "k must not be negative")
}

func TestParseToolCall_FilterValidation(t *testing.T) {
	_, err := ParseToolCall("metadata_filter", json.RawMessage(`{"month": 13}`))
	assert.ErrorIs(t, err, ErrInvalidToolCall)

	_, err = ParseToolCall("text_search", json.RawMessage(`{"query": "x", "time_of_day": "noonish"}`))
	assert.ErrorIs(t, err, ErrInvalidToolCall)
}
