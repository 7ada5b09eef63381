package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadataFilter_IsZero(t *testing.T) {
	var nilFilter *MetadataFilter
	assert.True(t, nilFilter.IsZero())
	assert.True(t, (&MetadataFilter{}).IsZero())
	assert.False(t, (&MetadataFilter{Year: 2024}).IsZero())
	assert.False(t, (&MetadataFilter{Tag: "beach"}).IsZero())
}

func TestMetadataFilter_Validate(t *testing.T) {
	assert.NoError(t, (&MetadataFilter{}).Validate())
	assert.NoError(t, (&MetadataFilter{Month: 12, TimeOfDay: "night"}).Validate())

	err := (&MetadataFilter{Month: 13}).Validate()
	assert.ErrorIs(t, err, ErrInvalidToolCall)

	err = (&MetadataFilter{Month: -1}).Validate()
	assert.ErrorIs(t, err, ErrInvalidToolCall)

	err = (&MetadataFilter{TimeOfDay: "midnightish"}).Validate()
	assert.ErrorIs(t, err, ErrInvalidToolCall)
}

func TestMetadataFilter_Matches_Conjunction(t *testing.T) {
	metadata := map[string]any{
		MetaYear:       2023,
		MetaMonth:      7,
		MetaTimeOfDay:  "evening",
		MetaLocation:   "Lisbon",
		MetaCameraMake: "Apple",
		MetaTags:       []string{"beach", "sunset"},
	}

	assert.True(t, (&MetadataFilter{Year: 2023, Month: 7}).Matches(metadata))
	assert.True(t, (&MetadataFilter{Location: "Lisbon", Tag: "sunset"}).Matches(metadata))

	// One failing condition fails the whole filter.
	assert.False(t, (&MetadataFilter{Year: 2023, Month: 8}).Matches(metadata))
	assert.False(t, (&MetadataFilter{Tag: "mountain"}).Matches(metadata))
}

func TestMetadataFilter_Matches_NumericRepresentations(t *testing.T) {
	// JSON decoding and store round-trips hand back different integer types.
	for _, year := range []any{2023, int64(2023), float64(2023)} {
		metadata := map[string]any{MetaYear: year}
		assert.True(t, (&MetadataFilter{Year: 2023}).Matches(metadata), "year as %T", year)
	}
}

func TestMetadataFilter_Matches_TagsFromJSON(t *testing.T) {
	// Tags decoded from JSON arrive as []any.
	metadata := map[string]any{MetaTags: []any{"beach", "sunset"}}
	assert.True(t, (&MetadataFilter{Tag: "beach"}).Matches(metadata))
	assert.False(t, (&MetadataFilter{Tag: "snow"}).Matches(metadata))
}

func TestMetadataFilter_Matches_NilMatchesEverything(t *testing.T) {
	var f *MetadataFilter
	assert.True(t, f.Matches(map[string]any{MetaYear: 1999}))
	assert.True(t, f.Matches(nil))
}

func TestMetadataFilter_Matches_MissingFieldFailsCondition(t *testing.T) {
	assert.False(t, (&MetadataFilter{Location: "Paris"}).Matches(map[string]any{}))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrTransientFetch))
	assert.True(t, IsRetryable(ErrEmbedding))
	assert.True(t, IsRetryable(ErrStoreUnavailable))

	assert.False(t, IsRetryable(ErrObjectNotFound))
	assert.False(t, IsRetryable(ErrMalformedMessage))
	assert.False(t, IsRetryable(ErrDimensionMismatch))
	assert.False(t, IsRetryable(errors.New("unclassified")))
}
