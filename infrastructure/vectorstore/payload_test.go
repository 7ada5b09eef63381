package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-search/domain"
)

func TestMapToPayloadRoundTrip(t *testing.T) {
	payload, err := mapToPayload(map[string]any{
		"object_key":  "a.jpg",
		"year":        2024,
		"aperture":    1.8,
		"favorite":    true,
		"tags":        []string{"beach", "sunset"},
		"annotations": []any{"x", int64(3)},
		"blank":       nil,
	})
	require.NoError(t, err)

	key, metadata := splitPayload(payload)
	assert.Equal(t, "a.jpg", key)
	assert.Equal(t, int64(2024), metadata["year"])
	assert.Equal(t, 1.8, metadata["aperture"])
	assert.Equal(t, true, metadata["favorite"])
	assert.Equal(t, []any{"beach", "sunset"}, metadata["tags"])
	assert.Equal(t, []any{"x", int64(3)}, metadata["annotations"])
	assert.Nil(t, metadata["blank"])
	assert.NotContains(t, metadata, "object_key")
}

func TestMapToPayload_WholeFloatsBecomeIntegers(t *testing.T) {
	// JSON decoding of an ingestion message yields float64 for all numbers.
	payload, err := mapToPayload(map[string]any{"year": float64(2024)})
	require.NoError(t, err)
	assert.Equal(t, int64(2024), payload["year"].GetIntegerValue())
}

func TestMapToPayload_UnsupportedType(t *testing.T) {
	_, err := mapToPayload(map[string]any{"bad": struct{}{}})
	assert.Error(t, err)
}

func TestBuildFilter(t *testing.T) {
	assert.Nil(t, buildFilter(nil))
	assert.Nil(t, buildFilter(&domain.MetadataFilter{}))

	filter := buildFilter(&domain.MetadataFilter{
		Year:      2024,
		Month:     7,
		TimeOfDay: "evening",
		Location:  "Lisbon",
		Tag:       "beach",
	})
	require.NotNil(t, filter)
	assert.Len(t, filter.Must, 5)
}

func TestPointID_DeterministicPerKey(t *testing.T) {
	a := pointID("2024/07/beach.jpg")
	b := pointID("2024/07/beach.jpg")
	c := pointID("2024/07/other.jpg")

	assert.Equal(t, a.GetUuid(), b.GetUuid())
	assert.NotEqual(t, a.GetUuid(), c.GetUuid())
	assert.Len(t, a.GetUuid(), 36)
}
