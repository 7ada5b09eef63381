package domain

import "fmt"

// Valid period_of_day values, as written by the metadata extractor.
var validTimesOfDay = map[string]bool{
	"morning":   true,
	"afternoon": true,
	"evening":   true,
	"night":     true,
}

// MetadataFilter is a predicate over non-embedding photo attributes. A nil
// pointer or zero-value filter matches everything. All set fields must match
// (conjunction).
type MetadataFilter struct {
	Year        int    `json:"year,omitempty" jsonschema_description:"Filter by capture year, e.g. 2024."`
	Month       int    `json:"month,omitempty" jsonschema_description:"Filter by capture month, 1-12."`
	TimeOfDay   string `json:"time_of_day,omitempty" jsonschema_description:"Filter by time of day: morning, afternoon, evening or night."`
	Location    string `json:"location,omitempty" jsonschema_description:"Filter by location name, e.g. Paris."`
	CameraMake  string `json:"camera_make,omitempty" jsonschema_description:"Filter by camera brand, e.g. Apple."`
	CameraModel string `json:"camera_model,omitempty" jsonschema_description:"Filter by camera model, e.g. iPhone 14 Pro."`
	Tag         string `json:"tag,omitempty" jsonschema_description:"Filter by a single tag that must be present on the photo."`
}

// IsZero reports whether no condition is set.
func (f *MetadataFilter) IsZero() bool {
	if f == nil {
		return true
	}
	return *f == MetadataFilter{}
}

// Validate checks field ranges. Out-of-range values come from LLM-proposed
// tool calls as well as API callers, so both paths funnel through here.
func (f *MetadataFilter) Validate() error {
	if f.IsZero() {
		return nil
	}
	if f.Month != 0 && (f.Month < 1 || f.Month > 12) {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidToolCall, f.Month)
	}
	if f.TimeOfDay != "" && !validTimesOfDay[f.TimeOfDay] {
		return fmt.Errorf("%w: unknown time_of_day %q", ErrInvalidToolCall, f.TimeOfDay)
	}
	return nil
}

// Matches evaluates the filter against a record's metadata. The Qdrant adapter
// pushes the same predicate into the store query; this in-process form backs
// the in-memory adapter and lets tests assert the no-leakage property.
func (f *MetadataFilter) Matches(metadata map[string]any) bool {
	if f.IsZero() {
		return true
	}
	if f.Year != 0 && intField(metadata, MetaYear) != f.Year {
		return false
	}
	if f.Month != 0 && intField(metadata, MetaMonth) != f.Month {
		return false
	}
	if f.TimeOfDay != "" && stringField(metadata, MetaTimeOfDay) != f.TimeOfDay {
		return false
	}
	if f.Location != "" && stringField(metadata, MetaLocation) != f.Location {
		return false
	}
	if f.CameraMake != "" && stringField(metadata, MetaCameraMake) != f.CameraMake {
		return false
	}
	if f.CameraModel != "" && stringField(metadata, MetaCameraModel) != f.CameraModel {
		return false
	}
	if f.Tag != "" && !hasTag(metadata, f.Tag) {
		return false
	}
	return true
}

func stringField(metadata map[string]any, key string) string {
	s, _ := metadata[key].(string)
	return s
}

func intField(metadata map[string]any, key string) int {
	switch v := metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func hasTag(metadata map[string]any, tag string) bool {
	switch tags := metadata[MetaTags].(type) {
	case []string:
		for _, t := range tags {
			if t == tag {
				return true
			}
		}
	case []any:
		for _, t := range tags {
			if s, ok := t.(string); ok && s == tag {
				return true
			}
		}
	}
	return false
}
