package domain

import "encoding/json"

// FlattenMetadata collapses nested structure so the payload holds only
// scalars. A nested "exif" map is re-encoded as a JSON string under the same
// key; an absent or empty exif block becomes "unknown" so the field always
// exists. The input is not mutated.
func FlattenMetadata(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	switch exif := out["exif"].(type) {
	case map[string]any:
		if encoded, err := json.Marshal(exif); err == nil && len(exif) > 0 {
			out["exif"] = string(encoded)
		} else {
			out["exif"] = "unknown"
		}
	case string:
		if exif == "" {
			out["exif"] = "unknown"
		}
	default:
		out["exif"] = "unknown"
	}
	return out
}

// SanitizeMetadata replaces nil values with index-safe defaults: -1 for the
// numeric time fields, "unknown" for everything else.
func SanitizeMetadata(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if v != nil {
			out[k] = v
			continue
		}
		switch k {
		case MetaYear, MetaMonth, "hour":
			out[k] = -1
		default:
			out[k] = "unknown"
		}
	}
	return out
}
